package risk

// CostModel discounts a position size for execution frictions.
type CostModel interface {
	// Factor returns the multiplier applied to a raw position size.
	Factor() float64
}

type CostModelType string

const (
	CostModelPercentage CostModelType = "percentage"
	CostModelZero       CostModelType = "zero"
)

// PercentageCost discounts by transaction costs and slippage, both in percent
// (0.1 means 0.1%).
type PercentageCost struct {
	TransactionCosts float64
	Slippage         float64
}

func NewPercentageCost(transactionCosts, slippage float64) *PercentageCost {
	return &PercentageCost{
		TransactionCosts: transactionCosts,
		Slippage:         slippage,
	}
}

func (c *PercentageCost) Factor() float64 {
	return (1 - c.TransactionCosts/100) * (1 - c.Slippage/100)
}

// ZeroCost applies no discount.
type ZeroCost struct{}

func NewZeroCost() *ZeroCost {
	return &ZeroCost{}
}

func (c *ZeroCost) Factor() float64 {
	return 1
}

// GetCostModel returns the model for kind. Unknown kinds fall back to percentage costs.
func GetCostModel(kind CostModelType, transactionCosts, slippage float64) CostModel {
	switch kind {
	case CostModelZero:
		return NewZeroCost()
	default:
		return NewPercentageCost(transactionCosts, slippage)
	}
}
