package execution

import "github.com/shopspring/decimal"

// MaxChildOrders bounds how many children one order may fan out into.
const MaxChildOrders = 10000

// SplitSize splits total into floor(total/maxSize) children of maxSize plus
// one remainder child. A zero remainder is omitted. Arithmetic is decimal so
// the children always sum to total exactly. It returns nil when the split
// would exceed MaxChildOrders children.
func SplitSize(total, maxSize float64) []float64 {
	if total <= 0 {
		return nil
	}

	if maxSize <= 0 || total <= maxSize {
		return []float64{total}
	}

	t := decimal.NewFromFloat(total)
	m := decimal.NewFromFloat(maxSize)

	full := t.Div(m).Floor()
	remainder := t.Sub(m.Mul(full))

	count := full
	if remainder.IsPositive() {
		count = count.Add(decimal.NewFromInt(1))
	}

	if count.GreaterThan(decimal.NewFromInt(MaxChildOrders)) {
		return nil
	}

	sizes := make([]float64, 0, count.IntPart())
	for range full.IntPart() {
		sizes = append(sizes, maxSize)
	}

	if remainder.IsPositive() {
		sizes = append(sizes, remainder.InexactFloat64())
	}

	return sizes
}
