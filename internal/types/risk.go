package types

type RiskMode string

const (
	RiskModeActive RiskMode = "ACTIVE"
	RiskModeHalted RiskMode = "HALTED"
)

// RiskBudget is the loss accounting kept by the risk manager.
type RiskBudget struct {
	DailyLossAccum float64 `yaml:"daily_loss_accum" json:"daily_loss_accum"`
	TotalLossAccum float64 `yaml:"total_loss_accum" json:"total_loss_accum"`
	InitialBalance float64 `yaml:"initial_balance" json:"initial_balance"`
	// DayStartValue is the reference value for the daily loss, set on reset.
	DayStartValue float64 `yaml:"day_start_value" json:"day_start_value"`
}

// HedgingMetrics are the externally supplied exposure measures.
type HedgingMetrics struct {
	Delta      float64 `yaml:"delta" json:"delta"`
	Gamma      float64 `yaml:"gamma" json:"gamma"`
	Volatility float64 `yaml:"volatility" json:"volatility"`
}
