package types

import "time"

type SignalAction string

const (
	SignalActionBuy  SignalAction = "buy"
	SignalActionSell SignalAction = "sell"
	SignalActionHold SignalAction = "hold"
)

// Signal is the combined directional view for one tick.
// When ShouldTrade is false, Action is advisory only and must not be routed.
type Signal struct {
	Time        time.Time    `yaml:"time" json:"time"`
	Symbol      string       `yaml:"symbol" json:"symbol"`
	Action      SignalAction `yaml:"action" json:"action"`
	ShouldTrade bool         `yaml:"should_trade" json:"should_trade"`
	// Confidence is |Strength|, in [0,1].
	Confidence float64 `yaml:"confidence" json:"confidence"`
	// RiskScore is in [0,1]; higher is safer.
	RiskScore float64 `yaml:"risk_score" json:"risk_score"`

	Strength       float64 `yaml:"strength" json:"strength"`
	TrendDirection int     `yaml:"trend_direction" json:"trend_direction"`
	MomentumSignal int     `yaml:"momentum_signal" json:"momentum_signal"`
	ChannelSignal  int     `yaml:"channel_signal" json:"channel_signal"`
	InBand         bool    `yaml:"in_band" json:"in_band"`
}

// Actionable reports whether the signal may be routed as an order.
func (s Signal) Actionable() bool {
	return s.ShouldTrade && s.Action != SignalActionHold
}
