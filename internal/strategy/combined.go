package strategy

import (
	"math"

	"github.com/rxtech-lab/argo-autotrader/internal/indicator"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// Thresholds configure how indicator readings become a signal.
type Thresholds struct {
	Oversold      float64 `yaml:"rsi_oversold" json:"rsi_oversold"`
	Overbought    float64 `yaml:"rsi_overbought" json:"rsi_overbought"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
}

// DefaultThresholds returns oversold 30, overbought 70 and min confidence 0.7.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Oversold:      30,
		Overbought:    70,
		MinConfidence: 0.7,
	}
}

// Combine fuses the latest indicator readings into one signal. It is a pure
// function of its inputs.
//
// The trend, momentum and channel votes are each -1, 0 or +1; their mean is
// the signal strength and its magnitude the confidence. Price inside the
// volatility bands is a range-bound regime and is never traded.
func Combine(snapshot types.IndicatorSnapshot, price float64, thresholds Thresholds) (types.Signal, error) {
	if snapshot.Len() == 0 || len(snapshot.RSI) == 0 || len(snapshot.Bands.Middle) == 0 {
		return types.Signal{}, errors.New(errors.ErrCodeInvalidInput, "combine: empty indicator snapshot")
	}

	trend := types.Last(snapshot.EMA)
	rsi := types.Last(snapshot.RSI)
	lower := types.Last(snapshot.Bands.Lower)
	middle := types.Last(snapshot.Bands.Middle)
	upper := types.Last(snapshot.Bands.Upper)

	trendDirection := -1
	if price > trend {
		trendDirection = 1
	}

	momentumSignal := 0

	switch {
	case rsi < thresholds.Oversold:
		momentumSignal = 1
	case rsi > thresholds.Overbought:
		momentumSignal = -1
	}

	channelSignal := channelVote(snapshot.ChannelSignal)

	strength := float64(trendDirection+momentumSignal+channelSignal) / 3
	confidence := math.Abs(strength)
	inBand := lower < price && price < upper

	action := types.SignalActionHold

	switch {
	case strength > 0:
		action = types.SignalActionBuy
	case strength < 0:
		action = types.SignalActionSell
	}

	return types.Signal{
		Action:         action,
		ShouldTrade:    confidence >= thresholds.MinConfidence && !inBand,
		Confidence:     confidence,
		RiskScore:      riskScore(price, middle, upper, rsi, confidence),
		Strength:       strength,
		TrendDirection: trendDirection,
		MomentumSignal: momentumSignal,
		ChannelSignal:  channelSignal,
		InBand:         inBand,
	}, nil
}

func channelVote(tag types.ChannelTag) int {
	switch tag {
	case types.ChannelTagBuy:
		return 1
	case types.ChannelTagSell:
		return -1
	default:
		return 0
	}
}

// riskScore is (1 - volatility risk) * confidence * (1 - rsi risk).
// Volatility risk is the distance from the band middle relative to the half
// band width; rsi risk is the distance from 50 relative to 50. Both are
// clamped to [0,1]. Collapsed bands carry no volatility risk.
func riskScore(price, middle, upper, rsi, confidence float64) float64 {
	volatilityRisk := 0.0
	if halfWidth := upper - middle; halfWidth > 0 {
		volatilityRisk = clamp01(math.Abs(price-middle) / halfWidth)
	}

	rsiRisk := clamp01(math.Abs(50-rsi) / 50)

	return (1 - volatilityRisk) * confidence * (1 - rsiRisk)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// CombinedStrategy evaluates the indicator engine and the combiner together.
type CombinedStrategy struct {
	engine     *indicator.Engine
	thresholds Thresholds
}

func NewCombinedStrategy(engine *indicator.Engine, thresholds Thresholds) *CombinedStrategy {
	return &CombinedStrategy{
		engine:     engine,
		thresholds: thresholds,
	}
}

func (s *CombinedStrategy) Name() string {
	return "combined_strategy"
}

// Evaluate computes indicators over bars and combines them at the last close.
func (s *CombinedStrategy) Evaluate(bars []types.PriceBar) (types.Signal, types.IndicatorSnapshot, error) {
	snapshot, err := s.engine.Compute(bars)
	if err != nil {
		return types.Signal{}, types.IndicatorSnapshot{}, err
	}

	last := bars[len(bars)-1]

	signal, err := Combine(snapshot, last.Close, s.thresholds)
	if err != nil {
		return types.Signal{}, snapshot, err
	}

	signal.Time = last.Time
	signal.Symbol = last.Symbol

	return signal, snapshot, nil
}
