package strategy

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/indicator"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type CombinedStrategyTestSuite struct {
	suite.Suite
}

func TestCombinedStrategySuite(t *testing.T) {
	suite.Run(t, new(CombinedStrategyTestSuite))
}

func snapshot(ema, rsi, lower, middle, upper float64, tag types.ChannelTag) types.IndicatorSnapshot {
	return types.IndicatorSnapshot{
		EMA: []float64{ema},
		RSI: []float64{rsi},
		Bands: types.BandSeries{
			Lower:  []float64{lower},
			Middle: []float64{middle},
			Upper:  []float64{upper},
		},
		Channel: types.ChannelSeries{
			Lower: []float64{lower},
			Upper: []float64{upper},
			Avg:   []float64{middle},
		},
		ChannelSignal: tag,
	}
}

func (suite *CombinedStrategyTestSuite) TestUnanimousBuyOutsideBands() {
	signal, err := Combine(snapshot(100, 25, 90, 100, 105, types.ChannelTagBuy), 110, DefaultThresholds())
	suite.Require().NoError(err)

	suite.Equal(types.SignalActionBuy, signal.Action)
	suite.Equal(1, signal.TrendDirection)
	suite.Equal(1, signal.MomentumSignal)
	suite.Equal(1, signal.ChannelSignal)
	suite.InDelta(1.0, signal.Confidence, 1e-12)
	suite.False(signal.InBand)
	suite.True(signal.ShouldTrade)
	// volatility risk clamps to 1
	suite.InDelta(0.0, signal.RiskScore, 1e-12)
}

func (suite *CombinedStrategyTestSuite) TestInBandNeverTrades() {
	signal, err := Combine(snapshot(100, 25, 90, 100, 120, types.ChannelTagBuy), 110, DefaultThresholds())
	suite.Require().NoError(err)

	suite.Equal(types.SignalActionBuy, signal.Action)
	suite.True(signal.InBand)
	suite.False(signal.ShouldTrade)
	suite.False(signal.Actionable())
	// (1 - 10/20) * 1 * (1 - 25/50)
	suite.InDelta(0.25, signal.RiskScore, 1e-12)
}

func (suite *CombinedStrategyTestSuite) TestUnanimousSell() {
	signal, err := Combine(snapshot(100, 80, 95, 100, 105, types.ChannelTagSell), 90, DefaultThresholds())
	suite.Require().NoError(err)

	suite.Equal(types.SignalActionSell, signal.Action)
	suite.InDelta(-1.0, signal.Strength, 1e-12)
	suite.True(signal.ShouldTrade)
}

func (suite *CombinedStrategyTestSuite) TestLowConfidenceIsAdvisory() {
	signal, err := Combine(snapshot(100, 50, 90, 100, 105, types.ChannelTagHold), 110, DefaultThresholds())
	suite.Require().NoError(err)

	suite.Equal(types.SignalActionBuy, signal.Action)
	suite.InDelta(1.0/3, signal.Confidence, 1e-12)
	suite.False(signal.ShouldTrade)
}

func (suite *CombinedStrategyTestSuite) TestBalancedVotesHold() {
	signal, err := Combine(snapshot(100, 20, 90, 100, 105, types.ChannelTagHold), 95, DefaultThresholds())
	suite.Require().NoError(err)

	suite.Equal(-1, signal.TrendDirection)
	suite.Equal(1, signal.MomentumSignal)
	suite.Equal(types.SignalActionHold, signal.Action)
	suite.Zero(signal.Confidence)
	suite.False(signal.ShouldTrade)
}

func (suite *CombinedStrategyTestSuite) TestPriceEqualToTrendIsDownTrend() {
	signal, err := Combine(snapshot(100, 50, 100, 100, 100, types.ChannelTagHold), 100, DefaultThresholds())
	suite.Require().NoError(err)
	suite.Equal(-1, signal.TrendDirection)
}

func (suite *CombinedStrategyTestSuite) TestCollapsedBandsHaveNoVolatilityRisk() {
	signal, err := Combine(snapshot(90, 50, 100, 100, 100, types.ChannelTagBuy), 100, DefaultThresholds())
	suite.Require().NoError(err)

	// price on the collapsed band is not strictly inside it
	suite.False(signal.InBand)
	suite.InDelta(2.0/3, signal.RiskScore, 1e-12)
}

func (suite *CombinedStrategyTestSuite) TestRiskScoreBounds() {
	rng := rand.New(rand.NewSource(42))

	for range 500 {
		middle := 100 + rng.Float64()*10
		half := rng.Float64() * 5
		tag := []types.ChannelTag{types.ChannelTagBuy, types.ChannelTagSell, types.ChannelTagHold}[rng.Intn(3)]
		snap := snapshot(90+rng.Float64()*20, rng.Float64()*100, middle-half, middle, middle+half, tag)

		signal, err := Combine(snap, 90+rng.Float64()*30, DefaultThresholds())
		suite.Require().NoError(err)
		suite.GreaterOrEqual(signal.RiskScore, 0.0)
		suite.LessOrEqual(signal.RiskScore, 1.0)
		suite.GreaterOrEqual(signal.Confidence, 0.0)
		suite.LessOrEqual(signal.Confidence, 1.0)
	}
}

func (suite *CombinedStrategyTestSuite) TestNeverSellsInUptrendWithNonNegativeMomentum() {
	rng := rand.New(rand.NewSource(1))
	thresholds := DefaultThresholds()

	for range 1000 {
		rsi := rng.Float64() * thresholds.Overbought
		tag := []types.ChannelTag{types.ChannelTagBuy, types.ChannelTagSell, types.ChannelTagHold}[rng.Intn(3)]
		trend := 100.0
		price := trend + 0.01 + rng.Float64()*10

		signal, err := Combine(snapshot(trend, rsi, 90, 100, 110, tag), price, thresholds)
		suite.Require().NoError(err)
		suite.Equal(1, signal.TrendDirection)
		suite.GreaterOrEqual(signal.MomentumSignal, 0)
		suite.NotEqual(types.SignalActionSell, signal.Action)
	}
}

func (suite *CombinedStrategyTestSuite) TestEmptySnapshot() {
	_, err := Combine(types.IndicatorSnapshot{}, 100, DefaultThresholds())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInput))
}

func (suite *CombinedStrategyTestSuite) TestEvaluateRisingSeries() {
	engine, err := indicator.NewEngine(indicator.DefaultEngineConfig())
	suite.Require().NoError(err)

	s := NewCombinedStrategy(engine, DefaultThresholds())
	suite.Equal("combined_strategy", s.Name())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.PriceBar, 0, 60)

	// flat then rising, crossing above the flat trend line
	for i := range 60 {
		price := 100.0
		if i >= 30 {
			price = 100 + float64(i-29)*0.5
		}

		bars = append(bars, types.PriceBar{Time: start.Add(time.Duration(i) * time.Minute), Symbol: "ETHUSDT", Close: price})

		signal, snap, err := s.Evaluate(bars)
		suite.Require().NoError(err)
		suite.Equal(len(bars), snap.Len())
		suite.Equal(bars[i].Time, signal.Time)
		suite.Equal("ETHUSDT", signal.Symbol)

		if signal.TrendDirection == 1 && signal.MomentumSignal >= 0 {
			suite.NotEqual(types.SignalActionSell, signal.Action)
		}
	}
}

func (suite *CombinedStrategyTestSuite) TestEvaluateEmpty() {
	engine, err := indicator.NewEngine(indicator.DefaultEngineConfig())
	suite.Require().NoError(err)

	_, _, err = NewCombinedStrategy(engine, DefaultThresholds()).Evaluate(nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInput))
}
