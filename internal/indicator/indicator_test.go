package indicator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func (suite *IndicatorTestSuite) TestEMAFirstValueIsFirstInput() {
	ema := NewEMA()
	suite.Require().NoError(ema.Config(3))

	out, err := ema.Calculate([]float64{1, 2, 3})
	suite.Require().NoError(err)
	suite.InDeltaSlice([]float64{1, 1.5, 2.25}, out, 1e-12)
}

func (suite *IndicatorTestSuite) TestEMAConfig() {
	ema := NewEMA()
	suite.Equal(20, ema.period)
	suite.Equal(types.IndicatorTypeEMA, ema.Name())

	err := ema.Config()
	suite.Error(err)
	suite.Contains(err.Error(), "expects 1 parameter")

	err = ema.Config("ten")
	suite.Contains(err.Error(), "invalid type for period")

	err = ema.Config(0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInput))
	suite.Contains(err.Error(), "must be a positive integer")
}

func (suite *IndicatorTestSuite) TestRSIBounds() {
	rsi := NewRSI()
	suite.Require().NoError(rsi.Config(2))

	rising, err := rsi.Calculate([]float64{1, 2, 3})
	suite.Require().NoError(err)
	suite.Equal([]float64{50, 100, 100}, rising)

	falling, err := rsi.Calculate([]float64{3, 2, 1})
	suite.Require().NoError(err)
	suite.Equal([]float64{50, 0, 0}, falling)

	flat, err := rsi.Calculate([]float64{5, 5, 5})
	suite.Require().NoError(err)
	suite.Equal([]float64{50, 50, 50}, flat)
}

func (suite *IndicatorTestSuite) TestRSIWindow() {
	rsi := NewRSI()
	suite.Require().NoError(rsi.Config(2))

	out, err := rsi.Calculate([]float64{1, 2, 3, 2})
	suite.Require().NoError(err)
	// the last window holds +1 and -1
	suite.InDelta(50.0, out[3], 1e-12)

	suite.Require().NoError(rsi.Config(3))
	out, err = rsi.Calculate([]float64{10, 11, 10.5, 12})
	suite.Require().NoError(err)
	// gains 2.5, losses 0.5, rs 5
	suite.InDelta(100-100.0/6, out[3], 1e-9)
}

func (suite *IndicatorTestSuite) TestBollingerBands() {
	bb := NewBollingerBands()
	suite.Require().NoError(bb.Config(2, 2.0))

	bands, err := bb.Calculate([]float64{1, 3})
	suite.Require().NoError(err)

	suite.Equal([]float64{1, 2}, bands.Middle)
	suite.InDeltaSlice([]float64{1, 4}, bands.Upper, 1e-12)
	suite.InDeltaSlice([]float64{1, 0}, bands.Lower, 1e-12)
}

func (suite *IndicatorTestSuite) TestBollingerBandsConfig() {
	bb := NewBollingerBands()
	suite.Equal(2.0, bb.stdDev)

	suite.Error(bb.Config(20))
	suite.Error(bb.Config(20, 2))
	suite.Error(bb.Config(20, -1.0))
	suite.Error(bb.Config(-1, 2.0))
	suite.NoError(bb.Config(10, 1.5))
	suite.Equal(10, bb.period)
}

func (suite *IndicatorTestSuite) TestGChannelBuy() {
	g := NewGChannel()
	suite.Require().NoError(g.Config(2))

	channel, tag, err := g.Calculate([]float64{10, 12, 8})
	suite.Require().NoError(err)

	suite.Equal([]float64{10, 12, 11}, channel.Upper)
	suite.Equal([]float64{10, 10, 9}, channel.Lower)
	suite.Equal([]float64{10, 11, 10}, channel.Avg)
	suite.Equal(types.ChannelTagBuy, tag)
}

func (suite *IndicatorTestSuite) TestGChannelSell() {
	g := NewGChannel()
	suite.Require().NoError(g.Config(2))

	channel, tag, err := g.Calculate([]float64{10, 8, 12})
	suite.Require().NoError(err)

	suite.Equal([]float64{10, 10, 11}, channel.Upper)
	suite.Equal([]float64{10, 8, 9}, channel.Lower)
	suite.Equal(types.ChannelTagSell, tag)
}

func (suite *IndicatorTestSuite) TestGChannelHold() {
	g := NewGChannel()

	_, tag, err := g.Calculate([]float64{10})
	suite.Require().NoError(err)
	suite.Equal(types.ChannelTagHold, tag)

	_, tag, err = g.Calculate([]float64{10, 10, 10})
	suite.Require().NoError(err)
	suite.Equal(types.ChannelTagHold, tag)
}

func (suite *IndicatorTestSuite) TestEmptyInputRejected() {
	_, err := NewEMA().Calculate(nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInput))

	_, err = NewRSI().Calculate([]float64{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInput))

	_, err = NewBollingerBands().Calculate(nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInput))

	_, tag, err := NewGChannel().Calculate(nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInput))
	suite.Equal(types.ChannelTagHold, tag)
}

func (suite *IndicatorTestSuite) TestOutputsMatchInputLength() {
	rng := rand.New(rand.NewSource(7))
	engine, err := NewEngine(DefaultEngineConfig())
	suite.Require().NoError(err)

	for _, n := range []int{1, 2, 5, 19, 20, 21, 100} {
		closes := make([]float64, n)
		price := 100.0

		for i := range closes {
			price *= 1 + rng.NormFloat64()*0.01
			closes[i] = price
		}

		snap, err := engine.ComputeCloses(closes)
		suite.Require().NoError(err)

		for _, series := range [][]float64{
			snap.EMA, snap.RSI,
			snap.Bands.Lower, snap.Bands.Middle, snap.Bands.Upper,
			snap.Channel.Lower, snap.Channel.Upper, snap.Channel.Avg,
		} {
			suite.Len(series, n)

			for _, v := range series {
				suite.False(math.IsNaN(v))
				suite.False(math.IsInf(v, 0))
			}
		}

		for _, v := range snap.RSI {
			suite.GreaterOrEqual(v, 0.0)
			suite.LessOrEqual(v, 100.0)
		}
	}
}
