package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type GeneratorTestSuite struct {
	suite.Suite
}

func TestGeneratorTestSuite(t *testing.T) {
	suite.Run(t, new(GeneratorTestSuite))
}

func (suite *GeneratorTestSuite) TestDeterministicForSeed() {
	config := DefaultGeneratorConfig()
	config.Count = 200

	suite.Equal(Generate(config), Generate(config))

	other := config
	other.Seed = 7
	suite.NotEqual(Generate(config), Generate(other))
}

func (suite *GeneratorTestSuite) TestCandlesOpenAtPreviousClose() {
	config := DefaultGeneratorConfig()
	config.Count = 500

	generated := Generate(config)
	suite.Len(generated, 500)
	suite.Equal(config.InitialPrice, generated[0].Open)

	for i := 1; i < len(generated); i++ {
		suite.Equal(generated[i-1].Close, generated[i].Open)
		suite.Equal(generated[i-1].Time.Add(config.Interval), generated[i].Time)
	}
}

func (suite *GeneratorTestSuite) TestBarsAreWellFormed() {
	config := DefaultGeneratorConfig()
	config.Count = 1000
	config.Volatility = 0.05

	for _, bar := range Generate(config) {
		suite.Greater(bar.Low, 0.0)
		suite.GreaterOrEqual(bar.High, bar.Open)
		suite.GreaterOrEqual(bar.High, bar.Close)
		suite.LessOrEqual(bar.Low, bar.Open)
		suite.LessOrEqual(bar.Low, bar.Close)
		suite.GreaterOrEqual(bar.Volume, 0.0)
		suite.Equal("BTCUSDT", bar.Symbol)
	}
}

func (suite *GeneratorTestSuite) TestPositiveTrendDrifts() {
	config := DefaultGeneratorConfig()
	config.Count = 500
	config.Trend = 0.01
	config.Volatility = 0.001

	generated := Generate(config)
	suite.Greater(generated[len(generated)-1].Close, config.InitialPrice*2)
}

func (suite *GeneratorTestSuite) TestStreamMatchesGenerate() {
	config := DefaultGeneratorConfig()
	config.Count = 50

	collected, err := Collect(context.Background(), NewGeneratorSource(config))
	suite.NoError(err)
	suite.Equal(Generate(config), collected)
}

func (suite *GeneratorTestSuite) TestUnboundedStreamStopsOnCancel() {
	config := DefaultGeneratorConfig()
	config.Count = 0
	config.Delay = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var seen int
	for _, err := range NewGeneratorSource(config).Stream(ctx) {
		suite.NoError(err)
		seen++
	}

	suite.Greater(seen, 0)
	suite.Error(ctx.Err())
}
