package backtest

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/journal"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/engine"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/mocks"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"gopkg.in/yaml.v3"
)

type BacktestTestSuite struct {
	suite.Suite
	config config.Config
}

func TestBacktestSuite(t *testing.T) {
	suite.Run(t, new(BacktestTestSuite))
}

func (suite *BacktestTestSuite) SetupTest() {
	suite.config = config.Default()
}

func flatBars(prices ...float64) []types.PriceBar {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.PriceBar, len(prices))

	for i, price := range prices {
		bars[i] = types.PriceBar{
			Symbol: "BTCUSDT",
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 10,
		}
	}

	return bars
}

func (suite *BacktestTestSuite) TestRunRejectsEmptyBars() {
	_, err := NewRunner(suite.config).Run(context.Background(), nil, Callbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInput))
}

func (suite *BacktestTestSuite) TestGeneratedBarsAreDeterministic() {
	bars := marketdata.Generate(suite.config.GeneratorConfig(300))

	var last, total int
	onProgress := OnProgressCallback(func(current, all int) error {
		last, total = current, all

		return nil
	})

	first, err := NewRunner(suite.config).Run(context.Background(), bars, Callbacks{OnProgress: &onProgress})
	suite.Require().NoError(err)

	second, err := NewRunner(suite.config).Run(context.Background(), bars, Callbacks{})
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.Equal(300, first.Bars)
	suite.Equal(300, last)
	suite.Equal(300, total)
	suite.Equal("BTCUSDT", first.Symbol)
	suite.Equal(bars[0].Time, first.Start)
	suite.Equal(bars[len(bars)-1].Time, first.End)
	suite.InDelta(first.InitialBalance*(1+first.PnLPercentage/100), first.FinalValue, 1e-6)
	suite.GreaterOrEqual(first.MaxDrawdownPct, 0.0)
}

func (suite *BacktestTestSuite) TestScriptedRoundTrip() {
	ctrl := gomock.NewController(suite.T())
	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("scripted").AnyTimes()
	gomock.InOrder(
		strategy.EXPECT().Evaluate(gomock.Any()).
			Return(types.Signal{Action: types.SignalActionBuy, ShouldTrade: true, Confidence: 1}, types.IndicatorSnapshot{}, nil),
		strategy.EXPECT().Evaluate(gomock.Any()).
			Return(types.Signal{Action: types.SignalActionSell, ShouldTrade: true, Confidence: 1}, types.IndicatorSnapshot{}, nil),
	)

	j, err := journal.NewJournal(logger.NewNop())
	suite.Require().NoError(err)
	defer j.Close()

	var reasons []string
	onTrade := engine.OnTradeClosedCallback(func(_ types.ClosedTrade, reason string) error {
		reasons = append(reasons, reason)

		return nil
	})

	runner := NewRunner(suite.config, WithStrategy(strategy), WithJournal(j))
	result, err := runner.Run(context.Background(), flatBars(100, 104), Callbacks{OnTradeClosed: &onTrade})
	suite.Require().NoError(err)

	// 1% of 10000 at 100 is 1 unit, discounted by 0.1% costs and 0.05% slippage.
	size := (1 - 0.001) * (1 - 0.0005)
	suite.Equal("scripted", result.Strategy)
	suite.Equal(1, result.Trades)
	suite.Equal(100.0, result.WinRate)
	suite.InDelta(size*4, result.RealizedPnL, 1e-6)
	suite.InDelta(10000+size*4, result.FinalValue, 1e-6)
	suite.Zero(result.OpenPosition)
	suite.Equal(types.RiskModeActive, result.RiskMode)
	suite.Equal([]string{engine.ReasonSignal}, reasons)

	summary, err := j.Summary(context.Background())
	suite.Require().NoError(err)
	suite.Equal(1, summary.TradeCount)
}

func (suite *BacktestTestSuite) TestProgressErrorAbortsRun() {
	stop := stderrors.New("stop")
	onProgress := OnProgressCallback(func(current, _ int) error {
		if current == 5 {
			return stop
		}

		return nil
	})

	bars := marketdata.Generate(suite.config.GeneratorConfig(50))
	_, err := NewRunner(suite.config).Run(context.Background(), bars, Callbacks{OnProgress: &onProgress})
	suite.ErrorIs(err, stop)
}

func (suite *BacktestTestSuite) TestWriteResult() {
	result := Result{
		Symbol:         "BTCUSDT",
		Strategy:       "combined",
		Start:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Bars:           1440,
		InitialBalance: 10000,
		FinalValue:     10125.5,
		PnLPercentage:  1.255,
		Trades:         4,
		WinRate:        75,
		MaxDrawdownPct: 1.2,
		RiskMode:       types.RiskModeActive,
	}

	path := filepath.Join(suite.T().TempDir(), "result.yaml")
	suite.Require().NoError(WriteResult(path, result))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Contains(string(data), "final_value: 10125.5")

	var loaded Result
	suite.Require().NoError(yaml.Unmarshal(data, &loaded))
	suite.Equal(result, loaded)
}

func (suite *BacktestTestSuite) TestWriteResultToMissingDirectory() {
	err := WriteResult(filepath.Join(suite.T().TempDir(), "missing", "result.yaml"), Result{})
	suite.Error(err)
}
