// Package backtest replays historical bars through the full trading pipeline
// against the paper exchange.
package backtest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/exchange"
	"github.com/rxtech-lab/argo-autotrader/internal/execution"
	"github.com/rxtech-lab/argo-autotrader/internal/indicator"
	"github.com/rxtech-lab/argo-autotrader/internal/log"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/metrics"
	"github.com/rxtech-lab/argo-autotrader/internal/portfolio"
	"github.com/rxtech-lab/argo-autotrader/internal/risk"
	"github.com/rxtech-lab/argo-autotrader/internal/strategy"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/engine"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// OnProgressCallback is called after each bar with the number of bars
// processed so far.
type OnProgressCallback func(current int, total int) error

// Callbacks holds the backtest callbacks. All fields are pointers - nil means
// no callback will be invoked.
type Callbacks struct {
	OnProgress    *OnProgressCallback
	OnTradeClosed *engine.OnTradeClosedCallback
}

// Result summarises one backtest run.
type Result struct {
	Symbol         string         `yaml:"symbol" json:"symbol"`
	Strategy       string         `yaml:"strategy" json:"strategy"`
	Start          time.Time      `yaml:"start" json:"start"`
	End            time.Time      `yaml:"end" json:"end"`
	Bars           int            `yaml:"bars" json:"bars"`
	InitialBalance float64        `yaml:"initial_balance" json:"initial_balance"`
	FinalValue     float64        `yaml:"final_value" json:"final_value"`
	PnLPercentage  float64        `yaml:"pnl_percentage" json:"pnl_percentage"`
	RealizedPnL    float64        `yaml:"realized_pnl" json:"realized_pnl"`
	Trades         int            `yaml:"trades" json:"trades"`
	WinRate        float64        `yaml:"win_rate" json:"win_rate"`
	MaxDrawdownPct float64        `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
	OpenPosition   float64        `yaml:"open_position" json:"open_position"`
	RiskMode       types.RiskMode `yaml:"risk_mode" json:"risk_mode"`
}

// Runner wires a fresh pipeline for every Run.
type Runner struct {
	config   config.Config
	strategy engine.Strategy
	journal  engine.Journal
	metrics  *metrics.Metrics
	sink     log.Sink
	logger   *logger.Logger
}

type Option func(*Runner)

// WithStrategy replaces the combined indicator strategy.
func WithStrategy(s engine.Strategy) Option {
	return func(r *Runner) {
		r.strategy = s
	}
}

func WithJournal(j engine.Journal) Option {
	return func(r *Runner) {
		r.journal = j
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithSink(sink log.Sink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

func NewRunner(cfg config.Config, opts ...Option) *Runner {
	r := &Runner{
		config: cfg,
		sink:   log.NopSink{},
		logger: logger.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run replays bars in order. Routing is unpaced and fills at each bar's
// close.
func (r *Runner) Run(ctx context.Context, bars []types.PriceBar, callbacks Callbacks) (Result, error) {
	if len(bars) == 0 {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "backtest needs at least one bar")
	}

	ledger, err := portfolio.NewLedger(r.config.InitialBalance, r.sink, r.logger)
	if err != nil {
		return Result{}, err
	}

	strat := r.strategy
	if strat == nil {
		indicators, err := indicator.NewEngine(r.config.IndicatorConfig())
		if err != nil {
			return Result{}, fmt.Errorf("failed to create indicator engine: %w", err)
		}

		strat = strategy.NewCombinedStrategy(indicators, r.config.Thresholds())
	}

	riskManager := risk.NewManager(r.config.RiskConfig(), r.config.CostModelConfig(), r.sink, r.logger)
	paper := exchange.NewPaperExchange(r.logger)

	routerConfig := r.config.RouterConfig()
	routerConfig.Pacing = 0
	router := execution.NewRouter(paper, routerConfig, r.sink, r.logger)

	opts := []engine.Option{engine.WithSink(r.sink), engine.WithLogger(r.logger), engine.WithMetrics(r.metrics)}
	if r.journal != nil {
		opts = append(opts, engine.WithJournal(r.journal))
	}

	eng, err := engine.New(r.config.EngineConfig(), strat, riskManager, ledger, router, opts...)
	if err != nil {
		return Result{}, err
	}

	total := len(bars)
	processed := 0

	onMarketData := engine.OnMarketDataCallback(func(_ string, bar types.PriceBar) error {
		paper.SetMarkPrice(bar.Close)

		return nil
	})
	onStatus := engine.OnStatusUpdateCallback(func(engine.Status) error {
		processed++
		if callbacks.OnProgress != nil {
			return (*callbacks.OnProgress)(processed, total)
		}

		return nil
	})

	engineCallbacks := engine.Callbacks{
		OnMarketData:   &onMarketData,
		OnStatusUpdate: &onStatus,
		OnTradeClosed:  callbacks.OnTradeClosed,
	}

	if err := eng.Run(ctx, marketdata.NewReplaySource(bars), engineCallbacks); err != nil {
		return Result{}, err
	}

	status := eng.Status()
	result := Result{
		Symbol:         r.config.Symbol,
		Strategy:       strat.Name(),
		Start:          bars[0].Time,
		End:            status.LastBarTime,
		Bars:           status.Bars,
		InitialBalance: r.config.InitialBalance,
		FinalValue:     status.Portfolio.TotalValue,
		PnLPercentage:  status.Portfolio.PnLPercentage,
		RealizedPnL:    status.Portfolio.RealizedPnL,
		Trades:         status.Portfolio.TradeCount,
		WinRate:        status.Portfolio.WinRate,
		MaxDrawdownPct: status.Portfolio.MaxDrawdownPct,
		OpenPosition:   status.Portfolio.PositionSize,
		RiskMode:       status.RiskMode,
	}

	r.logger.Info("Backtest finished",
		zap.String("symbol", result.Symbol),
		zap.Int("bars", result.Bars),
		zap.Float64("final_value", result.FinalValue),
		zap.Float64("pnl_percentage", result.PnLPercentage),
		zap.Int("trades", result.Trades),
	)

	return result, nil
}

// WriteResult writes result to path as YAML.
func WriteResult(path string, result Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}
