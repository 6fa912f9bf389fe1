package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// Lifecycle callback types for the trading loop.
// All callbacks with error return can abort execution if they return an error.

// OnEngineStartCallback is called when the engine starts successfully.
type OnEngineStartCallback func(symbol string, runID string) error

// OnEngineStopCallback is called when the engine stops (always called via defer).
type OnEngineStopCallback func(err error)

// OnMarketDataCallback is called for each price bar before it is processed.
type OnMarketDataCallback func(runID string, bar types.PriceBar) error

// OnSignalCallback is called after the strategy produced a signal.
type OnSignalCallback func(signal types.Signal, snapshot types.IndicatorSnapshot) error

// OnOrderRoutedCallback is called after the router returned, whether or not
// every child order succeeded.
type OnOrderRoutedCallback func(report types.ExecutionReport) error

// OnTradeClosedCallback is called when the ledger closed a position.
type OnTradeClosedCallback func(trade types.ClosedTrade, reason string) error

// OnErrorCallback is called when a non-fatal error occurs.
type OnErrorCallback func(err error)

// OnStatusUpdateCallback is called at the end of every processed bar.
type OnStatusUpdateCallback func(status Status) error

// Callbacks holds all lifecycle callback functions for the trading engine.
// All fields are pointers - nil means no callback will be invoked.
type Callbacks struct {
	OnEngineStart  *OnEngineStartCallback
	OnEngineStop   *OnEngineStopCallback
	OnMarketData   *OnMarketDataCallback
	OnSignal       *OnSignalCallback
	OnOrderRouted  *OnOrderRoutedCallback
	OnTradeClosed  *OnTradeClosedCallback
	OnError        *OnErrorCallback
	OnStatusUpdate *OnStatusUpdateCallback
}

// Strategy turns the visible price history into a trading signal.
type Strategy interface {
	Name() string
	Evaluate(bars []types.PriceBar) (types.Signal, types.IndicatorSnapshot, error)
}

// Journal persists routed orders and closed trades.
type Journal interface {
	RecordExecution(ctx context.Context, report types.ExecutionReport) error
	RecordTrade(ctx context.Context, symbol string, trade types.ClosedTrade, reason string) error
}

// Trade close reasons.
const (
	ReasonSignal     = "signal"
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"

	// ReasonPartialSuffix marks journaled slices of a partially filled exit.
	ReasonPartialSuffix = "_partial"
)

const (
	DefaultHistorySize    = 100
	DefaultUpdateInterval = 60 * time.Second
)

// Config configures the trading loop.
type Config struct {
	Symbol string `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=Trading pair the engine trades" validate:"required"`
	// HistorySize bounds the bars handed to the strategy.
	HistorySize int `yaml:"history_size" json:"history_size" jsonschema:"title=History Size,minimum=1,default=100" validate:"gte=1"`
	// UpdateInterval is the minimum bar time between two signal evaluations.
	// Zero evaluates every bar.
	UpdateInterval time.Duration `yaml:"update_interval" json:"update_interval" jsonschema:"title=Update Interval,type=string,default=1m0s" validate:"gte=0"`
	// EstimateHedging feeds returns-based delta, gamma and volatility to the
	// risk manager on every evaluation.
	EstimateHedging bool `yaml:"estimate_hedging" json:"estimate_hedging" jsonschema:"title=Estimate Hedging,default=false"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Symbol:          "BTCUSDT",
		HistorySize:     DefaultHistorySize,
		UpdateInterval:  DefaultUpdateInterval,
		EstimateHedging: false,
	}
}

// Status is the engine's externally visible state.
type Status struct {
	Symbol      string                `yaml:"symbol" json:"symbol"`
	RunID       string                `yaml:"run_id" json:"run_id"`
	Strategy    string                `yaml:"strategy" json:"strategy"`
	Bars        int                   `yaml:"bars" json:"bars"`
	LastBarTime time.Time             `yaml:"last_bar_time" json:"last_bar_time"`
	Portfolio   types.PortfolioStatus `yaml:"portfolio" json:"portfolio"`
	RiskMode    types.RiskMode        `yaml:"risk_mode" json:"risk_mode"`
	RiskBudget  types.RiskBudget      `yaml:"risk_budget" json:"risk_budget"`
	LastSignal  *types.Signal         `yaml:"last_signal" json:"last_signal"`
}
