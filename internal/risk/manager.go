package risk

import (
	"math"
	"strconv"
	"sync"

	"github.com/rxtech-lab/argo-autotrader/internal/log"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// Config holds the risk parameters. Every percentage is in percent units,
// so 1.0 means 1%.
type Config struct {
	InitialBalance             float64
	RiskPercentage             float64
	StopLossPercentage         float64
	TakeProfitPercentage       float64
	DailyLossLimitPercentage   float64
	OverallLossLimitPercentage float64
	DeltaThreshold             float64
	GammaThreshold             float64
	VolatilityThreshold        float64
}

// DefaultConfig returns the documented risk defaults.
func DefaultConfig() Config {
	return Config{
		InitialBalance:             10000,
		RiskPercentage:             1.0,
		StopLossPercentage:         2.0,
		TakeProfitPercentage:       5.0,
		DailyLossLimitPercentage:   4.0,
		OverallLossLimitPercentage: 10.0,
		DeltaThreshold:             0.5,
		GammaThreshold:             0.5,
		VolatilityThreshold:        0.05,
	}
}

// Manager sizes positions, sets protective price levels and enforces loss
// limits. It is ACTIVE until a limit check fails, then HALTED until Reset.
//
// Manager only reports vetoes; the caller must stop opening positions while
// it is halted.
type Manager struct {
	mu      sync.Mutex
	config  Config
	cost    CostModel
	metrics types.HedgingMetrics
	budget  types.RiskBudget
	mode    types.RiskMode
	sink    log.Sink
	logger  *logger.Logger
}

func NewManager(config Config, cost CostModel, sink log.Sink, l *logger.Logger) *Manager {
	if cost == nil {
		cost = NewZeroCost()
	}

	if sink == nil {
		sink = log.NopSink{}
	}

	if l == nil {
		l = logger.NewNop()
	}

	return &Manager{
		config: config,
		cost:   cost,
		budget: types.RiskBudget{
			InitialBalance: config.InitialBalance,
			DayStartValue:  config.InitialBalance,
		},
		mode:   types.RiskModeActive,
		sink:   sink,
		logger: l,
	}
}

// SizePosition converts balance into a position size at entryPrice.
//
// The base size risks RiskPercentage of balance. It is discounted by the cost
// model, and again by 1 - |metric|/10 (floored at 0) for each of delta and
// gamma that exceeds its threshold. The signal is recorded for diagnostics
// only. Sizing is evaluated even while halted.
func (m *Manager) SizePosition(balance, entryPrice float64, signal types.Signal) (float64, error) {
	if balance < 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidInput, "balance must not be negative, got %f", balance)
	}

	if entryPrice <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidInput, "entry price must be positive, got %f", entryPrice)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	base := balance * (m.config.RiskPercentage / 100) / entryPrice
	size := base * m.cost.Factor()

	if math.Abs(m.metrics.Delta) > m.config.DeltaThreshold {
		size *= exposureDiscount(m.metrics.Delta)
	}

	if math.Abs(m.metrics.Gamma) > m.config.GammaThreshold {
		size *= exposureDiscount(m.metrics.Gamma)
	}

	m.sink.Record(log.Event{
		Time:    signal.Time,
		Kind:    log.EventKindRisk,
		Level:   types.LogLevelDebug,
		Symbol:  signal.Symbol,
		Message: "position sized",
		Fields: map[string]string{
			"base":       formatFloat(base),
			"size":       formatFloat(size),
			"confidence": formatFloat(signal.Confidence),
			"mode":       string(m.mode),
		},
	})

	return size, nil
}

func exposureDiscount(metric float64) float64 {
	return math.Max(0, 1-math.Abs(metric)/10)
}

// StopLoss returns entryPrice reduced by StopLossPercentage.
func (m *Manager) StopLoss(entryPrice float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return entryPrice * (1 - m.config.StopLossPercentage/100)
}

// TakeProfit returns entryPrice raised by TakeProfitPercentage. When tracked
// volatility exceeds its threshold the percentage is scaled up by
// volatility/threshold.
func (m *Manager) TakeProfit(entryPrice float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	pct := m.config.TakeProfitPercentage
	if m.volatilityBreached() {
		pct *= m.metrics.Volatility / m.config.VolatilityThreshold
	}

	return entryPrice * (1 + pct/100)
}

func (m *Manager) volatilityBreached() bool {
	return m.metrics.Volatility > m.config.VolatilityThreshold
}

// CheckLimits updates the loss budget against currentTotalValue and reports
// whether new positions may be opened.
//
// The daily loss is measured from the value at the last reset (the initial
// balance before any reset). The total loss is the worst loss from the
// initial balance seen this session. Both limits are percentages of the
// initial balance. Any failure, or a volatility breach, halts the manager.
// A halted manager keeps reporting false until Reset.
func (m *Manager) CheckLimits(currentTotalValue float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	initial := m.budget.InitialBalance
	m.budget.DailyLossAccum = math.Max(0, m.budget.DayStartValue-currentTotalValue)
	m.budget.TotalLossAccum = math.Max(m.budget.TotalLossAccum, initial-currentTotalValue)

	reason := ""

	switch {
	case m.budget.DailyLossAccum > initial*m.config.DailyLossLimitPercentage/100:
		reason = "daily_loss_limit"
	case m.budget.TotalLossAccum > initial*m.config.OverallLossLimitPercentage/100:
		reason = "overall_loss_limit"
	case m.volatilityBreached():
		reason = "volatility_threshold"
	}

	if reason == "" {
		return m.mode == types.RiskModeActive
	}

	if m.mode != types.RiskModeHalted {
		m.mode = types.RiskModeHalted
		m.logger.Warn("Risk limits breached, trading halted",
			zap.String("reason", reason),
			zap.Float64("total_value", currentTotalValue),
			zap.Float64("daily_loss", m.budget.DailyLossAccum),
			zap.Float64("total_loss", m.budget.TotalLossAccum),
		)
		m.sink.Record(log.Event{
			Kind:    log.EventKindRisk,
			Level:   types.LogLevelWarn,
			Message: "risk halted",
			Fields: map[string]string{
				"reason":      reason,
				"total_value": formatFloat(currentTotalValue),
				"daily_loss":  formatFloat(m.budget.DailyLossAccum),
				"total_loss":  formatFloat(m.budget.TotalLossAccum),
			},
		})
	}

	return false
}

// Reset starts a new risk period at dayStartValue: the daily loss is
// cleared and the manager returns to ACTIVE. The total loss is kept.
func (m *Manager) Reset(dayStartValue float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.mode
	m.budget.DailyLossAccum = 0
	m.budget.DayStartValue = dayStartValue
	m.mode = types.RiskModeActive

	m.sink.Record(log.Event{
		Kind:    log.EventKindRisk,
		Level:   types.LogLevelInfo,
		Message: "risk period reset",
		Fields: map[string]string{
			"previous_mode":   string(previous),
			"day_start_value": formatFloat(dayStartValue),
		},
	})
}

// UpdateHedgingMetrics replaces the tracked delta, gamma and volatility.
func (m *Manager) UpdateHedgingMetrics(delta, gamma, volatility float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics = types.HedgingMetrics{
		Delta:      delta,
		Gamma:      gamma,
		Volatility: volatility,
	}
}

func (m *Manager) HedgingMetrics() types.HedgingMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.metrics
}

func (m *Manager) Mode() types.RiskMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mode
}

func (m *Manager) Halted() bool {
	return m.Mode() == types.RiskModeHalted
}

func (m *Manager) Budget() types.RiskBudget {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.budget
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
