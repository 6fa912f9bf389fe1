package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/execution"
	"github.com/rxtech-lab/argo-autotrader/internal/log"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/metrics"
	"github.com/rxtech-lab/argo-autotrader/internal/portfolio"
	"github.com/rxtech-lab/argo-autotrader/internal/risk"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/engine/session"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/internal/utils"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// sizePrecision truncates buy sizes so that price*size never exceeds cash.
const sizePrecision = 8

// fillTolerance absorbs float noise when comparing filled and requested sizes.
const fillTolerance = 1e-9

// Engine runs the tick loop: indicators and signal, risk gate, routing, ledger.
type Engine struct {
	config   Config
	strategy Strategy
	risk     *risk.Manager
	ledger   *portfolio.Ledger
	router   *execution.Router
	session  *session.SessionManager
	journal  Journal
	metrics  *metrics.Metrics
	sink     log.Sink
	log      *logger.Logger

	// mu guards the fields below, which Status reads from other goroutines.
	mu            sync.Mutex
	history       []types.PriceBar
	bars          int
	lastPrice     float64
	lastBarTime   time.Time
	lastEvaluated time.Time
	evaluated     bool
	lastSignal    *types.Signal
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithJournal persists every routed order and closed trade.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithSink sets the diagnostic event sink.
func WithSink(sink log.Sink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New wires an Engine from its pipeline stages.
func New(config Config, strategy Strategy, riskManager *risk.Manager, ledger *portfolio.Ledger, router *execution.Router, opts ...Option) (*Engine, error) {
	if strategy == nil || riskManager == nil || ledger == nil || router == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "engine needs a strategy, a risk manager, a ledger and a router")
	}

	if config.HistorySize <= 0 {
		config.HistorySize = DefaultHistorySize
	}

	if config.UpdateInterval < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "update interval must not be negative, got %s", config.UpdateInterval)
	}

	e := &Engine{
		config:   config,
		strategy: strategy,
		risk:     riskManager,
		ledger:   ledger,
		router:   router,
		journal:  nil,
		metrics:  nil,
		sink:     log.NopSink{},
		log:      logger.NewNop(),
		history:  make([]types.PriceBar, 0, config.HistorySize),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.sink == nil {
		e.sink = log.NopSink{}
	}

	if e.log == nil {
		e.log = logger.NewNop()
	}

	e.session = session.NewSessionManager(e.log)

	return e, nil
}

// callbackError marks an error returned by a user callback. Only these abort
// the loop; every other error is recorded and the loop continues.
type callbackError struct {
	name string
	err  error
}

func (c *callbackError) Error() string {
	return fmt.Sprintf("%s callback: %v", c.name, c.err)
}

func (c *callbackError) Unwrap() error {
	return c.err
}

func abortIfErr(name string, err error) error {
	if err == nil {
		return nil
	}

	return &callbackError{name: name, err: err}
}

// Run consumes source until the stream ends or ctx is cancelled. Cancellation
// is a normal stop and returns nil. Only a callback error ends Run early.
func (e *Engine) Run(ctx context.Context, source marketdata.Source, callbacks Callbacks) (err error) {
	e.session.Initialize(time.Now())
	runID := e.session.GetRunID()

	if callbacks.OnEngineStop != nil {
		defer func() {
			(*callbacks.OnEngineStop)(err)
		}()
	}

	if callbacks.OnEngineStart != nil {
		if err := (*callbacks.OnEngineStart)(e.config.Symbol, runID); err != nil {
			return abortIfErr("OnEngineStart", err)
		}
	}

	e.log.Info("Trading engine started",
		zap.String("symbol", e.config.Symbol),
		zap.String("strategy", e.strategy.Name()),
		zap.String("run_id", runID),
	)

	for bar, streamErr := range source.Stream(ctx) {
		if ctx.Err() != nil {
			break
		}

		if streamErr != nil {
			e.handleError(bar.Time, "market data", streamErr, callbacks)

			continue
		}

		if err := e.ProcessBar(ctx, bar, callbacks); err != nil {
			return err
		}
	}

	e.log.Info("Trading engine stopped",
		zap.String("run_id", runID),
		zap.Int("bars", e.barCount()),
	)

	return nil
}

// ProcessBar runs one tick of the pipeline. It returns an error only when a
// callback asked to abort.
func (e *Engine) ProcessBar(ctx context.Context, bar types.PriceBar, callbacks Callbacks) error {
	if bar.Close <= 0 {
		e.handleError(bar.Time, "market data",
			errors.Newf(errors.ErrCodeInvalidInput, "bar close must be positive, got %f", bar.Close), callbacks)

		return nil
	}

	history := e.observe(bar)
	e.metrics.ObserveBar(e.config.Symbol)

	if callbacks.OnMarketData != nil {
		if err := (*callbacks.OnMarketData)(e.session.GetRunID(), bar); err != nil {
			return abortIfErr("OnMarketData", err)
		}
	}

	price := bar.Close

	if e.session.HandleDateBoundary(bar.Time) {
		dayStart := e.ledger.TotalValue(price)
		e.risk.Reset(dayStart)
		e.record(bar.Time, log.EventKindSession, types.LogLevelInfo, "trading day started", map[string]string{
			"date":            e.session.GetCurrentDate(),
			"day_start_value": strconv.FormatFloat(dayStart, 'f', 2, 64),
		})
	}

	total := e.ledger.MarkToMarket(price)
	e.metrics.ObserveStatus(e.config.Symbol, e.ledger.Status(price))

	traded := false
	if e.due(bar.Time) {
		var err error
		if traded, err = e.evaluate(ctx, bar, history, total, callbacks); err != nil {
			return err
		}
	}

	// Stop loss and take profit are checked on every bar, halted or not.
	if position := e.ledger.Position(); !traded && position != nil {
		if err := e.protectiveExit(ctx, bar, *position, callbacks); err != nil {
			return err
		}
	}

	return e.publishStatus(callbacks)
}

// evaluate runs the strategy and acts on its signal. It reports whether an
// order was routed or vetoed for this bar.
func (e *Engine) evaluate(ctx context.Context, bar types.PriceBar, history []types.PriceBar, total float64, callbacks Callbacks) (bool, error) {
	signal, snapshot, err := e.strategy.Evaluate(history)
	if err != nil {
		e.handleError(bar.Time, "strategy", err, callbacks)

		return false, nil
	}

	e.mu.Lock()
	e.lastSignal = &signal
	e.mu.Unlock()

	e.metrics.ObserveSignal(signal)
	e.record(bar.Time, log.EventKindSignal, types.LogLevelDebug, "signal evaluated", map[string]string{
		"action":       string(signal.Action),
		"should_trade": strconv.FormatBool(signal.ShouldTrade),
		"strength":     strconv.FormatFloat(signal.Strength, 'f', 4, 64),
	})

	if callbacks.OnSignal != nil {
		if err := (*callbacks.OnSignal)(signal, snapshot); err != nil {
			return false, abortIfErr("OnSignal", err)
		}
	}

	if e.config.EstimateHedging {
		m := risk.EstimateHedgingMetrics(types.Closes(history))
		e.risk.UpdateHedgingMetrics(m.Delta, m.Gamma, m.Volatility)
	}

	// The halt only vetoes new exposure. Exits stay allowed so a halted
	// manager can still flatten the book.
	allowed := e.risk.CheckLimits(total)
	position := e.ledger.Position()

	switch {
	case signal.ShouldTrade && signal.Action == types.SignalActionBuy && position == nil:
		if !allowed {
			e.metrics.ObserveRiskVeto(e.config.Symbol)
			e.handleError(bar.Time, "risk gate",
				errors.Newf(errors.ErrCodeRiskHalted, "trading halted at total value %.2f", total), callbacks)

			return true, nil
		}

		return true, e.openLong(ctx, bar, signal, callbacks)
	case signal.ShouldTrade && signal.Action == types.SignalActionSell && position != nil:
		return true, e.closeLong(ctx, bar, *position, ReasonSignal, callbacks)
	}

	return false, nil
}

func (e *Engine) protectiveExit(ctx context.Context, bar types.PriceBar, position types.Position, callbacks Callbacks) error {
	price := bar.Close

	if price <= e.risk.StopLoss(position.EntryPrice) {
		return e.closeLong(ctx, bar, position, ReasonStopLoss, callbacks)
	}

	if price >= e.risk.TakeProfit(position.EntryPrice) {
		return e.closeLong(ctx, bar, position, ReasonTakeProfit, callbacks)
	}

	return nil
}

func (e *Engine) openLong(ctx context.Context, bar types.PriceBar, signal types.Signal, callbacks Callbacks) error {
	price := bar.Close
	cash := e.ledger.Cash()

	size, err := e.risk.SizePosition(cash, price, signal)
	if err != nil {
		e.handleError(bar.Time, "position sizing", err, callbacks)

		return nil
	}

	if affordable := utils.RoundToDecimalPrecision(cash/price, sizePrecision); size > affordable {
		size = affordable
	}

	if size <= 0 {
		e.log.Debug("Position size is zero, skipping buy", zap.Float64("cash", cash), zap.Float64("price", price))

		return nil
	}

	report, routeErr := e.router.Route(ctx, types.SideBuy, size, optional.None[float64]())
	if err := e.afterRoute(ctx, report, callbacks); err != nil {
		return err
	}

	if routeErr != nil {
		e.handleError(bar.Time, "route buy", routeErr, callbacks)
	}

	filled := report.FilledSize()
	if filled <= 0 {
		return nil
	}

	if filled+fillTolerance < size {
		e.record(bar.Time, log.EventKindExecution, types.LogLevelWarn, "buy partially filled", map[string]string{
			"requested": utils.FormatQuantity(size, sizePrecision),
			"filled":    utils.FormatQuantity(filled, sizePrecision),
		})
	}

	if err := e.ledger.OpenLong(price, filled, bar.Time); err != nil {
		e.handleError(bar.Time, "open position", err, callbacks)
	}

	return nil
}

// closeLong sells the whole position. A partial fill reduces the ledger by
// the filled size and leaves the rest open, so a later exit only sells what
// is still held.
func (e *Engine) closeLong(ctx context.Context, bar types.PriceBar, position types.Position, reason string, callbacks Callbacks) error {
	report, routeErr := e.router.Route(ctx, types.SideSell, position.Size, optional.None[float64]())
	if err := e.afterRoute(ctx, report, callbacks); err != nil {
		return err
	}

	filled := report.FilledSize()
	if filled+fillTolerance >= position.Size {
		if routeErr != nil {
			e.handleError(bar.Time, "route sell", routeErr, callbacks)
		}

		trade, err := e.ledger.CloseLong(bar.Close, bar.Time)
		if err != nil {
			e.handleError(bar.Time, "close position", err, callbacks)

			return nil
		}

		e.metrics.ObserveTrade(e.config.Symbol, trade)
		e.journalTrade(ctx, bar, trade, reason, callbacks)

		e.log.Info("Position closed",
			zap.String("symbol", e.config.Symbol),
			zap.String("reason", reason),
			zap.Float64("entry", trade.EntryPrice),
			zap.Float64("exit", trade.ExitPrice),
			zap.Float64("pnl", trade.PnL),
		)

		if callbacks.OnTradeClosed != nil {
			if err := (*callbacks.OnTradeClosed)(trade, reason); err != nil {
				return abortIfErr("OnTradeClosed", err)
			}
		}

		return nil
	}

	message := "sell not filled, position left open"
	if filled > 0 {
		message = "sell partially filled, remainder left open"

		trade, err := e.ledger.ReduceLong(bar.Close, filled, bar.Time)
		if err != nil {
			e.handleError(bar.Time, "reduce position", err, callbacks)
		} else {
			e.journalTrade(ctx, bar, trade, reason+ReasonPartialSuffix, callbacks)
		}
	}

	e.record(bar.Time, log.EventKindExecution, types.LogLevelWarn, message, map[string]string{
		"reason":    reason,
		"requested": utils.FormatQuantity(position.Size, sizePrecision),
		"filled":    utils.FormatQuantity(filled, sizePrecision),
	})

	if routeErr == nil {
		routeErr = errors.Newf(errors.ErrCodeOrderPlacementFailed,
			"sell filled %s of %s", utils.FormatQuantity(filled, sizePrecision), utils.FormatQuantity(position.Size, sizePrecision))
	}

	e.handleError(bar.Time, "route sell", routeErr, callbacks)

	return nil
}

func (e *Engine) journalTrade(ctx context.Context, bar types.PriceBar, trade types.ClosedTrade, reason string, callbacks Callbacks) {
	if e.journal == nil {
		return
	}

	if err := e.journal.RecordTrade(ctx, e.config.Symbol, trade, reason); err != nil {
		e.handleError(bar.Time, "journal trade", err, callbacks)
	}
}

// afterRoute journals and reports a routed order. Reports without any placed
// child are dropped.
func (e *Engine) afterRoute(ctx context.Context, report types.ExecutionReport, callbacks Callbacks) error {
	if len(report.Order.ChildOrders) == 0 {
		return nil
	}

	e.metrics.ObserveExecution(report)

	if e.journal != nil {
		if err := e.journal.RecordExecution(ctx, report); err != nil {
			e.handleError(e.lastTime(), "journal execution", err, callbacks)
		}
	}

	if callbacks.OnOrderRouted != nil {
		if err := (*callbacks.OnOrderRouted)(report); err != nil {
			return abortIfErr("OnOrderRouted", err)
		}
	}

	return nil
}

// handleError records a recoverable error. Risk vetoes are expected while
// halted and are logged at debug to keep the log readable.
func (e *Engine) handleError(at time.Time, stage string, err error, callbacks Callbacks) {
	kind := errors.Kind(err)
	e.metrics.ObserveError(e.config.Symbol, kind)

	level := types.LogLevelError
	if errors.HasCode(err, errors.ErrCodeRiskHalted) {
		level = types.LogLevelWarn

		e.log.Debug("Trade vetoed by risk manager", zap.String("stage", stage), zap.Error(err))
	} else {
		e.log.Error("Recoverable error",
			zap.String("stage", stage),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}

	e.record(at, log.EventKindTick, level, stage+" failed", map[string]string{
		"kind":  kind,
		"error": err.Error(),
	})

	if callbacks.OnError != nil {
		(*callbacks.OnError)(err)
	}
}

func (e *Engine) record(at time.Time, kind log.EventKind, level types.LogLevel, message string, fields map[string]string) {
	e.sink.Record(log.Event{
		Time:    at,
		Kind:    kind,
		Level:   level,
		Symbol:  e.config.Symbol,
		Message: message,
		Fields:  fields,
	})
}

func (e *Engine) publishStatus(callbacks Callbacks) error {
	if callbacks.OnStatusUpdate == nil {
		return nil
	}

	return abortIfErr("OnStatusUpdate", (*callbacks.OnStatusUpdate)(e.Status()))
}

// observe appends bar to the bounded history and returns a copy of it.
func (e *Engine) observe(bar types.PriceBar) []types.PriceBar {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.history) == e.config.HistorySize {
		copy(e.history, e.history[1:])
		e.history = e.history[:len(e.history)-1]
	}

	e.history = append(e.history, bar)
	e.bars++
	e.lastPrice = bar.Close
	e.lastBarTime = bar.Time

	out := make([]types.PriceBar, len(e.history))
	copy(out, e.history)

	return out
}

// due reports whether the signal should be re-evaluated at t and, if so,
// marks t as the last evaluation.
func (e *Engine) due(t time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.evaluated && t.Sub(e.lastEvaluated) < e.config.UpdateInterval {
		return false
	}

	e.evaluated = true
	e.lastEvaluated = t

	return true
}

func (e *Engine) barCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.bars
}

func (e *Engine) lastTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastBarTime
}

// Status reports the engine state at the last seen price. It is safe to call
// while Run is in progress.
func (e *Engine) Status() Status {
	e.mu.Lock()
	price := e.lastPrice
	bars := e.bars
	lastBarTime := e.lastBarTime

	var lastSignal *types.Signal
	if e.lastSignal != nil {
		s := *e.lastSignal
		lastSignal = &s
	}
	e.mu.Unlock()

	return Status{
		Symbol:      e.config.Symbol,
		RunID:       e.session.GetRunID(),
		Strategy:    e.strategy.Name(),
		Bars:        bars,
		LastBarTime: lastBarTime,
		Portfolio:   e.ledger.Status(price),
		RiskMode:    e.risk.Mode(),
		RiskBudget:  e.risk.Budget(),
		LastSignal:  lastSignal,
	}
}

// Ledger returns the portfolio ledger the engine trades against.
func (e *Engine) Ledger() *portfolio.Ledger {
	return e.ledger
}
