package portfolio

import (
	"math"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/log"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the single source of truth for capital state: cash, the open
// position, realized PnL, trade counters and drawdown. It is the only
// component that mutates capital.
//
// Every operation is all-or-nothing: a failed precondition leaves the ledger
// exactly as it was.
type Ledger struct {
	mu             sync.Mutex
	initialBalance decimal.Decimal
	cash           decimal.Decimal
	position       *types.Position
	peak           float64
	realizedPnL    decimal.Decimal
	// positionPnL is the PnL already realized by partial exits of the open
	// position. It decides whether the position counts as a win on close.
	positionPnL    decimal.Decimal
	trades         int
	wins           int
	maxDrawdownPct float64

	sink   log.Sink
	logger *logger.Logger
}

// NewLedger creates a flat ledger holding initialBalance in cash. The peak
// value starts at the initial balance.
func NewLedger(initialBalance float64, sink log.Sink, l *logger.Logger) (*Ledger, error) {
	if initialBalance < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "initial balance must not be negative, got %f", initialBalance)
	}

	if sink == nil {
		sink = log.NopSink{}
	}

	if l == nil {
		l = logger.NewNop()
	}

	balance := decimal.NewFromFloat(initialBalance)

	return &Ledger{
		initialBalance: balance,
		cash:           balance,
		peak:           initialBalance,
		realizedPnL:    decimal.Zero,
		positionPnL:    decimal.Zero,
		sink:           sink,
		logger:         l,
	}, nil
}

// OpenLong debits price*size from cash and opens a position.
func (l *Ledger) OpenLong(price, size float64, at time.Time) error {
	if price <= 0 || size <= 0 {
		return errors.Newf(errors.ErrCodeInvalidInput, "open long needs positive price and size, got price=%f size=%f", price, size)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.position != nil {
		return errors.Newf(errors.ErrCodePositionExists, "position of %f already open at %f", l.position.Size, l.position.EntryPrice)
	}

	cost := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(size))
	if cost.GreaterThan(l.cash) {
		return errors.Newf(errors.ErrCodeInsufficientFunds, "cost %s exceeds cash balance %s", cost.StringFixed(2), l.cash.StringFixed(2))
	}

	l.cash = l.cash.Sub(cost)
	l.position = &types.Position{
		EntryPrice: price,
		Size:       size,
		OpenedAt:   at,
	}

	l.logger.Info("Opened long position",
		zap.Float64("price", price),
		zap.Float64("size", size),
		zap.String("cash", l.cash.StringFixed(2)),
	)
	l.sink.Record(log.Event{
		Time:    at,
		Kind:    log.EventKindLedger,
		Level:   types.LogLevelInfo,
		Message: "long opened",
		Fields: map[string]string{
			"price": decimal.NewFromFloat(price).String(),
			"size":  decimal.NewFromFloat(size).String(),
			"cash":  l.cash.String(),
		},
	})

	return nil
}

// CloseLong credits size*price to cash, realizes the PnL and clears the
// position. The position counts as a win when its PnL, including earlier
// partial exits, is positive.
func (l *Ledger) CloseLong(price float64, at time.Time) (types.ClosedTrade, error) {
	if price <= 0 {
		return types.ClosedTrade{}, errors.Newf(errors.ErrCodeInvalidInput, "close long needs a positive price, got %f", price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.position == nil {
		return types.ClosedTrade{}, errors.New(errors.ErrCodeNoPosition, "no open position to close")
	}

	trade, pnl := l.realize(price, l.position.Size, at)

	l.trades++
	if l.positionPnL.Add(pnl).IsPositive() {
		l.wins++
	}

	l.position = nil
	l.positionPnL = decimal.Zero

	l.logger.Info("Closed long position",
		zap.Float64("price", price),
		zap.Float64("size", trade.Size),
		zap.String("pnl", pnl.StringFixed(2)),
		zap.Int("trades", l.trades),
	)
	l.sink.Record(log.Event{
		Time:    at,
		Kind:    log.EventKindLedger,
		Level:   types.LogLevelInfo,
		Message: "long closed",
		Fields: map[string]string{
			"price": decimal.NewFromFloat(price).String(),
			"pnl":   pnl.String(),
			"cash":  l.cash.String(),
		},
	})

	return trade, nil
}

// ReduceLong records a partial exit of size units at price. It credits
// size*price to cash, realizes the PnL of those units and shrinks the
// position. The trade counters move only when the position is finally
// closed, so size must be strictly below the position size; use CloseLong
// for the rest.
func (l *Ledger) ReduceLong(price, size float64, at time.Time) (types.ClosedTrade, error) {
	if price <= 0 || size <= 0 {
		return types.ClosedTrade{}, errors.Newf(errors.ErrCodeInvalidInput, "reduce long needs positive price and size, got price=%f size=%f", price, size)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.position == nil {
		return types.ClosedTrade{}, errors.New(errors.ErrCodeNoPosition, "no open position to reduce")
	}

	held := decimal.NewFromFloat(l.position.Size)
	if !decimal.NewFromFloat(size).LessThan(held) {
		return types.ClosedTrade{}, errors.Newf(errors.ErrCodeInvalidInput,
			"reduce of %f must be below the position size %f", size, l.position.Size)
	}

	trade, pnl := l.realize(price, size, at)

	l.positionPnL = l.positionPnL.Add(pnl)
	l.position.Size = held.Sub(decimal.NewFromFloat(size)).InexactFloat64()

	l.logger.Info("Reduced long position",
		zap.Float64("price", price),
		zap.Float64("size", size),
		zap.Float64("remaining", l.position.Size),
		zap.String("pnl", pnl.StringFixed(2)),
	)
	l.sink.Record(log.Event{
		Time:    at,
		Kind:    log.EventKindLedger,
		Level:   types.LogLevelInfo,
		Message: "long reduced",
		Fields: map[string]string{
			"price":     decimal.NewFromFloat(price).String(),
			"size":      decimal.NewFromFloat(size).String(),
			"remaining": decimal.NewFromFloat(l.position.Size).String(),
			"pnl":       pnl.String(),
			"cash":      l.cash.String(),
		},
	})

	return trade, nil
}

// realize credits the sale of size units at price and books their PnL.
// Callers hold mu and have checked the position.
func (l *Ledger) realize(price, size float64, at time.Time) (types.ClosedTrade, decimal.Decimal) {
	units := decimal.NewFromFloat(size)
	gained := units.Mul(decimal.NewFromFloat(price))
	pnl := gained.Sub(units.Mul(decimal.NewFromFloat(l.position.EntryPrice)))

	l.cash = l.cash.Add(gained)
	l.realizedPnL = l.realizedPnL.Add(pnl)

	return types.ClosedTrade{
		EntryPrice: l.position.EntryPrice,
		ExitPrice:  price,
		Size:       size,
		OpenedAt:   l.position.OpenedAt,
		ClosedAt:   at,
		PnL:        pnl.InexactFloat64(),
	}, pnl
}

// MarkToMarket computes the total value at price, raises the peak and
// updates the maximum drawdown. Drawdown never decreases.
func (l *Ledger) MarkToMarket(price float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := l.totalValue(price)

	if total > l.peak {
		l.peak = total
	}

	if l.peak > 0 {
		drawdown := (l.peak - total) / l.peak * 100
		l.maxDrawdownPct = math.Max(l.maxDrawdownPct, drawdown)
	}

	return total
}

// TotalValue returns cash plus the position marked at price.
// It is never cached.
func (l *Ledger) TotalValue(price float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totalValue(price)
}

func (l *Ledger) totalValue(price float64) float64 {
	total := l.cash
	if l.position != nil {
		total = total.Add(decimal.NewFromFloat(l.position.Size).Mul(decimal.NewFromFloat(price)))
	}

	return total.InexactFloat64()
}

// Cash returns the cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.cash.InexactFloat64()
}

// Position returns a copy of the open position, or nil when flat.
func (l *Ledger) Position() *types.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.position == nil {
		return nil
	}

	p := *l.position

	return &p
}

// State returns a snapshot of the ledger.
func (l *Ledger) State() types.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()

	var position *types.Position
	if l.position != nil {
		p := *l.position
		position = &p
	}

	return types.LedgerState{
		InitialBalance:    l.initialBalance.InexactFloat64(),
		CashBalance:       l.cash.InexactFloat64(),
		Position:          position,
		PeakTotalValue:    l.peak,
		RealizedPnLTotal:  l.realizedPnL.InexactFloat64(),
		TradeCount:        l.trades,
		WinningTradeCount: l.wins,
		MaxDrawdownPct:    l.maxDrawdownPct,
	}
}

// Status reports the portfolio at price without mutating it.
func (l *Ledger) Status(price float64) types.PortfolioStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := l.totalValue(price)
	initial := l.initialBalance.InexactFloat64()

	status := types.PortfolioStatus{
		Price:          price,
		TotalValue:     total,
		Cash:           l.cash.InexactFloat64(),
		RealizedPnL:    l.realizedPnL.InexactFloat64(),
		TradeCount:     l.trades,
		MaxDrawdownPct: l.maxDrawdownPct,
	}

	if initial > 0 {
		status.PnLPercentage = (total - initial) / initial * 100
	}

	if l.trades > 0 {
		status.WinRate = float64(l.wins) / float64(l.trades) * 100
	}

	if l.position != nil {
		status.PositionSize = l.position.Size
		status.EntryPrice = l.position.EntryPrice
	}

	return status
}
