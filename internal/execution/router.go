package execution

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/exchange"
	"github.com/rxtech-lab/argo-autotrader/internal/log"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultMaxOrderSize = 100.0
	DefaultPacing       = 100 * time.Millisecond
)

type Config struct {
	Symbol       string
	MaxOrderSize float64
	// Pacing is the delay between consecutive child orders. Zero disables it.
	Pacing time.Duration
}

func DefaultConfig() Config {
	return Config{
		Symbol:       "BTCUSDT",
		MaxOrderSize: DefaultMaxOrderSize,
		Pacing:       DefaultPacing,
	}
}

// CancelResult describes the outcome of Cancel.
type CancelResult struct {
	OrderID string
	// NoOp is true when the order was already closed and nothing was sent.
	NoOp bool
	// PreviousStatus is the status observed before cancelling.
	PreviousStatus types.OrderStatus
}

// Router splits orders that exceed the per-order maximum into child orders
// and places them one after another against a single endpoint.
//
// Routing never retries and never rolls back. A failed child is recorded in
// the report and the remaining children are still attempted.
type Router struct {
	endpoint exchange.Endpoint
	config   Config
	sink     log.Sink
	logger   *logger.Logger
}

func NewRouter(endpoint exchange.Endpoint, config Config, sink log.Sink, l *logger.Logger) *Router {
	if config.MaxOrderSize <= 0 {
		config.MaxOrderSize = DefaultMaxOrderSize
	}

	if sink == nil {
		sink = log.NopSink{}
	}

	if l == nil {
		l = logger.NewNop()
	}

	return &Router{
		endpoint: endpoint,
		config:   config,
		sink:     sink,
		logger:   l,
	}
}

// Route places totalSize on side, split into child orders of at most
// MaxOrderSize. A None limitPrice routes market orders.
//
// The error is nil when at least one child was accepted and every child was
// attempted. When every child failed the error wraps the first failure.
// Cancelling ctx stops further placements and returns ctx.Err() with the
// children placed so far.
func (r *Router) Route(ctx context.Context, side types.Side, totalSize float64, limitPrice optional.Option[float64]) (types.ExecutionReport, error) {
	if totalSize <= 0 {
		return types.ExecutionReport{}, errors.Newf(errors.ErrCodeInvalidInput, "order size must be greater than zero, got %f", totalSize)
	}

	order := types.ExecutionOrder{
		ID:            uuid.New().String(),
		Symbol:        r.config.Symbol,
		Side:          side,
		RequestedSize: totalSize,
		LimitPrice:    limitPrice,
	}

	if err := order.Validate(); err != nil {
		return types.ExecutionReport{}, err
	}

	sizes := SplitSize(totalSize, r.config.MaxOrderSize)
	if len(sizes) == 0 {
		return types.ExecutionReport{}, errors.Newf(errors.ErrCodeInvalidInput,
			"order of %f exceeds %d child orders of at most %f", totalSize, MaxChildOrders, r.config.MaxOrderSize)
	}

	report := types.ExecutionReport{
		Order:   order,
		Planned: len(sizes),
	}

	r.logger.Debug("Routing order",
		zap.String("order_id", order.ID),
		zap.String("side", string(side)),
		zap.Float64("size", totalSize),
		zap.Int("children", len(sizes)),
	)

	for i, size := range sizes {
		if i > 0 {
			if err := r.pace(ctx, order, i, len(sizes)); err != nil {
				return report, err
			}
		} else if err := ctx.Err(); err != nil {
			return report, err
		}

		child := r.placeChild(ctx, order, i, len(sizes), size)
		report.Order.ChildOrders = append(report.Order.ChildOrders, child)

		if child.Succeeded() {
			report.Succeeded = append(report.Succeeded, child)
		} else {
			report.Failed = append(report.Failed, child)
		}
	}

	if len(report.Succeeded) == 0 {
		return report, errors.Wrap(errors.ErrCodeOrderPlacementFailed, "every child order failed", report.Failed[0].Err)
	}

	return report, nil
}

func (r *Router) placeChild(ctx context.Context, order types.ExecutionOrder, index, total int, size float64) types.ChildOrder {
	child := types.ChildOrder{
		Size:     size,
		Price:    order.LimitPrice,
		PlacedAt: time.Now(),
	}

	ack, err := r.endpoint.PlaceOrder(ctx, order.Side, size, order.LimitPrice)
	if err != nil {
		child.Status = types.OrderStatusFailed
		child.Err = errors.Wrapf(errors.ErrCodeOrderPlacementFailed, err, "child order %d of %d failed", index+1, total)

		r.record(types.LogLevelError, "child order failed", map[string]string{
			"order_id": order.ID,
			"child":    strconv.Itoa(index + 1),
			"size":     strconv.FormatFloat(size, 'f', -1, 64),
			"error":    err.Error(),
		})
		r.logger.Error("Child order failed",
			zap.String("order_id", order.ID),
			zap.Int("child", index+1),
			zap.Float64("size", size),
			zap.Error(err),
		)

		return child
	}

	child.ExchangeOrderID = ack.OrderID
	child.Status = ack.Status
	child.FilledSize = ack.FilledSize

	r.record(types.LogLevelInfo, "child order placed", map[string]string{
		"order_id":          order.ID,
		"exchange_order_id": ack.OrderID,
		"child":             strconv.Itoa(index + 1),
		"size":              strconv.FormatFloat(size, 'f', -1, 64),
		"status":            string(ack.Status),
	})

	return child
}

// pace waits the configured delay before child index, or returns early when
// ctx is cancelled.
func (r *Router) pace(ctx context.Context, order types.ExecutionOrder, index, total int) error {
	if r.config.Pacing <= 0 {
		return ctx.Err()
	}

	r.record(types.LogLevelRateLimit, "pacing child order", map[string]string{
		"order_id": order.ID,
		"child":    strconv.Itoa(index + 1),
		"of":       strconv.Itoa(total),
		"delay":    r.config.Pacing.String(),
	})

	timer := time.NewTimer(r.config.Pacing)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.logger.Warn("Routing interrupted",
			zap.String("order_id", order.ID),
			zap.Int("placed", index),
			zap.Int("planned", total),
		)

		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Modify replaces an open order by cancelling it and placing a new order on
// the same side. Orders that are not open are left untouched.
func (r *Router) Modify(ctx context.Context, orderID string, newSize float64, newPrice optional.Option[float64]) (types.ChildOrder, error) {
	if newSize <= 0 {
		return types.ChildOrder{}, errors.Newf(errors.ErrCodeInvalidInput, "order size must be greater than zero, got %f", newSize)
	}

	state, err := r.endpoint.FetchOrder(ctx, orderID)
	if err != nil {
		return types.ChildOrder{}, withCode(err, errors.ErrCodeOrderFetchFailed, "failed to fetch order "+orderID)
	}

	if state.Status != types.OrderStatusOpen {
		return types.ChildOrder{}, errors.Newf(errors.ErrCodeOrderNotOpen, "order %s is %s", orderID, state.Status)
	}

	if err := r.endpoint.CancelOrder(ctx, orderID); err != nil {
		return types.ChildOrder{}, errors.Wrapf(errors.ErrCodeOrderCancelFailed, err, "failed to cancel order %s", orderID)
	}

	r.record(types.LogLevelInfo, "order cancelled for replacement", map[string]string{
		"exchange_order_id": orderID,
	})

	replacement := types.ChildOrder{
		Size:     newSize,
		Price:    newPrice,
		PlacedAt: time.Now(),
	}

	ack, err := r.endpoint.PlaceOrder(ctx, state.Side, newSize, newPrice)
	if err != nil {
		replacement.Status = types.OrderStatusFailed
		replacement.Err = errors.Wrapf(errors.ErrCodeOrderPlacementFailed, err, "cancelled order %s but the replacement failed", orderID)

		r.record(types.LogLevelError, "replacement order failed", map[string]string{
			"exchange_order_id": orderID,
			"error":             err.Error(),
		})

		return replacement, replacement.Err
	}

	replacement.ExchangeOrderID = ack.OrderID
	replacement.Status = ack.Status
	replacement.FilledSize = ack.FilledSize

	r.record(types.LogLevelInfo, "order replaced", map[string]string{
		"exchange_order_id": orderID,
		"replacement_id":    ack.OrderID,
	})

	return replacement, nil
}

// Cancel cancels an order. Cancelling an order that is already closed is a
// no-op and returns a nil error.
func (r *Router) Cancel(ctx context.Context, orderID string) (CancelResult, error) {
	state, err := r.endpoint.FetchOrder(ctx, orderID)
	if err != nil {
		return CancelResult{OrderID: orderID}, withCode(err, errors.ErrCodeOrderFetchFailed, "failed to fetch order "+orderID)
	}

	result := CancelResult{
		OrderID:        orderID,
		PreviousStatus: state.Status,
	}

	if state.Status.IsClosed() {
		result.NoOp = true

		return result, nil
	}

	if err := r.endpoint.CancelOrder(ctx, orderID); err != nil {
		return result, errors.Wrapf(errors.ErrCodeOrderCancelFailed, err, "failed to cancel order %s", orderID)
	}

	r.record(types.LogLevelInfo, "order cancelled", map[string]string{
		"exchange_order_id": orderID,
	})

	return result, nil
}

func (r *Router) record(level types.LogLevel, message string, fields map[string]string) {
	r.sink.Record(log.Event{
		Time:    time.Now(),
		Kind:    log.EventKindExecution,
		Level:   level,
		Symbol:  r.config.Symbol,
		Message: message,
		Fields:  fields,
	})
}

// withCode keeps an already coded error and wraps anything else with code.
func withCode(err error, code errors.ErrorCode, message string) error {
	if errors.GetCode(err) != errors.ErrCodeUnknown {
		return err
	}

	return errors.Wrap(code, message, err)
}
