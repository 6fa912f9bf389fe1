package exchange

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// PaperExchange is an in-memory exchange. Market orders fill completely at
// the current mark price. Limit orders rest until the mark price crosses them.
type PaperExchange struct {
	mu        sync.Mutex
	orders    map[string]*types.OrderState
	sequence  []string
	markPrice float64
	logger    *logger.Logger
}

func NewPaperExchange(l *logger.Logger) *PaperExchange {
	if l == nil {
		l = logger.NewNop()
	}

	return &PaperExchange{
		orders: make(map[string]*types.OrderState),
		logger: l,
	}
}

// SetMarkPrice updates the price market orders fill at and fills any resting
// limit order the new price crosses.
func (p *PaperExchange) SetMarkPrice(price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.markPrice = price

	for _, id := range p.sequence {
		order := p.orders[id]
		if order.Status != types.OrderStatusOpen || !crosses(order.Side, order.Price, price) {
			continue
		}

		order.Status = types.OrderStatusFilled
		order.FilledSize = order.Size

		p.logger.Debug("Paper limit order filled",
			zap.String("order_id", order.OrderID),
			zap.Float64("limit", order.Price),
			zap.Float64("mark", price),
		)
	}
}

// MarkPrice returns the last mark price.
func (p *PaperExchange) MarkPrice() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.markPrice
}

func (p *PaperExchange) PlaceOrder(_ context.Context, side types.Side, size float64, price optional.Option[float64]) (types.OrderAck, error) {
	if side != types.SideBuy && side != types.SideSell {
		return types.OrderAck{}, errors.Newf(errors.ErrCodeInvalidInput, "unsupported order side: %s", side)
	}

	if size <= 0 {
		return types.OrderAck{}, errors.New(errors.ErrCodeInvalidInput, "order size must be greater than zero")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	order := &types.OrderState{
		OrderID: uuid.New().String(),
		Side:    side,
		Size:    size,
		Status:  types.OrderStatusOpen,
	}

	if price.IsSome() {
		limit := price.Unwrap()
		if limit <= 0 {
			return types.OrderAck{}, errors.Newf(errors.ErrCodeInvalidInput, "limit price must be positive, got %f", limit)
		}

		order.Price = limit
		if p.markPrice > 0 && crosses(side, limit, p.markPrice) {
			order.Status = types.OrderStatusFilled
			order.FilledSize = size
		}
	} else {
		if p.markPrice <= 0 {
			return types.OrderAck{}, errors.New(errors.ErrCodeOrderPlacementFailed, "no mark price available for market order")
		}

		order.Price = p.markPrice
		order.Status = types.OrderStatusFilled
		order.FilledSize = size
	}

	p.orders[order.OrderID] = order
	p.sequence = append(p.sequence, order.OrderID)

	return types.OrderAck{
		OrderID:    order.OrderID,
		Status:     order.Status,
		FilledSize: order.FilledSize,
	}, nil
}

func (p *PaperExchange) FetchOrder(_ context.Context, orderID string) (types.OrderState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return types.OrderState{}, errors.Newf(errors.ErrCodeOrderNotFound, "order not found: %s", orderID)
	}

	return *order, nil
}

func (p *PaperExchange) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return errors.Newf(errors.ErrCodeOrderNotFound, "order not found: %s", orderID)
	}

	if order.Status.IsClosed() {
		return errors.Newf(errors.ErrCodeOrderNotOpen, "order %s is %s", orderID, order.Status)
	}

	order.Status = types.OrderStatusCancelled

	return nil
}

// Orders returns every order in placement order.
func (p *PaperExchange) Orders() []types.OrderState {
	p.mu.Lock()
	defer p.mu.Unlock()

	orders := make([]types.OrderState, 0, len(p.sequence))
	for _, id := range p.sequence {
		orders = append(orders, *p.orders[id])
	}

	return orders
}

func crosses(side types.Side, limit float64, mark float64) bool {
	if side == types.SideBuy {
		return mark <= limit
	}

	return mark >= limit
}

var _ Endpoint = (*PaperExchange)(nil)
