package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

type Side string

type OrderStatus string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusFailed          OrderStatus = "failed"
)

// IsClosed reports whether an order in this status can no longer change.
func (s OrderStatus) IsClosed() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// OrderAck is the exchange's answer to a placement.
type OrderAck struct {
	OrderID    string      `yaml:"order_id" json:"order_id"`
	Status     OrderStatus `yaml:"status" json:"status"`
	FilledSize float64     `yaml:"filled_size" json:"filled_size"`
}

// OrderState is the exchange's view of a previously placed order.
type OrderState struct {
	OrderID    string      `yaml:"order_id" json:"order_id"`
	Side       Side        `yaml:"side" json:"side"`
	Size       float64     `yaml:"size" json:"size"`
	Price      float64     `yaml:"price" json:"price"`
	Status     OrderStatus `yaml:"status" json:"status"`
	FilledSize float64     `yaml:"filled_size" json:"filled_size"`
}

// ChildOrder is one fragment of an ExecutionOrder, sized to respect the
// exchange's per-order maximum.
type ChildOrder struct {
	ExchangeOrderID string                   `yaml:"exchange_order_id" json:"exchange_order_id"`
	Size            float64                  `yaml:"size" json:"size"`
	Price           optional.Option[float64] `yaml:"price" json:"price"`
	Status          OrderStatus              `yaml:"status" json:"status"`
	FilledSize      float64                  `yaml:"filled_size" json:"filled_size"`
	PlacedAt        time.Time                `yaml:"placed_at" json:"placed_at"`
	// Err is set when the placement failed.
	Err error `yaml:"-" json:"-"`
}

// Succeeded reports whether the exchange accepted the child order.
func (c ChildOrder) Succeeded() bool {
	return c.Err == nil
}

// ExecutionOrder is one logical trade intent and the child orders it fanned out into.
type ExecutionOrder struct {
	ID            string                   `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol        string                   `yaml:"symbol" json:"symbol"`
	Side          Side                     `yaml:"side" json:"side" validate:"required,oneof=buy sell"`
	RequestedSize float64                  `yaml:"requested_size" json:"requested_size" validate:"gt=0"`
	LimitPrice    optional.Option[float64] `yaml:"limit_price" json:"limit_price"`
	ChildOrders   []ChildOrder             `yaml:"child_orders" json:"child_orders"`
}

// Validate validates the ExecutionOrder struct.
func (o *ExecutionOrder) Validate() error {
	validate := validator.New()

	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, "invalid execution order", err)
	}

	if o.LimitPrice.IsSome() && o.LimitPrice.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidInput, "limit price must be positive, got %f", o.LimitPrice.Unwrap())
	}

	return nil
}

// ExecutionReport is the outcome of routing one ExecutionOrder.
type ExecutionReport struct {
	Order     ExecutionOrder `yaml:"order" json:"order"`
	Succeeded []ChildOrder   `yaml:"succeeded" json:"succeeded"`
	Failed    []ChildOrder   `yaml:"failed" json:"failed"`
	// Planned is the number of child orders the split produced.
	Planned int `yaml:"planned" json:"planned"`
}

// FilledSize sums the filled size of every accepted child order.
func (r ExecutionReport) FilledSize() float64 {
	var filled float64
	for _, child := range r.Succeeded {
		filled += child.FilledSize
	}

	return filled
}

// Complete reports whether every planned child was placed successfully.
func (r ExecutionReport) Complete() bool {
	return len(r.Failed) == 0 && len(r.Succeeded) == r.Planned
}
