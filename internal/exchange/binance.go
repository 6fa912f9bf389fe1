package exchange

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/internal/utils"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

const (
	// BinanceDecimalPrecision is the fallback quantity precision. 8 decimals is
	// satoshi-level precision for BTC-like assets.
	BinanceDecimalPrecision = 8
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetOrderService interface for querying a single order.
type GetOrderService interface {
	Symbol(symbol string) GetOrderService
	OrderID(orderID int64) GetOrderService
	Do(ctx context.Context) (*binance.Order, error)
}

// CancelOrderService interface for canceling orders.
type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrderID(orderID int64) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetOrderService() GetOrderService
	NewCancelOrderService() CancelOrderService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetOrderService() GetOrderService {
	return &realGetOrderService{service: r.client.NewGetOrderService()}
}

func (r *realBinanceClient) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetOrderService struct {
	service *binance.GetOrderService
}

func (s *realGetOrderService) Symbol(symbol string) GetOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realGetOrderService) OrderID(orderID int64) GetOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realGetOrderService) Do(ctx context.Context) (*binance.Order, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrderID(orderID int64) CancelOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

// BinanceEndpoint places orders for a single symbol on Binance spot.
// It is stateless; order state is always read back from the API.
type BinanceEndpoint struct {
	client           BinanceClient
	symbol           string
	decimalPrecision int
	logger           *logger.Logger
}

// NewBinanceEndpoint creates a Binance endpoint for symbol.
// If useTestnet is true, it connects to the Binance testnet. config.BaseURL
// takes precedence over useTestnet.
func NewBinanceEndpoint(config BinanceEndpointConfig, symbol string, useTestnet bool, l *logger.Logger) (*BinanceEndpoint, error) {
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "symbol is required for the binance endpoint")
	}

	if useTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.APIKey, config.SecretKey)

	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	precision := config.DecimalPrecision
	if precision == 0 {
		precision = BinanceDecimalPrecision
	}

	return newBinanceEndpointWithClient(&realBinanceClient{client: client}, symbol, precision, l), nil
}

// newBinanceEndpointWithClient is used by tests to inject mock clients.
func newBinanceEndpointWithClient(client BinanceClient, symbol string, decimalPrecision int, l *logger.Logger) *BinanceEndpoint {
	if l == nil {
		l = logger.NewNop()
	}

	return &BinanceEndpoint{
		client:           client,
		symbol:           symbol,
		decimalPrecision: decimalPrecision,
		logger:           l,
	}
}

func (b *BinanceEndpoint) PlaceOrder(ctx context.Context, side types.Side, size float64, price optional.Option[float64]) (types.OrderAck, error) {
	var binanceSide binance.SideType

	switch side {
	case types.SideBuy:
		binanceSide = binance.SideTypeBuy
	case types.SideSell:
		binanceSide = binance.SideTypeSell
	default:
		return types.OrderAck{}, errors.Newf(errors.ErrCodeInvalidInput, "unsupported order side: %s", side)
	}

	if size <= 0 {
		return types.OrderAck{}, errors.New(errors.ErrCodeInvalidInput, "order size must be greater than zero")
	}

	roundedSize := utils.RoundToDecimalPrecision(size, b.decimalPrecision)
	if roundedSize <= 0 {
		return types.OrderAck{}, errors.Newf(errors.ErrCodeInvalidInput,
			"order size %.8f is too small after rounding to %d decimal places",
			size, b.decimalPrecision)
	}

	service := b.client.NewCreateOrderService().
		Symbol(b.symbol).
		Side(binanceSide).
		Quantity(utils.FormatQuantity(roundedSize, b.decimalPrecision))

	if price.IsSome() {
		service = service.
			Type(binance.OrderTypeLimit).
			Price(utils.FormatPrice(price.Unwrap())).
			TimeInForce(binance.TimeInForceTypeGTC)
	} else {
		service = service.Type(binance.OrderTypeMarket)
	}

	response, err := service.Do(ctx)
	if err != nil {
		return types.OrderAck{}, errors.Wrap(errors.ErrCodeOrderPlacementFailed, "failed to place order on Binance", err)
	}

	filled, _ := strconv.ParseFloat(response.ExecutedQuantity, 64)

	b.logger.Debug("Binance order placed",
		zap.Int64("order_id", response.OrderID),
		zap.String("side", string(side)),
		zap.Float64("size", roundedSize),
		zap.String("status", string(response.Status)),
	)

	return types.OrderAck{
		OrderID:    strconv.FormatInt(response.OrderID, 10),
		Status:     mapBinanceOrderStatus(response.Status),
		FilledSize: filled,
	}, nil
}

func (b *BinanceEndpoint) FetchOrder(ctx context.Context, orderID string) (types.OrderState, error) {
	binanceOrderID, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return types.OrderState{}, errors.Wrap(errors.ErrCodeInvalidInput, "invalid order ID format", err)
	}

	order, err := b.client.NewGetOrderService().
		Symbol(b.symbol).
		OrderID(binanceOrderID).
		Do(ctx)
	if err != nil {
		return types.OrderState{}, errors.Wrap(errors.ErrCodeOrderFetchFailed, "failed to get order from Binance", err)
	}

	return convertBinanceOrder(order), nil
}

func (b *BinanceEndpoint) CancelOrder(ctx context.Context, orderID string) error {
	binanceOrderID, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, "invalid order ID format", err)
	}

	_, err = b.client.NewCancelOrderService().
		Symbol(b.symbol).
		OrderID(binanceOrderID).
		Do(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeOrderCancelFailed, "failed to cancel order on Binance", err)
	}

	return nil
}

// mapBinanceOrderStatus maps a Binance order status to an OrderStatus.
func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew:
		return types.OrderStatusOpen
	case binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusFailed
	}
}

func convertBinanceOrder(order *binance.Order) types.OrderState {
	size, _ := strconv.ParseFloat(order.OrigQuantity, 64)
	price, _ := strconv.ParseFloat(order.Price, 64)
	filled, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)

	side := types.SideBuy
	if order.Side == binance.SideTypeSell {
		side = types.SideSell
	}

	return types.OrderState{
		OrderID:    strconv.FormatInt(order.OrderID, 10),
		Side:       side,
		Size:       size,
		Price:      price,
		Status:     mapBinanceOrderStatus(order.Status),
		FilledSize: filled,
	}
}

var _ Endpoint = (*BinanceEndpoint)(nil)
