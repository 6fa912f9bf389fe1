package exchange

import (
	"context"
	"fmt"
	"sort"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// Endpoint is the order-placement surface of an exchange for one symbol.
// A None price places a market order.
type Endpoint interface {
	PlaceOrder(ctx context.Context, side types.Side, size float64, price optional.Option[float64]) (types.OrderAck, error)
	FetchOrder(ctx context.Context, orderID string) (types.OrderState, error)
	CancelOrder(ctx context.Context, orderID string) error
}

type EndpointType string

const (
	EndpointPaper          EndpointType = "paper"
	EndpointBinanceTestnet EndpointType = "binance-testnet"
	EndpointBinanceLive    EndpointType = "binance-live"
)

type EndpointInfo struct {
	Name           string `json:"name" yaml:"name"`
	DisplayName    string `json:"displayName" yaml:"display_name"`
	Description    string `json:"description" yaml:"description"`
	IsPaperTrading bool   `json:"isPaperTrading" yaml:"is_paper_trading"`
}

var endpointRegistry = map[EndpointType]EndpointInfo{
	EndpointPaper: {
		Name:           string(EndpointPaper),
		DisplayName:    "Paper",
		Description:    "In-memory simulator that fills market orders at the last mark price",
		IsPaperTrading: true,
	},
	EndpointBinanceTestnet: {
		Name:           string(EndpointBinanceTestnet),
		DisplayName:    "Binance Testnet",
		Description:    "Binance testnet for paper trading cryptocurrency without real funds",
		IsPaperTrading: true,
	},
	EndpointBinanceLive: {
		Name:           string(EndpointBinanceLive),
		DisplayName:    "Binance Live",
		Description:    "Binance live environment for real-funds cryptocurrency trading",
		IsPaperTrading: false,
	},
}

// GetSupportedEndpoints returns the registered endpoint names in sorted order.
func GetSupportedEndpoints() []string {
	endpoints := make([]string, 0, len(endpointRegistry))
	for endpointType := range endpointRegistry {
		endpoints = append(endpoints, string(endpointType))
	}

	sort.Strings(endpoints)

	return endpoints
}

// GetEndpointInfo returns metadata for a specific endpoint.
func GetEndpointInfo(name string) (EndpointInfo, error) {
	info, exists := endpointRegistry[EndpointType(name)]
	if !exists {
		return EndpointInfo{}, fmt.Errorf("unsupported exchange endpoint: %s", name)
	}

	return info, nil
}

// NewEndpoint creates the endpoint registered under endpointType.
// The paper endpoint ignores config; Binance endpoints require a *BinanceEndpointConfig.
func NewEndpoint(endpointType EndpointType, symbol string, config any, l *logger.Logger) (Endpoint, error) {
	switch endpointType {
	case EndpointPaper:
		return NewPaperExchange(l), nil

	case EndpointBinanceTestnet, EndpointBinanceLive:
		cfg, ok := config.(*BinanceEndpointConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for %s endpoint", endpointType)
		}

		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		return NewBinanceEndpoint(*cfg, symbol, endpointType == EndpointBinanceTestnet, l)

	default:
		return nil, fmt.Errorf("unsupported exchange endpoint: %s", endpointType)
	}
}
