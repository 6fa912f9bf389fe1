package exchange

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// BinanceEndpointConfig contains the credentials for Binance order placement.
type BinanceEndpointConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key" json:"api_key" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key" json:"secret_key" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	// BaseURL overrides the REST endpoint, mostly for mock servers.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" json:"base_url,omitempty" jsonschema:"title=Base URL,description=Override for the Binance REST base URL"`
	// DecimalPrecision is the quantity precision sent to Binance. Zero means BinanceDecimalPrecision.
	DecimalPrecision int `mapstructure:"decimal_precision" yaml:"decimal_precision" json:"decimal_precision,omitempty" jsonschema:"title=Decimal Precision,minimum=0,maximum=16" validate:"gte=0,lte=16"`
}

// Validate validates the BinanceEndpointConfig struct.
func (c *BinanceEndpointConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid binance endpoint config", err)
	}

	return nil
}
