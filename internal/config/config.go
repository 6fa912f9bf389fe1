// Package config loads the autotrader configuration.
//
// Values are layered: built-in defaults, then an optional YAML or JSON file,
// then AUTOTRADER_* environment variables (AUTOTRADER_RISK_PERCENTAGE,
// AUTOTRADER_BINANCE_API_KEY, ...).
package config

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"github.com/rxtech-lab/argo-autotrader/internal/exchange"
	"github.com/rxtech-lab/argo-autotrader/internal/execution"
	"github.com/rxtech-lab/argo-autotrader/internal/indicator"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/risk"
	"github.com/rxtech-lab/argo-autotrader/internal/strategy"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/engine"
	"github.com/rxtech-lab/argo-autotrader/internal/version"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AUTOTRADER"

// Config is the complete autotrader configuration. Percentages are in percent
// units, so 1.0 means 1%.
type Config struct {
	Symbol   string                `mapstructure:"symbol" yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=Trading pair,default=BTCUSDT" validate:"required"`
	Exchange exchange.EndpointType `mapstructure:"exchange" yaml:"exchange" json:"exchange" jsonschema:"title=Exchange,enum=paper,enum=binance-testnet,enum=binance-live,default=paper" validate:"required,oneof=paper binance-testnet binance-live"`
	LogLevel string                `mapstructure:"log_level" yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"oneof=debug info warn error"`
	// Version is the autotrader version the file was written for. Empty skips
	// the compatibility check.
	Version string `mapstructure:"version" yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Version,description=Autotrader version the file was written for"`

	// Risk
	InitialBalance             float64            `mapstructure:"initial_balance" yaml:"initial_balance" json:"initial_balance" jsonschema:"title=Initial Balance,default=10000" validate:"gt=0"`
	RiskPercentage             float64            `mapstructure:"risk_percentage" yaml:"risk_percentage" json:"risk_percentage" jsonschema:"title=Risk Percentage,description=Share of balance risked per position,default=1" validate:"gt=0,lte=100"`
	StopLossPercentage         float64            `mapstructure:"stop_loss_percentage" yaml:"stop_loss_percentage" json:"stop_loss_percentage" jsonschema:"title=Stop Loss Percentage,default=2" validate:"gt=0,lt=100"`
	TakeProfitPercentage       float64            `mapstructure:"take_profit_percentage" yaml:"take_profit_percentage" json:"take_profit_percentage" jsonschema:"title=Take Profit Percentage,default=5" validate:"gt=0"`
	DailyLossLimitPercentage   float64            `mapstructure:"daily_loss_limit_percentage" yaml:"daily_loss_limit_percentage" json:"daily_loss_limit_percentage" jsonschema:"title=Daily Loss Limit Percentage,default=4" validate:"gt=0,lte=100"`
	OverallLossLimitPercentage float64            `mapstructure:"overall_loss_limit_percentage" yaml:"overall_loss_limit_percentage" json:"overall_loss_limit_percentage" jsonschema:"title=Overall Loss Limit Percentage,default=10" validate:"gt=0,lte=100"`
	CostModel                  risk.CostModelType `mapstructure:"cost_model" yaml:"cost_model" json:"cost_model" jsonschema:"title=Cost Model,enum=percentage,enum=zero,default=percentage" validate:"oneof=percentage zero"`
	TransactionCosts           float64            `mapstructure:"transaction_costs" yaml:"transaction_costs" json:"transaction_costs" jsonschema:"title=Transaction Costs,default=0.1" validate:"gte=0,lt=100"`
	Slippage                   float64            `mapstructure:"slippage" yaml:"slippage" json:"slippage" jsonschema:"title=Slippage,default=0.05" validate:"gte=0,lt=100"`
	DeltaThreshold             float64            `mapstructure:"delta_threshold" yaml:"delta_threshold" json:"delta_threshold" jsonschema:"title=Delta Threshold,default=0.5" validate:"gte=0"`
	GammaThreshold             float64            `mapstructure:"gamma_threshold" yaml:"gamma_threshold" json:"gamma_threshold" jsonschema:"title=Gamma Threshold,default=0.5" validate:"gte=0"`
	VolatilityThreshold        float64            `mapstructure:"volatility_threshold" yaml:"volatility_threshold" json:"volatility_threshold" jsonschema:"title=Volatility Threshold,default=0.05" validate:"gt=0"`
	EstimateHedging            bool               `mapstructure:"estimate_hedging" yaml:"estimate_hedging" json:"estimate_hedging" jsonschema:"title=Estimate Hedging,description=Derive delta and gamma and volatility from recent returns,default=false"`

	// Execution
	MaxOrderSize float64       `mapstructure:"max_order_size" yaml:"max_order_size" json:"max_order_size" jsonschema:"title=Max Order Size,description=Largest child order sent to the exchange,default=100" validate:"gt=0"`
	OrderPacing  time.Duration `mapstructure:"order_pacing" yaml:"order_pacing" json:"order_pacing" jsonschema:"title=Order Pacing,description=Delay between child orders,type=string,default=100ms" validate:"gte=0"`

	// Indicators and signal
	EMAPeriod      int     `mapstructure:"ema_period" yaml:"ema_period" json:"ema_period" jsonschema:"title=EMA Period,minimum=1,default=20" validate:"gte=1"`
	RSIPeriod      int     `mapstructure:"rsi_period" yaml:"rsi_period" json:"rsi_period" jsonschema:"title=RSI Period,minimum=1,default=14" validate:"gte=1"`
	BBPeriod       int     `mapstructure:"bb_period" yaml:"bb_period" json:"bb_period" jsonschema:"title=Bollinger Period,minimum=1,default=20" validate:"gte=1"`
	BBStdDev       float64 `mapstructure:"bb_std_dev" yaml:"bb_std_dev" json:"bb_std_dev" jsonschema:"title=Bollinger Std Dev,default=2" validate:"gt=0"`
	GChannelLength int     `mapstructure:"g_channel_length" yaml:"g_channel_length" json:"g_channel_length" jsonschema:"title=G-Channel Length,minimum=1,default=10" validate:"gte=1"`
	RSIOversold    float64 `mapstructure:"rsi_oversold" yaml:"rsi_oversold" json:"rsi_oversold" jsonschema:"title=RSI Oversold,minimum=0,maximum=100,default=30" validate:"gte=0,lte=100"`
	RSIOverbought  float64 `mapstructure:"rsi_overbought" yaml:"rsi_overbought" json:"rsi_overbought" jsonschema:"title=RSI Overbought,minimum=0,maximum=100,default=70" validate:"gte=0,lte=100"`
	MinConfidence  float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence" jsonschema:"title=Min Confidence,minimum=0,maximum=1,default=0.7" validate:"gte=0,lte=1"`

	// Engine
	UpdateInterval int `mapstructure:"update_interval" yaml:"update_interval" json:"update_interval" jsonschema:"title=Update Interval,description=Seconds of bar time between signal evaluations,minimum=0,default=60" validate:"gte=0"`
	HistorySize    int `mapstructure:"history_size" yaml:"history_size" json:"history_size" jsonschema:"title=History Size,minimum=1,default=100" validate:"gte=1"`

	// Generated price feed
	InitialPrice float64       `mapstructure:"initial_price" yaml:"initial_price" json:"initial_price" jsonschema:"title=Initial Price,default=2000" validate:"gt=0"`
	Volatility   float64       `mapstructure:"volatility" yaml:"volatility" json:"volatility" jsonschema:"title=Volatility,description=Per-bar return standard deviation,default=0.002" validate:"gte=0"`
	Trend        float64       `mapstructure:"trend" yaml:"trend" json:"trend" jsonschema:"title=Trend,description=Mean per-bar return,default=0"`
	BarInterval  time.Duration `mapstructure:"bar_interval" yaml:"bar_interval" json:"bar_interval" jsonschema:"title=Bar Interval,type=string,default=1m0s" validate:"gt=0"`
	Seed         int64         `mapstructure:"seed" yaml:"seed" json:"seed" jsonschema:"title=Seed,default=42"`

	Binance exchange.BinanceEndpointConfig `mapstructure:"binance" yaml:"binance" json:"binance" jsonschema:"title=Binance,description=Credentials used by the binance exchanges" validate:"-"`
}

// Default returns the built-in defaults.
func Default() Config {
	riskDefaults := risk.DefaultConfig()
	indicators := indicator.DefaultEngineConfig()
	thresholds := strategy.DefaultThresholds()
	generator := marketdata.DefaultGeneratorConfig()

	return Config{
		Symbol:                     "BTCUSDT",
		Exchange:                   exchange.EndpointPaper,
		LogLevel:                   "info",
		InitialBalance:             riskDefaults.InitialBalance,
		RiskPercentage:             riskDefaults.RiskPercentage,
		StopLossPercentage:         riskDefaults.StopLossPercentage,
		TakeProfitPercentage:       riskDefaults.TakeProfitPercentage,
		DailyLossLimitPercentage:   riskDefaults.DailyLossLimitPercentage,
		OverallLossLimitPercentage: riskDefaults.OverallLossLimitPercentage,
		CostModel:                  risk.CostModelPercentage,
		TransactionCosts:           0.1,
		Slippage:                   0.05,
		DeltaThreshold:             riskDefaults.DeltaThreshold,
		GammaThreshold:             riskDefaults.GammaThreshold,
		VolatilityThreshold:        riskDefaults.VolatilityThreshold,
		EstimateHedging:            false,
		MaxOrderSize:               execution.DefaultMaxOrderSize,
		OrderPacing:                execution.DefaultPacing,
		EMAPeriod:                  indicators.EMAPeriod,
		RSIPeriod:                  indicators.RSIPeriod,
		BBPeriod:                   indicators.BBPeriod,
		BBStdDev:                   indicators.BBStdDev,
		GChannelLength:             indicators.GChannelLength,
		RSIOversold:                thresholds.Oversold,
		RSIOverbought:              thresholds.Overbought,
		MinConfidence:              thresholds.MinConfidence,
		UpdateInterval:             int(engine.DefaultUpdateInterval / time.Second),
		HistorySize:                engine.DefaultHistorySize,
		InitialPrice:               generator.InitialPrice,
		Volatility:                 generator.Volatility,
		Trend:                      generator.Trend,
		BarInterval:                generator.Interval,
		Seed:                       generator.Seed,
		Binance: exchange.BinanceEndpointConfig{
			APIKey:           "",
			SecretKey:        "",
			BaseURL:          "",
			DecimalPrecision: 0,
		},
	}
}

// Load reads the configuration at path over the defaults and applies
// environment overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "reading config file %s failed", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, "parsing config failed", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so that environment overrides reach
// Unmarshal even when the file does not mention them.
func setDefaults(v *viper.Viper, defaults Config) error {
	settings := map[string]any{}
	if err := mapstructure.Decode(defaults, &settings); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "encoding defaults failed", err)
	}

	for key, value := range flatten("", settings) {
		v.SetDefault(key, value)
	}

	return nil
}

func flatten(prefix string, settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))

	for key, value := range settings {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flatten(full, nested) {
				out[k] = v
			}

			continue
		}

		out[full] = value
	}

	return out
}

// Validate checks field ranges, the RSI band ordering and, for Binance
// exchanges, the credentials.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid config", err)
	}

	if c.RSIOversold >= c.RSIOverbought {
		return errors.Newf(errors.ErrCodeInvalidConfig,
			"rsi_oversold (%.2f) must be below rsi_overbought (%.2f)", c.RSIOversold, c.RSIOverbought)
	}

	if c.Version != "" {
		if err := version.CheckCompatibility(version.Version, c.Version); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, "incompatible config version", err)
		}
	}

	if c.Exchange != exchange.EndpointPaper {
		if err := c.Binance.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Schema returns the JSON schema of Config.
func Schema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&Config{})

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// RiskConfig returns the risk manager parameters.
func (c *Config) RiskConfig() risk.Config {
	return risk.Config{
		InitialBalance:             c.InitialBalance,
		RiskPercentage:             c.RiskPercentage,
		StopLossPercentage:         c.StopLossPercentage,
		TakeProfitPercentage:       c.TakeProfitPercentage,
		DailyLossLimitPercentage:   c.DailyLossLimitPercentage,
		OverallLossLimitPercentage: c.OverallLossLimitPercentage,
		DeltaThreshold:             c.DeltaThreshold,
		GammaThreshold:             c.GammaThreshold,
		VolatilityThreshold:        c.VolatilityThreshold,
	}
}

func (c *Config) CostModelConfig() risk.CostModel {
	return risk.GetCostModel(c.CostModel, c.TransactionCosts, c.Slippage)
}

func (c *Config) IndicatorConfig() indicator.EngineConfig {
	return indicator.EngineConfig{
		EMAPeriod:      c.EMAPeriod,
		RSIPeriod:      c.RSIPeriod,
		BBPeriod:       c.BBPeriod,
		BBStdDev:       c.BBStdDev,
		GChannelLength: c.GChannelLength,
	}
}

func (c *Config) Thresholds() strategy.Thresholds {
	return strategy.Thresholds{
		Oversold:      c.RSIOversold,
		Overbought:    c.RSIOverbought,
		MinConfidence: c.MinConfidence,
	}
}

func (c *Config) RouterConfig() execution.Config {
	return execution.Config{
		Symbol:       c.Symbol,
		MaxOrderSize: c.MaxOrderSize,
		Pacing:       c.OrderPacing,
	}
}

func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Symbol:          c.Symbol,
		HistorySize:     c.HistorySize,
		UpdateInterval:  time.Duration(c.UpdateInterval) * time.Second,
		EstimateHedging: c.EstimateHedging,
	}
}

// GeneratorConfig returns the mock feed parameters. count 0 streams forever.
func (c *Config) GeneratorConfig(count int) marketdata.GeneratorConfig {
	generator := marketdata.DefaultGeneratorConfig()
	generator.Symbol = c.Symbol
	generator.Count = count
	generator.InitialPrice = c.InitialPrice
	generator.Volatility = c.Volatility
	generator.Trend = c.Trend
	generator.Interval = c.BarInterval
	generator.Seed = c.Seed

	return generator
}

// EndpointConfig returns the config NewEndpoint expects for the exchange.
func (c *Config) EndpointConfig() any {
	if c.Exchange == exchange.EndpointPaper {
		return nil
	}

	binance := c.Binance

	return &binance
}
