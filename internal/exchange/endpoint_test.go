package exchange

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type EndpointRegistryTestSuite struct {
	suite.Suite
}

func TestEndpointRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(EndpointRegistryTestSuite))
}

func (suite *EndpointRegistryTestSuite) TestGetSupportedEndpoints() {
	suite.Equal([]string{"binance-live", "binance-testnet", "paper"}, GetSupportedEndpoints())
}

func (suite *EndpointRegistryTestSuite) TestGetEndpointInfo() {
	info, err := GetEndpointInfo("paper")
	suite.NoError(err)
	suite.True(info.IsPaperTrading)

	info, err = GetEndpointInfo("binance-live")
	suite.NoError(err)
	suite.False(info.IsPaperTrading)

	_, err = GetEndpointInfo("kraken")
	suite.Error(err)
}

func (suite *EndpointRegistryTestSuite) TestNewEndpoint() {
	endpoint, err := NewEndpoint(EndpointPaper, "BTCUSDT", nil, nil)
	suite.NoError(err)
	suite.IsType(&PaperExchange{}, endpoint)

	endpoint, err = NewEndpoint(EndpointBinanceLive, "BTCUSDT", &BinanceEndpointConfig{
		APIKey:    "key",
		SecretKey: "secret",
		BaseURL:   "http://localhost:1",
	}, nil)
	suite.NoError(err)
	suite.IsType(&BinanceEndpoint{}, endpoint)
}

func (suite *EndpointRegistryTestSuite) TestNewEndpoint_Errors() {
	_, err := NewEndpoint(EndpointBinanceLive, "BTCUSDT", BinanceEndpointConfig{}, nil)
	suite.ErrorContains(err, "invalid config type")

	_, err = NewEndpoint(EndpointBinanceLive, "BTCUSDT", &BinanceEndpointConfig{}, nil)
	suite.Error(err)

	_, err = NewEndpoint(EndpointType("kraken"), "BTCUSDT", nil, nil)
	suite.ErrorContains(err, "unsupported exchange endpoint")
}
