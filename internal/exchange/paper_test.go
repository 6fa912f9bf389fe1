package exchange

import (
	"context"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	codederrors "github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type PaperExchangeTestSuite struct {
	suite.Suite
	exchange *PaperExchange
	ctx      context.Context
}

func TestPaperExchangeTestSuite(t *testing.T) {
	suite.Run(t, new(PaperExchangeTestSuite))
}

func (suite *PaperExchangeTestSuite) SetupTest() {
	suite.exchange = NewPaperExchange(nil)
	suite.ctx = context.Background()
}

func (suite *PaperExchangeTestSuite) TestMarketOrderFillsAtMark() {
	suite.exchange.SetMarkPrice(101.5)

	ack, err := suite.exchange.PlaceOrder(suite.ctx, types.SideBuy, 3, optional.None[float64]())
	suite.NoError(err)
	suite.NotEmpty(ack.OrderID)
	suite.Equal(types.OrderStatusFilled, ack.Status)
	suite.Equal(3.0, ack.FilledSize)

	state, err := suite.exchange.FetchOrder(suite.ctx, ack.OrderID)
	suite.NoError(err)
	suite.Equal(101.5, state.Price)
	suite.Equal(types.SideBuy, state.Side)
}

func (suite *PaperExchangeTestSuite) TestMarketOrderWithoutMark() {
	_, err := suite.exchange.PlaceOrder(suite.ctx, types.SideBuy, 1, optional.None[float64]())
	suite.True(codederrors.HasCode(err, codederrors.ErrCodeOrderPlacementFailed))
	suite.Empty(suite.exchange.Orders())
}

func (suite *PaperExchangeTestSuite) TestLimitOrderRestsUntilCrossed() {
	suite.exchange.SetMarkPrice(100)

	buy, err := suite.exchange.PlaceOrder(suite.ctx, types.SideBuy, 1, optional.Some(95.0))
	suite.NoError(err)
	suite.Equal(types.OrderStatusOpen, buy.Status)

	sell, err := suite.exchange.PlaceOrder(suite.ctx, types.SideSell, 1, optional.Some(110.0))
	suite.NoError(err)
	suite.Equal(types.OrderStatusOpen, sell.Status)

	suite.exchange.SetMarkPrice(94)

	state, _ := suite.exchange.FetchOrder(suite.ctx, buy.OrderID)
	suite.Equal(types.OrderStatusFilled, state.Status)
	suite.Equal(1.0, state.FilledSize)

	state, _ = suite.exchange.FetchOrder(suite.ctx, sell.OrderID)
	suite.Equal(types.OrderStatusOpen, state.Status)

	suite.exchange.SetMarkPrice(110)

	state, _ = suite.exchange.FetchOrder(suite.ctx, sell.OrderID)
	suite.Equal(types.OrderStatusFilled, state.Status)
}

func (suite *PaperExchangeTestSuite) TestMarketableLimitFillsImmediately() {
	suite.exchange.SetMarkPrice(100)

	ack, err := suite.exchange.PlaceOrder(suite.ctx, types.SideBuy, 2, optional.Some(105.0))
	suite.NoError(err)
	suite.Equal(types.OrderStatusFilled, ack.Status)
	suite.Equal(2.0, ack.FilledSize)
}

func (suite *PaperExchangeTestSuite) TestInvalidOrders() {
	suite.exchange.SetMarkPrice(100)

	_, err := suite.exchange.PlaceOrder(suite.ctx, types.SideBuy, 0, optional.None[float64]())
	suite.True(codederrors.HasCode(err, codederrors.ErrCodeInvalidInput))

	_, err = suite.exchange.PlaceOrder(suite.ctx, types.SideBuy, 1, optional.Some(-1.0))
	suite.True(codederrors.HasCode(err, codederrors.ErrCodeInvalidInput))

	_, err = suite.exchange.PlaceOrder(suite.ctx, types.Side("hold"), 1, optional.None[float64]())
	suite.True(codederrors.HasCode(err, codederrors.ErrCodeInvalidInput))
}

func (suite *PaperExchangeTestSuite) TestCancel() {
	suite.exchange.SetMarkPrice(100)

	resting, _ := suite.exchange.PlaceOrder(suite.ctx, types.SideBuy, 1, optional.Some(90.0))
	suite.NoError(suite.exchange.CancelOrder(suite.ctx, resting.OrderID))

	state, _ := suite.exchange.FetchOrder(suite.ctx, resting.OrderID)
	suite.Equal(types.OrderStatusCancelled, state.Status)

	err := suite.exchange.CancelOrder(suite.ctx, resting.OrderID)
	suite.True(codederrors.HasCode(err, codederrors.ErrCodeOrderNotOpen))

	err = suite.exchange.CancelOrder(suite.ctx, "missing")
	suite.True(codederrors.HasCode(err, codederrors.ErrCodeOrderNotFound))
}

func (suite *PaperExchangeTestSuite) TestCancelledOrderNeverFills() {
	suite.exchange.SetMarkPrice(100)

	resting, _ := suite.exchange.PlaceOrder(suite.ctx, types.SideBuy, 1, optional.Some(90.0))
	suite.NoError(suite.exchange.CancelOrder(suite.ctx, resting.OrderID))

	suite.exchange.SetMarkPrice(80)

	state, _ := suite.exchange.FetchOrder(suite.ctx, resting.OrderID)
	suite.Equal(types.OrderStatusCancelled, state.Status)
}

func (suite *PaperExchangeTestSuite) TestFetchMissing() {
	_, err := suite.exchange.FetchOrder(suite.ctx, "missing")
	suite.True(codederrors.HasCode(err, codederrors.ErrCodeOrderNotFound))
}

func (suite *PaperExchangeTestSuite) TestOrdersKeepPlacementOrder() {
	suite.exchange.SetMarkPrice(100)

	first, _ := suite.exchange.PlaceOrder(suite.ctx, types.SideBuy, 1, optional.None[float64]())
	second, _ := suite.exchange.PlaceOrder(suite.ctx, types.SideSell, 1, optional.None[float64]())

	orders := suite.exchange.Orders()
	suite.Len(orders, 2)
	suite.Equal(first.OrderID, orders[0].OrderID)
	suite.Equal(second.OrderID, orders[1].OrderID)
	suite.Equal(100.0, suite.exchange.MarkPrice())
}
