package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/journal"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/metrics"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/engine"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/stretchr/testify/suite"
)

type staticStatus struct {
	status engine.Status
}

func (s staticStatus) Status() engine.Status {
	return s.status
}

type ServerTestSuite struct {
	suite.Suite
	journal *journal.Journal
	metrics *metrics.Metrics
	server  *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (suite *ServerTestSuite) SetupTest() {
	j, err := journal.NewJournal(logger.NewNop())
	suite.Require().NoError(err)
	suite.journal = j
	suite.metrics = metrics.New()

	status := staticStatus{status: engine.Status{
		Symbol:   "BTCUSDT",
		Bars:     42,
		RiskMode: types.RiskModeActive,
		Portfolio: types.PortfolioStatus{
			TotalValue: 10250,
			Cash:       10250,
		},
	}}

	suite.server = New(status, suite.metrics, suite.journal, logger.NewNop())
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.NoError(suite.journal.Close())
}

func (suite *ServerTestSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	suite.server.Handler().ServeHTTP(rec, req)

	return rec
}

func (suite *ServerTestSuite) TestHealth() {
	rec := suite.get("/healthz")

	suite.Equal(http.StatusOK, rec.Code)
	suite.JSONEq(`{"status":"ok"}`, rec.Body.String())
}

func (suite *ServerTestSuite) TestStatus() {
	rec := suite.get("/status")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Equal("application/json", rec.Header().Get("Content-Type"))

	var status engine.Status
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	suite.Equal("BTCUSDT", status.Symbol)
	suite.Equal(42, status.Bars)
	suite.Equal(types.RiskModeActive, status.RiskMode)
	suite.Equal(10250.0, status.Portfolio.TotalValue)
}

func (suite *ServerTestSuite) TestMetrics() {
	suite.metrics.ObserveBar("BTCUSDT")

	rec := suite.get("/metrics")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), `autotrader_bars_total{symbol="BTCUSDT"} 1`)
}

func (suite *ServerTestSuite) TestPostIsRejected() {
	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rec := httptest.NewRecorder()
	suite.server.Handler().ServeHTTP(rec, req)

	suite.Equal(http.StatusMethodNotAllowed, rec.Code)
}

func (suite *ServerTestSuite) TestTradesAndSummary() {
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.Require().NoError(suite.journal.RecordTrade(ctx, "BTCUSDT", types.ClosedTrade{
		EntryPrice: 100, ExitPrice: 110, Size: 2, OpenedAt: at, ClosedAt: at.Add(time.Hour), PnL: 20,
	}, "take_profit"))

	rec := suite.get("/trades")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var trades []journal.TradeRecord
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &trades))
	suite.Require().Len(trades, 1)
	suite.Equal("take_profit", trades[0].Reason)
	suite.Equal(20.0, trades[0].Trade.PnL)

	rec = suite.get("/trades/summary")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var summary journal.Summary
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &summary))
	suite.Equal(1, summary.TradeCount)
	suite.Equal(1, summary.WinningTrades)
}

func (suite *ServerTestSuite) TestOrdersFilteredByExecution() {
	ctx := context.Background()
	report := types.ExecutionReport{
		Order: types.ExecutionOrder{
			ID:            "6f1c2b56-8a3e-4c1f-9d2a-0b7e5c4d3a21",
			Symbol:        "BTCUSDT",
			Side:          types.SideBuy,
			RequestedSize: 1,
			LimitPrice:    optional.None[float64](),
			ChildOrders: []types.ChildOrder{
				{ExchangeOrderID: "x1", Size: 1, Status: types.OrderStatusFilled, FilledSize: 1, PlacedAt: time.Now()},
			},
		},
		Planned: 1,
	}
	suite.Require().NoError(suite.journal.RecordExecution(ctx, report))

	rec := suite.get("/orders/" + report.Order.ID)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), `"exchange_order_id":"x1"`)

	rec = suite.get("/orders/unknown")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.NotContains(rec.Body.String(), "x1")
}

func (suite *ServerTestSuite) TestJournalRoutesWithoutJournal() {
	server := New(staticStatus{}, nil, nil, nil)

	for _, path := range []string{"/trades", "/trades/summary", "/orders", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		suite.Equal(http.StatusNotFound, rec.Code, path)
	}
}

func (suite *ServerTestSuite) TestRunServesUntilCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- suite.server.Run(ctx, "127.0.0.1:0")
	}()

	suite.Eventually(func() bool { return suite.server.Address() != "" }, time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + suite.server.Address() + "/healthz")
	suite.Require().NoError(err)
	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	suite.NoError(resp.Body.Close())
	suite.True(strings.Contains(string(body), "ok"))

	cancel()
	suite.NoError(<-done)
}
