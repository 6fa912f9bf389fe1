package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// Metrics holds the trading loop's Prometheus collectors on a private
// registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	BarsTotal    *prometheus.CounterVec
	SignalsTotal *prometheus.CounterVec
	OrdersTotal  *prometheus.CounterVec
	TradesTotal  *prometheus.CounterVec
	RiskHalts    *prometheus.CounterVec
	ErrorsTotal  *prometheus.CounterVec
	Equity       *prometheus.GaugeVec
	DrawdownPct  *prometheus.GaugeVec
	RealizedPnL  *prometheus.GaugeVec
	PositionSize *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BarsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "autotrader_bars_total", Help: "Count of price bars processed"},
			[]string{"symbol"},
		),
		SignalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "autotrader_signals_total", Help: "Signals evaluated by action"},
			[]string{"symbol", "action", "should_trade"},
		),
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "autotrader_child_orders_total", Help: "Child orders by side and outcome"},
			[]string{"symbol", "side", "outcome"},
		),
		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "autotrader_trades_total", Help: "Closed round trips by result"},
			[]string{"symbol", "result"},
		),
		RiskHalts: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "autotrader_risk_vetoes_total", Help: "Ticks vetoed by the risk manager"},
			[]string{"symbol"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "autotrader_errors_total", Help: "Recoverable errors by kind"},
			[]string{"symbol", "kind"},
		),
		Equity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "autotrader_equity", Help: "Marked-to-market total value"},
			[]string{"symbol"},
		),
		DrawdownPct: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "autotrader_max_drawdown_percent", Help: "Maximum drawdown from peak, in percent"},
			[]string{"symbol"},
		),
		RealizedPnL: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "autotrader_realized_pnl", Help: "Realized profit and loss"},
			[]string{"symbol"},
		),
		PositionSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "autotrader_position_size", Help: "Open position size, 0 when flat"},
			[]string{"symbol"},
		),
	}

	m.registry.MustRegister(
		m.BarsTotal, m.SignalsTotal, m.OrdersTotal, m.TradesTotal, m.RiskHalts,
		m.ErrorsTotal, m.Equity, m.DrawdownPct, m.RealizedPnL, m.PositionSize,
	)

	return m
}

// Registry exposes the private registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveBar(symbol string) {
	if m == nil {
		return
	}

	m.BarsTotal.WithLabelValues(symbol).Inc()
}

func (m *Metrics) ObserveSignal(signal types.Signal) {
	if m == nil {
		return
	}

	shouldTrade := "false"
	if signal.ShouldTrade {
		shouldTrade = "true"
	}

	m.SignalsTotal.WithLabelValues(signal.Symbol, string(signal.Action), shouldTrade).Inc()
}

func (m *Metrics) ObserveExecution(report types.ExecutionReport) {
	if m == nil {
		return
	}

	side := string(report.Order.Side)
	m.OrdersTotal.WithLabelValues(report.Order.Symbol, side, "succeeded").Add(float64(len(report.Succeeded)))
	m.OrdersTotal.WithLabelValues(report.Order.Symbol, side, "failed").Add(float64(len(report.Failed)))
}

func (m *Metrics) ObserveTrade(symbol string, trade types.ClosedTrade) {
	if m == nil {
		return
	}

	result := "loss"
	if trade.PnL > 0 {
		result = "win"
	}

	m.TradesTotal.WithLabelValues(symbol, result).Inc()
}

func (m *Metrics) ObserveRiskVeto(symbol string) {
	if m == nil {
		return
	}

	m.RiskHalts.WithLabelValues(symbol).Inc()
}

func (m *Metrics) ObserveError(symbol string, kind string) {
	if m == nil {
		return
	}

	m.ErrorsTotal.WithLabelValues(symbol, kind).Inc()
}

func (m *Metrics) ObserveStatus(symbol string, status types.PortfolioStatus) {
	if m == nil {
		return
	}

	m.Equity.WithLabelValues(symbol).Set(status.TotalValue)
	m.DrawdownPct.WithLabelValues(symbol).Set(status.MaxDrawdownPct)
	m.RealizedPnL.WithLabelValues(symbol).Set(status.RealizedPnL)
	m.PositionSize.WithLabelValues(symbol).Set(status.PositionSize)
}
