// Package server exposes the running engine over HTTP: health, status,
// Prometheus metrics and the trade journal.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/journal"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/metrics"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/engine"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// StatusProvider reports the engine status. *engine.Engine satisfies it.
type StatusProvider interface {
	Status() engine.Status
}

// TradeLog is the read side of the trade journal.
type TradeLog interface {
	Orders(ctx context.Context, executionOrderID optional.Option[string]) ([]journal.OrderRecord, error)
	Trades(ctx context.Context) ([]journal.TradeRecord, error)
	Summary(ctx context.Context) (journal.Summary, error)
}

// Server serves the status API.
type Server struct {
	status  StatusProvider
	metrics *metrics.Metrics
	trades  TradeLog
	router  *mux.Router
	logger  *logger.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New builds the routes. trades may be nil, in which case the journal
// routes answer 404.
func New(status StatusProvider, m *metrics.Metrics, trades TradeLog, l *logger.Logger) *Server {
	if l == nil {
		l = logger.NewNop()
	}

	s := &Server{
		status:  status,
		metrics: m,
		trades:  trades,
		logger:  l,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/trades", s.handleTrades).Methods(http.MethodGet)
	router.HandleFunc("/trades/summary", s.handleSummary).Methods(http.MethodGet)
	router.HandleFunc("/orders", s.handleOrders).Methods(http.MethodGet)
	router.HandleFunc("/orders/{executionOrderID}", s.handleOrders).Methods(http.MethodGet)
	s.router = router

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on address (":0" picks a free port) and serves in the
// background.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.mu.Unlock()

	s.logger.Info("Status server listening", zap.String("address", listener.Addr().String()))

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Status server error", zap.Error(err))
		}
	}()

	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, address string) error {
	if err := s.Start(address); err != nil {
		return err
	}

	<-ctx.Done()

	return s.Stop()
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

// Address returns the listening address, or "" before Start.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Status())
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		http.NotFound(w, r)

		return
	}

	trades, err := s.trades.Trades(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		http.NotFound(w, r)

		return
	}

	summary, err := s.trades.Summary(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		http.NotFound(w, r)

		return
	}

	filter := optional.None[string]()
	if id, ok := mux.Vars(r)["executionOrderID"]; ok {
		filter = optional.Some(id)
	}

	orders, err := s.trades.Orders(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.logger.Error("Status request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
