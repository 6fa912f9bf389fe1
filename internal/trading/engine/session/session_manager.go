package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// SessionManager tracks the trading day of a run. Days are keyed on the UTC
// date of the bar time, not the wall clock, so replays cross boundaries the
// same way live streams do.
type SessionManager struct {
	runID        string
	sessionStart time.Time
	currentDate  string
	mu           sync.Mutex
	logger       *logger.Logger
}

// NewSessionManager creates a new SessionManager instance.
func NewSessionManager(log *logger.Logger) *SessionManager {
	if log == nil {
		log = logger.NewNop()
	}

	return &SessionManager{
		runID:        "",
		sessionStart: time.Time{},
		currentDate:  "",
		mu:           sync.Mutex{},
		logger:       log,
	}
}

// Initialize starts a new run. The first bar seen afterwards sets the current
// date without counting as a boundary.
func (s *SessionManager) Initialize(start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runID = uuid.New().String()
	s.sessionStart = start
	s.currentDate = ""

	s.logger.Info("Session initialized",
		zap.String("run_id", s.runID),
		zap.Time("start", start),
	)
}

// HandleDateBoundary reports whether timestamp falls on a later trading day
// than the previous call.
func (s *SessionManager) HandleDateBoundary(timestamp time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	newDate := timestamp.UTC().Format(dateLayout)
	if s.currentDate == "" {
		s.currentDate = newDate

		return false
	}

	if newDate <= s.currentDate {
		return false
	}

	oldDate := s.currentDate
	s.currentDate = newDate

	s.logger.Info("Date boundary crossed",
		zap.String("old_date", oldDate),
		zap.String("new_date", newDate),
		zap.String("run_id", s.runID),
	)

	return true
}

// GetRunID returns the session run ID.
func (s *SessionManager) GetRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runID
}

// GetSessionStart returns the session start time.
func (s *SessionManager) GetSessionStart() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessionStart
}

// GetCurrentDate returns the current trading day in YYYY-MM-DD format.
func (s *SessionManager) GetCurrentDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentDate
}
