package checkout

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/arena/internal/domain"
)

// Service hands out one Orchestrator per session so that the in-flight
// guard holds across concurrent requests of the same session.
type Service struct {
	processor domain.CheckoutProcessor
	logger    *slog.Logger
	timeout   time.Duration
	observer  Observer
	sessions  SessionPatcher

	mu            sync.Mutex
	orchestrators map[string]*Orchestrator
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each gateway checkout call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithObserver registers a terminal-state observer (metrics).
func WithObserver(fn Observer) Option {
	return func(s *Service) {
		s.observer = fn
	}
}

// WithSessions broadcasts the balance and points of an applied checkout to
// every live session of the buyer.
func WithSessions(p SessionPatcher) Option {
	return func(s *Service) {
		s.sessions = p
	}
}

// NewService creates a checkout service over the gateway procedure.
func NewService(processor domain.CheckoutProcessor, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		processor:     processor,
		logger:        logger,
		timeout:       DefaultTimeout,
		orchestrators: make(map[string]*Orchestrator),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// For returns the orchestrator of a session, creating it on first use.
func (s *Service) For(sessionID string, holder Holder) *Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.orchestrators[sessionID]; ok {
		return o
	}

	o := &Orchestrator{
		processor: s.processor,
		holder:    holder,
		logger:    s.logger.With("session_id", sessionID),
		timeout:   s.timeout,
		observer:  s.observer,
		sessions:  s.sessions,
		state:     StateIdle,
	}
	s.orchestrators[sessionID] = o
	return o
}

// Forget drops the orchestrator of an ended session.
func (s *Service) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orchestrators, sessionID)
}
