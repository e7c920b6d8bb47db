// Package session owns the lifecycle of the single analysis session: backend
// health status, input text, the in-flight flag, the most recent analysis
// result, and the last-analyzed timestamp. All mutations of the session state
// flow through the Service; the gateway and normalizer stay stateless.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/triage-console/internal/domain"
	"github.com/triage-console/internal/fallback"
	"github.com/triage-console/internal/normalize"
	"github.com/triage-console/pkg/inference"
)

// Listener receives a snapshot after every applied state transition.
type Listener func(domain.SessionSnapshot)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithProbeInterval enables periodic background re-probing of the backend.
// Zero (the default) keeps the probe-once-at-start-plus-manual model.
func WithProbeInterval(interval time.Duration) Option {
	return func(s *Service) {
		s.probeInterval = interval
	}
}

// Service is the session state machine. It is the single writer of the
// session state; transitions are serialized behind its mutex while network
// calls run outside the lock.
type Service struct {
	gateway inference.Gateway
	logger  *logrus.Logger
	clock   func() time.Time

	probeInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once

	mu             sync.Mutex
	input          string
	status         domain.BackendHealthStatus
	inFlight       bool
	result         *domain.AnalysisResult
	lastAnalyzedAt *time.Time
	listeners      []Listener
}

// NewService creates the session service in its initial state: Checking
// status, empty input, no result.
func NewService(gateway inference.Gateway, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		gateway: gateway,
		logger:  logger,
		clock:   time.Now,
		status:  domain.StatusChecking,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start performs the startup health probe in the background and, when a probe
// interval is configured, keeps re-probing until Stop or context cancellation.
// The status stays Checking until the first probe resolves.
func (s *Service) Start(ctx context.Context) {
	go func() {
		s.Probe(ctx)

		if s.probeInterval <= 0 {
			return
		}
		ticker := time.NewTicker(s.probeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Probe(ctx)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the background probe loop. Safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Probe invokes the health probe and updates the backend status from its
// outcome. It may be invoked from any state and touches neither the in-flight
// flag nor the last result.
func (s *Service) Probe(ctx context.Context) domain.BackendHealthStatus {
	outcome := s.gateway.ProbeHealth(ctx)
	status := statusFor(outcome)

	s.mu.Lock()
	previous := s.status
	s.status = status
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if status != previous {
		s.logger.WithFields(status.LogFields()).WithField("previous", previous.String()).
			Info("backend health status changed")
	}
	s.notify(snap)
	return status
}

// SetInput replaces the session input text. The caller may keep editing the
// input while a request is outstanding.
func (s *Service) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Submit dispatches one analyze request for the current input text and
// reports whether a request was issued. Empty or whitespace-only input is a
// no-op, as is a submit while a request is already in flight: at most one
// analyze request is outstanding at any time, with no queueing and no
// cancellation of the prior request.
func (s *Service) Submit() bool {
	s.mu.Lock()
	if strings.TrimSpace(s.input) == "" || s.inFlight {
		s.mu.Unlock()
		return false
	}
	s.inFlight = true
	text := s.input
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	go s.runAnalysis(text)
	return true
}

// runAnalysis performs the network call and applies its outcome. The request
// runs to completion once dispatched; there is no cancellation primitive, so
// the service's own background context is used rather than a caller context.
// A reset in the interim does not suppress the eventual assignment.
func (s *Service) runAnalysis(text string) {
	outcome := s.gateway.SubmitAnalysis(context.Background(), text)

	var result domain.AnalysisResult
	if outcome.Success {
		result = normalize.Normalize(outcome.Raw)
	} else {
		fields := logrus.Fields{"status_code": outcome.StatusCode}
		if outcome.Reason != nil {
			fields["reason"] = outcome.Reason.Error()
		}
		s.logger.WithFields(fields).Warn("analysis request failed, serving fallback result")
		result = fallback.Result()
	}

	s.mu.Lock()
	now := s.clock()
	s.result = &result
	s.lastAnalyzedAt = &now
	s.inFlight = false
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Reset clears the input text, the last result, and the last-analyzed
// timestamp. It touches neither the backend status nor the in-flight flag; a
// pending request, once resolved, is still assigned to the session.
func (s *Service) Reset() {
	s.mu.Lock()
	s.input = ""
	s.result = nil
	s.lastAnalyzedAt = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Snapshot returns an immutable copy of the current session state.
func (s *Service) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers a listener invoked with a snapshot after every applied
// transition. Listeners run outside the state lock.
func (s *Service) Subscribe(listener Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, listener)
	s.mu.Unlock()
}

// snapshotLocked builds a defensive copy of the state. Callers must hold mu.
func (s *Service) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		Input:         s.input,
		BackendStatus: s.status,
		InFlight:      s.inFlight,
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	if s.lastAnalyzedAt != nil {
		at := *s.lastAnalyzedAt
		snap.LastAnalyzedAt = &at
	}
	return snap
}

func (s *Service) notify(snap domain.SessionSnapshot) {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(snap)
	}
}

// statusFor maps a probe outcome to the session health status.
func statusFor(outcome inference.HealthOutcome) domain.BackendHealthStatus {
	switch outcome {
	case inference.Healthy:
		return domain.StatusConnected
	case inference.Degraded:
		return domain.StatusDegraded
	default:
		return domain.StatusDisconnected
	}
}
