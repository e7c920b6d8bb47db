package session

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-console/internal/domain"
	"github.com/triage-console/internal/fallback"
	"github.com/triage-console/pkg/inference"
)

// fakeGateway scripts probe and analyze outcomes and can hold analyze calls
// open until released, to exercise the in-flight guard.
type fakeGateway struct {
	mu            sync.Mutex
	probeCalls    int
	analyzeCalls  int
	healthOutcome inference.HealthOutcome
	analyzeFn     func(text string) inference.AnalyzeOutcome
	block         chan struct{}
}

func (f *fakeGateway) ProbeHealth(ctx context.Context) inference.HealthOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	return f.healthOutcome
}

func (f *fakeGateway) SubmitAnalysis(ctx context.Context, text string) inference.AnalyzeOutcome {
	f.mu.Lock()
	f.analyzeCalls++
	fn := f.analyzeFn
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if fn != nil {
		return fn(text)
	}
	return inference.AnalyzeOutcome{Success: true, Raw: map[string]any{}}
}

func (f *fakeGateway) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeCalls, f.analyzeCalls
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func waitNotInFlight(t *testing.T, s *Service) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !s.Snapshot().InFlight
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNewService_InitialState(t *testing.T) {
	s := NewService(&fakeGateway{}, testLogger())
	snap := s.Snapshot()

	assert.Equal(t, domain.StatusChecking, snap.BackendStatus)
	assert.Empty(t, snap.Input)
	assert.False(t, snap.InFlight)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.LastAnalyzedAt)
}

func TestProbe_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		outcome  inference.HealthOutcome
		expected domain.BackendHealthStatus
	}{
		{name: "healthy maps to connected", outcome: inference.Healthy, expected: domain.StatusConnected},
		{name: "degraded maps to degraded", outcome: inference.Degraded, expected: domain.StatusDegraded},
		{name: "unreachable maps to disconnected", outcome: inference.Unreachable, expected: domain.StatusDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{healthOutcome: tt.outcome}
			s := NewService(gw, testLogger())

			assert.Equal(t, tt.expected, s.Probe(context.Background()))
			assert.Equal(t, tt.expected, s.Snapshot().BackendStatus)
		})
	}
}

func TestProbe_DoesNotTouchResultOrInFlight(t *testing.T) {
	gw := &fakeGateway{healthOutcome: inference.Healthy}
	s := NewService(gw, testLogger())

	s.SetInput("fever and cough")
	require.True(t, s.Submit())
	waitNotInFlight(t, s)
	before := s.Snapshot()
	require.NotNil(t, before.Result)

	gw.healthOutcome = inference.Unreachable
	s.Probe(context.Background())

	after := s.Snapshot()
	assert.Equal(t, domain.StatusDisconnected, after.BackendStatus)
	assert.Equal(t, before.Result, after.Result)
	assert.Equal(t, before.LastAnalyzedAt, after.LastAnalyzedAt)
	assert.False(t, after.InFlight)
}

func TestSubmit_WhitespaceOnlyInputIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	s := NewService(gw, testLogger())

	s.SetInput("  ")
	before := s.Snapshot()
	assert.False(t, s.Submit())

	_, analyzeCalls := gw.calls()
	assert.Equal(t, 0, analyzeCalls)
	assert.Equal(t, before, s.Snapshot())
}

func TestSubmit_EmptyInputIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	s := NewService(gw, testLogger())

	assert.False(t, s.Submit())

	_, analyzeCalls := gw.calls()
	assert.Equal(t, 0, analyzeCalls)
}

func TestSubmit_AtMostOneInFlight(t *testing.T) {
	gw := &fakeGateway{block: make(chan struct{})}
	s := NewService(gw, testLogger())
	s.SetInput("fever")

	assert.True(t, s.Submit())
	assert.False(t, s.Submit())
	assert.False(t, s.Submit())

	close(gw.block)
	waitNotInFlight(t, s)

	_, analyzeCalls := gw.calls()
	assert.Equal(t, 1, analyzeCalls)
}

func TestSubmit_SuccessAssignsNormalizedResult(t *testing.T) {
	gw := &fakeGateway{
		analyzeFn: func(text string) inference.AnalyzeOutcome {
			return inference.AnalyzeOutcome{
				Success: true,
				Raw: map[string]any{
					"entities": map[string]any{"symptoms": []any{"Fever"}},
					"differential_diagnoses": []any{
						map[string]any{"condition": "Flu", "confidence": "HIGH", "explanation": "x"},
					},
				},
			}
		},
	}
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := NewService(gw, testLogger(), WithClock(func() time.Time { return now }))

	s.SetInput("patient has a fever")
	require.True(t, s.Submit())
	waitNotInFlight(t, s)

	snap := s.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Equal(t, []string{"Fever"}, snap.Result.Entities.Symptoms)
	assert.Empty(t, snap.Result.Entities.Conditions)
	require.Len(t, snap.Result.DifferentialDiagnoses, 1)
	assert.Equal(t, domain.ConfidenceHigh, snap.Result.DifferentialDiagnoses[0].Confidence)
	assert.Empty(t, snap.Result.Literature)
	require.NotNil(t, snap.LastAnalyzedAt)
	assert.Equal(t, now, *snap.LastAnalyzedAt)
}

func TestSubmit_FailureAssignsFallbackResult(t *testing.T) {
	gw := &fakeGateway{
		healthOutcome: inference.Healthy,
		analyzeFn: func(text string) inference.AnalyzeOutcome {
			return inference.AnalyzeOutcome{Success: false, StatusCode: 503}
		},
	}
	s := NewService(gw, testLogger())
	s.Probe(context.Background())
	require.Equal(t, domain.StatusConnected, s.Snapshot().BackendStatus)

	s.SetInput("patient has a fever")
	require.True(t, s.Submit())
	waitNotInFlight(t, s)

	snap := s.Snapshot()
	require.NotNil(t, snap.Result)
	expected := fallback.Result()
	assert.Equal(t, expected, *snap.Result)
	assert.NotNil(t, snap.LastAnalyzedAt)

	// The analyze path never moves the health indicator.
	assert.Equal(t, domain.StatusConnected, snap.BackendStatus)
}

func TestSubmit_TransportFailureAssignsFallback(t *testing.T) {
	gw := &fakeGateway{
		analyzeFn: func(text string) inference.AnalyzeOutcome {
			return inference.AnalyzeOutcome{
				Success: false,
				Reason:  domain.NewGatewayError("submit_analysis", 0, context.DeadlineExceeded),
			}
		},
	}
	s := NewService(gw, testLogger())

	s.SetInput("fever")
	require.True(t, s.Submit())
	waitNotInFlight(t, s)

	snap := s.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Equal(t, fallback.Result(), *snap.Result)
	assert.Equal(t, domain.StatusChecking, snap.BackendStatus)
}

func TestReset_ClearsInputResultAndTimestamp(t *testing.T) {
	gw := &fakeGateway{healthOutcome: inference.Healthy}
	s := NewService(gw, testLogger())
	s.Probe(context.Background())

	s.SetInput("fever")
	require.True(t, s.Submit())
	waitNotInFlight(t, s)
	require.NotNil(t, s.Snapshot().Result)

	s.Reset()

	snap := s.Snapshot()
	assert.Empty(t, snap.Input)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.LastAnalyzedAt)
	assert.Equal(t, domain.StatusConnected, snap.BackendStatus)
	assert.False(t, snap.InFlight)
}

func TestReset_DoesNotSuppressPendingResult(t *testing.T) {
	gw := &fakeGateway{block: make(chan struct{})}
	s := NewService(gw, testLogger())

	s.SetInput("fever")
	require.True(t, s.Submit())
	s.Reset()

	snap := s.Snapshot()
	assert.True(t, snap.InFlight)
	assert.Nil(t, snap.Result)

	close(gw.block)
	waitNotInFlight(t, s)

	// The pending result, once resolved, is still assigned to the session.
	snap = s.Snapshot()
	assert.NotNil(t, snap.Result)
	assert.NotNil(t, snap.LastAnalyzedAt)
}

func TestSubmit_AllowedAgainAfterCompletion(t *testing.T) {
	gw := &fakeGateway{}
	s := NewService(gw, testLogger())

	s.SetInput("fever")
	require.True(t, s.Submit())
	waitNotInFlight(t, s)

	require.True(t, s.Submit())
	waitNotInFlight(t, s)

	_, analyzeCalls := gw.calls()
	assert.Equal(t, 2, analyzeCalls)
}

func TestStart_PerformsStartupProbe(t *testing.T) {
	gw := &fakeGateway{healthOutcome: inference.Healthy}
	s := NewService(gw, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Snapshot().BackendStatus == domain.StatusConnected
	}, 2*time.Second, 5*time.Millisecond)

	probeCalls, _ := gw.calls()
	assert.Equal(t, 1, probeCalls)
}

func TestStart_PeriodicReprobe(t *testing.T) {
	gw := &fakeGateway{healthOutcome: inference.Healthy}
	s := NewService(gw, testLogger(), WithProbeInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool {
		probeCalls, _ := gw.calls()
		return probeCalls >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSubscribe_ReceivesTransitionSnapshots(t *testing.T) {
	gw := &fakeGateway{healthOutcome: inference.Degraded}
	s := NewService(gw, testLogger())

	var mu sync.Mutex
	var seen []domain.SessionSnapshot
	s.Subscribe(func(snap domain.SessionSnapshot) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	s.Probe(context.Background())
	s.SetInput("fever")
	require.True(t, s.Submit())
	waitNotInFlight(t, s)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 4
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, domain.StatusDegraded, seen[0].BackendStatus)
	last := seen[len(seen)-1]
	assert.False(t, last.InFlight)
	assert.NotNil(t, last.Result)
}

func TestSnapshot_CopiesAreIndependent(t *testing.T) {
	gw := &fakeGateway{}
	s := NewService(gw, testLogger())

	s.SetInput("fever")
	require.True(t, s.Submit())
	waitNotInFlight(t, s)

	snap := s.Snapshot()
	require.NotNil(t, snap.Result)
	snap.Result.Entities.Symptoms = []string{"mutated"}

	assert.NotEqual(t, []string{"mutated"}, s.Snapshot().Result.Entities.Symptoms)
}
