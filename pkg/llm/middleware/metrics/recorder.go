// Package metrics provides metrics recording middleware for LLM client
// operations.
package metrics

import (
	"sync"
	"time"
)

// LabelProvider supplies engine-side labels for recorded requests.
type LabelProvider interface {
	// GetPlanID returns the plan currently being built or executed.
	GetPlanID() string
	// GetPhase returns the engine phase issuing the request (planning,
	// executing, correcting).
	GetPhase() string
}

// Recorder defines the interface for recording LLM operation metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		model, planID, phase string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are
// disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveRequest(
	_, _, _ string,
	_, _ int,
	_ bool,
	_ string,
	_ time.Duration,
) {
}

// StaticLabels is a LabelProvider with fixed values, for callers without
// per-plan context.
type StaticLabels struct {
	PlanID string
	Phase  string
}

func (s StaticLabels) GetPlanID() string { return s.PlanID }
func (s StaticLabels) GetPhase() string  { return s.Phase }

// SessionLabels is a mutable LabelProvider the engine updates as a session
// moves through its phases. The client is built before any plan exists, so
// the provider has to be updated in place.
type SessionLabels struct {
	mu     sync.RWMutex
	planID string
	phase  string
}

func NewSessionLabels() *SessionLabels {
	return &SessionLabels{}
}

// SetPlan records the plan ID stamped onto subsequent metrics.
func (s *SessionLabels) SetPlan(planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planID = planID
}

// SetPhase records the engine phase stamped onto subsequent metrics.
func (s *SessionLabels) SetPhase(phase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
}

func (s *SessionLabels) GetPlanID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.planID
}

func (s *SessionLabels) GetPhase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}
