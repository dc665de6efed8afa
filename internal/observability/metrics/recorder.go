// Package metrics provides Prometheus metrics for the dashboard.
package metrics

import "sync"

// Recorder is the minimal interface components use to record metrics, so
// they depend on an abstraction rather than on DashboardMetrics.
type Recorder interface {
	// RecordOperation records an operation outcome, e.g. ("session_load", "success").
	RecordOperation(operation, status string)

	// RecordDuration records how long an operation took in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error with its category, e.g. ("fetch_http", "network").
	RecordError(operation, errorType string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string) {}

// OrNop returns r, or a NopRecorder when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	return r
}

// TestRecorder captures recorded metrics for assertions in tests.
type TestRecorder struct {
	mu         sync.RWMutex
	operations map[string]map[string]int
	durations  map[string][]float64
	errors     map[string]map[string]int
}

// NewTestRecorder creates an empty TestRecorder.
func NewTestRecorder() *TestRecorder {
	return &TestRecorder{
		operations: make(map[string]map[string]int),
		durations:  make(map[string][]float64),
		errors:     make(map[string]map[string]int),
	}
}

func (r *TestRecorder) RecordOperation(operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.operations[operation] == nil {
		r.operations[operation] = make(map[string]int)
	}
	r.operations[operation][status]++
}

func (r *TestRecorder) RecordDuration(operation string, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[operation] = append(r.durations[operation], seconds)
}

func (r *TestRecorder) RecordError(operation, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errors[operation] == nil {
		r.errors[operation] = make(map[string]int)
	}
	r.errors[operation][errorType]++
}

// OperationCount returns how often operation was recorded with status.
func (r *TestRecorder) OperationCount(operation, status string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operations[operation][status]
}

// DurationCount returns how many durations were recorded for operation.
func (r *TestRecorder) DurationCount(operation string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.durations[operation])
}

// ErrorCount returns how often operation failed with errorType.
func (r *TestRecorder) ErrorCount(operation, errorType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errors[operation][errorType]
}

// SizeRecorder is implemented by recorders that track fetched payload sizes.
type SizeRecorder interface {
	RecordFetchSize(source string, sizeBytes int)
}
