package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for engine operations.
type Metrics struct {
	mu             sync.Mutex
	operationCount map[string]int64
	errorCount     map[string]int64
	syncFailures   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		operationCount: make(map[string]int64),
		errorCount:     make(map[string]int64),
		syncFailures:   make(map[string]int64),
	}
}

// RecordOperation counts one engine operation.
func (m *Metrics) RecordOperation(op string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationCount[op]++
}

// RecordError counts a rejected operation by error code.
func (m *Metrics) RecordError(op, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[op+"|"+code]++
}

// RecordSyncFailure counts a failed external tracker call.
func (m *Metrics) RecordSyncFailure(op string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncFailures[op]++
}

// OperationCount returns the current counter for an operation.
func (m *Metrics) OperationCount(op string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.operationCount[op]
}
