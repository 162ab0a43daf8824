// Package observability provides pipeline counters for ingestion and query
// execution monitoring.
package observability

import (
	"sync"
	"time"
)

// Metrics tracks ingestion and query activity across a session's lifetime.
// Counters have no functional effect on pipeline output.
type Metrics struct {
	mu sync.RWMutex

	rowsIngested    int64
	chunksRead      int64
	datasetsLoaded  int64
	partialRecovers int64

	queriesExecuted int64
	queryFailures   int64

	lastIngestDuration time.Duration
	lastQueryDuration  time.Duration
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	RowsIngested       int64
	ChunksRead         int64
	DatasetsLoaded     int64
	PartialRecovers    int64
	QueriesExecuted    int64
	QueryFailures      int64
	LastIngestDuration time.Duration
	LastQueryDuration  time.Duration
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordIngest records a completed ingestion run.
// rows: rows accumulated into the dataset.
// chunks: 10 MiB chunks consumed from the input stream.
// partial: whether the run recovered from a mid-stream fault.
// This method is thread-safe.
func (m *Metrics) RecordIngest(rows, chunks int64, partial bool, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rowsIngested += rows
	m.chunksRead += chunks
	m.datasetsLoaded++
	if partial {
		m.partialRecovers++
	}
	m.lastIngestDuration = elapsed
}

// RecordQuery records a query execution outcome. This method is thread-safe.
func (m *Metrics) RecordQuery(failed bool, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queriesExecuted++
	if failed {
		m.queryFailures++
	}
	m.lastQueryDuration = elapsed
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		RowsIngested:       m.rowsIngested,
		ChunksRead:         m.chunksRead,
		DatasetsLoaded:     m.datasetsLoaded,
		PartialRecovers:    m.partialRecovers,
		QueriesExecuted:    m.queriesExecuted,
		QueryFailures:      m.queryFailures,
		LastIngestDuration: m.lastIngestDuration,
		LastQueryDuration:  m.lastQueryDuration,
	}
}
