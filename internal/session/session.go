// Package session owns the mutable state of one analysis session: the
// currently loaded dataset and the most recent query result. State is
// explicit and passed by reference rather than living in package-level
// globals, so the ingestor, query engine, and statistics engine stay
// decoupled.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/datapeek/datapeek/internal/config"
	"github.com/datapeek/datapeek/internal/ingest"
	"github.com/datapeek/datapeek/internal/observability"
	"github.com/datapeek/datapeek/internal/query"
	"github.com/datapeek/datapeek/internal/stats"
	"github.com/datapeek/datapeek/pkg/types"
)

// Session holds one dataset and one query result at a time; both are
// replaced wholesale, never mutated in place. A mutex serializes access
// to the promoted state.
type Session struct {
	mu sync.Mutex

	id       string
	cfg      *config.Config
	ingestor *ingest.Ingestor
	engine   *query.Engine
	metrics  *observability.Metrics

	dataset *types.Dataset
	result  *types.QueryResult
}

// New creates a session with its own query engine and metrics.
func New(cfg *config.Config) (*Session, error) {
	eval, err := query.NewSQLiteEvaluator()
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()

	return &Session{
		id:       uuid.New().String(),
		cfg:      cfg,
		ingestor: ingest.NewIngestor(cfg.Ingest, metrics),
		engine:   query.NewEngine(eval, cfg.Query, metrics),
		metrics:  metrics,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// LoadCSV ingests src and promotes the resulting dataset to the active
// one, replacing any prior dataset and clearing the prior query result.
// A partially recovered dataset is promoted too; the warning travels on
// the returned result.
func (s *Session) LoadCSV(ctx context.Context, src ingest.Source) (*ingest.Result, error) {
	res, err := s.ingestor.Ingest(ctx, src)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.dataset = res.Dataset
	s.result = nil
	s.mu.Unlock()

	return res, nil
}

// Execute runs a query against the loaded dataset and promotes the
// result. On failure the prior result and dataset are left unchanged.
func (s *Session) Execute(ctx context.Context, queryStr string) (*types.QueryResult, error) {
	s.mu.Lock()
	ds := s.dataset
	s.mu.Unlock()

	result, err := s.engine.Execute(ctx, queryStr, ds)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.result = result
	s.mu.Unlock()

	return result, nil
}

// TableName returns the virtual table name queries must reference.
func (s *Session) TableName() string {
	return s.engine.TableName()
}

// RowCount returns the loaded dataset's row count, 0 when none.
func (s *Session) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset.RowCount()
}

// Columns returns the loaded dataset's column names, nil when none.
func (s *Session) Columns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset == nil {
		return nil
	}
	return s.dataset.Columns
}

// Result returns the current query result, nil when none.
func (s *Session) Result() *types.QueryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// DisplayRows returns the current result's records capped at the display
// row limit. The cap affects display only; statistics and histograms
// always use the full result.
func (s *Session) DisplayRows() []types.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return nil
	}
	limit := s.cfg.Query.DisplayRowLimit
	if len(s.result.Records) <= limit {
		return s.result.Records
	}
	return s.result.Records[:limit]
}

// Summary computes statistics over the full current result, nil when no
// result is present or the result is empty.
func (s *Session) Summary() *stats.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.Summarize(s.result)
}

// HistogramFor bins one column of the current result. Any column may be
// requested regardless of the display cutoff.
func (s *Session) HistogramFor(column string) []stats.Bin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.Histogram(s.result, column)
}

// HistogramColumns returns the numeric columns selected for
// visualization: the first MaxHistogramColumns in summary order.
func (s *Session) HistogramColumns() []string {
	summary := s.Summary()
	if summary == nil {
		return nil
	}

	cols := summary.NumericColumns
	if max := s.cfg.Query.MaxHistogramColumns; len(cols) > max {
		cols = cols[:max]
	}
	return cols
}

// Metrics returns a snapshot of the session's pipeline counters.
func (s *Session) Metrics() observability.Snapshot {
	return s.metrics.Snapshot()
}

// Close releases the session's query engine.
func (s *Session) Close() error {
	return s.engine.Close()
}
