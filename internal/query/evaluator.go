// Package query provides SQL query execution over an in-memory dataset.
package query

import (
	"context"
	"log"
	"time"

	"github.com/datapeek/datapeek/internal/config"
	dperrors "github.com/datapeek/datapeek/internal/errors"
	"github.com/datapeek/datapeek/internal/observability"
	"github.com/datapeek/datapeek/pkg/types"
)

// Evaluator is the narrow capability the engine needs from an embeddable
// SQL implementation: bind a record sequence as a named table, evaluate a
// query against it. The concrete evaluator can be swapped without
// touching the rest of the core.
type Evaluator interface {
	// Bind materializes the dataset as the named table, discarding any
	// prior binding of that name.
	Bind(ctx context.Context, table string, ds *types.Dataset) error

	// Evaluate runs one query and returns the ordered result.
	Evaluate(ctx context.Context, query string) (*types.QueryResult, error)

	// Close releases evaluator resources.
	Close() error
}

// Engine executes queries against the currently loaded dataset. The
// dataset is bound to a single fixed virtual table name for the duration
// of each evaluation; at most one table is ever bound at a time.
type Engine struct {
	eval    Evaluator
	table   string
	metrics *observability.Metrics
}

// NewEngine creates a query engine around an evaluator. metrics may be nil.
func NewEngine(eval Evaluator, cfg config.QueryConfig, metrics *observability.Metrics) *Engine {
	return &Engine{
		eval:    eval,
		table:   cfg.TableName,
		metrics: metrics,
	}
}

// TableName returns the fixed virtual table name queries must reference.
func (e *Engine) TableName() string {
	return e.table
}

// Execute rebinds the dataset and evaluates the query. The dataset is
// never mutated: on any fault it remains intact and may be rebound on
// the next call. Result ordering is exactly what the evaluator produces.
func (e *Engine) Execute(ctx context.Context, queryStr string, ds *types.Dataset) (*types.QueryResult, error) {
	if ds == nil || ds.RowCount() == 0 {
		return nil, dperrors.NewUsageError(dperrors.CodeNoDataset, "upload a file first")
	}

	start := time.Now()

	if err := e.eval.Bind(ctx, e.table, ds); err != nil {
		e.recordQuery(true, start)
		return nil, dperrors.NewInternalError("failed to bind dataset", err)
	}

	result, err := e.eval.Evaluate(ctx, queryStr)
	if err != nil {
		e.recordQuery(true, start)
		// The evaluator's message travels verbatim to the caller.
		return nil, dperrors.NewQueryError(err.Error(), err)
	}

	e.recordQuery(false, start)
	log.Printf("query: %d rows, %d columns in %s", result.RowCount(), len(result.Columns), time.Since(start))

	return result, nil
}

func (e *Engine) recordQuery(failed bool, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordQuery(failed, time.Since(start))
	}
}

// Close releases the underlying evaluator.
func (e *Engine) Close() error {
	return e.eval.Close()
}
