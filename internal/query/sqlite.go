package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/datapeek/datapeek/pkg/types"
)

// SQLiteEvaluator evaluates queries with an in-memory SQLite database.
// Binding creates the table from scratch on every call, so the evaluator
// carries no state beyond the most recent binding.
type SQLiteEvaluator struct {
	db    *sql.DB
	bound string
}

// NewSQLiteEvaluator opens an in-memory SQLite database.
func NewSQLiteEvaluator() (*SQLiteEvaluator, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open in-memory database: %w", err)
	}

	// An in-memory database exists per connection; a second connection
	// would see an empty database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping in-memory database: %w", err)
	}

	return &SQLiteEvaluator{db: db}, nil
}

// Bind materializes the dataset as the named table. Any prior binding is
// dropped first, so at most one table exists at a time.
func (e *SQLiteEvaluator) Bind(ctx context.Context, table string, ds *types.Dataset) error {
	if ds == nil {
		return fmt.Errorf("sqlite: cannot bind nil dataset")
	}

	if e.bound != "" && e.bound != table {
		if _, err := e.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(e.bound))); err != nil {
			return fmt.Errorf("sqlite: failed to drop stale table: %w", err)
		}
	}

	if _, err := e.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table))); err != nil {
		return fmt.Errorf("sqlite: failed to drop table: %w", err)
	}

	defs := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(col), columnAffinity(ds, col))
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := e.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("sqlite: failed to create table: %w", err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin insert transaction: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ds.Columns)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: failed to prepare insert: %w", err)
	}

	args := make([]any, len(ds.Columns))
	for _, rec := range ds.Records {
		for i, col := range ds.Columns {
			args[i] = rec[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("sqlite: failed to insert row: %w", err)
		}
	}

	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit insert transaction: %w", err)
	}

	e.bound = table
	return nil
}

// Evaluate runs one query against the bound table, returning records in
// exactly the order SQLite produces them.
func (e *SQLiteEvaluator) Evaluate(ctx context.Context, queryStr string) (*types.QueryResult, error) {
	rows, err := e.db.QueryContext(ctx, queryStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &types.QueryResult{Columns: columns}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		rec := make(types.Record, len(columns))
		for i, col := range columns {
			rec[col] = normalizeValue(values[i])
		}
		result.Records = append(result.Records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Close closes the underlying database.
func (e *SQLiteEvaluator) Close() error {
	return e.db.Close()
}

// quoteIdent double-quote escapes an SQL identifier. CSV headers are
// arbitrary text, so identifiers are always quoted rather than validated.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnAffinity picks a SQLite type affinity for a column by scanning
// its values: any string forces TEXT, numeric values give REAL, and
// bool-only columns become INTEGER (SQLite has no boolean type; true and
// false are stored as 1 and 0 and read back as numbers).
func columnAffinity(ds *types.Dataset, col string) string {
	hasString := false
	hasNumber := false
	hasBool := false

	for _, rec := range ds.Records {
		switch rec[col].(type) {
		case string:
			hasString = true
		case float64:
			hasNumber = true
		case bool:
			hasBool = true
		}
		if hasString {
			break
		}
	}

	switch {
	case hasString:
		return "TEXT"
	case hasNumber:
		return "REAL"
	case hasBool:
		return "INTEGER"
	default:
		return "TEXT" // all-null column
	}
}

// normalizeValue maps driver scan types onto the dataset value domain:
// integers widen to float64 and byte slices become strings.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int64:
		return float64(val)
	case float64:
		return val
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
