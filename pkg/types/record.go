// Package types provides core data types for datapeek.
package types

// Record represents a single data row as a column-name-to-value mapping.
// Values are restricted to float64, string, bool, or nil.
type Record map[string]any

// Dataset is the full in-memory table produced by ingesting one CSV file.
// It is created once per successful upload and replaced wholesale on the
// next upload; records are never mutated in place.
type Dataset struct {
	// ID uniquely identifies this upload
	ID string `json:"id"`

	// Columns holds the column names in header order
	Columns []string `json:"columns"`

	// Records holds the rows in file order
	Records []Record `json:"records"`

	// Fingerprint is a 64-bit hash of the raw byte stream, used to
	// identify the upload in logs and metrics
	Fingerprint uint64 `json:"fingerprint"`
}

// RowCount returns the number of records in the dataset.
func (d *Dataset) RowCount() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// QueryResult is the ordered record sequence produced by evaluating one
// query. Columns preserves the evaluator's projection order, which may
// differ from the source dataset's columns (aliases, aggregates).
type QueryResult struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// RowCount returns the number of records in the result.
func (r *QueryResult) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// AsFloat reports the numeric value of v. Only float64 values are
// considered numeric; booleans and numeric-looking strings are not.
func AsFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}
