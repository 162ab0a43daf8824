package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/datapeek/datapeek/internal/config"
	dperrors "github.com/datapeek/datapeek/internal/errors"
	"github.com/datapeek/datapeek/internal/observability"
)

func testIngestor() *Ingestor {
	return NewIngestor(config.DefaultConfig().Ingest, nil)
}

func TestIngest_Basic(t *testing.T) {
	csvData := "City,PM25,Active\nChicago,28.3,true\nHouston,52.7,false\n"
	src := NewBytesSource("air.csv", []byte(csvData))

	res, err := testIngestor().Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if res.RowsParsed != 2 {
		t.Errorf("expected 2 rows, got %d", res.RowsParsed)
	}
	if res.Warning != nil {
		t.Errorf("unexpected warning: %v", res.Warning)
	}

	ds := res.Dataset
	wantCols := []string{"City", "PM25", "Active"}
	if len(ds.Columns) != len(wantCols) {
		t.Fatalf("expected %d columns, got %d", len(wantCols), len(ds.Columns))
	}
	for i, c := range wantCols {
		if ds.Columns[i] != c {
			t.Errorf("column %d: got %q, want %q", i, ds.Columns[i], c)
		}
	}

	first := ds.Records[0]
	if first["City"] != "Chicago" {
		t.Errorf("expected City=Chicago, got %v", first["City"])
	}
	if first["PM25"] != 28.3 {
		t.Errorf("expected PM25=28.3 as float64, got %v (%T)", first["PM25"], first["PM25"])
	}
	if first["Active"] != true {
		t.Errorf("expected Active=true as bool, got %v (%T)", first["Active"], first["Active"])
	}

	if ds.ID == "" {
		t.Error("dataset ID should be set")
	}
	if ds.Fingerprint == 0 {
		t.Error("dataset fingerprint should be set")
	}
}

func TestIngest_TypeInference(t *testing.T) {
	tests := []struct {
		cell string
		want any
	}{
		{"42", 42.0},
		{"3.14", 3.14},
		{"-1.5e3", -1500.0},
		{"007", 7.0},
		{"1", 1.0}, // numeric wins over boolean
		{"true", true},
		{"TRUE", true},
		{"False", false},
		{"hello", "hello"},
		{"  padded  ", "padded"},
		{"", nil},
		{"   ", nil},
		{"NaN", "NaN"}, // non-finite floats stay strings
		{"Inf", "Inf"},
	}

	for _, tt := range tests {
		if got := inferValue(tt.cell); got != tt.want {
			t.Errorf("inferValue(%q) = %v (%T), want %v (%T)", tt.cell, got, got, tt.want, tt.want)
		}
	}
}

func TestIngest_NilSource(t *testing.T) {
	_, err := testIngestor().Ingest(context.Background(), nil)
	if dperrors.GetCode(err) != dperrors.CodeMissingFile {
		t.Errorf("expected MISSING_FILE, got %v", err)
	}
}

func TestIngest_WrongExtension(t *testing.T) {
	src := NewBytesSource("data.txt", []byte("a,b\n1,2\n"))
	_, err := testIngestor().Ingest(context.Background(), src)
	if dperrors.GetCode(err) != dperrors.CodeInvalidExtension {
		t.Errorf("expected INVALID_EXTENSION, got %v", err)
	}
}

// trapSource fails the test if anything reads from it.
type trapSource struct {
	t    *testing.T
	size int64
}

func (s *trapSource) Read(p []byte) (int, error) {
	s.t.Error("parser must not read a source that exceeds the size limit")
	return 0, errors.New("read on oversized source")
}

func (s *trapSource) Name() string { return "huge.csv" }

func (s *trapSource) Size() int64 { return s.size }

func TestIngest_SizeLimit(t *testing.T) {
	src := &trapSource{t: t, size: 2 * config.GiB}

	_, err := testIngestor().Ingest(context.Background(), src)
	if dperrors.GetCode(err) != dperrors.CodeSizeLimit {
		t.Fatalf("expected SIZE_LIMIT, got %v", err)
	}

	var de *dperrors.DataPeekError
	if !errors.As(err, &de) {
		t.Fatal("expected a DataPeekError")
	}
	if de.Details["size_mib"] != 2048.0 {
		t.Errorf("expected size_mib=2048, got %v", de.Details["size_mib"])
	}
	if de.Details["size_gib"] != 2.0 {
		t.Errorf("expected size_gib=2, got %v", de.Details["size_gib"])
	}
	if !strings.Contains(err.Error(), "MiB") || !strings.Contains(err.Error(), "GiB") {
		t.Errorf("message should report MiB and GiB: %q", err.Error())
	}
}

func TestIngest_HeaderOnly(t *testing.T) {
	src := NewBytesSource("empty.csv", []byte("City,PM25,AQI\n"))
	_, err := testIngestor().Ingest(context.Background(), src)
	if dperrors.GetCode(err) != dperrors.CodeEmptyData {
		t.Errorf("expected EMPTY_DATA, got %v", err)
	}
}

func TestIngest_EmptyFile(t *testing.T) {
	src := NewBytesSource("empty.csv", nil)
	_, err := testIngestor().Ingest(context.Background(), src)
	if dperrors.GetCode(err) != dperrors.CodeEmptyData {
		t.Errorf("expected EMPTY_DATA, got %v", err)
	}
}

func TestIngest_SkipsAllEmptyRows(t *testing.T) {
	csvData := "a,b\n1,2\n,\n   ,  \n3,4\n"
	src := NewBytesSource("gaps.csv", []byte(csvData))

	res, err := testIngestor().Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if res.RowsParsed != 2 {
		t.Errorf("expected 2 rows after skipping empty ones, got %d", res.RowsParsed)
	}
}

func TestIngest_MissingAndExtraFields(t *testing.T) {
	csvData := "a,b,c\n1,2\n1,2,3,4\n"
	src := NewBytesSource("ragged.csv", []byte(csvData))

	res, err := testIngestor().Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	short := res.Dataset.Records[0]
	if short["c"] != nil {
		t.Errorf("missing trailing field should be nil, got %v", short["c"])
	}

	long := res.Dataset.Records[1]
	if len(long) != 3 {
		t.Errorf("extra fields should be dropped, record has %d keys", len(long))
	}
}

func TestIngest_DuplicateHeaders(t *testing.T) {
	csvData := "a,a,b\n1,2,3\n"
	src := NewBytesSource("dup.csv", []byte(csvData))

	res, err := testIngestor().Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	cols := res.Dataset.Columns
	if cols[0] != "a" || cols[1] != "a_2" || cols[2] != "b" {
		t.Errorf("unexpected deduplicated columns: %v", cols)
	}
	if res.Dataset.Records[0]["a_2"] != 2.0 {
		t.Errorf("expected a_2=2, got %v", res.Dataset.Records[0]["a_2"])
	}
}

// faultySource yields its data, then fails with a read error.
type faultySource struct {
	r    *strings.Reader
	name string
	size int64
}

func newFaultySource(name, data string) *faultySource {
	return &faultySource{
		r:    strings.NewReader(data),
		name: name,
		size: int64(len(data)) + 100, // pretend more data was coming
	}
}

func (s *faultySource) Read(p []byte) (int, error) {
	if s.r.Len() == 0 {
		return 0, errors.New("simulated I/O fault")
	}
	return s.r.Read(p)
}

func (s *faultySource) Name() string { return s.name }

func (s *faultySource) Size() int64 { return s.size }

func TestIngest_PartialRecovery(t *testing.T) {
	src := newFaultySource("partial.csv", "a,b\n1,2\n3,4\n")

	res, err := testIngestor().Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("partial recovery should not be fatal, got: %v", err)
	}
	if res.Warning == nil {
		t.Fatal("expected a partial-data warning")
	}
	if !dperrors.IsWarning(res.Warning) {
		t.Error("warning should be flagged non-fatal")
	}
	if dperrors.GetCode(res.Warning) != dperrors.CodePartialData {
		t.Errorf("expected PARTIAL_DATA, got %v", res.Warning)
	}
	if res.RowsParsed != 2 {
		t.Errorf("expected 2 recovered rows, got %d", res.RowsParsed)
	}

	var de *dperrors.DataPeekError
	if errors.As(res.Warning, &de) {
		if de.Details["rows_recovered"] != int64(2) {
			t.Errorf("expected rows_recovered=2, got %v", de.Details["rows_recovered"])
		}
	}
}

func TestIngest_FatalBeforeAnyRow(t *testing.T) {
	src := newFaultySource("broken.csv", "")

	_, err := testIngestor().Ingest(context.Background(), src)
	if dperrors.GetCode(err) != dperrors.CodeIngestFailed {
		t.Errorf("expected INGEST_FAILED, got %v", err)
	}
}

func TestIngest_ChunkCounting(t *testing.T) {
	cfg := config.DefaultConfig().Ingest
	cfg.ChunkBytes = 16

	var sb strings.Builder
	sb.WriteString("a,b\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "%d,%d\n", i, i*2)
	}
	data := sb.String()

	src := NewBytesSource("chunked.csv", []byte(data))
	res, err := NewIngestor(cfg, nil).Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	wantChunks := int64((len(data) + 15) / 16)
	if res.Chunks != wantChunks {
		t.Errorf("expected %d chunks, got %d", wantChunks, res.Chunks)
	}
	if res.RowsParsed != 50 {
		t.Errorf("chunking must not affect row count: got %d", res.RowsParsed)
	}
}

func TestIngest_FingerprintStable(t *testing.T) {
	data := []byte("a,b\n1,2\n")

	res1, err := testIngestor().Ingest(context.Background(), NewBytesSource("x.csv", data))
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	res2, err := testIngestor().Ingest(context.Background(), NewBytesSource("y.csv", data))
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}

	if res1.Dataset.Fingerprint != res2.Dataset.Fingerprint {
		t.Error("identical bytes should produce identical fingerprints")
	}
	if res1.Dataset.ID == res2.Dataset.ID {
		t.Error("each upload should get a fresh dataset ID")
	}
}

func TestIngest_RecordsMetrics(t *testing.T) {
	m := observability.NewMetrics()
	ing := NewIngestor(config.DefaultConfig().Ingest, m)

	src := NewBytesSource("m.csv", []byte("a\n1\n2\n3\n"))
	if _, err := ing.Ingest(context.Background(), src); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	snap := m.Snapshot()
	if snap.RowsIngested != 3 {
		t.Errorf("expected RowsIngested=3, got %d", snap.RowsIngested)
	}
	if snap.DatasetsLoaded != 1 {
		t.Errorf("expected DatasetsLoaded=1, got %d", snap.DatasetsLoaded)
	}
	if snap.ChunksRead == 0 {
		t.Error("expected at least one chunk recorded")
	}
}

// TestProperty_IngestPreservesRowCount validates that for any clean CSV
// with N data rows, ingestion yields exactly N records carrying the
// header's column keys.
func TestProperty_IngestPreservesRowCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("N data rows yield N records", prop.ForAll(
		func(n int) bool {
			var sb strings.Builder
			sb.WriteString("id,value,label\n")
			for i := 0; i < n; i++ {
				fmt.Fprintf(&sb, "%d,%.2f,row%d\n", i, float64(i)*1.5, i)
			}

			src := NewBytesSource("gen.csv", []byte(sb.String()))
			res, err := testIngestor().Ingest(context.Background(), src)
			if err != nil {
				return false
			}
			if res.RowsParsed != int64(n) {
				return false
			}
			for _, rec := range res.Dataset.Records {
				for _, col := range []string{"id", "value", "label"} {
					if _, ok := rec[col]; !ok {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t)
}
