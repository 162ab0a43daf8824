package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/datapeek/datapeek/internal/config"
	"github.com/datapeek/datapeek/internal/ingest"
	"github.com/datapeek/datapeek/internal/selftest"
	"github.com/datapeek/datapeek/internal/session"
)

// setupSession creates a session over the default configuration.
func setupSession(t *testing.T) *session.Session {
	t.Helper()

	sess, err := session.New(config.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

// TestPipeline_FileToHistograms exercises the full path: a CSV file on
// disk, chunked ingestion, an aggregate query, statistics, and bins.
func TestPipeline_FileToHistograms(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "sensors.csv")

	var sb strings.Builder
	sb.WriteString("sensor,region,reading\n")
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&sb, "s%d,region-%d,%0.2f\n", i, i%4, float64(i%100)+0.5)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}

	src, err := ingest.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open source: %v", err)
	}
	defer src.Close()

	sess := setupSession(t)
	ctx := context.Background()

	res, err := sess.LoadCSV(ctx, src)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if res.RowsParsed != 400 {
		t.Fatalf("expected 400 rows, got %d", res.RowsParsed)
	}

	result, err := sess.Execute(ctx,
		"SELECT region, AVG(reading) as avg_reading, COUNT(*) as n FROM tablename GROUP BY region ORDER BY region")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.RowCount() != 4 {
		t.Fatalf("expected 4 regions, got %d", result.RowCount())
	}
	if result.Records[0]["n"] != 100.0 {
		t.Errorf("expected 100 rows per region, got %v", result.Records[0]["n"])
	}

	summary := sess.Summary()
	if summary == nil {
		t.Fatal("expected a summary")
	}
	if len(summary.NumericColumns) != 2 {
		t.Errorf("expected avg_reading and n numeric, got %v", summary.NumericColumns)
	}

	for _, col := range sess.HistogramColumns() {
		if bins := sess.HistogramFor(col); len(bins) == 0 {
			t.Errorf("expected bins for %s", col)
		}
	}
}

// TestPipeline_DatasetReplacement verifies wholesale replacement: a new
// upload supersedes the prior dataset and its result.
func TestPipeline_DatasetReplacement(t *testing.T) {
	sess := setupSession(t)
	ctx := context.Background()

	first := ingest.NewBytesSource("first.csv", []byte("a,b\n1,2\n3,4\n"))
	if _, err := sess.LoadCSV(ctx, first); err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if _, err := sess.Execute(ctx, "SELECT * FROM tablename"); err != nil {
		t.Fatalf("first query failed: %v", err)
	}

	second := ingest.NewBytesSource("second.csv", []byte("x,y,z\n7,8,9\n"))
	if _, err := sess.LoadCSV(ctx, second); err != nil {
		t.Fatalf("second load failed: %v", err)
	}

	result, err := sess.Execute(ctx, "SELECT * FROM tablename")
	if err != nil {
		t.Fatalf("second query failed: %v", err)
	}
	if result.RowCount() != 1 || len(result.Columns) != 3 {
		t.Errorf("query should see only the new dataset: %d rows, %v", result.RowCount(), result.Columns)
	}
}

// TestPipeline_SelfTestScenario runs the checked-in diagnostic end to
// end and checks the documented expectations.
func TestPipeline_SelfTestScenario(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SelfTest.SettleDelay = 10 * time.Millisecond

	harness, err := selftest.New(cfg, nil)
	if err != nil {
		t.Fatalf("failed to create harness: %v", err)
	}
	defer harness.Close()

	results := harness.Run(context.Background())
	if len(results) != 4 {
		t.Fatalf("expected 4 step results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != selftest.StatusSuccess {
			t.Errorf("step %q failed: %s", r.Name, r.Message)
		}
	}
}
