// Package selftest provides a diagnostic harness that drives the full
// ingest, query, and statistics pipeline against a fixed synthetic
// dataset and reports per-step pass/fail.
package selftest

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/datapeek/datapeek/internal/config"
	"github.com/datapeek/datapeek/internal/ingest"
	"github.com/datapeek/datapeek/internal/session"
)

// Status is the state of one harness step.
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StepResult reports the outcome of one harness step.
type StepResult struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Observer receives step transitions as they happen, including the
// transient "running" state.
type Observer func(StepResult)

// cityReading is one row of the fixed synthetic dataset.
type cityReading struct {
	City string
	PM25 float64
	AQI  float64
}

// The synthetic dataset and diagnostic query are fixtures: they are
// deliberately constant, not user-configurable.
var sampleReadings = []cityReading{
	{"Los Angeles", 45.2, 123},
	{"New York", 35.1, 98},
	{"Chicago", 28.3, 85},
	{"Houston", 52.7, 145},
	{"Phoenix", 41.5, 115},
	{"Philadelphia", 33.8, 95},
	{"San Antonio", 38.9, 108},
	{"San Diego", 30.2, 88},
}

const diagnosticQuery = "SELECT City, AVG(PM25) as avg_pm25, AVG(AQI) as avg_aqi FROM %s GROUP BY City ORDER BY avg_aqi DESC"

// Harness runs the diagnostic pipeline on its own session.
type Harness struct {
	session  *session.Session
	settle   time.Duration
	observer Observer

	// generated carries the serialized sample between steps 1 and 2
	generated []byte
}

// New creates a harness with a fresh session. observer may be nil.
func New(cfg *config.Config, observer Observer) (*Harness, error) {
	sess, err := session.New(cfg)
	if err != nil {
		return nil, err
	}

	return &Harness{
		session:  sess,
		settle:   cfg.SelfTest.SettleDelay,
		observer: observer,
	}, nil
}

// Close releases the harness session.
func (h *Harness) Close() error {
	return h.session.Close()
}

// Run executes the diagnostic steps in strict order. A failing step is
// marked failed, a terminal "Error" step carries the fault message, and
// no later step runs.
func (h *Harness) Run(ctx context.Context) []StepResult {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"Generate sample data", h.generate},
		{"Ingest CSV", h.ingestSample},
		{"Execute query", h.executeQuery},
		{"Render visualizations", h.renderVisualizations},
	}

	var results []StepResult
	for _, step := range steps {
		h.notify(StepResult{Name: step.name, Status: StatusRunning})

		if err := step.fn(ctx); err != nil {
			failed := StepResult{Name: step.name, Status: StatusFailed, Message: err.Error()}
			h.notify(failed)
			results = append(results, failed)

			terminal := StepResult{Name: "Error", Status: StatusFailed, Message: err.Error()}
			h.notify(terminal)
			results = append(results, terminal)

			log.Printf("selftest: step %q failed: %v", step.name, err)
			return results
		}

		ok := StepResult{Name: step.name, Status: StatusSuccess}
		h.notify(ok)
		results = append(results, ok)
	}

	log.Printf("selftest: all %d steps passed", len(steps))
	return results
}

func (h *Harness) notify(r StepResult) {
	if h.observer != nil {
		h.observer(r)
	}
}

func (h *Harness) generate(ctx context.Context) error {
	data, err := sampleCSV()
	if err != nil {
		return err
	}
	h.generated = data
	return nil
}

func (h *Harness) ingestSample(ctx context.Context) error {
	if len(h.generated) == 0 {
		return fmt.Errorf("no sample data generated")
	}

	res, err := h.session.LoadCSV(ctx, ingest.NewBytesSource("selftest.csv", h.generated))
	if err != nil {
		return err
	}
	if res.Warning != nil {
		return res.Warning
	}
	if res.RowsParsed != int64(len(sampleReadings)) {
		return fmt.Errorf("expected %d rows, ingested %d", len(sampleReadings), res.RowsParsed)
	}
	return nil
}

func (h *Harness) executeQuery(ctx context.Context) error {
	queryStr := fmt.Sprintf(diagnosticQuery, h.session.TableName())
	result, err := h.session.Execute(ctx, queryStr)
	if err != nil {
		return err
	}
	if result.RowCount() == 0 {
		return fmt.Errorf("diagnostic query returned no rows")
	}
	return nil
}

// renderVisualizations computes the derived views and then settles for
// the configured delay, standing in for chart generation time.
func (h *Harness) renderVisualizations(ctx context.Context) error {
	summary := h.session.Summary()
	if summary == nil {
		return fmt.Errorf("no summary available for the query result")
	}
	for _, col := range h.session.HistogramColumns() {
		if bins := h.session.HistogramFor(col); len(bins) == 0 {
			return fmt.Errorf("no histogram bins for column %s", col)
		}
	}

	timer := time.NewTimer(h.settle)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sampleCSV serializes the fixed dataset to CSV with a header row.
func sampleCSV() ([]byte, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write([]string{"City", "PM25", "AQI"}); err != nil {
		return nil, err
	}
	for _, r := range sampleReadings {
		record := []string{
			r.City,
			strconv.FormatFloat(r.PM25, 'f', -1, 64),
			strconv.FormatFloat(r.AQI, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}
