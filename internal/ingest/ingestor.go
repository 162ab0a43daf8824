package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	"github.com/datapeek/datapeek/internal/config"
	dperrors "github.com/datapeek/datapeek/internal/errors"
	"github.com/datapeek/datapeek/internal/observability"
	"github.com/datapeek/datapeek/pkg/types"
)

// Ingestor streams a CSV source into an in-memory dataset. Parsing runs
// in a producer goroutine that sends row batches over a bounded channel;
// the consumer accumulates them into the final dataset, so peak memory
// beyond the dataset itself stays bounded by the chunk size.
type Ingestor struct {
	cfg     config.IngestConfig
	metrics *observability.Metrics
}

// Result holds a completed ingestion run.
type Result struct {
	// Dataset is the accumulated table
	Dataset *types.Dataset

	// RowsParsed is the number of records accumulated
	RowsParsed int64

	// Chunks is the number of fixed-size chunks consumed
	Chunks int64

	// Warning is non-nil when a mid-stream fault occurred after at
	// least one row was recovered; the dataset remains usable
	Warning error
}

// NewIngestor creates an ingestor. metrics may be nil.
func NewIngestor(cfg config.IngestConfig, metrics *observability.Metrics) *Ingestor {
	return &Ingestor{cfg: cfg, metrics: metrics}
}

// rowBatch is the unit the producer sends to the consumer.
type rowBatch struct {
	columns []string
	rows    []types.Record
	err     error
}

// Ingest reads src to completion and returns the resulting dataset.
//
// Preconditions are checked before any byte is read: the source must be
// present, carry a .csv extension, and not exceed the configured size
// ceiling. A fault after at least one accumulated row yields a usable
// partial dataset with Result.Warning set; a fault before any row is
// fatal. A structurally clean parse with zero data rows is an error.
func (i *Ingestor) Ingest(ctx context.Context, src Source) (*Result, error) {
	if src == nil {
		return nil, dperrors.NewUsageError(dperrors.CodeMissingFile, "no file selected")
	}

	if ext := strings.ToLower(filepath.Ext(src.Name())); ext != ".csv" {
		return nil, dperrors.NewUsageError(dperrors.CodeInvalidExtension,
			fmt.Sprintf("unsupported file type %q: only .csv files are accepted", ext))
	}

	if src.Size() > i.cfg.MaxFileBytes {
		sizeMiB := float64(src.Size()) / float64(config.MiB)
		sizeGiB := float64(src.Size()) / float64(config.GiB)
		limitGiB := float64(i.cfg.MaxFileBytes) / float64(config.GiB)
		return nil, dperrors.New(dperrors.ErrCategoryIngest, dperrors.CodeSizeLimit,
			fmt.Sprintf("file size %.2f MiB (%.2f GiB) exceeds the %.0f GiB limit", sizeMiB, sizeGiB, limitGiB)).
			WithDetails(map[string]interface{}{
				"size_mib":  sizeMiB,
				"size_gib":  sizeGiB,
				"limit_gib": limitGiB,
			})
	}

	start := time.Now()

	hasher := murmur3.New64()
	chunked := newChunkReader(io.TeeReader(src, hasher), i.cfg.ChunkBytes)

	batches := make(chan rowBatch, 4)
	go i.produce(ctx, chunked, batches)

	var (
		columns  []string
		records  []types.Record
		faultErr error
	)

	for b := range batches {
		if b.columns != nil {
			columns = b.columns
		}
		records = append(records, b.rows...)
		if b.err != nil {
			faultErr = b.err
		}
	}

	rows := int64(len(records))

	if faultErr != nil && rows == 0 {
		return nil, dperrors.NewIngestError(dperrors.CodeIngestFailed, "ingestion failed", faultErr)
	}

	if rows == 0 {
		return nil, dperrors.New(dperrors.ErrCategoryIngest, dperrors.CodeEmptyData, "no data found")
	}

	ds := &types.Dataset{
		ID:          uuid.New().String(),
		Columns:     columns,
		Records:     records,
		Fingerprint: hasher.Sum64(),
	}

	result := &Result{
		Dataset:    ds,
		RowsParsed: rows,
		Chunks:     chunked.Chunks(),
	}

	if faultErr != nil {
		result.Warning = dperrors.NewIngestError(dperrors.CodePartialData,
			fmt.Sprintf("recovered %d rows before a read fault", rows), faultErr).
			WithDetails(map[string]interface{}{"rows_recovered": rows})
	}

	if i.metrics != nil {
		i.metrics.RecordIngest(rows, result.Chunks, result.Warning != nil, time.Since(start))
	}

	log.Printf("ingest: dataset %s: %d rows, %d columns, %d chunks (fingerprint=%016x)",
		ds.ID, rows, len(columns), result.Chunks, ds.Fingerprint)

	return result, nil
}

// produce reads the CSV stream and sends row batches until EOF, a fault,
// or context cancellation. The channel is always closed on return. Any
// panic in the parser is converted into a terminal fault.
func (i *Ingestor) produce(ctx context.Context, r io.Reader, out chan<- rowBatch) {
	defer close(out)

	sendFault := func(err error) {
		select {
		case out <- rowBatch{err: err}:
		case <-ctx.Done():
		}
	}

	defer func() {
		if p := recover(); p != nil {
			sendFault(fmt.Errorf("parser panic: %v", p))
		}
	}()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // lenient: rows may have missing or extra fields

	header, err := reader.Read()
	if err == io.EOF {
		return // zero rows; consumer reports empty data
	}
	if err != nil {
		sendFault(err)
		return
	}

	columns := normalizeHeader(header)

	batch := rowBatch{columns: columns}
	flush := func() bool {
		if batch.columns == nil && len(batch.rows) == 0 {
			return true
		}
		select {
		case out <- batch:
			batch = rowBatch{}
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			flush()
			return
		}
		if err != nil {
			if !flush() {
				return
			}
			sendFault(err)
			return
		}

		if isAllEmpty(fields) {
			continue
		}

		rec := make(types.Record, len(columns))
		for idx, col := range columns {
			if idx < len(fields) {
				rec[col] = inferValue(fields[idx])
			} else {
				rec[col] = nil
			}
		}
		batch.rows = append(batch.rows, rec)

		if len(batch.rows) >= i.cfg.BatchRows {
			if !flush() {
				return
			}
		}
	}
}
