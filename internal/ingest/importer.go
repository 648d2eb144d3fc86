package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/OrderImport/internal/metrics"
	"github.com/JonMunkholm/OrderImport/internal/orders"
)

// contextCheckInterval is how often (in records) the loop checks for
// cancellation within one chunk.
const contextCheckInterval = 100

// Result summarizes one import run.
//
// Records counts every row or element the parser produced, including those
// later rejected. Every record ends up in exactly one of Rejected, Filtered,
// Created, Updated, Unchanged or Failed.
type Result struct {
	ImportID  string        `json:"importId"`
	Format    Format        `json:"format"`
	FileName  string        `json:"fileName"`
	ChunkSize int           `json:"chunkSize"`
	Chunks    int           `json:"chunks"`
	BytesRead int64         `json:"bytesRead"`
	Records   int           `json:"records"`
	Rejected  int           `json:"rejected"`
	Filtered  int           `json:"filtered"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Importer runs one file through source, parser, normalizer and sink.
// It is single-threaded; callers serialize imports of the same file.
type Importer struct {
	opts       Options
	chunkSize  int
	logger     *slog.Logger
	normalizer *Normalizer
	sink       *UpsertSink
	open       func(path string) (*ChunkSource, error)
}

// New validates opts and returns an Importer writing to store. Any problem
// with the options or the source file is returned as an error matching
// ErrConfig before anything is read.
func New(opts Options, store orders.Store, logger *slog.Logger) (*Importer, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, configErr("store", "is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Importer{
		opts:       opts,
		chunkSize:  opts.ChunkSize,
		logger:     logger,
		normalizer: NewNormalizer(opts.Fields, opts.RevenueMarker, nil),
		sink:       NewUpsertSink(store, nil),
		open:       OpenChunkSource,
	}, nil
}

// Options returns the effective options after defaults and clamping.
func (imp *Importer) Options() Options { return imp.opts }

// Import reads the file to the end. Per-record problems are logged and
// counted in the result; only I/O failures and cancellation return an error.
// Re-running an import is safe: orders are keyed by business id.
func (imp *Importer) Import(ctx context.Context) (*Result, error) {
	res := &Result{
		ImportID:  uuid.NewString(),
		Format:    imp.opts.Format,
		FileName:  imp.opts.Filename,
		ChunkSize: imp.chunkSize,
		StartedAt: time.Now().UTC(),
	}
	logger := imp.logger.With("import_id", res.ImportID)

	logger.Info("import started",
		"format", imp.opts.Format,
		"file", imp.opts.Filename,
		"chunk_size", imp.chunkSize,
	)

	src, err := imp.open(imp.opts.Filename)
	if err != nil {
		return imp.finish(logger, res, fmt.Errorf("%w: %w", ErrIO, err))
	}
	defer src.Close()

	switch imp.opts.Format {
	case FormatDelimited:
		err = imp.importDelimited(ctx, logger, src, res)
	case FormatElement:
		err = imp.importElements(ctx, logger, src, res)
	}
	res.Chunks = src.Reads
	res.BytesRead = src.BytesRead

	return imp.finish(logger, res, err)
}

func (imp *Importer) finish(logger *slog.Logger, res *Result, err error) (*Result, error) {
	res.Duration = time.Since(res.StartedAt)
	format := string(imp.opts.Format)

	status := "ok"
	if err != nil {
		status = "error"
		res.Error = err.Error()
		logger.Error("import aborted", "error", err, "records", res.Records)
	} else {
		logger.Info("import finished",
			"records", res.Records,
			"created", res.Created,
			"updated", res.Updated,
			"unchanged", res.Unchanged,
			"filtered", res.Filtered,
			"rejected", res.Rejected,
			"failed", res.Failed,
			"chunks", res.Chunks,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}

	metrics.ChunksRead.WithLabelValues(format).Add(float64(res.Chunks))
	metrics.BytesRead.WithLabelValues(format).Add(float64(res.BytesRead))
	metrics.RunDuration.WithLabelValues(format, status).Observe(res.Duration.Seconds())

	return res, err
}

func (imp *Importer) importDelimited(ctx context.Context, logger *slog.Logger, src *ChunkSource, res *Result) error {
	parser := NewDelimitedParser(imp.opts.ColumnSeparator, imp.opts.LineSeparator, imp.opts.Columns)
	reader := NewDelimitedReader(src, parser, imp.chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import cancelled at offset %d: %w", src.Offset(), err)
		}

		records, rejects, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		logger.Debug("chunk parsed",
			"offset", src.Offset(),
			"rows", len(records),
			"rejected", len(rejects),
			"carry", reader.Pending(),
			"progress", src.Progress(),
		)

		for _, rerr := range rejects {
			res.Records++
			imp.reject(logger, res, rerr)
		}

		for i, rec := range records {
			if i > 0 && i%contextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("import cancelled at line %d: %w", rec.Line, err)
				}
			}

			res.Records++
			order, err := imp.normalizer.FromRecord(rec)
			if errors.Is(err, errFiltered) {
				res.Filtered++
				metrics.RecordsTotal.WithLabelValues(string(FormatDelimited), metrics.OutcomeFiltered).Inc()
				continue
			}
			if err != nil {
				imp.reject(logger, res, err)
				continue
			}
			imp.store(ctx, logger.With("line", rec.Line), res, order)
		}
	}
}

func (imp *Importer) importElements(ctx context.Context, logger *slog.Logger, src *ChunkSource, res *Result) error {
	scanner := NewElementScanner(imp.opts.ElementName)
	reader := NewElementReader(src, scanner, imp.chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import cancelled at offset %d: %w", src.Offset(), err)
		}

		elem, offset, err := reader.Next()
		if err == io.EOF {
			return nil
		}

		var rerr *RecordError
		if errors.As(err, &rerr) {
			res.Records++
			imp.reject(logger, res, rerr)
			continue
		}
		if err != nil {
			return err
		}

		res.Records++
		order, err := imp.normalizer.FromElement(elem, offset)
		if err != nil {
			imp.reject(logger, res, err)
			continue
		}
		imp.store(ctx, logger.With("offset", offset), res, order)
	}
}

// reject counts and logs a structural problem with one record.
func (imp *Importer) reject(logger *slog.Logger, res *Result, err error) {
	res.Rejected++
	metrics.RecordsTotal.WithLabelValues(string(imp.opts.Format), metrics.OutcomeRejected).Inc()
	logger.Warn("record rejected", "error", err)
}

// store upserts one order. A persistence failure is logged and counted and
// never stops the run.
func (imp *Importer) store(ctx context.Context, logger *slog.Logger, res *Result, order orders.Order) {
	format := string(imp.opts.Format)

	outcome, err := imp.sink.Upsert(ctx, order)
	if err != nil {
		res.Failed++
		metrics.RecordsTotal.WithLabelValues(format, metrics.OutcomeFailed).Inc()
		logger.Warn("order not saved", "order_id", order.OrderID, "error", err)
		return
	}

	switch outcome {
	case OutcomeCreated:
		res.Created++
	case OutcomeUpdated:
		res.Updated++
	case OutcomeUnchanged:
		res.Unchanged++
	}
	metrics.RecordsTotal.WithLabelValues(format, outcome.String()).Inc()
}
