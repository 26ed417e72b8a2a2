// =============================================================================
// Contract Installment Validator - Ingest Module
// =============================================================================
//
// This module orchestrates one ingest run over a single input file.
//
// PIPELINE:
//   1. Validate the configuration
//   2. Open the input as a streaming row source (delimited text or .xlsx)
//   3. Assemble the enabled sinks (log, rejection log, XLSX, XML, Postgres)
//   4. Drive the batch accumulator to the end of the input
//   5. Write the metrics textfile and the processing summary
//   6. Archive the input file if the whole source was read
//
// DRY RUN:
//   Only the log sink and the stdout rejection report are used. Nothing is
//   written to disk or to the database, and the input is not archived.
//
// =============================================================================

package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/contract-installment-validator/internal/batch"
	"github.com/ginjaninja78/contract-installment-validator/internal/config"
	"github.com/ginjaninja78/contract-installment-validator/internal/csvparser"
	"github.com/ginjaninja78/contract-installment-validator/internal/logging"
	"github.com/ginjaninja78/contract-installment-validator/internal/metrics"
	"github.com/ginjaninja78/contract-installment-validator/internal/sink"
	"github.com/ginjaninja78/contract-installment-validator/internal/types"
	"github.com/ginjaninja78/contract-installment-validator/internal/validation"
	"github.com/ginjaninja78/contract-installment-validator/internal/xlsxparser"
	"github.com/ginjaninja78/contract-installment-validator/internal/xmlwriter"
	"github.com/ginjaninja78/contract-installment-validator/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one run.
type Result struct {
	// RunID identifies the run in logs, file names and database rows.
	RunID string

	// InputFile is the path that was ingested.
	InputFile string

	// ArchivePath is where the input was moved, if it was archived.
	ArchivePath string

	// SummaryFile is the processing summary path, if one was written.
	SummaryFile string

	// Success is true when the whole input was read. Failed flushes do not
	// clear it; they are reported in Stats.
	Success bool

	// Error is the reason the run stopped early.
	Error error

	Stats ProcessingStats
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	batch.Summary

	// Rejections counts flushed rejections by reason.
	Rejections map[types.Reason]int

	// ProcessingTime is the wall time of the run.
	ProcessingTime time.Duration
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes ingest runs for a configuration.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger

	dryRun bool
	runID  string
	report io.Writer
	extra  []batch.Sink
}

// Option configures a Runner.
type Option func(*Runner)

// WithDryRun disables every sink that writes outside the process.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) { r.dryRun = dryRun }
}

// WithRunID fixes the run id instead of generating a UUID.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// WithReport prints a rejection report for every batch to w.
func WithReport(w io.Writer) Option {
	return func(r *Runner) { r.report = w }
}

// WithSink adds a sink next to the configured ones.
func WithSink(s batch.Sink) Option {
	return func(r *Runner) { r.extra = append(r.extra, s) }
}

// New creates a Runner. A nil logger uses slog.Default().
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, logger: logging.OrDefault(logger)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one ingest run.
func (r *Runner) Run(ctx context.Context) Result {
	startTime := time.Now()

	runID := r.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	result := Result{RunID: runID, InputFile: r.cfg.InputPath}
	logger := r.logger.With("run", runID)

	if err := r.cfg.Validate(); err != nil {
		result.Error = fmt.Errorf("invalid configuration: %w", err)
		return result
	}

	// Create the archive directory up front so a bad path fails the run
	// before any sink sees a batch.
	var fm *utils.FileManager
	if !r.dryRun && r.cfg.ArchiveOnSuccess {
		fm = utils.NewFileManager(r.cfg.OutputDir, r.cfg.InputArchiveDir)
		fm.UseTimestampSubdirs = r.cfg.ArchiveTimestampSubdirs
		if err := fm.EnsureDirectories(); err != nil {
			result.Error = err
			return result
		}
	}

	// =========================================================================
	// STEP 1: OPEN INPUT
	// =========================================================================

	parser, err := openSource(r.cfg)
	if err != nil {
		result.Error = fmt.Errorf("failed to open input: %w", err)
		return result
	}
	defer parser.Close()

	if missing := parser.MissingHeaders(); len(missing) > 0 {
		logger.Warn("input is missing expected columns; they will be read as blank",
			"missing", missing)
	}

	// =========================================================================
	// STEP 2: ASSEMBLE SINKS
	// =========================================================================

	tally := newReasonTally()
	sinks, closeSinks, err := r.buildSinks(ctx, logger)
	if err != nil {
		result.Error = err
		return result
	}
	defer closeSinks()
	sinks = append(sinks, tally)

	var m *metrics.Metrics
	if r.cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// =========================================================================
	// STEP 3: ACCUMULATE AND FLUSH
	// =========================================================================

	acc, err := batch.New(validation.NewValidator(), sink.NewMulti(sinks...), batch.Options{
		BatchSize: r.cfg.BatchSize,
		RunID:     runID,
		Source:    r.cfg.InputPath,
		Logger:    logger,
		Metrics:   m,
	})
	if err != nil {
		result.Error = err
		return result
	}

	logger.Info("run started", "input", r.cfg.InputPath, "batch_size", acc.BatchSize(), "dry_run", r.dryRun)

	summary, runErr := acc.Run(ctx, parser)
	result.Stats.Summary = summary
	result.Stats.Rejections = tally.counts
	result.Success = runErr == nil
	result.Error = runErr

	// =========================================================================
	// STEP 4: METRICS, ARCHIVE, SUMMARY
	// =========================================================================

	if !r.dryRun {
		if err := m.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
			logger.Warn("failed to write metrics textfile", "path", r.cfg.Metrics.Textfile, "error", err)
		}

		if result.Success && fm != nil {
			// Release the file before moving it.
			parser.Close()
			archived, err := fm.ArchiveInputFile(r.cfg.InputPath)
			if err != nil {
				// Archival failure does not fail the run.
				logger.Warn("failed to archive input", "error", err)
			} else {
				result.ArchivePath = archived
			}
		}
	}

	result.Stats.ProcessingTime = time.Since(startTime)

	if !r.dryRun && r.cfg.SummaryLog {
		path, err := utils.WriteSummaryLog(r.processingSummary(result, startTime), r.cfg.OutputDir)
		if err != nil {
			logger.Warn("failed to write processing summary", "error", err)
		} else {
			result.SummaryFile = path
		}
	}

	logger.Info("run finished",
		"success", result.Success,
		"processed", summary.Processed,
		"accepted", summary.Accepted,
		"rejected", summary.Rejected,
		"flushes", summary.Flushes,
		"failed_flushes", summary.FailedFlushes,
		"dropped", summary.Dropped,
		"duration", result.Stats.ProcessingTime,
	)
	return result
}

// rowSource is a batch.RowSource over an input file.
type rowSource interface {
	batch.RowSource
	MissingHeaders() []string
	Close() error
}

// openSource picks the reader by file extension: workbooks go through
// xlsxparser, everything else is read as delimited text.
func openSource(cfg *config.Config) (rowSource, error) {
	switch strings.ToLower(filepath.Ext(cfg.InputPath)) {
	case ".xlsx", ".xlsm":
		return xlsxparser.Open(cfg.InputPath, cfg.CSVSettings)
	default:
		return csvparser.Open(cfg.InputPath, cfg.CSVSettings)
	}
}

// buildSinks returns the sinks enabled for this run and a function that
// releases them.
func (r *Runner) buildSinks(ctx context.Context, logger *slog.Logger) ([]batch.Sink, func(), error) {
	var sinks []batch.Sink
	closeFn := func() {}

	if r.cfg.Sinks.LogEnabled() {
		sinks = append(sinks, sink.NewLog(logger))
	}
	if r.report != nil {
		sinks = append(sinks, newReportWriter(r.report))
	}
	sinks = append(sinks, r.extra...)

	if r.dryRun {
		return sinks, closeFn, nil
	}

	if r.cfg.Sinks.RejectionLog {
		sinks = append(sinks, sink.NewRejectionLog(r.cfg.OutputDir))
	}
	if r.cfg.Sinks.XLSX {
		sinks = append(sinks, sink.NewReport(r.cfg.OutputDir, r.cfg.OutputNameFormat))
	}
	if r.cfg.Sinks.XML {
		sinks = append(sinks, sink.NewXML(r.cfg.OutputDir, r.cfg.OutputNameFormat, xmlwriter.DefaultGenerateOptions()))
	}
	if r.cfg.Sinks.Postgres {
		db, err := sink.OpenPostgres(ctx, r.cfg.DatabaseURL())
		if err != nil {
			return nil, closeFn, fmt.Errorf("postgres sink: %w", err)
		}
		pg := sink.NewPostgres(db, sink.WithTables(r.cfg.Database.AcceptedTable, r.cfg.Database.RejectedTable))
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, closeFn, err
		}
		sinks = append(sinks, pg)
		closeFn = func() {
			if err := db.Close(); err != nil {
				logger.Warn("failed to close database", "error", err)
			}
		}
	}

	return sinks, closeFn, nil
}

func (r *Runner) processingSummary(result Result, startTime time.Time) utils.ProcessingSummary {
	s := utils.ProcessingSummary{
		RunID:         result.RunID,
		InputFile:     result.InputFile,
		ArchivePath:   result.ArchivePath,
		StartTime:     startTime,
		EndTime:       startTime.Add(result.Stats.ProcessingTime),
		Processed:     result.Stats.Processed,
		Accepted:      result.Stats.Accepted,
		Rejected:      result.Stats.Rejected,
		Flushes:       result.Stats.Flushes,
		FailedFlushes: result.Stats.FailedFlushes,
		Dropped:       result.Stats.Dropped,
		Rejections:    make(map[string]int, len(result.Stats.Rejections)),
	}
	for reason, n := range result.Stats.Rejections {
		s.Rejections[string(reason)] = n
	}
	if result.Error != nil {
		s.ErrorMessage = result.Error.Error()
	}
	return s
}

// =============================================================================
// RUN-LOCAL SINKS
// =============================================================================

// reasonTally counts flushed rejections by reason.
type reasonTally struct {
	counts map[types.Reason]int
}

func newReasonTally() *reasonTally {
	return &reasonTally{counts: make(map[types.Reason]int)}
}

func (t *reasonTally) Flush(_ context.Context, b types.Batch) error {
	for _, r := range b.Rejected {
		t.counts[r.Reason]++
	}
	return nil
}

// newReportWriter prints the rejections of each non-empty batch to w.
func newReportWriter(w io.Writer) batch.Sink {
	return batch.SinkFunc(func(_ context.Context, b types.Batch) error {
		if b.Size() == 0 {
			return nil
		}
		_, err := fmt.Fprintf(w, "Batch %d: %d accepted, %s",
			b.Sequence, len(b.Accepted), validation.FormatRejections(b.Rejected))
		return err
	})
}
