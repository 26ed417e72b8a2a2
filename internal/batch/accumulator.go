// =============================================================================
// Contract Installment Validator - Batch Accumulator
// =============================================================================
//
// The Accumulator validates records one at a time and buffers the outcomes
// until the batch is full, then hands the buffer to a Sink and starts over.
//
// DRIVING LOOP (Run):
//   for each row from the source:
//       Submit(row)
//       if processed >= batchSize: Flush
//   when the source is exhausted: Flush once more, even if the batch is
//   partial or empty
//
// FLUSH SEMANTICS:
//   Flushing is fire-and-forget. A sink error is logged, counted and returned
//   from Flush, but the buffer is reset either way and Run keeps going. The
//   flushed slices belong to the sink afterwards; the accumulator never
//   touches them again.
//
// ABNORMAL TERMINATION:
//   If the source fails or the context is cancelled, the buffered partial
//   batch is discarded (logged with its size) and Run returns the error
//   without a final flush.
//
// =============================================================================

package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ginjaninja78/contract-installment-validator/internal/config"
	"github.com/ginjaninja78/contract-installment-validator/internal/logging"
	"github.com/ginjaninja78/contract-installment-validator/internal/metrics"
	"github.com/ginjaninja78/contract-installment-validator/internal/types"
	"github.com/ginjaninja78/contract-installment-validator/internal/validation"
)

// =============================================================================
// EXTERNAL INTERFACES
// =============================================================================

// RowSource yields raw records in order. Next returns false at the end of
// input or on failure; Err distinguishes the two.
type RowSource interface {
	Next() bool
	Record() types.RawRecord
	Err() error
}

// Sink receives flushed batches and owns them afterwards.
type Sink interface {
	Flush(ctx context.Context, batch types.Batch) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, batch types.Batch) error

// Flush calls f.
func (f SinkFunc) Flush(ctx context.Context, batch types.Batch) error {
	return f(ctx, batch)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures an Accumulator. They are fixed for its lifetime.
type Options struct {
	// BatchSize is the processed-record count that triggers a flush.
	// Zero selects config.DefaultBatchSize; negative values are rejected.
	BatchSize int

	// RunID and Source are stamped on every flushed batch.
	RunID  string
	Source string

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// DefaultOptions returns the default accumulator options.
func DefaultOptions() Options {
	return Options{BatchSize: config.DefaultBatchSize}
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Summary reports the totals of a Run.
type Summary struct {
	Processed     int
	Accepted      int
	Rejected      int
	Flushes       int
	FailedFlushes int

	// Dropped is the number of buffered records discarded on abnormal
	// termination.
	Dropped int
}

// Accumulator owns the BatchState of one batching window at a time.
// It is not safe for concurrent use.
type Accumulator struct {
	validator *validation.Validator
	sink      Sink
	options   Options
	logger    *slog.Logger

	state   types.BatchState
	summary Summary
}

// New creates an Accumulator that validates with v and flushes to sink.
func New(v *validation.Validator, sink Sink, options Options) (*Accumulator, error) {
	if v == nil {
		return nil, errors.New("batch: nil validator")
	}
	if sink == nil {
		return nil, errors.New("batch: nil sink")
	}
	if options.BatchSize < 0 {
		return nil, fmt.Errorf("batch: batch size must be positive, got %d", options.BatchSize)
	}
	if options.BatchSize == 0 {
		options.BatchSize = config.DefaultBatchSize
	}

	a := &Accumulator{
		validator: v,
		sink:      sink,
		options:   options,
		logger:    logging.OrDefault(options.Logger),
	}
	a.Reset()
	return a, nil
}

// BatchSize returns the configured flush threshold.
func (a *Accumulator) BatchSize() int {
	return a.options.BatchSize
}

// Reset clears the buffered outcomes and zeroes the processed count.
// Fresh slices are used so a previously flushed batch is never aliased.
func (a *Accumulator) Reset() {
	a.state = types.BatchState{}
}

// State returns the current window. The slices must be treated as read-only.
func (a *Accumulator) State() types.BatchState {
	return a.state
}

// Full reports whether the current window has reached the batch size.
func (a *Accumulator) Full() bool {
	return a.state.Processed >= a.options.BatchSize
}

// Submit validates raw and appends the outcome to the current window.
func (a *Accumulator) Submit(raw types.RawRecord) {
	a.state.Processed++
	a.summary.Processed++

	record, err := a.validator.Process(raw)
	if rejection, rejected := validation.Outcome(raw, err); rejected {
		a.state.Rejected = append(a.state.Rejected, rejection)
		a.summary.Rejected++
		a.options.Metrics.ObserveRejected(rejection.Reason)
		a.logger.Debug("record rejected",
			"reason", rejection.Reason,
			"contract", raw.ContractID,
			"installment", raw.InstallmentNumber,
		)
		return
	}

	a.state.Accepted = append(a.state.Accepted, record)
	a.summary.Accepted++
	a.options.Metrics.ObserveAccepted()
}

// Flush hands the current window to the sink and resets. The sink error, if
// any, is returned after the reset; the batch is not retried.
func (a *Accumulator) Flush(ctx context.Context) error {
	a.summary.Flushes++
	batch := types.Batch{
		RunID:    a.options.RunID,
		Sequence: a.summary.Flushes,
		Source:   a.options.Source,
		Accepted: a.state.Accepted,
		Rejected: a.state.Rejected,
	}
	a.Reset()

	err := a.sink.Flush(ctx, batch)
	a.options.Metrics.ObserveFlush(batch.Size(), err)
	if err != nil {
		a.summary.FailedFlushes++
		a.logger.Error("batch flush failed",
			"run", batch.RunID,
			"batch", batch.Sequence,
			"records", batch.Size(),
			"error", err,
		)
		return fmt.Errorf("flush batch %d: %w", batch.Sequence, err)
	}

	a.logger.Debug("batch flushed",
		"run", batch.RunID,
		"batch", batch.Sequence,
		"accepted", len(batch.Accepted),
		"rejected", len(batch.Rejected),
	)
	return nil
}

// Run drives src to exhaustion. Flush errors do not stop the run; source
// errors and context cancellation do, discarding the partial batch.
func (a *Accumulator) Run(ctx context.Context, src RowSource) (Summary, error) {
	for src.Next() {
		if err := ctx.Err(); err != nil {
			return a.abort(err)
		}

		a.Submit(src.Record())
		if a.Full() {
			// Logged and counted inside Flush.
			_ = a.Flush(ctx)
		}
	}
	if err := src.Err(); err != nil {
		return a.abort(fmt.Errorf("row source: %w", err))
	}

	_ = a.Flush(ctx)
	return a.summary, nil
}

// Summary returns the running totals.
func (a *Accumulator) Summary() Summary {
	return a.summary
}

func (a *Accumulator) abort(cause error) (Summary, error) {
	dropped := a.state.Processed
	a.summary.Dropped += dropped
	a.options.Metrics.ObserveDropped(dropped)
	a.logger.Warn("run aborted, discarding buffered records",
		"run", a.options.RunID,
		"dropped", dropped,
		"error", cause,
	)
	a.Reset()
	return a.summary, cause
}
