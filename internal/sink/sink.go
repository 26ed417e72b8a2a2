// Package sink holds the destinations a flushed batch can be handed to.
//
// Every sink implements batch.Sink. Sinks never retry: a failure is returned
// to the accumulator, which logs it and moves on to the next batch.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ginjaninja78/contract-installment-validator/internal/batch"
	"github.com/ginjaninja78/contract-installment-validator/internal/logging"
	"github.com/ginjaninja78/contract-installment-validator/internal/types"
	"github.com/ginjaninja78/contract-installment-validator/pkg/utils"
)

// Multi fans a batch out to several sinks.
type Multi struct {
	sinks []batch.Sink
}

// NewMulti constructs a Multi. Nil sinks are skipped.
func NewMulti(sinks ...batch.Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of wrapped sinks.
func (m *Multi) Len() int {
	if m == nil {
		return 0
	}
	return len(m.sinks)
}

// Flush forwards b to every sink, even after one fails, and joins the errors.
func (m *Multi) Flush(ctx context.Context, b types.Batch) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Flush(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes a one-line summary of every batch.
type Log struct {
	logger *slog.Logger
}

// NewLog constructs a Log sink. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logging.OrDefault(logger)}
}

// Flush logs b at info level, with one debug line per rejection.
func (l *Log) Flush(_ context.Context, b types.Batch) error {
	l.logger.Info("batch",
		"run", b.RunID,
		"batch", b.Sequence,
		"source", b.Source,
		"accepted", len(b.Accepted),
		"rejected", len(b.Rejected),
	)
	for _, r := range b.Rejected {
		l.logger.Debug("rejected record",
			"batch", b.Sequence,
			"reason", r.Reason,
			"contract", r.Record.ContractID,
			"installment", r.Record.InstallmentNumber,
		)
	}
	return nil
}

// outputName names the per-batch file of a file-based sink.
func outputName(format, extension string, b types.Batch) string {
	return utils.GenerateOutputFileName(format, extension, map[string]string{
		"original": utils.BaseName(b.Source),
		"run":      b.RunID,
		"batch":    strconv.Itoa(b.Sequence),
	})
}

func wrap(name string, b types.Batch, err error) error {
	return fmt.Errorf("%s sink: batch %d: %w", name, b.Sequence, err)
}
