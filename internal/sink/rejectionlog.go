package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
	"github.com/ginjaninja78/contract-installment-validator/pkg/utils"
)

// RejectionLog appends the rejected records of each batch to one text file
// per run, named rejections_<run>.log.
type RejectionLog struct {
	dir string
	now func() time.Time
}

// NewRejectionLog writes its files to dir.
func NewRejectionLog(dir string) *RejectionLog {
	return &RejectionLog{dir: dir, now: time.Now}
}

// Path returns the log file for runID.
func (r *RejectionLog) Path(runID string) string {
	return filepath.Join(r.dir, fmt.Sprintf("rejections_%s.log", runID))
}

// Flush appends b's rejections. Batches without rejections write nothing.
func (r *RejectionLog) Flush(_ context.Context, b types.Batch) error {
	if len(b.Rejected) == 0 {
		return nil
	}

	entries := make([]utils.RejectionLogEntry, 0, len(b.Rejected))
	for _, rej := range b.Rejected {
		entries = append(entries, utils.RejectionLogEntry{
			Reason:      string(rej.Reason),
			ContractID:  rej.Record.ContractID,
			Installment: rej.Record.InstallmentNumber,
			TaxpayerID:  rej.Record.TaxpayerID,
			ClientName:  rej.Record.ClientName,
		})
	}

	header := utils.RejectionLogHeader{
		RunID:    b.RunID,
		Source:   b.Source,
		Batch:    b.Sequence,
		Recorded: r.now(),
	}
	if err := utils.AppendRejectionLog(r.Path(b.RunID), header, entries); err != nil {
		return wrap("rejection log", b, err)
	}
	return nil
}
