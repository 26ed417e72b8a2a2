package sink

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

const (
	acceptedSheet = "accepted"
	rejectedSheet = "rejected"
	reasonHeader  = "reason"
)

// Report writes one XLSX workbook per batch with an "accepted" sheet of
// normalized records and a "rejected" sheet of raw records and reasons.
type Report struct {
	dir        string
	nameFormat string
}

// NewReport writes workbooks to dir, named after nameFormat.
func NewReport(dir, nameFormat string) *Report {
	return &Report{dir: dir, nameFormat: nameFormat}
}

// Flush writes the workbook for b. Empty batches are skipped.
func (r *Report) Flush(_ context.Context, b types.Batch) error {
	if b.Size() == 0 {
		return nil
	}

	f, err := BuildReport(b)
	if err != nil {
		return wrap("xlsx", b, err)
	}
	defer f.Close()

	path := filepath.Join(r.dir, outputName(r.nameFormat, ".xlsx", b))
	if err := f.SaveAs(path); err != nil {
		return wrap("xlsx", b, fmt.Errorf("failed to write Excel file: %w", err))
	}
	return nil
}

// BuildReport renders b as a workbook. The caller closes it.
func BuildReport(b types.Batch) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", acceptedSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(rejectedSheet); err != nil {
		f.Close()
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	accepted := make([][]interface{}, 0, len(b.Accepted))
	for _, record := range b.Accepted {
		accepted = append(accepted, record.Values())
	}
	if err := writeSheet(f, acceptedSheet, types.Headers, accepted, style); err != nil {
		f.Close()
		return nil, err
	}

	rejectedHeaders := append([]string{reasonHeader}, types.Headers...)
	rejected := make([][]interface{}, 0, len(b.Rejected))
	for _, rej := range b.Rejected {
		row := []interface{}{string(rej.Reason)}
		for _, v := range rej.Record.Values() {
			row = append(row, v)
		}
		rejected = append(rejected, row)
	}
	if err := writeSheet(f, rejectedSheet, rejectedHeaders, rejected, style); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, style int) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}

	for i, h := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(len(h) + 4)
		if width < 12 {
			width = 12
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
