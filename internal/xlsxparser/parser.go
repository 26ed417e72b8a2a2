// =============================================================================
// Contract Installment Validator - XLSX Row Source
// =============================================================================
//
// This module streams contract rows out of an .xlsx workbook so spreadsheet
// exports can be ingested the same way as delimited files.
//
// LAYOUT:
//   The worksheet follows the same layout rules as a delimited input:
//   header_rows header rows (merged column by column), data from
//   data_start_row on, blank rows skipped.
//
//   | nrInst | nrAgencia | ... | nrCpfCnpj      | ... | vlPresta |
//   |--------|-----------|-----|----------------|-----|----------|
//   | 533    | 32        | ... | 111.444.777-35 | ... | 100.00   |
//
// Cells are read as raw values, not as displayed, so number formats in the
// workbook do not leak into the record. Taxpayer ids stored as numbers lose
// their leading zeros; exports should keep that column as text.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/contract-installment-validator/internal/config"
	"github.com/ginjaninja78/contract-installment-validator/internal/csvparser"
	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

// RowSource iterates the rows of one worksheet.
type RowSource struct {
	file *excelize.File
	rows *excelize.Rows

	sheet      string
	headers    []string
	currentRow map[string]string
	rowNumber  int
	err        error
}

// Open opens the workbook at path and positions the source on the first data
// row of settings.Sheet, or of the first sheet when it is empty.
func Open(path string, settings config.CSVSettings) (*RowSource, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	src, err := newRowSource(file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}
	return src, nil
}

func newRowSource(file *excelize.File, settings config.CSVSettings) (*RowSource, error) {
	sheet := settings.Sheet
	if sheet == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := file.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	src := &RowSource{file: file, rows: rows, sheet: sheet}
	if err := src.readHeaders(settings.HeaderRows); err != nil {
		rows.Close()
		return nil, err
	}
	if err := src.skipToDataStart(settings); err != nil {
		rows.Close()
		return nil, err
	}
	return src, nil
}

func (s *RowSource) readRow() ([]string, bool, error) {
	if !s.rows.Next() {
		return nil, false, s.rows.Error()
	}
	s.rowNumber++
	cols, err := s.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, false, fmt.Errorf("error reading row %d: %w", s.rowNumber, err)
	}
	return cols, true, nil
}

func (s *RowSource) readHeaders(headerRows int) error {
	if headerRows <= 0 {
		return errors.New("header_rows must be at least 1")
	}

	rows := make([][]string, 0, headerRows)
	for i := 0; i < headerRows; i++ {
		row, ok, err := s.readRow()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("sheet %q ended while reading headers", s.sheet)
		}
		rows = append(rows, row)
	}
	s.headers = csvparser.MergeHeaders(rows)
	return nil
}

func (s *RowSource) skipToDataStart(settings config.CSVSettings) error {
	target := settings.DataStartRow
	if target <= 0 {
		target = settings.HeaderRows + 1
	}
	for s.rowNumber < target-1 {
		_, ok, err := s.readRow()
		if err != nil {
			return fmt.Errorf("error skipping to data start: %w", err)
		}
		if !ok {
			return nil
		}
	}
	return nil
}

// Next advances to the next non-blank row. It returns false at the end of the
// sheet or on a read error; check Err to tell them apart.
func (s *RowSource) Next() bool {
	for s.err == nil {
		row, ok, err := s.readRow()
		if err != nil {
			s.err = err
			return false
		}
		if !ok {
			return false
		}
		if csvparser.IsRowEmpty(row) {
			continue
		}

		s.currentRow = make(map[string]string, len(s.headers))
		for i, header := range s.headers {
			if i < len(row) {
				s.currentRow[header] = strings.TrimSpace(row[i])
			} else {
				s.currentRow[header] = ""
			}
		}
		return true
	}
	return false
}

// Record returns the current row as a RawRecord.
func (s *RowSource) Record() types.RawRecord {
	return types.RawRecordFromMap(s.currentRow)
}

// Headers returns the merged header row.
func (s *RowSource) Headers() []string {
	return s.headers
}

// MissingHeaders returns the expected contract columns absent from the sheet.
func (s *RowSource) MissingHeaders() []string {
	return csvparser.MissingHeaders(s.headers)
}

// RowNumber returns the current 1-indexed sheet row.
func (s *RowSource) RowNumber() int {
	return s.rowNumber
}

// Err returns the read error that stopped Next, if any.
func (s *RowSource) Err() error {
	return s.err
}

// Close releases the row iterator and the workbook. Calling it again is a
// no-op.
func (s *RowSource) Close() error {
	if s.file == nil {
		return nil
	}
	rowsErr := s.rows.Close()
	fileErr := s.file.Close()
	s.file = nil
	return errors.Join(rowsErr, fileErr)
}
