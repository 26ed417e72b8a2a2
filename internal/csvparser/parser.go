// =============================================================================
// Contract Installment Validator - Streaming CSV Row Source
// =============================================================================
//
// This module reads contract exports one row at a time and yields each row
// as a types.RawRecord. It handles:
//   - Different delimiters (semicolon, comma, pipe, tab)
//   - Multi-line headers (merged column by column)
//   - Custom data start rows
//   - A UTF-8 byte order mark on the first header cell
//
// Rows are never buffered beyond the current one, so memory use does not grow
// with the file size. Row order is preserved.
//
// USAGE:
//   parser, err := csvparser.Open(path, settings)
//   if err != nil {
//       return err
//   }
//   defer parser.Close()
//
//   for parser.Next() {
//       record := parser.Record()
//   }
//   if err := parser.Err(); err != nil {
//       return err
//   }
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/contract-installment-validator/internal/config"
	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

const utf8BOM = "\ufeff"

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser yields RawRecords from a delimited source.
type StreamingParser struct {
	closer     io.Closer
	reader     *csv.Reader
	headers    []string
	currentRow map[string]string
	rowNumber  int
	err        error
	settings   config.CSVSettings
}

// Open opens the file at path and prepares a parser positioned on the first
// data row.
func Open(path string, settings config.CSVSettings) (*StreamingParser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := NewStreamingParser(file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}
	parser.closer = file
	return parser, nil
}

// NewStreamingParser wraps r. The caller keeps ownership of r.
func NewStreamingParser(r io.Reader, settings config.CSVSettings) (*StreamingParser, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	configureReader(reader, settings)

	parser := &StreamingParser{
		reader:   reader,
		settings: settings,
	}

	if err := parser.readHeaders(); err != nil {
		return nil, err
	}
	if err := parser.skipToDataStart(); err != nil {
		return nil, err
	}
	return parser, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon", "SEMICOLON":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ';'
		}
	}

	// Exports occasionally carry trailing delimiters; row shape is not
	// validated here.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true
}

// readHeaders reads and merges the header rows.
func (p *StreamingParser) readHeaders() error {
	rows := p.settings.HeaderRows
	if rows <= 0 {
		return errors.New("header_rows must be at least 1")
	}

	headerRows := make([][]string, 0, rows)
	for i := 0; i < rows; i++ {
		row, err := p.reader.Read()
		if err == io.EOF {
			return errors.New("unexpected end of file while reading headers")
		}
		if err != nil {
			return fmt.Errorf("error reading header row %d: %w", i+1, err)
		}
		// ReuseRecord: copy before the next Read overwrites it.
		headerRows = append(headerRows, append([]string(nil), row...))
		p.rowNumber++
	}

	if len(headerRows[0]) > 0 {
		headerRows[0][0] = strings.TrimPrefix(headerRows[0][0], utf8BOM)
	}
	p.headers = MergeHeaders(headerRows)
	return nil
}

// skipToDataStart skips rows until the data start row.
func (p *StreamingParser) skipToDataStart() error {
	targetRow := p.settings.DataStartRow
	if targetRow <= 0 {
		targetRow = p.settings.HeaderRows + 1
	}

	for p.rowNumber < targetRow-1 {
		_, err := p.reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error skipping to data start: %w", err)
		}
		p.rowNumber++
	}
	return nil
}

// Next advances to the next non-empty row. It returns false at the end of
// input or on a read error; check Err to tell them apart.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}
		p.rowNumber++

		if IsRowEmpty(row) {
			continue
		}

		p.currentRow = make(map[string]string, len(p.headers))
		for i, header := range p.headers {
			if i < len(row) {
				p.currentRow[header] = strings.TrimSpace(row[i])
			} else {
				p.currentRow[header] = ""
			}
		}
		return true
	}
	return false
}

// Row returns the current row as a header -> value map.
func (p *StreamingParser) Row() map[string]string {
	return p.currentRow
}

// Record returns the current row as a RawRecord.
func (p *StreamingParser) Record() types.RawRecord {
	return types.RawRecordFromMap(p.currentRow)
}

// Headers returns the parsed headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// MissingHeaders returns the expected contract columns absent from the file.
func (p *StreamingParser) MissingHeaders() []string {
	return MissingHeaders(p.headers)
}

// MissingHeaders returns the entries of types.Headers not present in headers.
func MissingHeaders(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, h := range types.Headers {
		if !present[h] {
			missing = append(missing, h)
		}
	}
	return missing
}

// RowNumber returns the current physical row number (1-indexed).
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file when the parser opened it. Calling it
// again is a no-op.
func (p *StreamingParser) Close() error {
	if p.closer == nil {
		return nil
	}
	closer := p.closer
	p.closer = nil
	return closer.Close()
}

// =============================================================================
// HEADER HANDLING
// =============================================================================

// MergeHeaders joins multi-row headers column by column and names empty
// ones by position.
//
//   Row 1: "Valor", "",      "Data"
//   Row 2: "Total", "Prest", "Vencto"
//   Result: "Valor Total", "Prest", "Data Vencto"
func MergeHeaders(rows [][]string) []string {
	if len(rows) == 1 {
		return cleanHeaders(rows[0])
	}

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range rows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}
	return cleanHeaders(headers)
}

// cleanHeaders trims headers and names empty ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

// IsRowEmpty reports whether every cell of row is blank.
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
