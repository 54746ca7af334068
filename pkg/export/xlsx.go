package export

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes headers on row 1 and one row per dataset row. Values of
// NumericColumns become number cells; everything else is written as text.
func (e *XLSXExporter) Render(data Dataset, sheet string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	if sheet == "" {
		sheet = "Sheet1"
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	for i, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStr(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header %s: %w", header, err)
		}
	}

	for r, row := range data.Rows {
		for i, header := range data.Headers {
			value, ok := row[header]
			if !ok || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := e.writeCell(f, sheet, cell, value, data.isNumeric(header)); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(data.Headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *XLSXExporter) writeCell(f *excelize.File, sheet, cell, value string, numeric bool) error {
	if numeric {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return f.SetCellInt(sheet, cell, int(n))
		}
		// ParseFloat also accepts words such as "NaN" or "Inf"
		if n, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return f.SetCellFloat(sheet, cell, n, -1, 64)
		}
	}
	return f.SetCellStr(sheet, cell, value)
}

// ReadXLSX parses the first sheet of a workbook. Row 1 is the header row;
// blank rows are dropped and each remaining row is keyed by header.
// Row numbers in the returned slice start at 2 to match the sheet.
func ReadXLSX(r io.Reader) (Dataset, []int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Dataset{}, nil, fmt.Errorf("read workbook: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return Dataset{}, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Dataset{}, nil, fmt.Errorf("workbook has no sheet")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Dataset{}, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return Dataset{}, nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows)-1)}
	lines := make([]int, 0, len(rows)-1)
	for idx, cells := range rows[1:] {
		record := make(map[string]string, len(headers))
		blank := true
		for i, header := range headers {
			if header == "" || i >= len(cells) {
				continue
			}
			value := strings.TrimSpace(cells[i])
			if value != "" {
				blank = false
			}
			record[header] = value
		}
		if blank {
			continue
		}
		data.Rows = append(data.Rows, record)
		lines = append(lines, idx+2)
	}
	return data, lines, nil
}
