// Package export renders parameter history as a spreadsheet.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"plcvisualizer/models"
)

// SheetName is the single sheet of an export
const SheetName = "History"

// ContentType is the MIME type of an XLSX workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{"Timestamp", "Parameter", "Value", "Unit", "Status"}

// ExportXLSX writes readings to a one-sheet workbook. Parameter names and
// units are looked up in params; unknown ids are written as is. The header
// row is written even when there are no readings.
func ExportXLSX(params []models.Parameter, readings []models.Reading) (*bytes.Buffer, error) {
	byID := make(map[string]models.Parameter, len(params))
	for _, p := range params {
		byID[p.ID] = p
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "E1", bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "B", 24); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	for i, r := range readings {
		name, unit := r.ParameterID, ""
		if p, ok := byID[r.ParameterID]; ok {
			name, unit = p.Name, p.Unit
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			r.Timestamp.UTC().Format(time.RFC3339),
			name,
			r.Value,
			unit,
			string(r.Status),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf, nil
}

// FileName suggests a download name for a parameter export
func FileName(p models.Parameter, at time.Time) string {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	return fmt.Sprintf("%s-history-%s.xlsx", sanitize(name), at.UTC().Format("20060102-150405"))
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
