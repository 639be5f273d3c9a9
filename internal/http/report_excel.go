package httpapi

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"revit-qc/internal/domain"
	"revit-qc/internal/service"
)

const (
	summarySheet = "Summary"
	errorsSheet  = "Errors"
)

// CheckReportErrorsHeader header row of the errors sheet
var CheckReportErrorsHeader = []string{
	"Name",
	"Element ID",
	"Error Types",
	"Deviation (mm)",
	"Pinned",
	"Workset",
}

// GenerateCheckReportExport builds the xlsx workbook of a report that has data
func GenerateCheckReportExport(report *service.CheckReport) ([]byte, error) {
	if report == nil || !report.HasData {
		return nil, fmt.Errorf("report has no data")
	}

	f := excelize.NewFile()
	// f stays open until WriteTo

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(errorsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	summary := [][2]any{
		{"Model", report.ModelName},
		{"Kind", report.Kind},
		{"Check ID", report.CheckID},
		{"Check Date", report.CheckDate.Format("2006-01-02 15:04:05")},
		{"Check Type", report.CheckType},
		{"Total In Model", report.TotalInModel},
		{"Total Reference", report.TotalReference},
		{"Error Count", report.ErrorCount},
		{"Success Count", report.SuccessCount},
	}
	for i, kv := range summary {
		row := i + 1
		if err := setCellValue(f, summarySheet, 1, row, kv[0]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set summary label at row %d: %w", row, err)
		}
		if err := setCellValue(f, summarySheet, 2, row, kv[1]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set summary value at row %d: %w", row, err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set summary style: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 22); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for col, header := range CheckReportErrorsHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(errorsSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(errorsSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	columnWidths := []float64{20, 15, 35, 15, 10, 25}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(errorsSheet, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, e := range report.Errors {
		row := i + 2
		values := []any{
			e.Name,
			derefString(e.ElementID),
			strings.Join(e.ErrorTypesArray, ", "),
			nil,
			pinLabel(e),
			derefString(e.WorksetName),
		}
		if e.DeviationMM != nil {
			values[3] = *e.DeviationMM
		}
		for col, v := range values {
			if v == nil || v == "" {
				continue
			}
			if err := setCellValue(f, errorsSheet, col+1, row, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	if err := f.SetPanes(errorsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func pinLabel(e service.ReportError) string {
	switch e.IsPinned {
	case domain.PinPinned:
		return "Yes"
	case domain.PinUnpinned:
		return "No"
	default:
		return ""
	}
}
