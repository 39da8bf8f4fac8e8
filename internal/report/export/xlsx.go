package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/enerdash/enerdash/internal/report"
)

const sheetName = "Report"

// WriteReportXLSX renders the chart-row table as a spreadsheet: month labels
// down the first column, one series per subsequent column.
func WriteReportXLSX(w io.Writer, rep report.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("export: create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("export: drop default sheet: %w", err)
	}

	if err := setCell(f, 1, 1, "Month"); err != nil {
		return err
	}
	for col, s := range rep.Series {
		if err := setCell(f, col+2, 1, s.DisplayName); err != nil {
			return err
		}
	}

	for rowIdx, row := range rep.Rows {
		if err := setCell(f, 1, rowIdx+2, row.Month); err != nil {
			return err
		}
		for col, s := range rep.Series {
			if err := setCell(f, col+2, rowIdx+2, row.Values[s.Key]); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		return fmt.Errorf("export: set cell %s: %w", cell, err)
	}
	return nil
}
