// Package export serialises reconciled reports to download formats.
package export

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/enerdash/enerdash/internal/report"
)

var printer = message.NewPrinter(language.English)

// WriteReportCSV emits the chart-row table as CSV: one row per month, one
// column per series, headed by display names.
func WriteReportCSV(w io.Writer, rep report.Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := make([]string, 0, len(rep.Series)+1)
	header = append(header, "Month")
	for _, s := range rep.Series {
		header = append(header, s.DisplayName)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rep.Rows {
		record := make([]string, 0, len(rep.Series)+1)
		record = append(record, row.Month)
		for _, s := range rep.Series {
			record = append(record, formatValue(row.Values[s.Key]))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSourceViewCSV emits a single-source view the same way.
func WriteSourceViewCSV(w io.Writer, view report.SourceView) error {
	return WriteReportCSV(w, report.Report{
		FinancialYear: view.FinancialYear,
		Rows:          view.Rows,
		Series:        view.Series,
	})
}

func formatValue(v float64) string {
	return printer.Sprintf("%.2f", v)
}
