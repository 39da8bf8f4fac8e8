package svg

import (
	"html/template"

	"github.com/enerdash/enerdash/internal/report"
)

// maxPreviewSeries caps how many series a preview chart draws; the full set
// belongs to the interactive chart, not the server-side preview.
const maxPreviewSeries = 5

// ReportBars renders a grouped bar preview of a reconciled report.
func ReportBars(rep report.Report, opts BarOpts) (template.HTML, error) {
	labels, series := splitReport(rep)
	if opts.Title == "" {
		opts.Title = "Energy report " + rep.FinancialYear
	}
	return Bars(DefaultWidth, DefaultHeight, series, labels, opts)
}

// ReportLine renders a line preview of a single series of a report.
func ReportLine(rep report.Report, seriesKey string, opts LineOpts) (template.HTML, error) {
	labels := make([]string, len(rep.Rows))
	values := make([]float64, len(rep.Rows))
	for i, row := range rep.Rows {
		labels[i] = row.Month
		values[i] = row.Values[seriesKey]
	}
	for _, s := range rep.Series {
		if s.Key == seriesKey && opts.StrokeColor == "" {
			opts.StrokeColor = PaletteColor(s.ColorIndex)
			if opts.Title == "" {
				opts.Title = s.DisplayName
			}
		}
	}
	return Line(DefaultWidth, DefaultHeight, values, labels, opts)
}

func splitReport(rep report.Report) ([]string, []BarSeries) {
	labels := make([]string, len(rep.Rows))
	for i, row := range rep.Rows {
		labels[i] = row.Month
	}

	descriptors := rep.Series
	if len(descriptors) > maxPreviewSeries {
		descriptors = descriptors[:maxPreviewSeries]
	}
	series := make([]BarSeries, 0, len(descriptors))
	for _, desc := range descriptors {
		values := make([]float64, len(rep.Rows))
		for i, row := range rep.Rows {
			values[i] = row.Values[desc.Key]
		}
		series = append(series, BarSeries{
			Label:  desc.DisplayName,
			Color:  PaletteColor(desc.ColorIndex),
			Values: values,
		})
	}
	return labels, series
}
