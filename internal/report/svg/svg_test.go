package svg

import (
	"strings"
	"testing"

	"github.com/enerdash/enerdash/internal/report"
)

func TestBarsProducesSVG(t *testing.T) {
	series := []BarSeries{
		{Label: "Solar North", Values: []float64{500, 600}},
		{Label: "Mill East", Values: []float64{300, 320}},
	}
	html, err := Bars(420, 220, series, []string{"Apr FY2024", "May"}, BarOpts{
		Title:       "Combined report",
		Description: "Monthly totals per site",
	})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if !strings.Contains(output, "<rect") {
		t.Fatalf("expected rect bars in svg")
	}
	if !strings.Contains(output, "Solar North") {
		t.Fatalf("expected legend label")
	}
}

func TestBarsRejectsMismatchedSeries(t *testing.T) {
	_, err := Bars(420, 220, []BarSeries{{Label: "A", Values: []float64{1}}}, []string{"Apr", "May"}, BarOpts{})
	if err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestLineProducesSVG(t *testing.T) {
	html, err := Line(400, 200, []float64{100, 200, 150}, []string{"Apr FY2024", "May", "Jun"}, LineOpts{
		Title:       "Solar North",
		Description: "Monthly production",
		ShowDots:    true,
	})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if !strings.Contains(output, "<path") {
		t.Fatalf("expected path element in svg")
	}
	if !strings.Contains(output, "aria-labelledby") {
		t.Fatalf("expected accessibility attributes")
	}
}

func TestReportLineUsesSeriesPalette(t *testing.T) {
	rep := report.Report{
		FinancialYear: "2024-2025",
		Series: []report.SeriesDescriptor{{
			Key:         "10_production",
			DisplayName: "Solar North",
			Source:      report.SourceProduction,
			ColorIndex:  1,
		}},
		Rows: []report.ChartRow{
			{MonthKey: "042024", Month: "Apr FY2024", Values: map[string]float64{"10_production": 120}},
			{MonthKey: "052024", Month: "May", Values: map[string]float64{"10_production": 90}},
		},
	}

	html, err := ReportLine(rep, "10_production", LineOpts{})
	if err != nil {
		t.Fatalf("report line error: %v", err)
	}
	output := string(html)
	if !strings.Contains(output, PaletteColor(1)) {
		t.Fatalf("expected stroke from series palette colour")
	}
	if !strings.Contains(output, "Solar North") {
		t.Fatalf("expected series display name as title")
	}
}

func TestReportBarsCapsSeries(t *testing.T) {
	rep := report.Report{
		FinancialYear: "2024-2025",
		Rows: []report.ChartRow{
			{MonthKey: "042024", Month: "Apr FY2024", Values: map[string]float64{}},
		},
	}
	for i := 0; i < 8; i++ {
		key := string(rune('a'+i)) + "_production"
		rep.Series = append(rep.Series, report.SeriesDescriptor{
			Key:         key,
			DisplayName: "Site " + string(rune('A'+i)),
			Source:      report.SourceProduction,
			ColorIndex:  i,
		})
		rep.Rows[0].Values[key] = float64(i)
	}

	html, err := ReportBars(rep, BarOpts{})
	if err != nil {
		t.Fatalf("report bars error: %v", err)
	}
	output := string(html)
	if strings.Contains(output, "Site F") {
		t.Fatalf("expected preview capped at %d series", maxPreviewSeries)
	}
	if !strings.Contains(output, "Site E") {
		t.Fatalf("expected fifth series present")
	}
}
