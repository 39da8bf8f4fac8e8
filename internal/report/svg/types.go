// Package svg renders server-side chart previews of reconciled reports.
package svg

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	StrokeColor string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
}

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// Defaults for the report charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 260
	DefaultPadding = 24.0
	DefaultTicks   = 6
)

// Palette is the series colour cycle, indexed by SeriesDescriptor.ColorIndex
// modulo its length.
var Palette = []string{
	"#0ea5e9", "#f97316", "#22c55e", "#a855f7", "#ef4444",
	"#14b8a6", "#eab308", "#64748b",
}

// PaletteColor returns the colour for a series colour index.
func PaletteColor(index int) string {
	if index < 0 {
		index = 0
	}
	return Palette[index%len(Palette)]
}
