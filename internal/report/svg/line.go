package svg

import (
	"fmt"
	"html/template"
	"strings"
)

type point struct {
	x, y float64
}

// Line renders a single-series line chart over the month labels. The area
// between the line and the zero baseline is shaded, so negative months (a
// lapse stuck in reconciliation, say) hang below the axis the same way the
// bar renderer draws them.
func Line(width, height int, values []float64, labels []string, opts LineOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("svg: values required")
	}
	if len(values) != len(labels) {
		return "", fmt.Errorf("svg: labels length must match values")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	strokeColor := fallback(opts.StrokeColor, Palette[0])
	fillColor := fallback(opts.FillColor, "rgba(14,165,233,0.12)")
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5f5")

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	minVal, maxVal := bounds(values)
	// The value axis always includes zero so a flat series still reads as
	// flat rather than filling the viewport.
	if minVal > 0 {
		minVal = 0
	}
	if maxVal < 0 {
		maxVal = 0
	}
	if almostEqual(maxVal, minVal) {
		maxVal = minVal + 1
	}
	scale := chartHeight / (maxVal - minVal)
	zeroY := padding + chartHeight - (0-minVal)*scale

	points := plotPoints(values, padding, chartWidth, chartHeight, minVal, scale)
	line := pathData(points)

	titleID := makeID(opts.Title, "line-title")
	descID := makeID(opts.Title, "line-desc")

	var b strings.Builder
	fmt.Fprintf(&b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID)
	fmt.Fprintf(&b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Line chart")))
	fmt.Fprintf(&b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Monthly trend")))

	for i := 0; i <= tickCount; i++ {
		ratio := float64(i) / float64(tickCount)
		value := minVal + (maxVal-minVal)*ratio
		y := padding + chartHeight - ratio*chartHeight
		fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", padding, y, padding+chartWidth, y, gridColor)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", padding-6, y+4, axisColor, template.HTMLEscapeString(formatTick(value)))
	}

	fmt.Fprintf(&b, "<g stroke=\"%s\" aria-label=\"Axes\">", axisColor)
	fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding, padding, padding+chartHeight)
	fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, zeroY, padding+chartWidth, zeroY)
	b.WriteString("</g>")

	if fillColor != "" {
		first := points[0]
		last := points[len(points)-1]
		fmt.Fprintf(&b, "<path d=\"%s L%.2f %.2f L%.2f %.2f Z\" fill=\"%s\" stroke=\"none\" aria-hidden=\"true\"></path>", line, last.x, zeroY, first.x, zeroY, fillColor)
	}

	fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\"></path>", line, strokeColor)

	if opts.ShowDots {
		for _, p := range points {
			fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"3\" fill=\"%s\"></circle>", p.x, p.y, strokeColor)
		}
	}

	for i, label := range labels {
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", points[i].x, padding+chartHeight+14, axisColor, template.HTMLEscapeString(label))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// plotPoints maps each value to viewport coordinates. A one-point series sits
// centred on the x axis instead of dividing by zero.
func plotPoints(values []float64, padding, chartWidth, chartHeight, minVal, scale float64) []point {
	step := 0.0
	if len(values) > 1 {
		step = chartWidth / float64(len(values)-1)
	}
	pts := make([]point, len(values))
	for i, v := range values {
		x := padding + chartWidth/2
		if len(values) > 1 {
			x = padding + float64(i)*step
		}
		pts[i] = point{x: x, y: padding + chartHeight - (v-minVal)*scale}
	}
	return pts
}

func pathData(pts []point) string {
	var d strings.Builder
	for i, p := range pts {
		if i == 0 {
			fmt.Fprintf(&d, "M%.2f %.2f", p.x, p.y)
			continue
		}
		fmt.Fprintf(&d, " L%.2f %.2f", p.x, p.y)
	}
	return d.String()
}
