package activityservice

import (
	"bytes"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
)

// RenderTypeBreakdownChart produces a PNG bar chart of activity volume per
// type. Bars are sorted by type name so repeated renders of the same data are
// identical.
func RenderTypeBreakdownChart(counts map[string]int) ([]byte, error) {
	if len(counts) == 0 {
		return renderNoDataPlaceholder()
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	bars := make([]chart.Value, 0, len(types))
	for _, t := range types {
		bars = append(bars, chart.Value{
			Label: t,
			Value: float64(counts[t]),
		})
	}

	graph := chart.BarChart{
		Title:    "Activity by type",
		Width:    800,
		Height:   400,
		BarWidth: 60,
		XAxis: chart.Style{
			TextRotationDegrees: 45,
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderNoDataPlaceholder() ([]byte, error) {
	const msg = "No activity recorded"

	graph := chart.Chart{
		Width:  400,
		Height: 200,
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
