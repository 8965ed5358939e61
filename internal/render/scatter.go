package render

import (
	"stream-dashboard/internal/models"
)

// ScatterMaxPoints предел точек диаграммы рассеяния
const ScatterMaxPoints = 2000

// buildScatter отображает точки выборки через границы области.
// Точки за пределами границ пропускаются.
func buildScatter(series []models.SummaryPoint, b models.ViewBounds, width, height int, opts ChartOptions) []Command {
	if len(series) == 0 {
		return []Command{}
	}
	area := newPlotArea(width, height, chartPadding)
	cmds := make([]Command, 0, 16)
	cmds = append(cmds, area.axes(1)...)

	radius := opts.PointSize / 2
	for _, i := range Stride(len(series), ScatterMaxPoints) {
		p := series[i]
		ts := float64(p.Timestamp)
		if ts < b.MinX || ts > b.MaxX || p.Value < b.MinY || p.Value > b.MaxY {
			continue
		}
		x, y := area.project(b, ts, p.Value)
		cmds = append(cmds, Circle{X: x, Y: y, Radius: radius, FillStyle: opts.Color})
	}

	cmds = append(cmds, area.yLabels(b.MinY, b.MaxY, 10)...)
	return cmds
}
