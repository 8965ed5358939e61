package render

import (
	"math"

	"stream-dashboard/internal/models"
)

// BarMaxBins предел столбцов гистограммы
const BarMaxBins = 200

// buildBar строит столбцы для не более чем BarMaxBins элементов выборки.
// Высота столбца пропорциональна значению внутри наблюдаемого min/max ряда.
func buildBar(series []models.SummaryPoint, width, height int, opts ChartOptions) []Command {
	if len(series) == 0 {
		return []Command{}
	}
	area := newPlotArea(width, height, chartPadding)
	cmds := make([]Command, 0, 16)
	cmds = append(cmds, area.axes(1)...)

	observed, _ := models.BoundsOf(series)
	minV, maxV := observed.MinY, observed.MaxY
	vRange := nonZero(maxV - minV)

	n := len(series)
	maxBars := min(n, BarMaxBins)
	barW := math.Max(2, math.Floor(area.chartW()/float64(maxBars))-2)

	x := area.left()
	for _, i := range Stride(n, maxBars) {
		h := (series[i].Value - minV) / vRange * area.chartH()
		if h > 0 {
			cmds = append(cmds, Rect{
				X:         x,
				Y:         area.top() + area.chartH() - h,
				W:         barW,
				H:         h,
				FillStyle: opts.Color,
			})
		}
		x += barW + 4
		if x > area.left()+area.chartW() {
			break
		}
	}

	cmds = append(cmds, area.yLabels(minV, maxV, 10)...)
	return cmds
}
