package render

import (
	"stream-dashboard/internal/models"
)

const (
	// LineMaxSamples предел точек ломаной
	LineMaxSamples = 80
	// LineMarkerCount сколько последних точек выборки получают маркеры
	LineMarkerCount = 15

	lineGridRows  = 5
	lineGridCols  = 4
	lineTimeTicks = 4
)

// buildLine строит линейный график: сетка, оси, подписи, ломаная,
// маркеры на последних точках и выделенная последняя точка
func buildLine(series []models.SummaryPoint, b models.ViewBounds, width, height int, opts ChartOptions) []Command {
	if len(series) < 2 {
		return []Command{}
	}
	area := newPlotArea(width, height, linePadding)
	cmds := make([]Command, 0, 64)

	for i := 0; i <= lineGridRows; i++ {
		y := area.top() + float64(i)/lineGridRows*area.chartH()
		cmds = append(cmds, Path{
			Points:      []Point{{area.left(), y}, {area.right(), y}},
			StrokeStyle: GridColor,
			LineWidth:   1,
		})
	}
	for i := 0; i <= lineGridCols; i++ {
		x := area.left() + float64(i)/lineGridCols*area.chartW()
		cmds = append(cmds, Path{
			Points:      []Point{{x, area.top()}, {x, area.bottom()}},
			StrokeStyle: GridColor,
			LineWidth:   1,
		})
	}
	cmds = append(cmds, area.axes(2)...)
	cmds = append(cmds, area.yLabels(b.MinY, b.MaxY, 15)...)

	rx := nonZero(b.RangeX())
	for i := 0; i <= lineTimeTicks; i++ {
		label := FormatTimeLabel(b.MinX + float64(i)/lineTimeTicks*rx)
		x := area.left() + float64(i)/lineTimeTicks*area.chartW()
		cmds = append(cmds, Text{
			Text:      label,
			X:         x - TextWidth(label)/2,
			Y:         area.bottom() + 15 + 2*labelHalfHeight,
			Font:      LabelFont,
			FillStyle: LabelColor,
		})
	}

	n := len(series)
	step := CeilStrideStep(n, LineMaxSamples)
	at := func(i int) (float64, float64) {
		x, y := area.project(b, float64(series[i].Timestamp), series[i].Value)
		return area.clamp(x, y)
	}

	idx := CeilStride(n, LineMaxSamples)
	line := make([]Point, 0, len(idx))
	for _, i := range idx {
		x, y := at(i)
		line = append(line, Point{X: x, Y: y})
	}
	cmds = append(cmds, Path{Points: line, StrokeStyle: opts.Color, LineWidth: opts.LineWidth})

	markers := min(LineMarkerCount, n/step)
	for i := max(0, n-markers*step); i < n; i += step * 2 {
		x, y := at(i)
		cmds = append(cmds,
			Circle{X: x, Y: y, Radius: 5, FillStyle: "white"},
			Circle{X: x, Y: y, Radius: 4, FillStyle: opts.Color},
		)
	}

	lx, ly := area.project(b, float64(series[n-1].Timestamp), series[n-1].Value)
	cmds = append(cmds,
		Circle{X: lx, Y: ly, Radius: 8, FillStyle: "white"},
		Circle{X: lx, Y: ly, Radius: 6, FillStyle: opts.Color},
	)
	return cmds
}
