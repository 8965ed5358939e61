package render

import (
	"fmt"
	"math"

	"stream-dashboard/internal/models"
)

const (
	DefaultHeatmapCols = 40
	DefaultHeatmapRows = 10
)

// HeatmapGrid считает точки ряда по ячейкам cols x rows.
// Столбцы делят временной диапазон границ, строки делят шкалу значений 0..100
// (строка 0 сверху). Точки вне временного диапазона не учитываются.
func HeatmapGrid(series []models.SummaryPoint, b models.ViewBounds, cols, rows int) [][]int {
	grid := make([][]int, rows)
	for r := range grid {
		grid[r] = make([]int, cols)
	}
	rx := nonZero(b.RangeX())
	for _, p := range series {
		ts := float64(p.Timestamp)
		if ts < b.MinX || ts > b.MaxX {
			continue
		}
		col := min(cols-1, int(math.Floor((ts-b.MinX)/rx*float64(cols))))
		norm := clampF(p.Value/100, 0, 1)
		row := min(rows-1, int(math.Floor((1-norm)*float64(rows))))
		grid[row][col]++
	}
	return grid
}

// HeatColor двухточечная шкала: от rgb(0,100,200) при 0 до rgb(255,0,0) при 1
func HeatColor(v float64) string {
	v = clampF(v, 0, 1)
	r := int(math.Floor(255 * v))
	g := int(math.Floor(100 * (1 - v)))
	bl := int(math.Floor(200 * (1 - v)))
	return fmt.Sprintf("rgb(%d,%d,%d)", r, g, bl)
}

func buildHeatmap(series []models.SummaryPoint, b models.ViewBounds, width, height int, opts ChartOptions) []Command {
	if len(series) == 0 {
		return []Command{}
	}
	cols, rows := opts.HeatmapCols, opts.HeatmapRows
	if cols <= 0 {
		cols = DefaultHeatmapCols
	}
	if rows <= 0 {
		rows = DefaultHeatmapRows
	}
	grid := HeatmapGrid(series, b, cols, rows)

	maxCount := 0
	for _, row := range grid {
		for _, c := range row {
			maxCount = max(maxCount, c)
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	area := newPlotArea(width, height, chartPadding)
	cellW := area.chartW() / float64(cols)
	cellH := area.chartH() / float64(rows)

	cmds := make([]Command, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cmds = append(cmds, Rect{
				X:         area.left() + float64(c)*cellW,
				Y:         area.top() + float64(r)*cellH,
				W:         cellW,
				H:         cellH,
				FillStyle: HeatColor(float64(grid[r][c]) / float64(maxCount)),
			})
		}
	}
	return cmds
}
