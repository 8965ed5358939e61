package render

import (
	"fmt"
	"math"
	"time"

	"stream-dashboard/internal/models"
)

const (
	// LabelFont шрифт подписей осей
	LabelFont = "12px sans-serif"
	// LabelColor цвет подписей
	LabelColor = "#1e293b"
	// AxisColor цвет осей
	AxisColor = "#cbd5e1"
	// GridColor цвет сетки
	GridColor = "#f1f5f9"

	// labelHalfHeight смещение базовой линии для вертикального центрирования текста
	labelHalfHeight = 4
)

// Padding отступы области построения
type Padding struct {
	Top, Right, Bottom, Left float64
}

var (
	linePadding  = Padding{Top: 40, Right: 40, Bottom: 50, Left: 70}
	chartPadding = Padding{Top: 30, Right: 30, Bottom: 50, Left: 50}
)

// PlotRect область построения графика kind на поверхности width x height:
// левый верхний угол и размеры в логических пикселях
func PlotRect(kind ChartKind, width, height int) (left, top, w, h float64) {
	pad := chartPadding
	if kind == KindLine {
		pad = linePadding
	}
	area := newPlotArea(width, height, pad)
	return area.left(), area.top(), area.chartW(), area.chartH()
}

// plotArea область построения внутри отступов
type plotArea struct {
	width, height float64
	pad           Padding
}

func newPlotArea(width, height int, pad Padding) plotArea {
	return plotArea{width: float64(width), height: float64(height), pad: pad}
}

func (a plotArea) chartW() float64 { return a.width - a.pad.Left - a.pad.Right }
func (a plotArea) chartH() float64 { return a.height - a.pad.Top - a.pad.Bottom }
func (a plotArea) left() float64   { return a.pad.Left }
func (a plotArea) right() float64  { return a.width - a.pad.Right }
func (a plotArea) top() float64    { return a.pad.Top }
func (a plotArea) bottom() float64 { return a.height - a.pad.Bottom }

// project переводит точку данных в пиксели области.
// Нулевой диапазон считается равным 1.
func (a plotArea) project(b models.ViewBounds, ts, value float64) (float64, float64) {
	rx := nonZero(b.RangeX())
	ry := nonZero(b.RangeY())
	x := a.left() + (ts-b.MinX)/rx*a.chartW()
	y := a.top() + (b.MaxY-value)/ry*a.chartH()
	return x, y
}

func (a plotArea) clamp(x, y float64) (float64, float64) {
	return clampF(x, a.left(), a.right()), clampF(y, a.top(), a.bottom())
}

func (a plotArea) axes(lineWidth float64) []Command {
	return []Command{
		Path{
			Points:      []Point{{a.left(), a.top()}, {a.left(), a.bottom()}},
			StrokeStyle: AxisColor,
			LineWidth:   lineWidth,
		},
		Path{
			Points:      []Point{{a.left(), a.bottom()}, {a.right(), a.bottom()}},
			StrokeStyle: AxisColor,
			LineWidth:   lineWidth,
		},
	}
}

// yLabels шесть подписей значений сверху вниз от max к min,
// выровненные по правому краю на расстоянии gap от оси
func (a plotArea) yLabels(minY, maxY, gap float64) []Command {
	rng := nonZero(maxY - minY)
	out := make([]Command, 0, 6)
	for i := 0; i <= 5; i++ {
		value := minY + (1-float64(i)/5)*rng
		label := fmt.Sprintf("%.0f", value)
		y := a.top() + float64(i)/5*a.chartH()
		out = append(out, Text{
			Text:      label,
			X:         a.left() - gap - TextWidth(label),
			Y:         y + labelHalfHeight,
			Font:      LabelFont,
			FillStyle: LabelColor,
		})
	}
	return out
}

// FormatTimeLabel подпись времени HH:MM в UTC
func FormatTimeLabel(ms float64) string {
	return time.UnixMilli(int64(ms)).UTC().Format("15:04")
}

func nonZero(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return 1
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
