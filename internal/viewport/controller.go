// Package viewport переводит жесты указателя и колеса в границы области данных
package viewport

import (
	"sync"

	"stream-dashboard/internal/models"
)

// State состояние жеста
type State int

const (
	Idle State = iota
	Panning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Panning:
		return "panning"
	}
	return "unknown"
}

const (
	// ZoomOutFactor множитель диапазона при прокрутке вниз
	ZoomOutFactor = 1.1
	// ZoomInFactor множитель диапазона при прокрутке вверх
	ZoomInFactor = 0.9
)

// ChangeFunc получает новые границы
type ChangeFunc func(models.ViewBounds)

// Controller конечный автомат жестов.
// Хранит только состояние жеста (якорь, смещение, масштаб);
// границы передаются вызывающей стороной и возвращаются через callback.
// Ограничение масштаба не применяется.
type Controller struct {
	mu sync.Mutex
	// область построения в пикселях поверхности
	left, top     float64
	width, height float64
	onChange      ChangeFunc

	state   State
	startX  float64
	startY  float64
	offsetX float64
	offsetY float64
	scale   float64
}

// NewController создает контроллер для поверхности width x height пикселей
func NewController(width, height float64, onChange ChangeFunc) *Controller {
	return &Controller{
		width:    width,
		height:   height,
		onChange: onChange,
		scale:    1,
	}
}

// SetPlotArea задает область построения внутри поверхности.
// Жесты пересчитываются относительно нее, а не всей поверхности.
func (c *Controller) SetPlotArea(left, top, width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left, c.top = left, top
	c.width, c.height = width, height
}

// State возвращает текущее состояние жеста
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Scale возвращает накопленный масштаб
func (c *Controller) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

// PointerDown начинает панорамирование и запоминает якорь
func (c *Controller) PointerDown(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Panning
	c.startX = x - c.offsetX
	c.startY = y - c.offsetY
}

// PointerMove сдвигает границы на смещение указателя, пересчитанное в единицы данных.
// В состоянии Idle ничего не делает и возвращает false.
func (c *Controller) PointerMove(x, y float64, bounds models.ViewBounds) (models.ViewBounds, bool) {
	c.mu.Lock()
	if c.state != Panning {
		c.mu.Unlock()
		return bounds, false
	}

	newOffsetX := x - c.startX
	newOffsetY := y - c.startY
	deltaX := newOffsetX - c.offsetX
	deltaY := newOffsetY - c.offsetY

	next := bounds
	if rangeX := bounds.RangeX(); rangeX != 0 && c.width > 0 {
		ppuX := c.width / rangeX
		next.MinX = bounds.MinX - deltaX/ppuX
		next.MaxX = bounds.MaxX - deltaX/ppuX
	}
	if rangeY := bounds.RangeY(); rangeY != 0 && c.height > 0 {
		ppuY := c.height / rangeY
		next.MinY = bounds.MinY + deltaY/ppuY
		next.MaxY = bounds.MaxY + deltaY/ppuY
	}

	c.offsetX = newOffsetX
	c.offsetY = newOffsetY
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(next)
	}
	return next, true
}

// PointerUp завершает панорамирование
func (c *Controller) PointerUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
}

// Wheel масштабирует границы вокруг точки данных под курсором так,
// что эта точка остается в той же экранной позиции.
// deltaY > 0 отдаляет (1.1), иначе приближает (0.9).
func (c *Controller) Wheel(x, y, deltaY float64, bounds models.ViewBounds) models.ViewBounds {
	factor := ZoomInFactor
	if deltaY > 0 {
		factor = ZoomOutFactor
	}

	c.mu.Lock()
	xPercent, yPercent := 0.0, 0.0
	if c.width > 0 {
		xPercent = (x - c.left) / c.width
	}
	if c.height > 0 {
		yPercent = (y - c.top) / c.height
	}

	dataX := bounds.MinX + bounds.RangeX()*xPercent
	dataY := bounds.MaxY - bounds.RangeY()*yPercent

	newRangeX := bounds.RangeX() * factor
	newRangeY := bounds.RangeY() * factor

	next := models.ViewBounds{
		MinX: dataX - newRangeX*xPercent,
		MaxX: dataX + newRangeX*(1-xPercent),
		MinY: dataY - newRangeY*(1-yPercent),
		MaxY: dataY + newRangeY*yPercent,
	}
	c.scale *= factor
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(next)
	}
	return next
}

// ScreenToData переводит экранную точку в координаты данных
func (c *Controller) ScreenToData(x, y float64, bounds models.ViewBounds) (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ScreenToData(x-c.left, y-c.top, c.width, c.height, bounds)
}

// DataToScreen переводит точку данных в экранные координаты
func (c *Controller) DataToScreen(dx, dy float64, bounds models.ViewBounds) (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	x, y := DataToScreen(dx, dy, c.width, c.height, bounds)
	return x + c.left, y + c.top
}

// ScreenToData переводит экранную точку в координаты данных для поверхности width x height
func ScreenToData(x, y, width, height float64, b models.ViewBounds) (float64, float64) {
	return b.MinX + b.RangeX()*(x/width), b.MaxY - b.RangeY()*(y/height)
}

// DataToScreen обратное преобразование к ScreenToData
func DataToScreen(dx, dy, width, height float64, b models.ViewBounds) (float64, float64) {
	x := (dx - b.MinX) / b.RangeX() * width
	y := (b.MaxY - dy) / b.RangeY() * height
	return x, y
}
