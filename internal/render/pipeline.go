package render

import (
	"errors"
	"fmt"
	"sync"

	"stream-dashboard/internal/metrics"
	"stream-dashboard/internal/models"
)

// ChartKind тип графика
type ChartKind string

const (
	KindLine    ChartKind = "line"
	KindBar     ChartKind = "bar"
	KindScatter ChartKind = "scatter"
	KindHeatmap ChartKind = "heatmap"
)

// ErrUnknownChartKind неизвестный тип графика
var ErrUnknownChartKind = errors.New("unknown chart kind")

// DefaultTimeWindowMs минимальное временное окно для ряда из одной точки (5 минут)
const DefaultTimeWindowMs = 5 * 60 * 1000

// AllChartKinds все поддерживаемые типы в порядке отображения
func AllChartKinds() []ChartKind {
	return []ChartKind{KindLine, KindBar, KindScatter, KindHeatmap}
}

// ParseChartKind разбирает имя типа графика
func ParseChartKind(s string) (ChartKind, error) {
	for _, k := range AllChartKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChartKind, s)
}

// ChartOptions параметры оформления графика
type ChartOptions struct {
	Color       string
	LineWidth   float64
	PointSize   float64
	HeatmapCols int
	HeatmapRows int
}

// DefaultChartOptions оформление по умолчанию для типа графика
func DefaultChartOptions(kind ChartKind) ChartOptions {
	opts := ChartOptions{
		LineWidth:   2,
		PointSize:   4,
		HeatmapCols: DefaultHeatmapCols,
		HeatmapRows: DefaultHeatmapRows,
	}
	switch kind {
	case KindLine:
		opts.Color = "#3b82f6"
	case KindBar:
		opts.Color = "#8b5cf6"
	case KindScatter:
		opts.Color = "#06b6d4"
	}
	return opts
}

// Pipeline строит команды для одного графика по текущим границам
// и передает их поверхности
type Pipeline struct {
	kind    ChartKind
	surface Surface
	opts    ChartOptions

	mu     sync.RWMutex
	bounds models.ViewBounds
	seeded bool
}

// NewPipeline создает конвейер отрисовки графика kind над surface
func NewPipeline(kind ChartKind, surface Surface, opts ChartOptions) *Pipeline {
	return &Pipeline{
		kind:    kind,
		surface: surface,
		opts:    opts,
	}
}

// Kind тип графика
func (p *Pipeline) Kind() ChartKind { return p.kind }

// Surface поверхность отрисовки
func (p *Pipeline) Surface() Surface { return p.surface }

// Bounds текущие границы; false, если границы еще не заданы
func (p *Pipeline) Bounds() (models.ViewBounds, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bounds, p.seeded
}

// SetBounds задает границы (панорамирование, масштаб)
func (p *Pipeline) SetBounds(b models.ViewBounds) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bounds = b
	p.seeded = true
}

// ResetBounds сбрасывает границы; следующий SeedBounds возьмет их из данных
func (p *Pipeline) ResetBounds() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bounds = models.ViewBounds{}
	p.seeded = false
}

// SeedBounds задает границы по наблюдаемому диапазону ряда, если они еще не заданы.
// Возвращает true, если границы были установлены этим вызовом.
func (p *Pipeline) SeedBounds(series []models.SummaryPoint) bool {
	b, ok := ObservedBounds(series)
	if !ok {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seeded {
		return false
	}
	p.bounds = b
	p.seeded = true
	return true
}

// ObservedBounds диапазон ряда; нулевая ширина по времени расширяется
// до 5 минут назад, нулевая высота до ±1
func ObservedBounds(series []models.SummaryPoint) (models.ViewBounds, bool) {
	b, ok := models.BoundsOf(series)
	if !ok {
		return b, false
	}
	if b.RangeX() == 0 {
		b.MinX = b.MaxX - DefaultTimeWindowMs
	}
	if b.RangeY() == 0 {
		b.MinY--
		b.MaxY++
	}
	return b, true
}

// Build строит команды для ряда по текущим границам
func (p *Pipeline) Build(series []models.SummaryPoint) []Command {
	b, ok := p.Bounds()
	if !ok {
		b, _ = ObservedBounds(series)
	}
	w, h := p.surface.Width(), p.surface.Height()

	switch p.kind {
	case KindLine:
		return buildLine(series, b, w, h, p.opts)
	case KindBar:
		return buildBar(series, w, h, p.opts)
	case KindScatter:
		return buildScatter(series, b, w, h, p.opts)
	case KindHeatmap:
		return buildHeatmap(series, b, w, h, p.opts)
	}
	return []Command{}
}

// Render строит и передает команды поверхности; возвращает число команд
func (p *Pipeline) Render(series []models.SummaryPoint) (int, error) {
	cmds := p.Build(series)
	if err := p.surface.Submit(cmds); err != nil {
		return 0, fmt.Errorf("render %s: %w", p.kind, err)
	}
	metrics.RenderCommands.WithLabelValues(string(p.kind)).Add(float64(len(cmds)))
	return len(cmds), nil
}

// Close освобождает поверхность
func (p *Pipeline) Close() error {
	return p.surface.Close()
}
