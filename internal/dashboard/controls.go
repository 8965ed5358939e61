package dashboard

import (
	"fmt"
	"image/png"
	"io"

	"stream-dashboard/internal/aggregation"
	"stream-dashboard/internal/generator"
	"stream-dashboard/internal/models"
	"stream-dashboard/internal/perf"
	"stream-dashboard/internal/render"
	"stream-dashboard/internal/stream"
)

// Generator генератор точек
func (d *Dashboard) Generator() *generator.Generator { return d.gen }

// Buffer буфер потока
func (d *Dashboard) Buffer() *stream.Buffer { return d.buffer }

// Streamer тактирующий поток
func (d *Dashboard) Streamer() *stream.Streamer { return d.streamer }

// Engine движок агрегации
func (d *Dashboard) Engine() *aggregation.Engine { return d.engine }

// Tracker последний примененный ряд
func (d *Dashboard) Tracker() *aggregation.Tracker { return d.tracker }

// Sampler замер производительности
func (d *Dashboard) Sampler() *perf.Sampler { return d.sampler }

// Hub рассылка событий
func (d *Dashboard) Hub() *Hub { return d.hub }

// Filters текущая конфигурация фильтров
func (d *Dashboard) Filters() models.FilterConfig {
	d.filtersMu.RLock()
	defer d.filtersMu.RUnlock()
	return d.filters.Clone()
}

// SetFilters проверяет и применяет новую конфигурацию, затем сразу
// отправляет буфер на агрегацию
func (d *Dashboard) SetFilters(cfg models.FilterConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.setFilters(cfg)
	d.Refresh()
	return nil
}

func (d *Dashboard) setFilters(cfg models.FilterConfig) {
	d.filtersMu.Lock()
	defer d.filtersMu.Unlock()
	d.filters = cfg.Clone()
}

// ToggleStreaming переключает поток; возвращает новое состояние
func (d *Dashboard) ToggleStreaming() bool {
	return d.streamer.Toggle()
}

// SetStreaming включает или выключает поток
func (d *Dashboard) SetStreaming(on bool) {
	if on {
		d.streamer.Resume()
	} else {
		d.streamer.Pause()
	}
}

// Clear заменяет буфер новым набором из seed точек
func (d *Dashboard) Clear(seed int) {
	d.streamer.Clear(seed)
}

// InitialDataset новый набор из count точек, не затрагивающий буфер
func (d *Dashboard) InitialDataset(count int) []models.Observation {
	if count <= 0 {
		count = InitialDatasetSize
	}
	return d.gen.InitialDataset(count)
}

// SetNoiseLevel задает уровень шума генератора; возвращает примененное значение
func (d *Dashboard) SetNoiseLevel(level float64) float64 {
	return d.gen.SetNoiseLevel(level)
}

// Summary последний примененный ряд и ID его запроса
func (d *Dashboard) Summary() ([]models.SummaryPoint, uint64) {
	return d.tracker.Series(), d.tracker.LastApplied()
}

// Status состояние потока
func (d *Dashboard) Status() models.StreamStatus {
	return models.StreamStatus{
		Streaming:      d.streamer.Streaming(),
		DataPointCount: d.buffer.Len(),
		Capacity:       d.buffer.Cap(),
		Filters:        d.Filters(),
	}
}

// Performance последний снимок производительности
func (d *Dashboard) Performance() models.PerformanceSnapshot {
	return d.sampler.Snapshot()
}

// FPSHistory FPS последних окон для спарклайна панели
func (d *Dashboard) FPSHistory() []int {
	return d.sampler.History()
}

// UsingOffscreen true, если все графики рисуются в отдельных воркерах
func (d *Dashboard) UsingOffscreen() bool {
	if len(d.charts) == 0 {
		return false
	}
	for _, chart := range d.charts {
		if chart.Pipeline.Surface().Mode() != render.ModeOffscreen {
			return false
		}
	}
	return true
}

// Stats сводная статистика
func (d *Dashboard) Stats() models.StatsResponse {
	passes, failures, _ := d.engine.Stats()
	_, stale, _ := d.tracker.Counts()
	avg, _ := d.tracker.AverageProcessingMs()
	return models.StatsResponse{
		TotalObservations:   d.streamer.Ticks(),
		AggregationPasses:   passes,
		AggregationErrors:   failures,
		StaleResultsDropped: stale,
		SummaryPoints:       len(d.tracker.Series()),
		AverageWorkerTimeMs: avg,
		CurrentFPS:          d.sampler.Snapshot().CurrentFPS,
	}
}

// Chart возвращает график по типу
func (d *Dashboard) Chart(kind render.ChartKind) (*Chart, error) {
	chart, ok := d.charts[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", render.ErrUnknownChartKind, string(kind))
	}
	return chart, nil
}

// Charts графики в порядке отображения
func (d *Dashboard) Charts() []*Chart {
	out := make([]*Chart, 0, len(d.order))
	for _, kind := range d.order {
		out = append(out, d.charts[kind])
	}
	return out
}

// currentBounds границы графика; если они не заданы, берутся из ряда
func (d *Dashboard) currentBounds(chart *Chart) (models.ViewBounds, error) {
	if b, ok := chart.Pipeline.Bounds(); ok {
		return b, nil
	}
	if b, ok := render.ObservedBounds(d.tracker.Series()); ok {
		return b, nil
	}
	return models.ViewBounds{}, ErrNoData
}

// ChartBounds текущие границы графика
func (d *Dashboard) ChartBounds(kind render.ChartKind) (models.ViewBounds, error) {
	chart, err := d.Chart(kind)
	if err != nil {
		return models.ViewBounds{}, err
	}
	return d.currentBounds(chart)
}

// Pointer передает событие указателя контроллеру графика.
// Любой жест отключает следование границ за данными.
func (d *Dashboard) Pointer(kind render.ChartKind, action string, x, y float64) (models.ViewBounds, error) {
	chart, err := d.Chart(kind)
	if err != nil {
		return models.ViewBounds{}, err
	}

	switch action {
	case PointerDown:
		chart.follow.Store(false)
		chart.Viewport.PointerDown(x, y)
	case PointerMove:
		b, err := d.currentBounds(chart)
		if err != nil {
			return models.ViewBounds{}, err
		}
		next, _ := chart.Viewport.PointerMove(x, y, b)
		return next, nil
	case PointerUp:
		chart.Viewport.PointerUp()
	default:
		return models.ViewBounds{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	b, _ := d.currentBounds(chart)
	return b, nil
}

// Wheel масштабирует график вокруг точки под курсором
func (d *Dashboard) Wheel(kind render.ChartKind, x, y, deltaY float64) (models.ViewBounds, error) {
	chart, err := d.Chart(kind)
	if err != nil {
		return models.ViewBounds{}, err
	}
	b, err := d.currentBounds(chart)
	if err != nil {
		return models.ViewBounds{}, err
	}
	chart.follow.Store(false)
	return chart.Viewport.Wheel(x, y, deltaY, b), nil
}

// ResetView возвращает график к границам по данным
func (d *Dashboard) ResetView(kind render.ChartKind) error {
	chart, err := d.Chart(kind)
	if err != nil {
		return err
	}
	chart.Pipeline.ResetBounds()
	chart.follow.Store(true)
	chart.Pipeline.SeedBounds(d.tracker.Series())
	return nil
}

// WriteChartPNG записывает последний кадр графика в PNG
func (d *Dashboard) WriteChartPNG(kind render.ChartKind, w io.Writer) error {
	chart, err := d.Chart(kind)
	if err != nil {
		return err
	}
	img, err := chart.Pipeline.Surface().Snapshot()
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
