// Package dashboard связывает генератор, буфер, движок агрегации, графики
// и замер производительности в один работающий контур
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"stream-dashboard/internal/aggregation"
	"stream-dashboard/internal/generator"
	"stream-dashboard/internal/metrics"
	"stream-dashboard/internal/models"
	"stream-dashboard/internal/perf"
	"stream-dashboard/internal/render"
	"stream-dashboard/internal/stream"
	"stream-dashboard/internal/viewport"
)

const (
	// DefaultFrameInterval период кадра (~60 fps)
	DefaultFrameInterval = 16 * time.Millisecond
	// DefaultSeedCount размер начального набора в буфере
	DefaultSeedCount = 100
	// InitialDatasetSize размер набора для /api/data
	InitialDatasetSize = 2000
	// DefaultChartWidth ширина графика в логических пикселях
	DefaultChartWidth = 800
	// DefaultChartHeight высота графика в логических пикселях
	DefaultChartHeight = 400
)

var (
	// ErrAlreadyRunning Run вызван повторно
	ErrAlreadyRunning = errors.New("dashboard already running")
	// ErrNoData для графика еще нет ни границ, ни данных
	ErrNoData = errors.New("no data to derive chart bounds")
	// ErrUnknownAction неизвестное действие указателя
	ErrUnknownAction = errors.New("unknown pointer action")
)

// Действия указателя
const (
	PointerDown = "down"
	PointerMove = "move"
	PointerUp   = "up"
)

// Store внешнее хранилище: зеркало буфера и кэш ряда
type Store interface {
	stream.Sink
	CacheSummary(requestID uint64, series []models.SummaryPoint) error
}

// Config параметры контура
type Config struct {
	BufferSize       int
	SeedCount        int
	WorkerCount      int
	QueueSize        int
	TickInterval     time.Duration
	FrameInterval    time.Duration
	ChartWidth       int
	ChartHeight      int
	DevicePixelRatio float64
	UseOffscreen     bool
	// Capabilities переопределяет render.DetectCapabilities
	Capabilities *render.Capabilities
	// Filters начальные фильтры; nil означает фильтры по умолчанию
	Filters *models.FilterConfig
	// FiltersFile JSON-файл фильтров, перечитывается при изменении
	FiltersFile string
	Store       Store
	Generator   *generator.Generator
	Clock       func() time.Time
	// GCObserver источник пауз GC; nil отключает показатель
	GCObserver *perf.GCObserver
}

// DefaultConfig конфигурация по умолчанию
func DefaultConfig() Config {
	return Config{
		BufferSize:       10000,
		SeedCount:        DefaultSeedCount,
		WorkerCount:      2,
		QueueSize:        16,
		TickInterval:     stream.DefaultTickInterval,
		FrameInterval:    DefaultFrameInterval,
		ChartWidth:       DefaultChartWidth,
		ChartHeight:      DefaultChartHeight,
		DevicePixelRatio: 1,
		UseOffscreen:     true,
	}
}

// Chart график: конвейер отрисовки и контроллер жестов.
// Пока пользователь не сдвинул и не масштабировал график, границы
// следуют за данными.
type Chart struct {
	Kind     render.ChartKind
	Pipeline *render.Pipeline
	Viewport *viewport.Controller

	follow  atomic.Bool
	lastErr atomic.Value
}

// Following true, если границы подстраиваются под данные
func (c *Chart) Following() bool {
	return c.follow.Load()
}

// Dashboard контур обработки и отрисовки потока
type Dashboard struct {
	cfg   Config
	clock func() time.Time

	gen      *generator.Generator
	buffer   *stream.Buffer
	streamer *stream.Streamer
	engine   *aggregation.Engine
	tracker  *aggregation.Tracker
	sampler  *perf.Sampler
	hub      *Hub
	watcher  *FilterWatcher

	charts map[render.ChartKind]*Chart
	order  []render.ChartKind

	filtersMu sync.RWMutex
	filters   models.FilterConfig

	running   atomic.Bool
	closeOnce sync.Once
}

// New создает контур. Недоступная поверхность отрисовки фатальна.
func New(cfg Config) (*Dashboard, error) {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.SeedCount < 0 {
		cfg.SeedCount = 0
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if cfg.ChartWidth == 0 {
		cfg.ChartWidth = def.ChartWidth
	}
	if cfg.ChartHeight == 0 {
		cfg.ChartHeight = def.ChartHeight
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	gen := cfg.Generator
	if gen == nil {
		gen = generator.New(generator.WithClock(clock))
	}

	d := &Dashboard{
		cfg:     cfg,
		clock:   clock,
		gen:     gen,
		buffer:  stream.NewBuffer(cfg.BufferSize),
		engine:  aggregation.NewEngine(cfg.QueueSize),
		tracker: aggregation.NewTracker(),
		hub:     NewHub(DefaultSubscriberBuffer),
		charts:  make(map[render.ChartKind]*Chart),
	}

	d.filters = models.DefaultFilterConfig(clock().UnixMilli())
	if cfg.Filters != nil {
		if err := cfg.Filters.Validate(); err != nil {
			return nil, fmt.Errorf("invalid filters: %w", err)
		}
		d.filters = cfg.Filters.Clone()
	}
	if cfg.FiltersFile != "" {
		if err := d.setupFilterFile(cfg.FiltersFile); err != nil {
			return nil, err
		}
	}

	for _, kind := range render.AllChartKinds() {
		chart, err := d.newChart(kind)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.charts[kind] = chart
		d.order = append(d.order, kind)
	}

	var sink stream.Sink
	if cfg.Store != nil {
		sink = cfg.Store
	}
	d.streamer = stream.NewStreamer(gen, d.buffer, stream.StreamerConfig{
		Interval: cfg.TickInterval,
		Sink:     sink,
		OnTick:   d.onTick,
	})
	if cfg.SeedCount > 0 {
		d.streamer.Seed(cfg.SeedCount)
	}

	d.sampler = perf.NewSampler(perf.Config{
		DataPointCount:       d.buffer.Len,
		WorkerProcessingTime: d.tracker.AverageProcessingMs,
		UsingOffscreen:       d.UsingOffscreen,
		GC:                   cfg.GCObserver,
	}, clock())

	return d, nil
}

func (d *Dashboard) newChart(kind render.ChartKind) (*Chart, error) {
	surface, err := render.NewSurface(render.SurfaceOptions{
		Width:            d.cfg.ChartWidth,
		Height:           d.cfg.ChartHeight,
		DevicePixelRatio: d.cfg.DevicePixelRatio,
		UseOffscreen:     d.cfg.UseOffscreen,
		Capabilities:     d.cfg.Capabilities,
	})
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", kind, err)
	}

	chart := &Chart{
		Kind:     kind,
		Pipeline: render.NewPipeline(kind, surface, render.DefaultChartOptions(kind)),
	}
	chart.follow.Store(true)
	chart.Viewport = viewport.NewController(
		float64(d.cfg.ChartWidth),
		float64(d.cfg.ChartHeight),
		chart.Pipeline.SetBounds,
	)
	chart.Viewport.SetPlotArea(render.PlotRect(kind, d.cfg.ChartWidth, d.cfg.ChartHeight))
	return chart, nil
}

func (d *Dashboard) setupFilterFile(path string) error {
	cfg, err := LoadFilterFile(path, d.Filters())
	switch {
	case err == nil:
		d.setFilters(cfg)
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("Filter file %s does not exist yet, using defaults", path)
	default:
		return err
	}

	w, err := NewFilterWatcher(path, d.Filters, d.SetFilters)
	if err != nil {
		return fmt.Errorf("failed to watch filter file: %w", err)
	}
	d.watcher = w
	return nil
}

// onTick отправляет снимок буфера на агрегацию
func (d *Dashboard) onTick(snapshot []models.Observation) {
	metrics.ObservationsIngested.Inc()
	metrics.BufferSize.Set(float64(len(snapshot)))
	d.submit(snapshot)
}

// submit ставит снимок в очередь с текущими фильтрами.
// Пока поток включен, временной диапазон скользит: конец равен текущему
// моменту, длительность сохраняется.
func (d *Dashboard) submit(snapshot []models.Observation) (uint64, bool) {
	cfg := d.rollFilters()
	id, ok := d.engine.Submit(snapshot, cfg)
	if !ok {
		metrics.AggregationRejected.Inc()
	}
	return id, ok
}

func (d *Dashboard) rollFilters() models.FilterConfig {
	d.filtersMu.Lock()
	defer d.filtersMu.Unlock()

	if d.streamer != nil && d.streamer.Streaming() {
		window := d.filters.TimeRange.Duration()
		if window <= 0 {
			window = models.DefaultTimeWindow
		}
		now := d.clock().UnixMilli()
		d.filters.TimeRange = models.TimeRange{Start: now - window, End: now}
	}
	return d.filters.Clone()
}

// Refresh отправляет текущий буфер на агрегацию вне такта
func (d *Dashboard) Refresh() (uint64, bool) {
	return d.submit(d.buffer.Snapshot())
}

// ApplyResponse применяет ответ воркера. Устаревшие ответы и ошибки не
// меняют показанный ряд. Возвращает true, если ряд обновлен.
func (d *Dashboard) ApplyResponse(resp models.AggregationResponse) bool {
	if !d.tracker.Apply(resp) {
		return false
	}
	series := d.tracker.Series()

	for _, kind := range d.order {
		chart := d.charts[kind]
		if chart.Following() {
			if b, ok := render.ObservedBounds(series); ok {
				chart.Pipeline.SetBounds(b)
			}
		} else {
			chart.Pipeline.SeedBounds(series)
		}
	}

	if d.cfg.Store != nil {
		if err := d.cfg.Store.CacheSummary(resp.ID, series); err != nil {
			log.Printf("Failed to cache summary %d: %v", resp.ID, err)
		}
	}
	d.hub.Publish(Event{Type: EventSummary, RequestID: resp.ID, Data: series})
	return true
}

// RenderFrame отрисовывает все графики по последнему примененному ряду
// и учитывает кадр в замере производительности
func (d *Dashboard) RenderFrame() {
	start := d.clock()
	series := d.tracker.Series()

	for _, kind := range d.order {
		chart := d.charts[kind]
		_, err := chart.Pipeline.Render(series)
		d.reportRenderError(chart, err)
	}

	now := d.clock()
	if d.sampler.Frame(now, now.Sub(start)) {
		metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))
		snap := d.sampler.Snapshot()
		d.hub.Publish(Event{Type: EventPerformance, Performance: &snap})
	}
}

// reportRenderError пишет в лог только смену ошибки, чтобы не повторять
// одно и то же сообщение каждый кадр
func (d *Dashboard) reportRenderError(chart *Chart, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	prev, _ := chart.lastErr.Load().(string)
	if msg == prev {
		return
	}
	chart.lastErr.Store(msg)
	if msg != "" {
		log.Printf("Chart %s render failed: %v", chart.Kind, err)
	}
}

// Run запускает такты, обработку ответов и цикл кадров до отмены контекста
func (d *Dashboard) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	d.engine.Start(d.cfg.WorkerCount)
	defer d.engine.Stop()

	if err := d.sampler.Start(); err != nil {
		log.Printf("GC observation unavailable: %v", err)
	}
	defer d.sampler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.streamer.Run(gctx) })
	g.Go(func() error { return d.resultLoop(gctx) })
	g.Go(func() error { return d.renderLoop(gctx) })
	if d.watcher != nil {
		g.Go(func() error { return d.watcher.Run(gctx) })
	}

	d.Refresh()
	log.Printf("Dashboard started: %d workers, tick %s, frame %s, offscreen %v",
		d.cfg.WorkerCount, d.cfg.TickInterval, d.cfg.FrameInterval, d.UsingOffscreen())

	return g.Wait()
}

func (d *Dashboard) resultLoop(ctx context.Context) error {
	for {
		select {
		case resp := <-d.engine.Results():
			d.ApplyResponse(resp)
		case <-ctx.Done():
			return nil
		}
	}
}

func (d *Dashboard) renderLoop(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.RenderFrame()
		case <-ctx.Done():
			return nil
		}
	}
}

// Close освобождает поверхности графиков и наблюдатель файла фильтров
func (d *Dashboard) Close() {
	d.closeOnce.Do(func() {
		for _, chart := range d.charts {
			if err := chart.Pipeline.Close(); err != nil {
				log.Printf("Failed to close chart %s: %v", chart.Kind, err)
			}
		}
		if d.watcher != nil {
			_ = d.watcher.Close()
		}
	})
}
