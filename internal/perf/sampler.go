// Package perf считает FPS, время кадра, память и паузы GC для панели производительности
package perf

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"stream-dashboard/internal/analytics"
	"stream-dashboard/internal/metrics"
	"stream-dashboard/internal/models"
)

const (
	// FPSWindow длительность окна подсчета кадров
	FPSWindow = time.Second
	// HistorySize число окон в скользящем среднем FPS
	HistorySize = 60
	// InitialFPS значение до закрытия первого окна
	InitialFPS = 60
)

// Config источники данных для снимка. Nil-поля означают, что показатель
// недоступен и в снимок не попадает.
type Config struct {
	DataPointCount       func() int
	WorkerProcessingTime func() (float64, bool)
	UsingOffscreen       func() bool
	GC                   *GCObserver
	ReadMemStats         func(*runtime.MemStats)
}

// Sampler вызывается один раз за кадр и раз в секунду обновляет снимок
type Sampler struct {
	cfg Config

	mu          sync.RWMutex
	windowStart time.Time
	frames      int
	history     *analytics.SlidingWindow
	snapshot    models.PerformanceSnapshot

	gcPauses atomic.Int64
}

// NewSampler создает Sampler; первое окно начинается в now
func NewSampler(cfg Config, now time.Time) *Sampler {
	if cfg.ReadMemStats == nil {
		cfg.ReadMemStats = runtime.ReadMemStats
	}
	return &Sampler{
		cfg:         cfg,
		windowStart: now,
		history:     analytics.NewSlidingWindow(HistorySize),
		snapshot: models.PerformanceSnapshot{
			CurrentFPS: InitialFPS,
			AverageFPS: InitialFPS,
			LastUpdate: now.UnixMilli(),
		},
	}
}

// Start подписывается на паузы GC, если наблюдатель доступен
func (s *Sampler) Start() error {
	if s.cfg.GC == nil {
		return nil
	}
	return s.cfg.GC.Start(func(time.Duration) {
		s.gcPauses.Add(1)
		metrics.GCPauses.Inc()
	})
}

// Stop отписывается от пауз GC
func (s *Sampler) Stop() {
	if s.cfg.GC != nil {
		s.cfg.GC.Stop()
	}
}

// Frame учитывает кадр, отрисованный за renderTime.
// Возвращает true, если этим кадром закрылось окно и снимок обновлен.
func (s *Sampler) Frame(now time.Time, renderTime time.Duration) bool {
	metrics.FrameRenderTime.Observe(renderTime.Seconds())

	s.mu.Lock()
	s.frames++
	elapsed := now.Sub(s.windowStart)
	if elapsed < FPSWindow {
		s.mu.Unlock()
		return false
	}

	elapsedMs := float64(elapsed) / float64(time.Millisecond)
	fps := int(math.Round(float64(s.frames) * 1000 / elapsedMs))
	s.history.Add(float64(fps))

	snap := models.PerformanceSnapshot{
		CurrentFPS:        fps,
		AverageFPS:        int(math.Round(s.history.Mean())),
		FrameRenderTimeMs: float64(renderTime) / float64(time.Millisecond),
		MemoryUsageBytes:  s.heapBytes(),
		LastUpdate:        now.UnixMilli(),
	}
	if s.cfg.DataPointCount != nil {
		snap.DataPointCount = s.cfg.DataPointCount()
	}
	if s.cfg.WorkerProcessingTime != nil {
		if ms, ok := s.cfg.WorkerProcessingTime(); ok {
			snap.WorkerProcessingTimeMs = &ms
		}
	}
	if s.cfg.UsingOffscreen != nil {
		offscreen := s.cfg.UsingOffscreen()
		snap.UsingOffscreen = &offscreen
	}
	if s.cfg.GC != nil {
		pauses := s.gcPauses.Load()
		snap.GCPauseCount = &pauses
	}

	s.snapshot = snap
	s.frames = 0
	s.windowStart = now
	s.mu.Unlock()

	metrics.UpdatePerformanceMetrics(snap)
	return true
}

func (s *Sampler) heapBytes() uint64 {
	var ms runtime.MemStats
	s.cfg.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Snapshot последний снимок
func (s *Sampler) Snapshot() models.PerformanceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// History значения FPS закрытых окон, старые первыми
func (s *Sampler) History() []int {
	s.mu.RLock()
	values := s.history.Values()
	s.mu.RUnlock()

	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}

// GCPauses число пауз GC с момента Start
func (s *Sampler) GCPauses() int64 {
	return s.gcPauses.Load()
}
