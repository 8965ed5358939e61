// Package metrics реализует экспорт метрик в Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"stream-dashboard/internal/models"
)

// Prometheus метрики
var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint", "method"},
	)

	// ObservationsIngested количество сгенерированных наблюдений
	ObservationsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_observations_ingested_total",
			Help: "Total number of observations appended to the stream buffer",
		},
	)

	// BufferSize текущий размер буфера
	BufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_buffer_size",
			Help: "Number of observations in the stream buffer",
		},
	)

	// AggregationPasses количество проходов агрегации
	AggregationPasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_aggregation_passes_total",
			Help: "Total number of aggregation passes",
		},
	)

	// AggregationErrors количество ошибок агрегации
	AggregationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_aggregation_errors_total",
			Help: "Total number of failed aggregation passes",
		},
	)

	// AggregationRejected запросы, не принятые из-за переполненной очереди
	AggregationRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_aggregation_rejected_total",
			Help: "Aggregation requests rejected because the queue was full",
		},
	)

	// AggregationLatency время выполнения агрегации
	AggregationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_aggregation_latency_seconds",
			Help:    "Aggregation computation latency in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
		},
	)

	// StaleResultsDropped ответы, отброшенные как устаревшие
	StaleResultsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_stale_results_dropped_total",
			Help: "Aggregation results dropped because a newer result was already applied",
		},
	)

	// SummaryPoints размер текущего агрегированного ряда
	SummaryPoints = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_summary_points",
			Help: "Number of points in the applied summary series",
		},
	)

	// CurrentFPS текущий FPS
	CurrentFPS = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_current_fps",
			Help: "Frames rendered in the last one-second window",
		},
	)

	// AverageFPS скользящее среднее FPS
	AverageFPS = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_average_fps",
			Help: "Rolling average FPS over the last 60 windows",
		},
	)

	// FrameRenderTime длительность кадра
	FrameRenderTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_frame_render_seconds",
			Help:    "Time spent rendering all charts for one frame",
			Buckets: []float64{.001, .002, .004, .008, .0167, .033, .066, .1},
		},
	)

	// RenderCommands количество команд отрисовки по типу графика
	RenderCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_render_commands_total",
			Help: "Draw commands submitted per chart kind",
		},
		[]string{"chart"},
	)

	// MemoryUsage используемая память кучи
	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_memory_usage_bytes",
			Help: "Heap bytes in use",
		},
	)

	// GCPauses количество пауз GC
	GCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_gc_pauses_total",
			Help: "Garbage collection pauses observed by the sampler",
		},
	)

	// CacheHits успешные записи в кэш
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_cache_hits_total",
			Help: "Total number of successful cache operations",
		},
	)

	// CacheMisses неудачные операции с кэшем
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_cache_misses_total",
			Help: "Total number of failed cache operations",
		},
	)

	// WebsocketClients количество подписчиков /ws
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_websocket_clients",
			Help: "Number of connected websocket subscribers",
		},
	)

	// ActiveGoroutines количество активных горутин
	ActiveGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_active_goroutines",
			Help: "Number of active goroutines",
		},
	)
)

// UpdatePerformanceMetrics обновляет метрики по снимку производительности
func UpdatePerformanceMetrics(s models.PerformanceSnapshot) {
	CurrentFPS.Set(float64(s.CurrentFPS))
	AverageFPS.Set(float64(s.AverageFPS))
	MemoryUsage.Set(float64(s.MemoryUsageBytes))
	BufferSize.Set(float64(s.DataPointCount))
}
