package models

import "time"

// Типы ответов агрегирующего воркера
const (
	ResponseResult = "result"
	ResponseError  = "error"
)

// AggregationRequest запрос к агрегирующему воркеру
type AggregationRequest struct {
	ID     uint64        `json:"id"`
	Data   []Observation `json:"data"`
	Config FilterConfig  `json:"config"`
}

// AggregationResponse ответ агрегирующего воркера
type AggregationResponse struct {
	ID         uint64         `json:"id"`
	Type       string         `json:"type"`
	Data       []SummaryPoint `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs float64        `json:"durationMs"`
}

// DatasetResponse начальный набор данных
type DatasetResponse struct {
	Data []Observation `json:"data"`
}

// PerformanceSnapshot снимок показателей производительности за последнее окно в 1 с
type PerformanceSnapshot struct {
	CurrentFPS             int      `json:"currentFPS"`
	AverageFPS             int      `json:"averageFPS"`
	FrameRenderTimeMs      float64  `json:"frameRenderTime"`
	MemoryUsageBytes       uint64   `json:"memoryUsage"`
	DataPointCount         int      `json:"dataPointCount"`
	LastUpdate             int64    `json:"lastUpdate"`
	WorkerProcessingTimeMs *float64 `json:"workerProcessingTime,omitempty"`
	UsingOffscreen         *bool    `json:"isUsingOffscreen,omitempty"`
	GCPauseCount           *int64   `json:"gcPauses,omitempty"`
}

// StreamStatus состояние потока
type StreamStatus struct {
	Streaming      bool         `json:"streaming"`
	DataPointCount int          `json:"dataPointCount"`
	Capacity       int          `json:"capacity"`
	Filters        FilterConfig `json:"filters"`
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Redis     string    `json:"redis"`
	Uptime    string    `json:"uptime"`
}

// StatsResponse содержит статистику сервиса
type StatsResponse struct {
	TotalObservations   int64   `json:"total_observations"`
	AggregationPasses   int64   `json:"aggregation_passes"`
	AggregationErrors   int64   `json:"aggregation_errors"`
	StaleResultsDropped int64   `json:"stale_results_dropped"`
	SummaryPoints       int     `json:"summary_points"`
	AverageWorkerTimeMs float64 `json:"average_worker_time_ms"`
	CurrentFPS          int     `json:"current_fps"`
}
