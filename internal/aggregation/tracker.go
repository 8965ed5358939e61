package aggregation

import (
	"log"
	"sync"

	"stream-dashboard/internal/analytics"
	"stream-dashboard/internal/metrics"
	"stream-dashboard/internal/models"
)

// TimingWindow число замеров для среднего времени обработки
const TimingWindow = 60

// Tracker хранит последний примененный ряд и отбрасывает устаревшие ответы.
// Ответ с ID меньше или равным последнему примененному не применяется.
// Ответ с ошибкой оставляет на экране предыдущий ряд.
type Tracker struct {
	mu          sync.RWMutex
	lastApplied uint64
	series      []models.SummaryPoint
	lastError   string
	timings     *analytics.SlidingWindow

	applied int64
	stale   int64
	errors  int64
}

// NewTracker создает Tracker
func NewTracker() *Tracker {
	return &Tracker{
		series:  []models.SummaryPoint{},
		timings: analytics.NewSlidingWindow(TimingWindow),
	}
}

// Apply обрабатывает ответ воркера. Возвращает true, если ряд обновлен.
func (t *Tracker) Apply(resp models.AggregationResponse) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.timings.Add(resp.DurationMs)

	if resp.Type == models.ResponseError {
		t.errors++
		t.lastError = resp.Error
		log.Printf("Aggregation request %d failed: %s", resp.ID, resp.Error)
		return false
	}

	if resp.ID <= t.lastApplied {
		t.stale++
		metrics.StaleResultsDropped.Inc()
		return false
	}

	t.lastApplied = resp.ID
	t.series = resp.Data
	if t.series == nil {
		t.series = []models.SummaryPoint{}
	}
	t.applied++
	metrics.SummaryPoints.Set(float64(len(t.series)))
	return true
}

// Series возвращает последний примененный ряд.
// Ряд не изменяется после создания, поэтому копия не делается.
func (t *Tracker) Series() []models.SummaryPoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.series
}

// LastApplied возвращает ID последнего примененного ответа
func (t *Tracker) LastApplied() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastApplied
}

// LastError возвращает текст последней ошибки агрегации
func (t *Tracker) LastError() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastError
}

// AverageProcessingMs возвращает среднее время обработки по последним ответам
func (t *Tracker) AverageProcessingMs() (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.timings.Count() == 0 {
		return 0, false
	}
	return t.timings.Mean(), true
}

// Counts возвращает число примененных, устаревших и ошибочных ответов
func (t *Tracker) Counts() (applied, stale, errors int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.applied, t.stale, t.errors
}
