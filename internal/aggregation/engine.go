package aggregation

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"stream-dashboard/internal/metrics"
	"stream-dashboard/internal/models"
)

// AggregateFunc сигнатура функции агрегации, выполняемой воркером
type AggregateFunc func([]models.Observation, models.FilterConfig) ([]models.SummaryPoint, error)

// Engine пул воркеров агрегации.
// Запросы и ответы передаются через каналы, данные копируются на границе,
// поэтому воркеры не разделяют память с вызывающей стороной.
// Отмены нет: принятый запрос всегда завершается и выдает ответ.
// Ответы приходят в порядке завершения, а не отправки; порядок
// восстанавливает Tracker по ID запроса.
type Engine struct {
	requests  chan models.AggregationRequest
	results   chan models.AggregationResponse
	stopChan  chan struct{}
	wg        sync.WaitGroup
	aggregate AggregateFunc

	nextID   atomic.Uint64
	passes   atomic.Int64
	failures atomic.Int64
	rejected atomic.Int64
}

// NewEngine создает движок агрегации с очередями заданного размера
func NewEngine(bufferSize int) *Engine {
	return NewEngineWithFunc(bufferSize, Aggregate)
}

// NewEngineWithFunc создает движок с произвольной функцией агрегации
func NewEngineWithFunc(bufferSize int, fn AggregateFunc) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		requests:  make(chan models.AggregationRequest, bufferSize),
		results:   make(chan models.AggregationResponse, bufferSize),
		stopChan:  make(chan struct{}),
		aggregate: fn,
	}
}

// Start запускает горутины воркеров
func (e *Engine) Start(numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
}

// worker горутина обработки запросов
func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case req := <-e.requests:
			resp := e.Process(req)
			select {
			case e.results <- resp:
			case <-e.stopChan:
				return
			}
		case <-e.stopChan:
			return
		}
	}
}

// Process выполняет один проход агрегации в границе ошибок.
// Паника и ошибка превращаются в ответ с типом "error".
func (e *Engine) Process(req models.AggregationRequest) (resp models.AggregationResponse) {
	start := time.Now()
	resp.ID = req.ID

	defer func() {
		if r := recover(); r != nil {
			resp.Type = models.ResponseError
			resp.Data = nil
			resp.Error = fmt.Sprintf("aggregation panic: %v", r)
		}
		elapsed := time.Since(start)
		resp.DurationMs = float64(elapsed.Microseconds()) / 1000

		e.passes.Add(1)
		metrics.AggregationPasses.Inc()
		metrics.AggregationLatency.Observe(elapsed.Seconds())
		if resp.Type == models.ResponseError {
			e.failures.Add(1)
			metrics.AggregationErrors.Inc()
		}
	}()

	data, err := e.aggregate(req.Data, req.Config)
	if err != nil {
		resp.Type = models.ResponseError
		resp.Error = err.Error()
		return resp
	}
	resp.Type = models.ResponseResult
	resp.Data = data
	return resp
}

// Submit ставит запрос в очередь без блокировки.
// Данные и конфигурация копируются. Возвращает ID запроса и false,
// если очередь переполнена.
func (e *Engine) Submit(data []models.Observation, cfg models.FilterConfig) (uint64, bool) {
	req := models.AggregationRequest{
		ID:     e.nextID.Add(1),
		Data:   models.CloneObservations(data),
		Config: cfg.Clone(),
	}
	select {
	case e.requests <- req:
		return req.ID, true
	default:
		e.rejected.Add(1)
		return req.ID, false
	}
}

// Results возвращает канал ответов
func (e *Engine) Results() <-chan models.AggregationResponse {
	return e.results
}

// Stats возвращает число выполненных проходов, ошибок и отклоненных запросов
func (e *Engine) Stats() (passes, failures, rejected int64) {
	return e.passes.Load(), e.failures.Load(), e.rejected.Load()
}

// Stop останавливает воркеры
func (e *Engine) Stop() {
	close(e.stopChan)
	e.wg.Wait()
}
