package dashboard

import (
	"sync"
	"sync/atomic"

	"stream-dashboard/internal/models"
)

// Типы событий для подписчиков
const (
	EventSummary     = "summary"
	EventPerformance = "performance"
)

// Event событие для подписчиков (websocket)
type Event struct {
	Type        string                      `json:"type"`
	RequestID   uint64                      `json:"requestId,omitempty"`
	Data        []models.SummaryPoint       `json:"data,omitempty"`
	Performance *models.PerformanceSnapshot `json:"performance,omitempty"`
}

// DefaultSubscriberBuffer размер очереди подписчика
const DefaultSubscriberBuffer = 16

// Hub рассылает события подписчикам без блокировки:
// если очередь подписчика заполнена, событие для него отбрасывается
type Hub struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	buffer  int
	dropped atomic.Int64
}

// NewHub создает Hub с очередью buffer событий на подписчика
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[chan Event]struct{}),
		buffer: buffer,
	}
}

// Subscribe регистрирует подписчика. Возвращенная функция отписывает его
// и закрывает канал; повторный вызов безопасен.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish отправляет событие всем подписчикам
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Len число подписчиков
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped число отброшенных событий
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
