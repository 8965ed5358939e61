// Package stream реализует ограниченный буфер наблюдений и тактирование потока
package stream

import (
	"sync"

	"stream-dashboard/internal/models"
)

// DefaultCapacity емкость буфера по умолчанию
const DefaultCapacity = 10000

// Buffer кольцевой буфер последних наблюдений.
// При переполнении вытесняются самые старые (FIFO).
// Читатели получают только копию через Snapshot.
type Buffer struct {
	mu   sync.RWMutex
	buf  []models.Observation
	head int // позиция следующей записи
	size int
}

// NewBuffer создает буфер заданной емкости (<= 0 означает DefaultCapacity)
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		buf: make([]models.Observation, capacity),
	}
}

// Append добавляет наблюдение в конец, вытесняя самое старое при переполнении.
// Возвращает true, если наблюдение было вытеснено.
func (b *Buffer) Append(obs models.Observation) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appendLocked(obs)
}

func (b *Buffer) appendLocked(obs models.Observation) bool {
	evicted := b.size == len(b.buf)
	b.buf[b.head] = obs
	b.head = (b.head + 1) % len(b.buf)
	if !evicted {
		b.size++
	}
	return evicted
}

// Snapshot возвращает копию содержимого в порядке вставки (старые первыми)
func (b *Buffer) Snapshot() []models.Observation {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Observation, b.size)
	start := (b.head - b.size + len(b.buf)) % len(b.buf)
	for i := 0; i < b.size; i++ {
		out[i] = b.buf[(start+i)%len(b.buf)]
		if md := out[i].Metadata; md != nil {
			cp := *md
			out[i].Metadata = &cp
		}
	}
	return out
}

// Latest возвращает копию последних count наблюдений (старые первыми)
func (b *Buffer) Latest(count int) []models.Observation {
	snap := b.Snapshot()
	if count >= 0 && count < len(snap) {
		snap = snap[len(snap)-count:]
	}
	return snap
}

// Last возвращает последнее наблюдение
func (b *Buffer) Last() (models.Observation, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return models.Observation{}, false
	}
	idx := (b.head - 1 + len(b.buf)) % len(b.buf)
	return b.buf[idx], true
}

// Clear заменяет содержимое буфера переданным набором.
// Если набор длиннее емкости, сохраняются последние наблюдения.
func (b *Buffer) Clear(seed []models.Observation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.buf)
	b.head = 0
	b.size = 0
	for _, obs := range seed {
		b.appendLocked(obs)
	}
}

// Len возвращает количество наблюдений в буфере
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap возвращает емкость буфера
func (b *Buffer) Cap() int {
	return len(b.buf)
}
