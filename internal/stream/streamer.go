package stream

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"stream-dashboard/internal/generator"
	"stream-dashboard/internal/models"
)

const (
	// DefaultTickInterval период генерации точек
	DefaultTickInterval = 100 * time.Millisecond
	// DefaultClearSeed размер набора после очистки
	DefaultClearSeed = 100
)

// Sink получает копию каждого добавленного наблюдения (например, зеркало в Redis)
type Sink interface {
	PushObservation(obs models.Observation, capacity int) error
	ResetObservations(seed []models.Observation, capacity int) error
}

// TickFunc вызывается после каждого такта со снимком буфера
type TickFunc func(snapshot []models.Observation)

// Streamer тактирует генератор и владеет буфером
type Streamer struct {
	gen      *generator.Generator
	buffer   *Buffer
	interval time.Duration
	sink     Sink
	onTick   TickFunc

	streaming atomic.Bool
	ticks     atomic.Int64
	mu        sync.Mutex // сериализует такт и очистку
}

// StreamerConfig параметры Streamer
type StreamerConfig struct {
	Interval time.Duration
	Sink     Sink
	OnTick   TickFunc
}

// NewStreamer создает Streamer; поток включен сразу
func NewStreamer(gen *generator.Generator, buffer *Buffer, cfg StreamerConfig) *Streamer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	s := &Streamer{
		gen:      gen,
		buffer:   buffer,
		interval: cfg.Interval,
		sink:     cfg.Sink,
		onTick:   cfg.OnTick,
	}
	s.streaming.Store(true)
	return s
}

// Buffer возвращает буфер потока
func (s *Streamer) Buffer() *Buffer {
	return s.buffer
}

// Streaming сообщает, идет ли генерация
func (s *Streamer) Streaming() bool {
	return s.streaming.Load()
}

// Pause останавливает генерацию, не очищая буфер
func (s *Streamer) Pause() {
	s.streaming.Store(false)
}

// Resume возобновляет генерацию
func (s *Streamer) Resume() {
	s.streaming.Store(true)
}

// Toggle переключает генерацию и возвращает новое состояние
func (s *Streamer) Toggle() bool {
	for {
		cur := s.streaming.Load()
		if s.streaming.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}

// Ticks возвращает количество выполненных тактов
func (s *Streamer) Ticks() int64 {
	return s.ticks.Load()
}

// Seed заполняет буфер начальным набором данных
func (s *Streamer) Seed(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed := s.gen.InitialDataset(count)
	s.buffer.Clear(seed)
	if s.sink != nil {
		if err := s.sink.ResetObservations(seed, s.buffer.Cap()); err != nil {
			log.Printf("Failed to reset observation mirror: %v", err)
		}
	}
}

// Clear заменяет содержимое буфера новым небольшим набором
func (s *Streamer) Clear(seedCount int) {
	if seedCount <= 0 {
		seedCount = DefaultClearSeed
	}
	s.Seed(seedCount)
	if s.onTick != nil {
		s.onTick(s.buffer.Snapshot())
	}
}

// Tick генерирует одну точку, добавляет ее в буфер и уведомляет подписчика.
// Вызывается циклом Run; доступен напрямую для тестов.
func (s *Streamer) Tick() models.Observation {
	s.mu.Lock()
	var prev *float64
	if last, ok := s.buffer.Last(); ok {
		v := last.Value
		prev = &v
	}
	obs := s.gen.Next(prev)
	s.buffer.Append(obs)
	s.ticks.Add(1)
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.PushObservation(obs, s.buffer.Cap()); err != nil {
			log.Printf("Failed to mirror observation %s: %v", obs.ID, err)
		}
	}
	if s.onTick != nil {
		s.onTick(s.buffer.Snapshot())
	}
	return obs
}

// Run тактирует поток с заданным периодом до отмены контекста.
// На паузе такты пропускаются.
func (s *Streamer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.streaming.Load() {
				s.Tick()
			}
		case <-ctx.Done():
			return nil
		}
	}
}
