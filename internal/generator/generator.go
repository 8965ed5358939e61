// Package generator генерирует синтетические наблюдения
// Случайное блуждание с возвратом к среднему, значения в [0, 100]
package generator

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"stream-dashboard/internal/models"
)

const (
	// DefaultBaseValue базовое значение, к которому возвращается ряд
	DefaultBaseValue = 50.0
	// DefaultNoiseLevel уровень шума по умолчанию
	DefaultNoiseLevel = 5.0
	// MinNoiseLevel и MaxNoiseLevel допустимые границы уровня шума
	MinNoiseLevel = 0.1
	MaxNoiseLevel = 20.0
	// MeanReversion коэффициент возврата к базовому значению
	MeanReversion = 0.05
	// TrendChangeProbability вероятность смены тренда на каждом шаге
	TrendChangeProbability = 0.02
	// SeedSpread разброс первой точки вокруг базового значения (±)
	SeedSpread = 5.0
	// InitialSpacing шаг по времени для начального набора данных
	InitialSpacing = time.Second
)

// Rand источник случайных чисел; *rand.Rand удовлетворяет интерфейсу
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// State состояние генератора
type State struct {
	BaseValue  float64 `json:"baseValue"`
	Trend      float64 `json:"trend"`
	NoiseLevel float64 `json:"noiseLevel"`
}

// DefaultState возвращает начальное состояние со случайным трендом в [-0.05, 0.05]
func DefaultState(rng Rand) State {
	return State{
		BaseValue:  DefaultBaseValue,
		Trend:      uniform(rng, 0.05),
		NoiseLevel: DefaultNoiseLevel,
	}
}

// uniform возвращает равномерно распределенное число в [-spread, spread]
func uniform(rng Rand, spread float64) float64 {
	return (rng.Float64()*2 - 1) * spread
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Next чистая функция перехода: по состоянию и предыдущему значению
// возвращает новое состояние и наблюдение с меткой времени now.
func Next(state State, previous *float64, rng Rand, now time.Time) (State, models.Observation) {
	var value float64
	if previous == nil {
		value = state.BaseValue + uniform(rng, SeedSpread)
	} else {
		prev := *previous
		noise := uniform(rng, 1) * state.NoiseLevel
		reversion := (state.BaseValue - prev) * MeanReversion
		value = prev + state.Trend + noise + reversion

		if rng.Float64() < TrendChangeProbability {
			state.Trend = uniform(rng, 0.1)
		}
	}

	value = models.Round2(clamp(value, 0, 100))
	categories := models.AllCategories()
	ts := now.UnixMilli()

	return state, models.Observation{
		ID:        fmt.Sprintf("point-%d-%s", ts, uuid.NewString()),
		Timestamp: ts,
		Value:     value,
		Category:  categories[rng.IntN(len(categories))],
		Metadata: &models.Metadata{
			Unit:    "units",
			Source:  "simulator",
			Quality: 0.95 + rng.Float64()*0.05,
		},
	}
}

// Generator хранит состояние генератора и источник случайности.
// Безопасен для конкурентного использования.
type Generator struct {
	mu    sync.Mutex
	state State
	rng   Rand
	now   func() time.Time
}

// Option настраивает Generator
type Option func(*Generator)

// WithRand задает источник случайных чисел
func WithRand(rng Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// WithClock задает часы
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New создает генератор
func New(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.state = DefaultState(g.rng)
	return g
}

// State возвращает копию текущего состояния
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Next генерирует следующее наблюдение
func (g *Generator) Next(previous *float64) models.Observation {
	g.mu.Lock()
	defer g.mu.Unlock()

	var obs models.Observation
	g.state, obs = Next(g.state, previous, g.rng, g.now())
	return obs
}

// InitialDataset генерирует count точек в хронологическом порядке.
// Метки времени сдвигаются назад с шагом в 1 с, последняя точка равна текущему моменту.
func (g *Generator) InitialDataset(count int) []models.Observation {
	if count <= 0 {
		return []models.Observation{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	data := make([]models.Observation, 0, count)
	var last *float64
	for i := count - 1; i >= 0; i-- {
		var obs models.Observation
		g.state, obs = Next(g.state, last, g.rng, now.Add(-time.Duration(i)*InitialSpacing))
		data = append(data, obs)
		v := obs.Value
		last = &v
	}
	return data
}

// SetNoiseLevel задает уровень шума, ограниченный [0.1, 20]
func (g *Generator) SetNoiseLevel(level float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.NoiseLevel = clamp(level, MinNoiseLevel, MaxNoiseLevel)
	return g.state.NoiseLevel
}

// Reset возвращает генератор в начальное состояние
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = DefaultState(g.rng)
}
