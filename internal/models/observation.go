// Package models содержит структуры данных потока наблюдений, фильтров и протоколов
package models

import (
	"fmt"
	"math"
)

// Category категория наблюдения
type Category string

const (
	CategorySensor Category = "sensor"
	CategoryMetric Category = "metric"
	CategoryLog    Category = "log"
)

// AllCategories возвращает все известные категории в каноническом порядке
func AllCategories() []Category {
	return []Category{CategorySensor, CategoryMetric, CategoryLog}
}

// Valid проверяет, что категория известна
func (c Category) Valid() bool {
	switch c {
	case CategorySensor, CategoryMetric, CategoryLog:
		return true
	}
	return false
}

// Metadata дополнительные атрибуты наблюдения
type Metadata struct {
	Unit    string  `json:"unit"`
	Source  string  `json:"source"`
	Quality float64 `json:"quality"`
}

// Observation одно наблюдение временного ряда.
// После создания не изменяется: передается только по значению.
type Observation struct {
	ID        string    `json:"id"`
	Timestamp int64     `json:"timestamp"` // ms epoch
	Value     float64   `json:"value"`
	Category  Category  `json:"category"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// SummaryPoint агрегированная точка: одна на непустой временной интервал.
// Форма совпадает с Observation, Source всегда "aggregated".
type SummaryPoint = Observation

// SourceAggregated источник для агрегированных точек
const SourceAggregated = "aggregated"

// SummaryID формирует идентификатор агрегированной точки
func SummaryID(binTimestamp int64) string {
	return fmt.Sprintf("agg-%d", binTimestamp)
}

// Round2 округляет значение до двух знаков после запятой
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CloneObservations возвращает структурную копию среза наблюдений.
// Metadata копируется глубоко, чтобы копии не разделяли память.
func CloneObservations(src []Observation) []Observation {
	if src == nil {
		return nil
	}
	out := make([]Observation, len(src))
	copy(out, src)
	for i := range out {
		if out[i].Metadata != nil {
			md := *out[i].Metadata
			out[i].Metadata = &md
		}
	}
	return out
}
