package models

import (
	"errors"
	"fmt"
	"slices"
)

// Period период агрегации
type Period string

const (
	Period1Min  Period = "1min"
	Period5Min  Period = "5min"
	Period1Hour Period = "1hour"
)

// ErrUnknownPeriod неизвестный период агрегации
var ErrUnknownPeriod = errors.New("unknown aggregation period")

// Millis возвращает длину периода в миллисекундах
func (p Period) Millis() (int64, error) {
	switch p {
	case Period1Min:
		return 60 * 1000, nil
	case Period5Min:
		return 5 * 60 * 1000, nil
	case Period1Hour:
		return 60 * 60 * 1000, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, string(p))
}

// TimeRange временной диапазон в ms epoch, границы включительно
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Duration длительность диапазона в миллисекундах
func (r TimeRange) Duration() int64 {
	return r.End - r.Start
}

// ValueRange диапазон значений, границы включительно
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterConfig конфигурация фильтрации и агрегации.
// Передается по значению, ядро ее не изменяет.
type FilterConfig struct {
	Period     Period     `json:"period"`
	TimeRange  TimeRange  `json:"timeRange"`
	ValueRange ValueRange `json:"valueRange"`
	Categories []Category `json:"categories"`
}

// DefaultTimeWindow окно по умолчанию: последние 5 минут
const DefaultTimeWindow int64 = 5 * 60 * 1000

// DefaultFilterConfig возвращает фильтр по умолчанию относительно момента now (ms)
func DefaultFilterConfig(now int64) FilterConfig {
	return FilterConfig{
		Period:     Period1Min,
		TimeRange:  TimeRange{Start: now - DefaultTimeWindow, End: now},
		ValueRange: ValueRange{Min: 0, Max: 100},
		Categories: AllCategories(),
	}
}

// Validate проверяет конфигурацию
func (c FilterConfig) Validate() error {
	if _, err := c.Period.Millis(); err != nil {
		return err
	}
	if c.TimeRange.End < c.TimeRange.Start {
		return fmt.Errorf("invalid time range: end %d before start %d", c.TimeRange.End, c.TimeRange.Start)
	}
	if c.ValueRange.Max < c.ValueRange.Min {
		return fmt.Errorf("invalid value range: max %.2f below min %.2f", c.ValueRange.Max, c.ValueRange.Min)
	}
	for _, cat := range c.Categories {
		if !cat.Valid() {
			return fmt.Errorf("unknown category %q", string(cat))
		}
	}
	return nil
}

// Clone возвращает копию конфигурации с собственным срезом категорий
func (c FilterConfig) Clone() FilterConfig {
	c.Categories = slices.Clone(c.Categories)
	return c
}

// WithTimeRange возвращает копию конфигурации с новым временным диапазоном
func (c FilterConfig) WithTimeRange(r TimeRange) FilterConfig {
	out := c.Clone()
	out.TimeRange = r
	return out
}
