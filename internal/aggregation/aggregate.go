// Package aggregation фильтрует наблюдения и агрегирует их по временным интервалам
// Агрегация выполняется пулом воркеров и не блокирует цикл отрисовки
package aggregation

import (
	"slices"

	"stream-dashboard/internal/models"
)

// DefaultUnit единица измерения, если у первой точки интервала нет метаданных
const DefaultUnit = "units"

type categoryCount struct {
	category models.Category
	count    int
}

// bin накапливает статистику одного временного интервала
type bin struct {
	key        int64
	sum        float64
	count      int
	qualitySum float64
	unit       string
	categories []categoryCount // порядок первого появления
}

func (b *bin) add(obs models.Observation) {
	b.sum += obs.Value
	b.count++

	// Отсутствующее или нулевое качество считается полным
	quality := 1.0
	if obs.Metadata != nil && obs.Metadata.Quality != 0 {
		quality = obs.Metadata.Quality
	}
	b.qualitySum += quality

	for i := range b.categories {
		if b.categories[i].category == obs.Category {
			b.categories[i].count++
			return
		}
	}
	b.categories = append(b.categories, categoryCount{category: obs.Category, count: 1})
}

// dominant возвращает категорию с наибольшим счетчиком.
// При равенстве побеждает категория, встретившаяся раньше.
func (b *bin) dominant() models.Category {
	best := b.categories[0]
	for _, c := range b.categories[1:] {
		if c.count > best.count {
			best = c
		}
	}
	return best.category
}

func (b *bin) summary() models.SummaryPoint {
	return models.SummaryPoint{
		ID:        models.SummaryID(b.key),
		Timestamp: b.key,
		Value:     models.Round2(b.sum / float64(b.count)),
		Category:  b.dominant(),
		Metadata: &models.Metadata{
			Unit:    b.unit,
			Source:  models.SourceAggregated,
			Quality: b.qualitySum / float64(b.count),
		},
	}
}

// BinKey возвращает начало интервала: floor(ts / period) * period
func BinKey(timestamp, periodMs int64) int64 {
	q := timestamp / periodMs
	if timestamp%periodMs != 0 && timestamp < 0 {
		q--
	}
	return q * periodMs
}

// Matches проверяет, проходит ли наблюдение фильтр (границы включительно)
func Matches(obs models.Observation, cfg models.FilterConfig) bool {
	if obs.Timestamp < cfg.TimeRange.Start || obs.Timestamp > cfg.TimeRange.End {
		return false
	}
	if obs.Value < cfg.ValueRange.Min || obs.Value > cfg.ValueRange.Max {
		return false
	}
	return slices.Contains(cfg.Categories, obs.Category)
}

// Aggregate фильтрует наблюдения и сводит их в точки по интервалам cfg.Period.
// Чистая функция: результат зависит только от аргументов.
// Пустой результат фильтрации дает пустой срез, а не ошибку.
func Aggregate(observations []models.Observation, cfg models.FilterConfig) ([]models.SummaryPoint, error) {
	periodMs, err := cfg.Period.Millis()
	if err != nil {
		return nil, err
	}

	bins := make(map[int64]*bin)
	for _, obs := range observations {
		if !Matches(obs, cfg) {
			continue
		}

		key := BinKey(obs.Timestamp, periodMs)
		b, ok := bins[key]
		if !ok {
			unit := DefaultUnit
			if obs.Metadata != nil && obs.Metadata.Unit != "" {
				unit = obs.Metadata.Unit
			}
			b = &bin{key: key, unit: unit}
			bins[key] = b
		}
		b.add(obs)
	}

	out := make([]models.SummaryPoint, 0, len(bins))
	if len(bins) == 0 {
		return out, nil
	}
	for _, b := range bins {
		out = append(out, b.summary())
	}
	slices.SortFunc(out, func(a, b models.SummaryPoint) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	return out, nil
}
