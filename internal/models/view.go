package models

// ViewBounds прямоугольник в координатах данных (время, значение)
type ViewBounds struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
	MaxY float64 `json:"maxY"`
}

// RangeX ширина по оси времени
func (b ViewBounds) RangeX() float64 {
	return b.MaxX - b.MinX
}

// RangeY высота по оси значений
func (b ViewBounds) RangeY() float64 {
	return b.MaxY - b.MinY
}

// IsZero true, если границы не заданы
func (b ViewBounds) IsZero() bool {
	return b == ViewBounds{}
}

// BoundsOf вычисляет наблюдаемый диапазон ряда.
// Для пустого ряда возвращает false.
func BoundsOf(series []SummaryPoint) (ViewBounds, bool) {
	if len(series) == 0 {
		return ViewBounds{}, false
	}
	b := ViewBounds{
		MinX: float64(series[0].Timestamp),
		MaxX: float64(series[0].Timestamp),
		MinY: series[0].Value,
		MaxY: series[0].Value,
	}
	for _, p := range series[1:] {
		ts := float64(p.Timestamp)
		if ts < b.MinX {
			b.MinX = ts
		}
		if ts > b.MaxX {
			b.MaxX = ts
		}
		if p.Value < b.MinY {
			b.MinY = p.Value
		}
		if p.Value > b.MaxY {
			b.MaxY = p.Value
		}
	}
	return b, true
}
