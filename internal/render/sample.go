package render

// Stride возвращает индексы выборки с фиксированным шагом
// step = max(1, floor(n/limit)). Выборка детерминирована: одинаковые n и
// limit всегда дают один и тот же набор индексов.
func Stride(n, limit int) []int {
	return strideWithStep(n, StrideStep(n, limit))
}

// StrideStep шаг выборки floor(n/limit), не меньше 1
func StrideStep(n, limit int) int {
	if n <= 0 || limit <= 0 {
		return 1
	}
	return max(1, n/limit)
}

// CeilStride как Stride, но шаг округляется вверх, поэтому индексов
// никогда не больше limit
func CeilStride(n, limit int) []int {
	return strideWithStep(n, CeilStrideStep(n, limit))
}

// CeilStrideStep шаг ceil(n/limit), не меньше 1
func CeilStrideStep(n, limit int) int {
	if n <= 0 || limit <= 0 {
		return 1
	}
	return max(1, (n+limit-1)/limit)
}

func strideWithStep(n, step int) []int {
	if n <= 0 {
		return []int{}
	}
	out := make([]int, 0, n/step+1)
	for i := 0; i < n; i += step {
		out = append(out, i)
	}
	return out
}
