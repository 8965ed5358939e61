// Package analytics реализует скользящие статистики
// Используется для среднего FPS и среднего времени обработки воркеров
package analytics

// SlidingWindow хранит последние size значений и их сумму.
// Не потокобезопасен: синхронизацию обеспечивает владелец.
type SlidingWindow struct {
	ring  []float64
	head  int // позиция следующей записи
	count int
	sum   float64
	// writes считает записи с последнего пересчета суммы
	writes int
}

// NewSlidingWindow создает окно на size значений (не меньше одного)
func NewSlidingWindow(size int) *SlidingWindow {
	return &SlidingWindow{ring: make([]float64, max(size, 1))}
}

// Add добавляет значение, вытесняя самое старое при заполненном окне
func (sw *SlidingWindow) Add(value float64) {
	if sw.count == len(sw.ring) {
		sw.sum -= sw.ring[sw.head]
	} else {
		sw.count++
	}
	sw.ring[sw.head] = value
	sw.sum += value
	sw.head = (sw.head + 1) % len(sw.ring)

	// Окно живет весь сеанс: раз в оборот сумма пересчитывается,
	// чтобы ошибка округления не накапливалась
	sw.writes++
	if sw.writes >= len(sw.ring) {
		sw.resum()
	}
}

func (sw *SlidingWindow) resum() {
	sw.sum = 0
	for _, v := range sw.Values() {
		sw.sum += v
	}
	sw.writes = 0
}

// Mean среднее по окну; 0 для пустого окна
func (sw *SlidingWindow) Mean() float64 {
	if sw.count == 0 {
		return 0
	}
	return sw.sum / float64(sw.count)
}

// Values значения окна, старые первыми
func (sw *SlidingWindow) Values() []float64 {
	out := make([]float64, 0, sw.count)
	start := sw.head - sw.count
	if start < 0 {
		start += len(sw.ring)
	}
	for i := 0; i < sw.count; i++ {
		out = append(out, sw.ring[(start+i)%len(sw.ring)])
	}
	return out
}

// Count число значений в окне
func (sw *SlidingWindow) Count() int {
	return sw.count
}

// Size емкость окна
func (sw *SlidingWindow) Size() int {
	return len(sw.ring)
}
