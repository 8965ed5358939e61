// Package render превращает агрегированный ряд и границы области в команды отрисовки
// и выполняет их на растровой поверхности в одном из двух режимов
package render

// Point точка в пикселях
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Command закрытый набор команд отрисовки: Path, Circle, Text, Rect.
// Новые варианты объявляются только в этом пакете.
type Command interface {
	// Type возвращает тег варианта в сериализованном виде
	Type() string
	isCommand()
}

// Path ломаная линия
type Path struct {
	Points      []Point `json:"points"`
	StrokeStyle string  `json:"strokeStyle"`
	LineWidth   float64 `json:"lineWidth"`
}

// Circle закрашенный круг
type Circle struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	FillStyle string  `json:"fillStyle"`
}

// Text строка текста; Y задает базовую линию
type Text struct {
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Font      string  `json:"font"`
	FillStyle string  `json:"fillStyle"`
}

// Rect закрашенный прямоугольник (столбцы и ячейки тепловой карты)
type Rect struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	W         float64 `json:"w"`
	H         float64 `json:"h"`
	FillStyle string  `json:"fillStyle"`
}

const (
	TypePath   = "path"
	TypeCircle = "circle"
	TypeText   = "text"
	TypeRect   = "rect"
)

func (Path) Type() string   { return TypePath }
func (Circle) Type() string { return TypeCircle }
func (Text) Type() string   { return TypeText }
func (Rect) Type() string   { return TypeRect }

func (Path) isCommand()   {}
func (Circle) isCommand() {}
func (Text) isCommand()   {}
func (Rect) isCommand()   {}

// CountByType считает команды каждого варианта
func CountByType(cmds []Command) map[string]int {
	out := make(map[string]int, 4)
	for _, c := range cmds {
		out[c.Type()]++
	}
	return out
}
