package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultBackground цвет фона поверхности
const DefaultBackground = "#ffffff"

// Canvas растровая поверхность в логических пикселях.
// Координаты команд умножаются на DevicePixelRatio.
type Canvas struct {
	width  int
	height int
	dpr    float64
	bg     color.Color
	img    *image.RGBA
	gc     *drawing.RasterGraphicContext
	face   font.Face
}

// NewCanvas создает поверхность width x height логических пикселей
func NewCanvas(width, height int, dpr float64) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrSurfaceUnavailable, width, height)
	}
	if dpr <= 0 {
		dpr = 1
	}
	pw := int(math.Ceil(float64(width) * dpr))
	ph := int(math.Ceil(float64(height) * dpr))
	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	gc, err := drawing.NewRasterGraphicContext(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	c := &Canvas{
		width:  width,
		height: height,
		dpr:    dpr,
		bg:     ParseColor(DefaultBackground),
		img:    img,
		gc:     gc,
		face:   basicfont.Face7x13,
	}
	c.Clear()
	return c, nil
}

// Width ширина в логических пикселях
func (c *Canvas) Width() int { return c.width }

// Height высота в логических пикселях
func (c *Canvas) Height() int { return c.height }

// DevicePixelRatio коэффициент плотности пикселей
func (c *Canvas) DevicePixelRatio() float64 { return c.dpr }

// Clear заливает поверхность цветом фона
func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(c.bg), image.Point{}, draw.Src)
}

// Execute очищает поверхность и выполняет пакет команд по порядку
func (c *Canvas) Execute(cmds []Command) error {
	c.Clear()
	for _, cmd := range cmds {
		switch v := cmd.(type) {
		case Path:
			c.drawPath(v)
		case Circle:
			c.drawCircle(v)
		case Text:
			c.drawText(v)
		case Rect:
			c.drawRect(v)
		default:
			return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
		}
	}
	return nil
}

func (c *Canvas) drawPath(p Path) {
	if len(p.Points) < 2 {
		return
	}
	c.gc.BeginPath()
	c.gc.SetStrokeColor(ParseColor(p.StrokeStyle))
	c.gc.SetLineWidth(p.LineWidth * c.dpr)
	for i, pt := range p.Points {
		if i == 0 {
			c.gc.MoveTo(pt.X*c.dpr, pt.Y*c.dpr)
		} else {
			c.gc.LineTo(pt.X*c.dpr, pt.Y*c.dpr)
		}
	}
	c.gc.Stroke()
}

func (c *Canvas) drawCircle(ci Circle) {
	if ci.Radius <= 0 {
		return
	}
	r := ci.Radius * c.dpr
	c.gc.BeginPath()
	c.gc.SetFillColor(ParseColor(ci.FillStyle))
	c.gc.ArcTo(ci.X*c.dpr, ci.Y*c.dpr, r, r, 0, 2*math.Pi)
	c.gc.Close()
	c.gc.Fill()
}

func (c *Canvas) drawRect(r Rect) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	rect := image.Rect(
		int(math.Round(r.X*c.dpr)),
		int(math.Round(r.Y*c.dpr)),
		int(math.Round((r.X+r.W)*c.dpr)),
		int(math.Round((r.Y+r.H)*c.dpr)),
	)
	draw.Draw(c.img, rect, image.NewUniform(ParseColor(r.FillStyle)), image.Point{}, draw.Over)
}

func (c *Canvas) drawText(t Text) {
	if strings.TrimSpace(t.Text) == "" {
		return
	}
	dr := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(ParseColor(t.FillStyle)),
		Face: c.face,
		Dot: fixed.Point26_6{
			X: fixed.I(int(math.Round(t.X * c.dpr))),
			Y: fixed.I(int(math.Round(t.Y * c.dpr))),
		},
	}
	dr.DrawString(t.Text)
}

// Image возвращает копию текущего растра
func (c *Canvas) Image() *image.RGBA {
	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

// EncodePNG записывает текущий растр в формате PNG
func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}

// TextWidth ширина строки в логических пикселях для шрифта поверхности
func TextWidth(s string) float64 {
	return float64(font.MeasureString(basicfont.Face7x13, s).Ceil())
}

// ParseColor разбирает "#rgb", "#rrggbb", "rgb(r,g,b)", "rgba(r,g,b,a)" и
// несколько именованных цветов. Нераспознанный цвет дает черный.
func ParseColor(s string) color.Color {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "white":
		return drawing.ColorFromHex("ffffff")
	case "black", "":
		return drawing.ColorFromHex("000000")
	case "transparent":
		return color.RGBA{}
	}
	if strings.HasPrefix(s, "#") {
		return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
	}
	if strings.HasPrefix(s, "rgb") {
		open := strings.IndexByte(s, '(')
		end := strings.IndexByte(s, ')')
		if open < 0 || end < open {
			return drawing.ColorFromHex("000000")
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) < 3 {
			return drawing.ColorFromHex("000000")
		}
		ch := func(p string) uint8 {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return 0
			}
			return uint8(math.Max(0, math.Min(255, math.Round(v))))
		}
		out := drawing.Color{R: ch(parts[0]), G: ch(parts[1]), B: ch(parts[2]), A: 255}
		if len(parts) >= 4 {
			a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
			if err == nil {
				out.A = uint8(math.Max(0, math.Min(255, math.Round(a*255))))
			}
		}
		return out
	}
	return drawing.ColorFromHex("000000")
}
