package render

import (
	"errors"
	"image"
	"runtime"
	"sync"
)

// ErrSurfaceUnavailable поверхность отрисовки недоступна; фатально для графика
var ErrSurfaceUnavailable = errors.New("drawing surface unavailable")

// ErrSurfaceClosed поверхность уже закрыта
var ErrSurfaceClosed = errors.New("drawing surface closed")

// Mode режим выполнения отрисовки
type Mode string

const (
	ModeDirect    Mode = "direct"
	ModeOffscreen Mode = "offscreen"
)

// Surface поверхность, принимающая пакеты команд
type Surface interface {
	// Submit передает пакет команд; пакет заменяет предыдущий кадр целиком
	Submit(cmds []Command) error
	// Snapshot возвращает копию последнего отрисованного кадра
	Snapshot() (*image.RGBA, error)
	Mode() Mode
	Width() int
	Height() int
	Close() error
}

// Capabilities возможности среды выполнения
type Capabilities struct {
	// Offscreen доступна передача поверхности изолированному воркеру
	Offscreen bool
}

// DetectCapabilities определяет возможности процесса.
// Отдельный воркер отрисовки имеет смысл только при нескольких P.
func DetectCapabilities() Capabilities {
	return Capabilities{Offscreen: runtime.GOMAXPROCS(0) > 1}
}

// SurfaceOptions параметры поверхности
type SurfaceOptions struct {
	Width            int
	Height           int
	DevicePixelRatio float64
	// UseOffscreen запрашивает отрисовку в отдельном воркере
	UseOffscreen bool
	// Capabilities переопределяет DetectCapabilities (для тестов)
	Capabilities *Capabilities
}

// NewSurface создает поверхность в выбранном режиме.
// Если offscreen запрошен, но не поддерживается, молча используется прямой режим.
func NewSurface(opts SurfaceOptions) (Surface, error) {
	canvas, err := NewCanvas(opts.Width, opts.Height, opts.DevicePixelRatio)
	if err != nil {
		return nil, err
	}

	caps := DetectCapabilities()
	if opts.Capabilities != nil {
		caps = *opts.Capabilities
	}
	if opts.UseOffscreen && caps.Offscreen {
		return NewOffscreenSurface(canvas), nil
	}
	return NewDirectSurface(canvas), nil
}

// DirectSurface выполняет команды синхронно в вызывающей горутине
type DirectSurface struct {
	mu     sync.Mutex
	canvas *Canvas
	closed bool
}

// NewDirectSurface создает прямую поверхность над canvas
func NewDirectSurface(canvas *Canvas) *DirectSurface {
	return &DirectSurface{canvas: canvas}
}

// Submit выполняет команды сразу
func (s *DirectSurface) Submit(cmds []Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	return s.canvas.Execute(cmds)
}

// Snapshot возвращает копию растра
func (s *DirectSurface) Snapshot() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSurfaceClosed
	}
	return s.canvas.Image(), nil
}

func (s *DirectSurface) Mode() Mode  { return ModeDirect }
func (s *DirectSurface) Width() int  { return s.canvas.Width() }
func (s *DirectSurface) Height() int { return s.canvas.Height() }

// Close закрывает поверхность
func (s *DirectSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
