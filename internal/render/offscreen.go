package render

import (
	"image"
	"log"
	"sync"
	"sync/atomic"
)

// InitMessage передает воркеру владение поверхностью
type InitMessage struct {
	Canvas           *Canvas
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	DevicePixelRatio float64 `json:"devicePixelRatio"`
}

// OffscreenSurface отрисовывает в отдельной горутине.
// Поверхность передается воркеру один раз при создании; дальше команды
// уходят сериализованными пакетами. Submit не блокируется: почтовый ящик
// хранит только последний пакет, более ранний неотрисованный пакет заменяется.
type OffscreenSurface struct {
	width  int
	height int

	init      chan InitMessage
	mailbox   chan []byte
	snapshots chan chan *image.RGBA
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	submitted atomic.Int64
	replaced  atomic.Int64
	rendered  atomic.Int64
	failed    atomic.Int64
}

// NewOffscreenSurface запускает воркер и передает ему canvas.
// После вызова canvas не должен использоваться вызывающей стороной.
func NewOffscreenSurface(canvas *Canvas) *OffscreenSurface {
	s := &OffscreenSurface{
		width:     canvas.Width(),
		height:    canvas.Height(),
		init:      make(chan InitMessage, 1),
		mailbox:   make(chan []byte, 1),
		snapshots: make(chan chan *image.RGBA),
		done:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.worker()

	s.init <- InitMessage{
		Canvas:           canvas,
		Width:            canvas.Width(),
		Height:           canvas.Height(),
		DevicePixelRatio: canvas.DevicePixelRatio(),
	}
	return s
}

// worker владеет canvas и выполняет пакеты
func (s *OffscreenSurface) worker() {
	defer s.wg.Done()

	var msg InitMessage
	select {
	case msg = <-s.init:
	case <-s.done:
		return
	}
	canvas := msg.Canvas

	execute := func(data []byte) {
		cmds, err := DecodeCommands(data)
		if err == nil {
			err = canvas.Execute(cmds)
		}
		if err != nil {
			s.failed.Add(1)
			log.Printf("Offscreen render failed: %v", err)
			return
		}
		s.rendered.Add(1)
	}

	for {
		select {
		case data := <-s.mailbox:
			execute(data)
		case reply := <-s.snapshots:
			// Пакет, отправленный до запроса снимка, должен попасть в снимок
			select {
			case data := <-s.mailbox:
				execute(data)
			default:
			}
			reply <- canvas.Image()
		case <-s.done:
			return
		}
	}
}

// Submit сериализует пакет и кладет его в почтовый ящик воркера
func (s *OffscreenSurface) Submit(cmds []Command) error {
	select {
	case <-s.done:
		return ErrSurfaceClosed
	default:
	}

	data, err := EncodeCommands(cmds)
	if err != nil {
		return err
	}
	s.submitted.Add(1)

	for {
		select {
		case s.mailbox <- data:
			return nil
		default:
		}
		// Ящик занят неотрисованным пакетом: заменяем его
		select {
		case <-s.mailbox:
			s.replaced.Add(1)
		default:
		}
	}
}

// Snapshot запрашивает у воркера копию последнего кадра
func (s *OffscreenSurface) Snapshot() (*image.RGBA, error) {
	reply := make(chan *image.RGBA, 1)
	select {
	case s.snapshots <- reply:
	case <-s.done:
		return nil, ErrSurfaceClosed
	}
	select {
	case img := <-reply:
		return img, nil
	case <-s.done:
		return nil, ErrSurfaceClosed
	}
}

// Stats возвращает счетчики отправленных, замененных, отрисованных и ошибочных пакетов
func (s *OffscreenSurface) Stats() (submitted, replaced, rendered, failed int64) {
	return s.submitted.Load(), s.replaced.Load(), s.rendered.Load(), s.failed.Load()
}

func (s *OffscreenSurface) Mode() Mode  { return ModeOffscreen }
func (s *OffscreenSurface) Width() int  { return s.width }
func (s *OffscreenSurface) Height() int { return s.height }

// Close останавливает воркер
func (s *OffscreenSurface) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	return nil
}
