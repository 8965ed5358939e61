package perf

import (
	"errors"
	"runtime"
	"sync"
	"time"
)

// DefaultGCPollInterval период опроса runtime.MemStats
const DefaultGCPollInterval = 250 * time.Millisecond

// ErrObserverRunning наблюдатель уже запущен
var ErrObserverRunning = errors.New("gc observer already running")

// pauseRingSize размер кольца MemStats.PauseNs
const pauseRingSize = 256

// GCObserver сообщает о паузах сборщика мусора.
// Это явный объект с жизненным циклом Start/Stop; владельцем является Sampler.
type GCObserver struct {
	interval  time.Duration
	readStats func(*runtime.MemStats)

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	lastGC  uint32
}

// GCOption настройка GCObserver
type GCOption func(*GCObserver)

// WithPollInterval задает период опроса
func WithPollInterval(d time.Duration) GCOption {
	return func(o *GCObserver) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithMemStatsReader подменяет источник статистики памяти
func WithMemStatsReader(read func(*runtime.MemStats)) GCOption {
	return func(o *GCObserver) {
		o.readStats = read
	}
}

// NewGCObserver создает наблюдатель; опрос начинается после Start
func NewGCObserver(opts ...GCOption) *GCObserver {
	o := &GCObserver{
		interval:  DefaultGCPollInterval,
		readStats: runtime.ReadMemStats,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start запускает опрос; callback вызывается для каждой новой паузы GC
// из горутины наблюдателя. Паузы, случившиеся до Start, не сообщаются.
func (o *GCObserver) Start(callback func(pause time.Duration)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrObserverRunning
	}

	var ms runtime.MemStats
	o.readStats(&ms)
	o.lastGC = ms.NumGC

	o.stop = make(chan struct{})
	o.done = make(chan struct{})
	o.running = true
	go o.loop(callback, o.stop, o.done)
	return nil
}

func (o *GCObserver) loop(callback func(time.Duration), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.poll(callback)
		case <-stop:
			return
		}
	}
}

// poll сообщает обо всех паузах с прошлого опроса.
// Если их больше, чем хранит кольцо PauseNs, старые теряются.
func (o *GCObserver) poll(callback func(time.Duration)) {
	var ms runtime.MemStats
	o.readStats(&ms)

	last := o.lastGC
	if ms.NumGC <= last {
		return
	}
	if ms.NumGC-last > pauseRingSize {
		last = ms.NumGC - pauseRingSize
	}
	for n := last + 1; n <= ms.NumGC; n++ {
		callback(time.Duration(ms.PauseNs[(n+pauseRingSize-1)%pauseRingSize]))
	}
	o.lastGC = ms.NumGC
}

// Stop останавливает опрос и ждет завершения горутины
func (o *GCObserver) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	close(o.stop)
	done := o.done
	o.mu.Unlock()

	<-done
}

// Running true между Start и Stop
func (o *GCObserver) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}
