package dispatch

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yok-tottii/deck8-soundboard/internal/hotkey"
	"github.com/yok-tottii/deck8-soundboard/internal/logger"
)

// State represents the current dispatcher state
type State int

const (
	// Idle means no events are consumed
	Idle State = iota
	// Running means key events are being dispatched
	Running
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	default:
		return "Unknown"
	}
}

// EventSource delivers key events. The channel is closed on shutdown.
type EventSource interface {
	Events() <-chan hotkey.Event
}

// TriggerFunc plays whatever is assigned to slot
type TriggerFunc func(slot int) error

// Config holds configuration for the dispatcher
type Config struct {
	// RepeatGuard drops a second press of the same slot within this window.
	RepeatGuard time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		RepeatGuard: 80 * time.Millisecond,
	}
}

// Dispatcher turns key events into Trigger calls
type Dispatcher struct {
	source      EventSource
	trigger     TriggerFunc
	repeatGuard time.Duration
	log         *logger.Logger
	now         func() time.Time

	state    State
	lastHit  map[int]time.Time
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex

	triggered atomic.Uint64
	failed    atomic.Uint64
}

// New creates a dispatcher
func New(source EventSource, trigger TriggerFunc, config Config, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		source:      source,
		trigger:     trigger,
		repeatGuard: config.RepeatGuard,
		log:         log,
		now:         time.Now,
		state:       Idle,
		lastHit:     make(map[int]time.Time),
	}
}

// Start begins consuming events
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == Running {
		return fmt.Errorf("dispatcher already running")
	}

	d.stopChan = make(chan struct{})
	d.state = Running

	d.wg.Add(1)
	go d.run(d.source.Events(), d.stopChan)

	return nil
}

func (d *Dispatcher) run(events <-chan hotkey.Event, stop <-chan struct{}) {
	defer d.wg.Done()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				d.mu.Lock()
				d.state = Idle
				d.mu.Unlock()
				return
			}
			d.handle(event)

		case <-stop:
			return
		}
	}
}

func (d *Dispatcher) handle(event hotkey.Event) {
	now := d.now()
	if last, ok := d.lastHit[event.Slot]; ok && now.Sub(last) < d.repeatGuard {
		d.log.Debug("Key %d repeat ignored", event.Slot+1)
		return
	}
	d.lastHit[event.Slot] = now

	d.triggered.Add(1)
	if err := d.trigger(event.Slot); err != nil {
		d.failed.Add(1)
		d.log.Warn("Key %d: %v", event.Slot+1, err)
	}
}

// Stop stops consuming events and waits for the in-flight trigger
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	stop := d.stopChan
	d.stopChan = nil
	d.state = Idle
	d.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	d.wg.Wait()
}

// GetState returns the current dispatcher state
func (d *Dispatcher) GetState() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Triggered returns how many key presses were dispatched
func (d *Dispatcher) Triggered() uint64 {
	return d.triggered.Load()
}

// Failed returns how many dispatched presses returned an error
func (d *Dispatcher) Failed() uint64 {
	return d.failed.Load()
}
