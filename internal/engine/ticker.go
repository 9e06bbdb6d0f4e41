package engine

import (
	"sync"
	"time"

	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/logger"
)

// Ticker is the board's cancellable heartbeat.
// It does NOT know about entities or ranking - only when to call back.
//
// Every Start or Reschedule begins a full new interval: there is no catch-up
// tick and no carryover of a partially elapsed interval. Callbacks run one at a
// time on the ticker's goroutine.
type Ticker struct {
	mu       sync.Mutex
	onTick   func(at time.Time)
	logger   *logger.Logger
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
	closed   bool
}

// NewTicker creates a stopped ticker that invokes onTick on every beat.
func NewTicker(onTick func(at time.Time), log *logger.Logger) *Ticker {
	return &Ticker{
		onTick: onTick,
		logger: log,
	}
}

// Start (re)arms the ticker with interval. A running loop is cancelled first.
// Must not be called from inside the tick callback.
func (t *Ticker) Start(interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startLocked(interval)
}

// Stop cancels the pending beat. It waits for an in-flight callback to finish,
// so no tick is delivered after Stop returns.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Reschedule swaps the interval. A running ticker restarts its wait from zero;
// a stopped one only remembers the interval for the next Start.
func (t *Ticker) Reschedule(interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopChan == nil {
		t.interval = interval
		return
	}
	t.startLocked(interval)
}

// Running reports whether a beat is scheduled.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopChan != nil
}

// Interval returns the currently configured interval.
func (t *Ticker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Close stops the ticker for good. Later Starts are ignored.
func (t *Ticker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.closed = true
}

func (t *Ticker) startLocked(interval time.Duration) {
	if t.closed {
		return
	}
	t.stopLocked()
	t.interval = interval
	t.stopChan = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(interval, t.stopChan, t.done)
	t.logger.Infof("Board ticker armed, interval %v", interval)
}

func (t *Ticker) stopLocked() {
	if t.stopChan == nil {
		return
	}
	close(t.stopChan)
	<-t.done
	t.stopChan = nil
	t.done = nil
	t.logger.Info("Board ticker stopped.")
}

func (t *Ticker) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case at := <-ticker.C:
			// Both may be ready at once; a pending stop wins.
			select {
			case <-stop:
				return
			default:
			}
			t.onTick(at)
		}
	}
}
