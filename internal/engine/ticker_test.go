package engine

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/logger"
)

// tickRecorder collects the wall-clock time of every callback.
type tickRecorder struct {
	mu    sync.Mutex
	times []time.Time
}

func (r *tickRecorder) onTick(time.Time) {
	r.mu.Lock()
	r.times = append(r.times, time.Now())
	r.mu.Unlock()
}

func (r *tickRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.times)
}

func (r *tickRecorder) firstAfter(t time.Time) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, at := range r.times {
		if !at.Before(t) {
			return at, true
		}
	}
	return time.Time{}, false
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func quietLogger() *logger.Logger {
	return logger.NewLoggerTo(io.Discard)
}

const testInterval = 40 * time.Millisecond

func TestTickerFiresAfterFullInterval(t *testing.T) {
	rec := &tickRecorder{}
	tk := NewTicker(rec.onTick, quietLogger())
	defer tk.Close()

	started := time.Now()
	tk.Start(testInterval)

	waitFor(t, time.Second, func() bool { return rec.count() >= 3 })

	first, _ := rec.firstAfter(started)
	if first.Sub(started) < testInterval {
		t.Errorf("First tick came after %v, want >= %v", first.Sub(started), testInterval)
	}
}

func TestTickerPauseAndResume(t *testing.T) {
	rec := &tickRecorder{}
	tk := NewTicker(rec.onTick, quietLogger())
	defer tk.Close()

	tk.Start(testInterval)
	waitFor(t, time.Second, func() bool { return rec.count() >= 1 })

	tk.Stop()
	if tk.Running() {
		t.Fatalf("Expected ticker to report stopped")
	}
	paused := rec.count()
	time.Sleep(3 * testInterval)
	if got := rec.count(); got != paused {
		t.Fatalf("Ticks while paused: had %d, now %d", paused, got)
	}

	resumed := time.Now()
	tk.Start(testInterval)
	waitFor(t, time.Second, func() bool { return rec.count() > paused })

	first, ok := rec.firstAfter(resumed)
	if !ok {
		t.Fatalf("No tick recorded after resume")
	}
	if gap := first.Sub(resumed); gap < testInterval {
		t.Errorf("First tick after resume came after %v, want >= %v (no catch-up)", gap, testInterval)
	}
}

func TestTickerRescheduleRestartsWait(t *testing.T) {
	rec := &tickRecorder{}
	tk := NewTicker(rec.onTick, quietLogger())
	defer tk.Close()

	tk.Start(testInterval)
	// Change cadence partway through the first interval.
	time.Sleep(testInterval / 2)
	longer := 3 * testInterval
	changed := time.Now()
	tk.Reschedule(longer)

	waitFor(t, 2*time.Second, func() bool {
		_, ok := rec.firstAfter(changed)
		return ok
	})

	first, _ := rec.firstAfter(changed)
	if gap := first.Sub(changed); gap < longer {
		t.Errorf("First tick after reschedule came after %v, want >= %v", gap, longer)
	}
	if tk.Interval() != longer {
		t.Errorf("Expected interval %v, got %v", longer, tk.Interval())
	}
}

func TestTickerRescheduleWhileStoppedOnlyStores(t *testing.T) {
	rec := &tickRecorder{}
	tk := NewTicker(rec.onTick, quietLogger())
	defer tk.Close()

	tk.Reschedule(testInterval)
	time.Sleep(3 * testInterval)

	if tk.Running() || rec.count() != 0 {
		t.Errorf("Reschedule on a stopped ticker must not start it (running=%v ticks=%d)", tk.Running(), rec.count())
	}
}

func TestTickerCloseIsFinal(t *testing.T) {
	rec := &tickRecorder{}
	tk := NewTicker(rec.onTick, quietLogger())

	tk.Start(testInterval)
	tk.Close()
	tk.Start(testInterval)
	time.Sleep(3 * testInterval)

	if rec.count() != 0 || tk.Running() {
		t.Errorf("Expected no ticks after Close, got %d (running=%v)", rec.count(), tk.Running())
	}
}
