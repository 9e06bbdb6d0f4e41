package network

import (
	"io"
	"testing"

	"github.com/MRamiBalles/LiveSortTable/server/internal/engine"
	"github.com/MRamiBalles/LiveSortTable/server/internal/events"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/logger"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/metrics"
)

func quietLogger() *logger.Logger {
	return logger.NewLoggerTo(io.Discard)
}

// newPausedBoard returns a board that only moves when stepped.
func newPausedBoard(t *testing.T, journal *events.EventLog) *engine.Board {
	t.Helper()
	settings := engine.DefaultSettings()
	settings.Running = false
	b := engine.NewBoard(engine.Options{
		Settings: &settings,
		Rand:     engine.NewRand(11),
		Journal:  journal,
		Metrics:  metrics.New(),
		Logger:   quietLogger(),
	})
	t.Cleanup(b.Close)
	return b
}

func intervalMs(ms int) *int {
	return &ms
}

func TestApplyCommands(t *testing.T) {
	b := newPausedBoard(t, nil)

	res, err := Apply(b, Command{Type: CommandResume}, "test")
	if err != nil || !res.Changed || !res.Settings.Running {
		t.Fatalf("Expected resume to apply, got %+v, %v", res, err)
	}
	res, err = Apply(b, Command{Type: CommandResume}, "test")
	if err != nil || res.Changed {
		t.Errorf("Expected second resume to be a no-op, got %+v, %v", res, err)
	}

	res, err = Apply(b, Command{Type: CommandInterval, IntervalMs: intervalMs(10000)}, "test")
	if err != nil || res.Settings.IntervalMs != engine.MaxIntervalMs {
		t.Errorf("Expected interval clamped to %d, got %+v, %v", engine.MaxIntervalMs, res, err)
	}

	for _, ms := range []int{0, -5, 100} {
		res, err = Apply(b, Command{Type: CommandInterval, IntervalMs: intervalMs(ms)}, "test")
		if err != nil || res.Settings.IntervalMs != engine.MinIntervalMs {
			t.Errorf("Expected %dms clamped to %d, got %+v, %v", ms, engine.MinIntervalMs, res, err)
		}
	}

	if _, err := Apply(b, Command{Type: CommandInterval}, "test"); err != ErrMissingInterval {
		t.Errorf("Expected ErrMissingInterval, got %v", err)
	}
	if _, err := Apply(b, Command{Type: CommandSort, SortKey: "name"}, "test"); err == nil {
		t.Error("Expected unknown sort key to be rejected")
	}
	if _, err := Apply(b, Command{Type: "shuffle"}, "test"); err == nil {
		t.Error("Expected unknown command to be rejected")
	}

	res, err = Apply(b, Command{Type: CommandPause}, "test")
	if err != nil || !res.Changed || res.Settings.Running {
		t.Errorf("Expected pause to apply, got %+v, %v", res, err)
	}
}
