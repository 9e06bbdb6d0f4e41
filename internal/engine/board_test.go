package engine

import (
	"context"
	"testing"
	"time"

	"github.com/MRamiBalles/LiveSortTable/server/internal/domain/entity"
	"github.com/MRamiBalles/LiveSortTable/server/internal/events"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/metrics"
)

func newTestBoard(t *testing.T, settings Settings) *Board {
	t.Helper()
	b := NewBoard(Options{
		Settings: &settings,
		Rand:     NewRand(3),
		Now:      func() time.Time { return t0 },
		Journal:  events.NewEventLog(nil),
		Metrics:  metrics.New(),
		Logger:   quietLogger(),
	})
	t.Cleanup(b.Close)
	return b
}

func pausedSettings() Settings {
	s := DefaultSettings()
	s.Running = false
	return s
}

func TestNewBoardDefaults(t *testing.T) {
	b := newTestBoard(t, Settings{IntervalMs: 50, SortKey: "bogus"})

	s := b.Settings()
	if s.IntervalMs != MinIntervalMs {
		t.Errorf("Expected interval clamped to %d, got %d", MinIntervalMs, s.IntervalMs)
	}
	if s.SortKey != SortByScore {
		t.Errorf("Expected invalid sort key to fall back to score, got %q", s.SortKey)
	}
	if got := len(b.Snapshot()); got != len(entity.DefaultNames) {
		t.Errorf("Expected %d entities, got %d", len(entity.DefaultNames), got)
	}
	seeded := b.Journal().ByType(events.EventTypeBoardSeeded)
	if len(seeded) != 1 {
		t.Fatalf("Expected one BOARD_SEEDED entry, got %d", len(seeded))
	}
	payload, ok := seeded[0].Payload.(events.BoardSeededPayload)
	if !ok {
		t.Fatalf("Unexpected seed payload %T", seeded[0].Payload)
	}
	ids := b.Snapshot().IDs()
	if len(payload.IDs) != len(ids) {
		t.Fatalf("Expected %d seeded ids, got %d", len(ids), len(payload.IDs))
	}
	for i, id := range ids {
		if payload.IDs[i] != id {
			t.Errorf("Seeded id %d: expected %s, got %s", i, id, payload.IDs[i])
		}
	}
}

func TestRankedFollowsSortKey(t *testing.T) {
	b := newTestBoard(t, pausedSettings())
	b.Step()

	ranked := b.Ranked()
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("Not ordered by score at %d: %d > %d", i, ranked[i].Score, ranked[i-1].Score)
		}
	}

	b.SetSortKey(SortByChange, "test")
	ranked = b.Ranked()
	for i := 1; i < len(ranked); i++ {
		if ranked[i].LastDelta > ranked[i-1].LastDelta {
			t.Errorf("Not ordered by change at %d: %d > %d", i, ranked[i].LastDelta, ranked[i-1].LastDelta)
		}
	}
}

func TestClampInterval(t *testing.T) {
	cases := map[int]int{0: 400, 399: 400, 400: 400, 1200: 1200, 3000: 3000, 9000: 3000}
	for in, want := range cases {
		if got := ClampInterval(in); got != want {
			t.Errorf("ClampInterval(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestPauseResumeBookkeeping(t *testing.T) {
	b := newTestBoard(t, DefaultSettings())
	b.Start(context.Background())

	if !b.Pause("api") {
		t.Fatalf("Expected first Pause to change state")
	}
	if b.Pause("api") {
		t.Errorf("Expected second Pause to be a no-op")
	}
	if b.Settings().Running {
		t.Errorf("Expected board to report paused")
	}

	before := b.Snapshot()
	time.Sleep(2 * MinIntervalMs * time.Millisecond / 4)
	after := b.Snapshot()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("State changed while paused at %d", i)
		}
	}

	if !b.Resume("ws") {
		t.Fatalf("Expected Resume to change state")
	}
	if b.Resume("ws") {
		t.Errorf("Expected second Resume to be a no-op")
	}

	j := b.Journal()
	if len(j.ByType(events.EventTypePaused)) != 1 || len(j.ByType(events.EventTypeResumed)) != 1 {
		t.Errorf("Expected one PAUSED and one RESUMED entry, got %+v", j.Replay())
	}
}

func TestBoardTicksWhileRunning(t *testing.T) {
	b := newTestBoard(t, Settings{Running: true, IntervalMs: MinIntervalMs, SortKey: SortByScore})
	updates, cancel := b.Subscribe()
	defer cancel()

	b.Start(context.Background())

	select {
	case u := <-updates:
		if u.Tick != 1 {
			t.Errorf("Expected first update to be tick 1, got %d", u.Tick)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("No tick within 2s at %dms cadence", MinIntervalMs)
	}
	if b.Journal().TickCount() < 1 {
		t.Errorf("Expected tick to be counted in journal")
	}
}

func TestBoardStartPausedDoesNotTick(t *testing.T) {
	b := newTestBoard(t, pausedSettings())
	b.Start(context.Background())

	time.Sleep(MinIntervalMs*time.Millisecond + 200*time.Millisecond)
	if n := b.TickCount(); n != 0 {
		t.Errorf("Expected no ticks while starting paused, got %d", n)
	}
}

func TestSetIntervalClampsAndJournals(t *testing.T) {
	b := newTestBoard(t, pausedSettings())

	applied, changed := b.SetInterval(10000, "api")
	if applied != MaxIntervalMs || !changed {
		t.Errorf("SetInterval(10000) = %d,%v want %d,true", applied, changed, MaxIntervalMs)
	}
	if _, changed := b.SetInterval(MaxIntervalMs, "api"); changed {
		t.Errorf("Expected same interval to be a no-op")
	}

	entries := b.Journal().ByType(events.EventTypeIntervalChanged)
	if len(entries) != 1 {
		t.Fatalf("Expected one INTERVAL_CHANGED entry, got %d", len(entries))
	}
	p := entries[0].Payload.(events.IntervalChangedPayload)
	if p.FromMs != DefaultIntervalMs || p.ToMs != MaxIntervalMs {
		t.Errorf("Unexpected payload %+v", p)
	}
}

func TestSetSortKeyRaisesNotice(t *testing.T) {
	b := newTestBoard(t, pausedSettings())
	updates, cancel := b.Subscribe()
	defer cancel()

	changed, err := b.SetSortKey(SortByChange, "tui")
	if err != nil || !changed {
		t.Fatalf("SetSortKey(change) = %v, %v", changed, err)
	}

	u := <-updates
	if u.Notice == nil || u.Notice.Message != "Sorting by Change" {
		t.Errorf("Expected sort notice, got %+v", u.Notice)
	}
	if u.Settings.SortKey != SortByChange {
		t.Errorf("Expected update to carry new sort key, got %q", u.Settings.SortKey)
	}

	// Re-selecting the same key raises nothing.
	if changed, _ := b.SetSortKey(SortByChange, "tui"); changed {
		t.Errorf("Expected same key to be a no-op")
	}
	select {
	case extra := <-updates:
		t.Errorf("Unexpected update for no-op sort change: %+v", extra)
	default:
	}

	if _, err := b.SetSortKey("name", "tui"); err == nil {
		t.Errorf("Expected error for unknown key")
	}
	if n := len(b.Journal().ByType(events.EventTypeNotice)); n != 1 {
		t.Errorf("Expected one NOTICE entry, got %d", n)
	}
}

func TestStepPublishesRankedUpdate(t *testing.T) {
	b := newTestBoard(t, pausedSettings())
	updates, cancel := b.Subscribe()
	defer cancel()

	b.Step()
	u := <-updates

	if u.Tick != 1 || len(u.Board) != len(entity.DefaultNames) {
		t.Fatalf("Unexpected update: tick %d, %d rows", u.Tick, len(u.Board))
	}
	for i := 1; i < len(u.Board); i++ {
		if u.Board[i-1].Score < u.Board[i].Score {
			t.Fatalf("Update board not ranked by score at %d", i)
		}
	}
	for _, e := range b.Snapshot() {
		if !e.LastUpdatedAt.Equal(t0) {
			t.Errorf("Expected LastUpdatedAt from injected clock, got %v", e.LastUpdatedAt)
		}
	}
}

func TestCloseEndsSubscriptionsAndTicker(t *testing.T) {
	b := newTestBoard(t, DefaultSettings())
	updates, _ := b.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)
	cancel()

	select {
	case _, ok := <-drain(updates):
		if ok {
			t.Fatalf("Expected subscription channel to close")
		}
	case <-time.After(time.Second):
		t.Fatalf("Subscription not closed after context cancel")
	}

	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Errorf("Expected subscribe after close to return a closed channel")
	}
}

// drain skips buffered updates and reports once the channel closes.
func drain(ch <-chan Update) <-chan Update {
	out := make(chan Update)
	go func() {
		for range ch {
		}
		close(out)
	}()
	return out
}

func TestSetIntervalRestartsRunningWait(t *testing.T) {
	settings := pausedSettings()
	settings.Running = true
	settings.IntervalMs = MinIntervalMs
	b := newTestBoard(t, settings)

	updates, cancel := b.Subscribe()
	defer cancel()
	b.Start(context.Background())

	// Halfway into the first wait.
	time.Sleep(MinIntervalMs / 2 * time.Millisecond)
	const next = 2 * MinIntervalMs
	changedAt := time.Now()
	if _, changed := b.SetInterval(next, "test"); !changed {
		t.Fatal("Expected interval change")
	}
	baseline := b.Current().Tick

	deadline := time.After(3 * next * time.Millisecond)
	for {
		select {
		case u := <-updates:
			if u.Tick <= baseline {
				continue
			}
			if waited := time.Since(changedAt); waited < next*time.Millisecond {
				t.Errorf("Tick %d arrived %v after the change, before a full %dms interval", u.Tick, waited, next)
			}
			return
		case <-deadline:
			t.Fatal("No tick after the interval change")
		}
	}
}
