package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/LiveSortTable/server/internal/domain/entity"
	"github.com/MRamiBalles/LiveSortTable/server/internal/events"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/logger"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/metrics"
)

// Update cadence bounds in milliseconds.
const (
	MinIntervalMs     = 400
	MaxIntervalMs     = 3000
	DefaultIntervalMs = 1200
)

// ActorSystem marks journal entries the board raises on its own.
const ActorSystem = "system"

// ClampInterval restricts a user-supplied cadence to [MinIntervalMs, MaxIntervalMs].
func ClampInterval(ms int) int {
	return entity.Clamp(ms, MinIntervalMs, MaxIntervalMs)
}

// Settings are the runtime controls a viewer can change.
type Settings struct {
	Running    bool    `json:"running"`
	IntervalMs int     `json:"interval_ms"`
	SortKey    SortKey `json:"sort_key"`
}

// DefaultSettings: running, 1200ms, sorted by score.
func DefaultSettings() Settings {
	return Settings{
		Running:    true,
		IntervalMs: DefaultIntervalMs,
		SortKey:    SortByScore,
	}
}

// Interval returns the cadence as a duration.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// Notice is a transient message for viewers (the toast).
type Notice struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Update is what subscribers receive after every tick or control change.
type Update struct {
	Tick     uint64          `json:"tick"`
	At       time.Time       `json:"at"`
	Settings Settings        `json:"settings"`
	Board    []entity.Entity `json:"board"` // Ranked by Settings.SortKey
	Notice   *Notice         `json:"notice,omitempty"`
}

// Options configure a Board. Zero values fall back to defaults.
type Options struct {
	Names            []string
	Settings         *Settings
	Rand             Rand
	Drift            *DriftParams
	Now              func() time.Time
	Journal          *events.EventLog
	Metrics          *metrics.Collector
	Logger           *logger.Logger
	SubscriberBuffer int
}

// Board owns the entity set, its heartbeat and the current settings.
// The tick is the only writer of the set; readers get copies.
type Board struct {
	ctlMu sync.Mutex // Serializes control operations

	mu       sync.RWMutex
	set      entity.Set
	settings Settings
	tickNo   uint64
	rng      Rand
	drift    DriftParams
	now      func() time.Time

	ticker  *Ticker
	journal *events.EventLog
	metrics *metrics.Collector
	logger  *logger.Logger

	subMu   sync.Mutex
	subs    map[int]chan Update
	nextSub int
	subBuf  int
	closed  bool
}

// NewBoard seeds the entity set. The heartbeat is not armed until Start.
func NewBoard(opts Options) *Board {
	b := &Board{
		settings: DefaultSettings(),
		rng:      opts.Rand,
		drift:    DefaultDrift,
		now:      opts.Now,
		journal:  opts.Journal,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		subs:     make(map[int]chan Update),
		subBuf:   opts.SubscriberBuffer,
	}
	if opts.Settings != nil {
		b.settings = *opts.Settings
	}
	b.settings.IntervalMs = ClampInterval(b.settings.IntervalMs)
	if _, err := ParseSortKey(string(b.settings.SortKey)); err != nil {
		b.settings.SortKey = SortByScore
	}
	if opts.Drift != nil {
		b.drift = *opts.Drift
	}
	if b.rng == nil {
		b.rng = NewRand(uint64(time.Now().UnixNano()))
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.journal == nil {
		b.journal = events.NewEventLog(nil)
	}
	if b.metrics == nil {
		b.metrics = metrics.Get()
	}
	if b.logger == nil {
		b.logger = logger.NewLogger()
	}
	if b.subBuf <= 0 {
		b.subBuf = 16
	}

	names := opts.Names
	if len(names) == 0 {
		names = entity.DefaultNames
	}
	b.set = Seed(names, b.rng, b.now())
	b.ticker = NewTicker(b.tick, b.logger)

	b.record(events.EventTypeBoardSeeded, ActorSystem, events.BoardSeededPayload{
		Entities: len(b.set),
		IDs:      b.set.IDs(),
		Names:    names,
	})
	b.logger.Infof("Board seeded with %d entities", len(b.set))
	return b
}

// Start arms the heartbeat if the board is configured to run. Cancelling ctx
// tears the board down.
func (b *Board) Start(ctx context.Context) {
	b.ctlMu.Lock()
	defer b.ctlMu.Unlock()

	s := b.Settings()
	if s.Running {
		b.ticker.Start(s.Interval())
	}
	b.logger.Infof("Board started (running=%v interval=%dms sort=%s)", s.Running, s.IntervalMs, s.SortKey)

	go func() {
		<-ctx.Done()
		b.Close()
	}()
}

// Pause stops scheduling ticks. State is left exactly as the last tick made it.
// Returns false when the board was already paused.
func (b *Board) Pause(actor string) bool {
	b.ctlMu.Lock()
	defer b.ctlMu.Unlock()

	if !b.Settings().Running {
		return false
	}
	b.ticker.Stop()

	b.mu.Lock()
	b.settings.Running = false
	b.publishLocked(nil)
	b.mu.Unlock()

	b.record(events.EventTypePaused, actor, nil)
	b.logger.Event(string(events.EventTypePaused), actor, "updates paused")
	return true
}

// Resume restarts the heartbeat. The first tick comes one full interval later.
// Returns false when the board was already running.
func (b *Board) Resume(actor string) bool {
	b.ctlMu.Lock()
	defer b.ctlMu.Unlock()

	s := b.Settings()
	if s.Running {
		return false
	}
	b.ticker.Start(s.Interval())

	b.mu.Lock()
	b.settings.Running = true
	b.publishLocked(nil)
	b.mu.Unlock()

	b.record(events.EventTypeResumed, actor, nil)
	b.logger.Event(string(events.EventTypeResumed), actor, fmt.Sprintf("updates resumed every %dms", s.IntervalMs))
	return true
}

// SetInterval clamps ms and applies it. A running heartbeat restarts its wait
// from zero under the new interval. Returns the applied value and whether it changed.
func (b *Board) SetInterval(ms int, actor string) (int, bool) {
	b.ctlMu.Lock()
	defer b.ctlMu.Unlock()

	applied := ClampInterval(ms)
	if applied != ms {
		b.logger.Warnf("Interval %dms out of range, using %dms", ms, applied)
	}

	prev := b.Settings().IntervalMs
	if applied == prev {
		return applied, false
	}
	b.ticker.Reschedule(time.Duration(applied) * time.Millisecond)

	b.mu.Lock()
	b.settings.IntervalMs = applied
	b.publishLocked(nil)
	b.mu.Unlock()

	b.record(events.EventTypeIntervalChanged, actor, events.IntervalChangedPayload{FromMs: prev, ToMs: applied})
	b.logger.Event(string(events.EventTypeIntervalChanged), actor, fmt.Sprintf("%dms -> %dms", prev, applied))
	return applied, true
}

// SetSortKey switches the ordering and raises a notice naming the new key.
// Selecting the current key is a no-op and raises nothing.
func (b *Board) SetSortKey(key SortKey, actor string) (bool, error) {
	if _, err := ParseSortKey(string(key)); err != nil {
		return false, err
	}

	b.ctlMu.Lock()
	defer b.ctlMu.Unlock()

	prev := b.Settings().SortKey
	if key == prev {
		return false, nil
	}

	notice := &Notice{
		Kind:    "sort_key",
		Message: "Sorting by " + key.Label(),
		At:      b.now(),
	}

	b.mu.Lock()
	b.settings.SortKey = key
	b.publishLocked(notice)
	b.mu.Unlock()

	b.record(events.EventTypeSortKeyChanged, actor, events.SortKeyChangedPayload{From: string(prev), To: string(key)})
	b.record(events.EventTypeNotice, ActorSystem, events.NoticePayload{Kind: notice.Kind, Message: notice.Message})
	b.logger.Event(string(events.EventTypeSortKeyChanged), actor, string(prev)+" -> "+string(key))
	return true, nil
}

// Step applies one tick right now, regardless of the heartbeat.
func (b *Board) Step() {
	b.tick(b.now())
}

// Snapshot returns a copy of the entity set in creation order.
func (b *Board) Snapshot() entity.Set {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.set.Clone()
}

// Ranked returns the current display order.
func (b *Board) Ranked() []entity.Entity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Rank(b.set, b.settings.SortKey)
}

// Settings returns the current controls.
func (b *Board) Settings() Settings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings
}

// TickCount returns how many ticks have been applied.
func (b *Board) TickCount() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tickNo
}

// Current builds an Update for the present state, for late joiners.
func (b *Board) Current() Update {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updateLocked(nil)
}

// Journal exposes the control journal.
func (b *Board) Journal() *events.EventLog {
	return b.journal
}

// SetSubscriberBuffer sizes the queue of subscriptions made from now on.
// Existing subscriptions keep their buffer.
func (b *Board) SetSubscriberBuffer(n int) {
	if n <= 0 {
		return
	}
	b.subMu.Lock()
	b.subBuf = n
	b.subMu.Unlock()
}

// Subscribe returns a stream of updates and a cancel func. Slow subscribers
// miss updates rather than delaying the tick.
func (b *Board) Subscribe() (<-chan Update, func()) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	ch := make(chan Update, b.subBuf)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.subMu.Lock()
			defer b.subMu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Close cancels the heartbeat and ends every subscription. Safe to call twice.
func (b *Board) Close() {
	b.ctlMu.Lock()
	defer b.ctlMu.Unlock()

	b.ticker.Close()

	b.subMu.Lock()
	defer b.subMu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.logger.Info("Board closed.")
}

// tick is the single writer of the entity set.
func (b *Board) tick(time.Time) {
	start := time.Now()
	now := b.now()

	b.mu.Lock()
	b.set = TickWith(b.set, now, b.rng, b.drift)
	b.tickNo++
	b.publishLocked(nil)
	b.mu.Unlock()

	b.journal.Append(events.NewEvent(events.EventTypeTick, ActorSystem, nil))
	b.metrics.RecordTick(time.Since(start))
}

func (b *Board) updateLocked(notice *Notice) Update {
	at := time.Time{}
	if len(b.set) > 0 {
		at = b.set[0].LastUpdatedAt
	}
	return Update{
		Tick:     b.tickNo,
		At:       at,
		Settings: b.settings,
		Board:    Rank(b.set, b.settings.SortKey),
		Notice:   notice,
	}
}

// publishLocked fans out under b.mu so subscribers see updates in order.
func (b *Board) publishLocked(notice *Notice) {
	u := b.updateLocked(notice)

	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- u:
		default:
			b.metrics.RecordFrameDropped()
		}
	}
}

func (b *Board) record(eventType events.EventType, actor string, payload any) {
	if err := b.journal.Append(events.NewEvent(eventType, actor, payload)); err != nil {
		b.logger.Warnf("Journal write failed for %s: %v", eventType, err)
	}
}
