// Package metrics provides observability for the leaderboard server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Journal metrics
	JournalWrites      int64
	JournalWriteLatSum int64
	JournalWriteLatMax int64
	JournalWriteErrors int64

	// Control metrics
	ControlCommands int64
	ControlRejected int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64
	FramesDropped       int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New creates a standalone collector. Tests use it to avoid the global.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordJournalWrite records a journal write to the database.
func (c *Collector) RecordJournalWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.JournalWrites, 1)
	atomic.AddInt64(&c.JournalWriteLatSum, int64(latency))
	storeMax(&c.JournalWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.JournalWriteErrors, 1)
	}
}

// RecordControl records a control command, accepted or not.
func (c *Collector) RecordControl(accepted bool) {
	if accepted {
		atomic.AddInt64(&c.ControlCommands, 1)
	} else {
		atomic.AddInt64(&c.ControlRejected, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordFrameDropped records a board update a slow subscriber never saw.
func (c *Collector) RecordFrameDropped() {
	atomic.AddInt64(&c.FramesDropped, 1)
}

// storeMax is not atomic across the compare and the store; close enough for metrics.
func storeMax(addr *int64, v int64) {
	if v > atomic.LoadInt64(addr) {
		atomic.StoreInt64(addr, v)
	}
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	writes := atomic.LoadInt64(&c.JournalWrites)

	// Calculate averages
	var tickAvg, writeAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if writes > 0 {
		writeAvg = float64(atomic.LoadInt64(&c.JournalWriteLatSum)) / float64(writes) / 1e6
	}

	lastTick := ""
	if !c.LastTickTime.IsZero() {
		lastTick = c.LastTickTime.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick,
		},

		"journal": map[string]interface{}{
			"written":          writes,
			"avg_write_lat_ms": writeAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.JournalWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.JournalWriteErrors),
		},

		"control": map[string]interface{}{
			"accepted": atomic.LoadInt64(&c.ControlCommands),
			"rejected": atomic.LoadInt64(&c.ControlRejected),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
			"frames_dropped":     atomic.LoadInt64(&c.FramesDropped),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Tick metrics
		fmt.Fprintf(w, "# HELP leaderboard_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE leaderboard_tick_count counter\n")
		fmt.Fprintf(w, "leaderboard_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP leaderboard_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE leaderboard_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "leaderboard_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Journal metrics
		fmt.Fprintf(w, "# HELP leaderboard_journal_written Total journal entries written\n")
		fmt.Fprintf(w, "# TYPE leaderboard_journal_written counter\n")
		fmt.Fprintf(w, "leaderboard_journal_written %d\n\n", atomic.LoadInt64(&c.JournalWrites))

		fmt.Fprintf(w, "# HELP leaderboard_journal_write_errors Total journal write errors\n")
		fmt.Fprintf(w, "# TYPE leaderboard_journal_write_errors counter\n")
		fmt.Fprintf(w, "leaderboard_journal_write_errors %d\n\n", atomic.LoadInt64(&c.JournalWriteErrors))

		// Control metrics
		fmt.Fprintf(w, "# HELP leaderboard_control_total Control commands by outcome\n")
		fmt.Fprintf(w, "# TYPE leaderboard_control_total counter\n")
		fmt.Fprintf(w, "leaderboard_control_total{outcome=\"accepted\"} %d\n", atomic.LoadInt64(&c.ControlCommands))
		fmt.Fprintf(w, "leaderboard_control_total{outcome=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.ControlRejected))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP leaderboard_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE leaderboard_ws_connections gauge\n")
		fmt.Fprintf(w, "leaderboard_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP leaderboard_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE leaderboard_ws_messages_total counter\n")
		fmt.Fprintf(w, "leaderboard_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "leaderboard_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		fmt.Fprintf(w, "# HELP leaderboard_frames_dropped Board updates dropped for slow subscribers\n")
		fmt.Fprintf(w, "# TYPE leaderboard_frames_dropped counter\n")
		fmt.Fprintf(w, "leaderboard_frames_dropped %d\n", atomic.LoadInt64(&c.FramesDropped))
	}
}
