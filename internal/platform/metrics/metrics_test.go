package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSnapshotAggregates(t *testing.T) {
	c := New()
	c.RecordTick(2 * time.Millisecond)
	c.RecordTick(4 * time.Millisecond)
	c.RecordJournalWrite(time.Millisecond, nil)
	c.RecordJournalWrite(time.Millisecond, errors.New("locked"))
	c.RecordControl(true)
	c.RecordControl(false)
	c.RecordWSConnection(1)

	snap := c.Snapshot()

	tick := snap["tick"].(map[string]interface{})
	if tick["count"].(int64) != 2 {
		t.Errorf("Expected 2 ticks, got %v", tick["count"])
	}
	if avg := tick["avg_latency_ms"].(float64); avg != 3 {
		t.Errorf("Expected avg tick latency 3ms, got %v", avg)
	}
	if max := tick["max_latency_ms"].(float64); max != 4 {
		t.Errorf("Expected max tick latency 4ms, got %v", max)
	}

	journal := snap["journal"].(map[string]interface{})
	if journal["errors"].(int64) != 1 {
		t.Errorf("Expected 1 journal error, got %v", journal["errors"])
	}

	control := snap["control"].(map[string]interface{})
	if control["accepted"].(int64) != 1 || control["rejected"].(int64) != 1 {
		t.Errorf("Unexpected control counters: %v", control)
	}
}

func TestPrometheusHandler(t *testing.T) {
	c := New()
	c.RecordTick(time.Millisecond)
	c.RecordWSMessage(false)

	rec := httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prom", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"leaderboard_tick_count 1",
		`leaderboard_ws_messages_total{direction="out"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in prometheus output:\n%s", want, body)
		}
	}
}
