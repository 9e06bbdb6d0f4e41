package main

import (
	"io"
	"testing"

	"github.com/MRamiBalles/LiveSortTable/server/internal/engine"
	"github.com/MRamiBalles/LiveSortTable/server/internal/infra/storage"
	"github.com/MRamiBalles/LiveSortTable/server/internal/network"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/config"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/logger"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/metrics"
)

func TestInitialSettingsFromFlags(t *testing.T) {
	log := logger.NewLoggerTo(io.Discard)

	s := initialSettings(flags{interval: 800, sortKey: "change", paused: true}, nil, log)
	if s.Running || s.IntervalMs != 800 || s.SortKey != engine.SortByChange {
		t.Errorf("Unexpected settings: %+v", s)
	}

	s = initialSettings(flags{interval: 800, sortKey: "name"}, nil, log)
	if s.SortKey != engine.SortByScore {
		t.Errorf("Expected invalid sort flag to fall back to score, got %q", s.SortKey)
	}
}

func TestInitialSettingsRestored(t *testing.T) {
	log := logger.NewLoggerTo(io.Discard)
	running := false

	s := initialSettings(flags{interval: 1200, sortKey: "score"}, &storage.RestoredControls{
		Running:    &running,
		IntervalMs: 2500,
		SortKey:    "change",
	}, log)
	if s.Running || s.IntervalMs != 2500 || s.SortKey != engine.SortByChange {
		t.Errorf("Expected journal controls to win, got %+v", s)
	}

	// Nothing recorded leaves the flags alone.
	s = initialSettings(flags{interval: 600, sortKey: "score"}, &storage.RestoredControls{}, log)
	if !s.Running || s.IntervalMs != 600 || s.SortKey != engine.SortByScore {
		t.Errorf("Expected flag controls, got %+v", s)
	}
}

func TestSplitNames(t *testing.T) {
	got := splitNames(" Ada, ,Grace,Linus ")
	if len(got) != 3 || got[0] != "Ada" || got[2] != "Linus" {
		t.Errorf("Unexpected names: %q", got)
	}
	if splitNames("") != nil {
		t.Error("Expected no names for empty input")
	}
}

func TestTuneAppliesRecommendations(t *testing.T) {
	appLogger := logger.NewLoggerTo(io.Discard)
	m := metrics.New()
	settings := engine.DefaultSettings()
	settings.Running = false
	board := engine.NewBoard(engine.Options{Settings: &settings, Logger: appLogger, Metrics: m})
	defer board.Close()

	cfg := config.LowResourceConfig()
	hub := network.NewHub(board, cfg, m, appLogger)

	if tune(m.Snapshot(), hub, appLogger) {
		t.Fatal("Expected nothing to apply on a quiet server")
	}

	m.RecordFrameDropped()
	m.RecordWSError()
	if !tune(m.Snapshot(), hub, appLogger) {
		t.Fatal("Expected buffers to be retuned after drops and errors")
	}

	subscriber, client := hub.Retune(&config.Recommendations{})
	if subscriber != cfg.SubscriberBuffer*2 || client != cfg.ClientSendBuffer*2 {
		t.Errorf("Expected doubled buffers, got subscriber=%d client=%d", subscriber, client)
	}
}
