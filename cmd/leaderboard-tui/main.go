// Package main runs the board in-process and renders it in the terminal.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MRamiBalles/LiveSortTable/server/internal/engine"
	"github.com/MRamiBalles/LiveSortTable/server/internal/events"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/logger"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/metrics"
)

func main() {
	interval := flag.Int("interval", engine.DefaultIntervalMs, "Update interval in ms (clamped to 400-3000)")
	sortKey := flag.String("sort", string(engine.SortByScore), "Initial sort key: score or change")
	paused := flag.Bool("paused", false, "Start with updates paused")
	seed := flag.Uint64("seed", 0, "Random seed (0 picks one from the clock)")
	logPath := flag.String("log", "", "Write logs to this file (default: discard)")
	altScreen := flag.Bool("alt-screen", true, "Use the terminal alternate screen buffer")
	flag.Parse()

	// The terminal belongs to the view.
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	appLogger := logger.NewLoggerTo(logOut)

	key, err := engine.ParseSortKey(*sortKey)
	if err != nil {
		log.Fatal(err)
	}
	settings := engine.Settings{
		Running:    !*paused,
		IntervalMs: *interval,
		SortKey:    key,
	}

	opts := engine.Options{
		Settings: &settings,
		Journal:  events.NewEventLog(nil),
		Metrics:  metrics.New(),
		Logger:   appLogger,
	}
	if *seed != 0 {
		opts.Rand = engine.NewRand(*seed)
	}
	board := engine.NewBoard(opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe := board.Subscribe()
	defer unsubscribe()
	board.Start(ctx)
	defer board.Close()

	programOpts := []tea.ProgramOption{}
	if *altScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	if _, err := tea.NewProgram(newModel(board, updates, nil), programOpts...).Run(); err != nil {
		log.Fatal(err)
	}
}
