// Package main is the entry point for the live leaderboard server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/LiveSortTable/server/internal/engine"
	"github.com/MRamiBalles/LiveSortTable/server/internal/events"
	"github.com/MRamiBalles/LiveSortTable/server/internal/infra/storage"
	"github.com/MRamiBalles/LiveSortTable/server/internal/network"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/config"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/logger"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/metrics"
)

type flags struct {
	addr     string
	dbPath   string
	interval int
	sortKey  string
	paused   bool
	seed     uint64
	names    string
	preset   string
	restore  bool
	analyze  time.Duration
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&f.dbPath, "db", "leaderboard.db", "SQLite journal path (empty disables the durable journal)")
	flag.IntVar(&f.interval, "interval", engine.DefaultIntervalMs, "Update interval in ms (clamped to 400-3000)")
	flag.StringVar(&f.sortKey, "sort", string(engine.SortByScore), "Initial sort key: score or change")
	flag.BoolVar(&f.paused, "paused", false, "Start with updates paused")
	flag.Uint64Var(&f.seed, "seed", 0, "Random seed (0 picks one from the clock)")
	flag.StringVar(&f.names, "names", "", "Comma-separated entity names (default: built-in list)")
	flag.StringVar(&f.preset, "preset", "default", "Buffer preset: default, stress or low")
	flag.BoolVar(&f.restore, "restore", false, "Restore pause, interval and sort key from the journal")
	flag.DurationVar(&f.analyze, "analyze", 30*time.Second, "How often to log tuning recommendations (0 disables)")
	flag.Parse()
	return f
}

// initialSettings builds the starting controls from flags, overlaid with
// whatever the journal restored.
func initialSettings(f flags, restored *storage.RestoredControls, appLogger *logger.Logger) engine.Settings {
	s := engine.Settings{
		Running:    !f.paused,
		IntervalMs: f.interval,
	}
	if key, err := engine.ParseSortKey(f.sortKey); err != nil {
		appLogger.Warnf("%v, using %s", err, engine.SortByScore)
		s.SortKey = engine.SortByScore
	} else {
		s.SortKey = key
	}

	if restored == nil {
		return s
	}
	if restored.Running != nil {
		s.Running = *restored.Running
	}
	if restored.IntervalMs != 0 {
		s.IntervalMs = restored.IntervalMs
	}
	if key, err := engine.ParseSortKey(restored.SortKey); err == nil {
		s.SortKey = key
	}
	return s
}

func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func main() {
	f := parseFlags()
	log.Println("[LEADERBOARD-SERVER] Initializing live leaderboard server...")

	appLogger := logger.NewLogger()
	m := metrics.Get()

	cfg, ok := config.ByName(f.preset)
	if !ok {
		appLogger.Warnf("Unknown preset %q, using default", f.preset)
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		db        *sql.DB
		persister events.Persister
		recon     *storage.Reconstructor
		restored  *storage.RestoredControls
	)
	if f.dbPath != "" {
		appLogger.Info("Initializing SQLite journal '" + f.dbPath + "'...")
		var err error
		db, err = storage.InitSQLite(f.dbPath)
		if err != nil {
			appLogger.Error("Failed to initialize SQLite: " + err.Error())
			os.Exit(1)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)

		repo := storage.NewSQLiteJournalRepository(db)
		recon = storage.NewReconstructor(repo)

		if f.restore {
			restored, err = recon.RestoreControls(ctx)
			if err != nil {
				appLogger.Warn("Could not restore controls: " + err.Error())
			} else {
				appLogger.Infof("Restored controls from %d journal entries", restored.Entries)
			}
		}

		sessionID := uuid.NewString()
		persister = storage.NewJournalPersister(repo, sessionID, m)
		appLogger.Info("Journal session " + sessionID)
	}

	appLogger.Info("Bootstrapping board...")
	settings := initialSettings(f, restored, appLogger)
	opts := engine.Options{
		Names:            splitNames(f.names),
		Settings:         &settings,
		Journal:          events.NewEventLog(persister),
		Metrics:          m,
		Logger:           appLogger,
		SubscriberBuffer: cfg.SubscriberBuffer,
	}
	if f.seed != 0 {
		opts.Rand = engine.NewRand(f.seed)
	}
	board := engine.NewBoard(opts)
	board.Start(ctx)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(board, cfg, m, appLogger)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	network.NewAPI(board, hub, m, appLogger).RegisterRoutes(mux)
	network.NewJournalHandler(board.Journal(), recon, appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", m.Handler())
	mux.HandleFunc("/metrics/prom", m.PrometheusHandler())

	if f.analyze > 0 {
		go runAnalyzer(ctx, f.analyze, m, hub, appLogger)
	}

	srv := &http.Server{Addr: f.addr, Handler: mux}
	go func() {
		log.Printf("[LEADERBOARD-SERVER] HTTP API & WS Server listening on %s", f.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[LEADERBOARD-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[LEADERBOARD-SERVER] Shutting down...")
	cancel()
	board.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown failed: " + err.Error())
	}
}

// runAnalyzer periodically retunes the hub's buffers from the metrics.
func runAnalyzer(ctx context.Context, every time.Duration, m *metrics.Collector, hub *network.Hub, appLogger *logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tune(m.Snapshot(), hub, appLogger)
		}
	}
}

// tune logs the recommendations for one metrics snapshot and applies the
// buffer changes. It reports whether anything was applied.
func tune(snapshot map[string]interface{}, hub *network.Hub, appLogger *logger.Logger) bool {
	rec := config.Analyze(snapshot)
	for _, note := range rec.Notes {
		appLogger.Warn("Tuning: " + note)
	}
	if !rec.IncreaseSubscriberBuffer && !rec.IncreaseClientBuffer {
		return false
	}
	subscriber, client := hub.Retune(rec)
	appLogger.Infof("Buffers retuned: subscriber=%d client=%d", subscriber, client)
	return true
}
