// Package main - spectator
// Load generator: many concurrent spectators reading board frames over
// WebSocket, optionally firing control commands.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
)

// Config for the spectator run
type Config struct {
	ServerURL       string
	NumClients      int
	CommandInterval time.Duration // 0 = read-only spectators
	TestDuration    time.Duration
	ResultsPath     string
}

// Stats tracks what the spectators saw.
type Stats struct {
	FramesReceived int64
	BoardFrames    int64
	NoticeFrames   int64
	CommandsSent   int64
	CommandErrors  int64
	Errors         int64
	Gaps           []time.Duration // Time between consecutive board frames
	mu             sync.Mutex
}

// frame is the subset of the server frame the spectator inspects.
type frame struct {
	Type  string `json:"type"`
	Tick  uint64 `json:"tick"`
	Error string `json:"error"`
}

var commands = []map[string]interface{}{
	{"type": "pause"},
	{"type": "resume"},
	{"type": "sort", "sort_key": "score"},
	{"type": "sort", "sort_key": "change"},
	{"type": "interval", "interval_ms": 400},
	{"type": "interval", "interval_ms": 1200},
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent spectators")
	interval := flag.Duration("commands", 0, "Control command interval per spectator (0 = watch only)")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	results := flag.String("out", "spectator_results.json", "Where to write the JSON results (empty disables)")
	flag.Parse()

	config := Config{
		ServerURL:       *serverURL,
		NumClients:      *numClients,
		CommandInterval: *interval,
		TestDuration:    *duration,
		ResultsPath:     *results,
	}

	fmt.Println("=========================================")
	fmt.Println("SPECTATOR - Leaderboard load tool")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", config.ServerURL)
	fmt.Printf("Clients:  %d\n", config.NumClients)
	fmt.Printf("Commands: %v\n", config.CommandInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	stats := runSpectators(ctx, config)
	printResults(stats, config)
}

func runSpectators(ctx context.Context, config Config) *Stats {
	stats := &Stats{Gaps: make([]time.Duration, 0, 10000)}

	var wg sync.WaitGroup
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d spectators started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: frames=%s commands=%d errors=%d\n",
					humanize.Comma(atomic.LoadInt64(&stats.FramesReceived)),
					atomic.LoadInt64(&stats.CommandsSent),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Spectator %d: connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if config.CommandInterval > 0 {
		go sendCommands(ctx, conn, config.CommandInterval, stats)
	}

	var last time.Time
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				atomic.AddInt64(&stats.Errors, 1)
			}
			return
		}
		atomic.AddInt64(&stats.FramesReceived, 1)

		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			atomic.AddInt64(&stats.Errors, 1)
			continue
		}
		switch f.Type {
		case "board":
			atomic.AddInt64(&stats.BoardFrames, 1)
			now := time.Now()
			if !last.IsZero() {
				stats.mu.Lock()
				stats.Gaps = append(stats.Gaps, now.Sub(last))
				stats.mu.Unlock()
			}
			last = now
		case "notice":
			atomic.AddInt64(&stats.NoticeFrames, 1)
		case "error":
			atomic.AddInt64(&stats.CommandErrors, 1)
		}
	}
}

func sendCommands(ctx context.Context, conn *websocket.Conn, every time.Duration, stats *Stats) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cmd := commands[rand.IntN(len(commands))]
			if err := conn.WriteJSON(cmd); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.CommandsSent, 1)
		}
	}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("SPECTATOR RESULTS")
	fmt.Println("=========================================")

	frames := atomic.LoadInt64(&stats.FramesReceived)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Frames Received:   %s\n", humanize.Comma(frames))
	fmt.Printf("  Board:           %s\n", humanize.Comma(atomic.LoadInt64(&stats.BoardFrames)))
	fmt.Printf("  Notices:         %s\n", humanize.Comma(atomic.LoadInt64(&stats.NoticeFrames)))
	fmt.Printf("Commands Sent:     %d (%d rejected)\n", atomic.LoadInt64(&stats.CommandsSent), atomic.LoadInt64(&stats.CommandErrors))
	fmt.Printf("Errors:            %d\n", errs)

	throughput := float64(frames) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f frames/sec\n", throughput)

	if len(stats.Gaps) > 0 {
		var total time.Duration
		min, max := stats.Gaps[0], stats.Gaps[0]
		for _, g := range stats.Gaps {
			total += g
			if g < min {
				min = g
			}
			if g > max {
				max = g
			}
		}

		fmt.Printf("\nBoard frame gap:\n")
		fmt.Printf("  Min: %v\n", min)
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(stats.Gaps)))
		fmt.Printf("  Max: %v\n", max)
	}

	fmt.Println("\n-----------------------------------------")
	if errs == 0 {
		fmt.Println("PASSED: every spectator kept up")
	} else if float64(errs) < float64(config.NumClients)*0.05 {
		fmt.Println("WARNING: some spectators dropped")
	} else {
		fmt.Println("FAILED: high error rate")
	}
	fmt.Println("=========================================")

	if config.ResultsPath == "" {
		return
	}
	results := map[string]interface{}{
		"frames_received":    frames,
		"commands_sent":      atomic.LoadInt64(&stats.CommandsSent),
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"commands": config.CommandInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.ResultsPath, jsonData, 0644); err != nil {
		log.Printf("Failed to save results: %v", err)
		return
	}
	fmt.Printf("\nResults saved to %s\n", config.ResultsPath)
}
