// Package config holds the tunable buffer, pool and rate-limit settings.
package config

import (
	"runtime"
	"time"
)

// Config holds tuned parameters for the server and its displays.
type Config struct {
	// Channel buffer sizes
	SubscriberBuffer int // Board updates queued per subscriber
	ClientSendBuffer int // Frames queued per WebSocket

	// Database connections
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Rate limiting
	CommandCooldown time.Duration // Minimum gap between control commands per client
	MaxClients      int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		SubscriberBuffer: 16,
		ClientSendBuffer: 32,

		// SQLite serializes writers anyway
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,

		CommandCooldown: 250 * time.Millisecond,
		MaxClients:      numCPU * 64,
	}
}

// StressTestConfig returns aggressive settings for spectator load runs.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		SubscriberBuffer: 64,
		ClientSendBuffer: 128,

		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,

		CommandCooldown: 0,
		MaxClients:      numCPU * 512,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		SubscriberBuffer: 4,
		ClientSendBuffer: 8,

		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,

		CommandCooldown: time.Second,
		MaxClients:      20,
	}
}

// ByName resolves a preset name from the command line.
func ByName(name string) (*Config, bool) {
	switch name {
	case "", "default":
		return DefaultConfig(), true
	case "stress":
		return StressTestConfig(), true
	case "low":
		return LowResourceConfig(), true
	}
	return nil, false
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseSubscriberBuffer bool
	IncreaseClientBuffer     bool
	Notes                    []string
}

// Analyze examines a metrics snapshot and returns tuning recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	// Ticks must finish well inside the shortest interval (400ms)
	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 50 {
			rec.Notes = append(rec.Notes, "Tick latency exceeds 50ms - check journal persister and subscriber count")
		}
	}

	if journal, ok := metrics["journal"].(map[string]interface{}); ok {
		if errors, ok := journal["errors"].(int64); ok && errors > 0 {
			rec.Notes = append(rec.Notes, "Journal write errors detected - check the database file")
		}
	}

	// Backpressure
	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if dropped, ok := ws["frames_dropped"].(int64); ok && dropped > 0 {
			rec.IncreaseSubscriberBuffer = true
			rec.Notes = append(rec.Notes, "Board frames dropped - increase subscriber buffer")
		}
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseClientBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// MaxTunedBuffer caps how far ApplyRecommendations grows a buffer.
// The counters Analyze reads are cumulative, so every run after the first
// drop repeats the recommendation.
const MaxTunedBuffer = 1024

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseSubscriberBuffer {
		config.SubscriberBuffer = grow(config.SubscriberBuffer)
	}
	if rec.IncreaseClientBuffer {
		config.ClientSendBuffer = grow(config.ClientSendBuffer)
	}
	return config
}

func grow(n int) int {
	if n <= 0 {
		n = 1
	}
	n *= 2
	if n > MaxTunedBuffer {
		return MaxTunedBuffer
	}
	return n
}
