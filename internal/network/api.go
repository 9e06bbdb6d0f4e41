// Package network - api.go
// REST surface for the board: read the ranked view and drive the controls.
package network

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MRamiBalles/LiveSortTable/server/internal/engine"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/logger"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/metrics"
	"github.com/MRamiBalles/LiveSortTable/server/internal/view"
)

const actorAPI = "api"

// API serves the board over plain HTTP.
type API struct {
	board   *engine.Board
	hub     *Hub
	metrics *metrics.Collector
	logger  *logger.Logger
}

// NewAPI creates the REST handlers. hub may be nil.
func NewAPI(board *engine.Board, hub *Hub, m *metrics.Collector, log *logger.Logger) *API {
	if m == nil {
		m = metrics.Get()
	}
	if log == nil {
		log = logger.NewLogger()
	}
	return &API{
		board:   board,
		hub:     hub,
		metrics: m,
		logger:  log,
	}
}

// BoardResponse is the ranked board as the widget renders it.
type BoardResponse struct {
	Tick        uint64          `json:"tick"`
	Settings    engine.Settings `json:"settings"`
	Rows        []view.Row      `json:"rows"`
	Spectators  int             `json:"spectators"`
	GeneratedAt string          `json:"generated_at"`
}

// HandleBoard returns the current ranked board.
// GET /api/board
func (a *API) HandleBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u := a.board.Current()
	now := time.Now()
	rows, _ := view.Project(u.Board, now, nil)

	spectators := 0
	if a.hub != nil {
		spectators = a.hub.ClientCount()
	}

	jsonSuccess(w, BoardResponse{
		Tick:        u.Tick,
		Settings:    u.Settings,
		Rows:        rows,
		Spectators:  spectators,
		GeneratedAt: now.Format(time.RFC3339),
	})
}

// HandleEntities returns the raw entities without display projection.
// GET /api/entities            creation order
// GET /api/entities?order=rank current sort order
func (a *API) HandleEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Query().Get("order") {
	case "", "created":
		jsonSuccess(w, a.board.Snapshot())
	case "rank":
		jsonSuccess(w, a.board.Ranked())
	default:
		jsonError(w, "order must be created or rank", http.StatusBadRequest)
	}
}

// HandleSettings returns the running flag, interval and sort key.
// GET /api/settings
func (a *API) HandleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, a.board.Settings())
}

// HandleControl applies one control command named by the last path segment.
// POST /api/control/pause | resume | interval {"interval_ms"} | sort {"sort_key"}
func (a *API) HandleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.Type = strings.TrimPrefix(r.URL.Path, "/api/control/")

	result, err := Apply(a.board, cmd, actorAPI)
	if err != nil {
		a.metrics.RecordControl(false)
		status := http.StatusBadRequest
		if errors.Is(err, ErrUnknownCommand) {
			status = http.StatusNotFound
		}
		jsonError(w, err.Error(), status)
		return
	}

	a.metrics.RecordControl(true)
	jsonSuccess(w, result)
}

// RegisterRoutes sets up the board API routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/board", a.HandleBoard)
	mux.HandleFunc("/api/entities", a.HandleEntities)
	mux.HandleFunc("/api/settings", a.HandleSettings)
	mux.HandleFunc("/api/control/", a.HandleControl)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
