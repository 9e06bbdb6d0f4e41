package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/LiveSortTable/server/internal/engine"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/config"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/logger"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/metrics"
	"github.com/MRamiBalles/LiveSortTable/server/internal/view"
)

// Frame types pushed to spectators.
const (
	FrameBoard  = "board"
	FrameNotice = "notice"
	FrameAck    = "ack"
	FrameError  = "error"
)

// Frame is one JSON message on the WebSocket.
type Frame struct {
	Type     string           `json:"type"`
	Tick     uint64           `json:"tick,omitempty"`
	Settings *engine.Settings `json:"settings,omitempty"`
	Rows     []view.Row       `json:"rows,omitempty"`
	Notice   *engine.Notice   `json:"notice,omitempty"`
	Result   *ControlResult   `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // The widget may be embedded on any page
	},
}

// Hub maintains the set of active spectators and pushes every board update to them.
type Hub struct {
	board      *engine.Board
	cfg        *config.Config
	cfgMu      sync.Mutex // Guards the buffer sizes Retune changes
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *logger.Logger
	metrics    *metrics.Collector

	// Owned by Run
	positions view.Positions
	latest    []byte
}

// NewHub initializes a hub following board.
func NewHub(board *engine.Board, cfg *config.Config, m *metrics.Collector, log *logger.Logger) *Hub {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	own := *cfg
	cfg = &own
	if m == nil {
		m = metrics.Get()
	}
	if log == nil {
		log = logger.NewLogger()
	}
	return &Hub{
		board:      board,
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log,
		metrics:    m,
	}
}

// Retune applies buffer recommendations to the live config. Spectators and
// board subscriptions created afterwards get the new sizes.
func (h *Hub) Retune(rec *config.Recommendations) (subscriber, client int) {
	h.cfgMu.Lock()
	config.ApplyRecommendations(h.cfg, rec)
	subscriber, client = h.cfg.SubscriberBuffer, h.cfg.ClientSendBuffer
	h.cfgMu.Unlock()

	if rec.IncreaseSubscriberBuffer {
		h.board.SetSubscriberBuffer(subscriber)
	}
	return subscriber, client
}

func (h *Hub) clientSendBuffer() int {
	h.cfgMu.Lock()
	defer h.cfgMu.Unlock()
	return h.cfg.ClientSendBuffer
}

// Run is the hub's main loop. It returns when ctx is cancelled or the board closes.
func (h *Hub) Run(ctx context.Context) {
	updates, cancel := h.board.Subscribe()
	defer cancel()
	defer h.shutdown()

	h.latest = h.encode(h.boardFrame(h.board.Current()))

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New spectator connected")
			if h.latest != nil {
				select {
				case client.send <- h.latest:
				default:
				}
			}
		case client := <-h.unregister:
			h.drop(client)
		case u, ok := <-updates:
			if !ok {
				h.logger.Info("Board closed, WebSocket Hub stopping.")
				return
			}
			h.handleUpdate(u)
		}
	}
}

// ClientCount returns the number of connected spectators.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches a spectator.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.cfg.MaxClients > 0 && h.ClientCount() >= h.cfg.MaxClients {
		http.Error(w, "Too many spectators", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Errorf("Failed to upgrade websocket connection: %v", err)
		return
	}

	client := NewClient(h, conn)
	if !client.Register() {
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}

func (h *Hub) handleUpdate(u engine.Update) {
	h.latest = h.encode(h.boardFrame(u))
	h.broadcast(h.latest)

	if u.Notice != nil {
		h.broadcast(h.encode(Frame{Type: FrameNotice, Tick: u.Tick, Notice: u.Notice}))
	}
}

func (h *Hub) boardFrame(u engine.Update) Frame {
	rows, pos := view.Project(u.Board, time.Now(), h.positions)
	h.positions = pos
	settings := u.Settings
	return Frame{Type: FrameBoard, Tick: u.Tick, Settings: &settings, Rows: rows}
}

func (h *Hub) encode(f Frame) []byte {
	payload, err := json.Marshal(f)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s frame: %v", f.Type, err)
		return nil
	}
	return payload
}

func (h *Hub) broadcast(message []byte) {
	if message == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Too slow to keep up; the widget reconnects and gets the latest frame.
			h.metrics.RecordFrameDropped()
			h.metrics.RecordWSConnection(-1)
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.metrics.RecordWSConnection(-1)
		h.logger.Info("Spectator disconnected")
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		h.metrics.RecordWSConnection(-1)
	}
}
