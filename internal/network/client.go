package network

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512

	actorWebSocket = "ws"
)

// Client is one spectator connection. Frames from the hub arrive on send,
// replies to its own commands on reply.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	reply       chan []byte
	lastCommand time.Time
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, hub.clientSendBuffer()),
		reply: make(chan []byte, 8),
	}
}

// Register adds the client to the hub. Returns false if the hub has stopped.
func (c *Client) Register() bool {
	select {
	case c.hub.register <- c:
		return true
	case <-c.hub.done:
		return false
	}
}

// ReadPump pumps control commands from the websocket connection to the board.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Errorf("WebSocket read failed: %v", err)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Warn("Failed to parse command from WebSocket. err: " + err.Error())
			c.replyWith(Frame{Type: FrameError, Error: "invalid command"})
			continue
		}

		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd Command) {
	if cooldown := c.hub.cfg.CommandCooldown; cooldown > 0 && time.Since(c.lastCommand) < cooldown {
		c.hub.metrics.RecordControl(false)
		c.hub.logger.Warn("Rate limit exceeded for command " + cmd.Type)
		c.replyWith(Frame{Type: FrameError, Error: "rate limited"})
		return
	}
	c.lastCommand = time.Now()

	result, err := Apply(c.hub.board, cmd, actorWebSocket)
	if err != nil {
		c.hub.metrics.RecordControl(false)
		c.replyWith(Frame{Type: FrameError, Error: err.Error()})
		return
	}
	c.hub.metrics.RecordControl(true)
	c.replyWith(Frame{Type: FrameAck, Result: &result})
}

func (c *Client) replyWith(f Frame) {
	payload := c.hub.encode(f)
	if payload == nil {
		return
	}
	select {
	case c.reply <- payload:
	default:
		c.hub.metrics.RecordFrameDropped()
	}
}

// WritePump pumps frames to the websocket connection, one frame per message.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		var message []byte
		select {
		case m, ok := <-c.send:
			if !ok {
				// The hub closed the channel.
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			message = m
		case m := <-c.reply:
			message = m
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.metrics.RecordWSError()
			return
		}
		c.hub.metrics.RecordWSMessage(false)
	}
}
