package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/yourusername/bearoffsim/pkg/endgame"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is a generic WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`    // Message type: "decide", "play", "simulate", "exact", "ping"
	ID      string          `json:"id"`      // Request ID for correlating responses
	Payload json.RawMessage `json:"payload"` // Type-specific payload
}

// WSResponse is a generic WebSocket response.
type WSResponse struct {
	Type    string      `json:"type"`              // Response type: "result", "progress", "error", "pong"
	ID      string      `json:"id,omitempty"`      // Request ID
	Payload interface{} `json:"payload,omitempty"` // Response data
	Error   string      `json:"error,omitempty"`   // Error message if any
}

// WSClient represents a connected WebSocket client. ctx ends when the
// connection does, cancelling any simulation the client started.
type WSClient struct {
	conn     *websocket.Conn
	handlers *Handlers
	sendChan chan WSResponse
	ctx      context.Context
	cancel   context.CancelFunc
}

// WebSocket handles WebSocket connections for interactive play and
// simulations with live progress.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	client := &WSClient{
		conn:     conn,
		handlers: h,
		sendChan: make(chan WSResponse, 256),
		ctx:      ctx,
		cancel:   cancel,
	}
	go client.writePump()
	client.readPump()
}

// writePump sends queued responses. After a failed write it keeps draining
// sendChan so a running simulation never blocks on a dead client.
func (c *WSClient) writePump() {
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.cancel()
			c.conn.Close()
			break
		}
	}
	for range c.sendChan {
	}
	c.conn.Close()
}

func (c *WSClient) readPump() {
	defer func() { c.cancel(); close(c.sendChan); c.conn.Close() }()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "decide":
		c.handleDecide(msg)
	case "play":
		c.handlePlay(msg)
	case "simulate":
		c.handleSimulate(msg)
	case "exact":
		c.handleExact(msg)
	case "ping":
		c.sendChan <- WSResponse{Type: "pong", ID: msg.ID}
	default:
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "unknown message type"}
	}
}

func (c *WSClient) reply(msg WSMessage, payload interface{}, err error) {
	if err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: err.Error()}
		return
	}
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: payload}
}

// acquireFast takes a fast slot for msg, replying "server busy" when the
// lane is full.
func (c *WSClient) acquireFast(msg WSMessage) bool {
	pool := c.handlers.pool
	if pool == nil || pool.TryAcquireFast() {
		return true
	}
	c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "server busy"}
	return false
}

func (c *WSClient) releaseFast() {
	if pool := c.handlers.pool; pool != nil {
		pool.ReleaseFast()
	}
}

func (c *WSClient) handleDecide(msg WSMessage) {
	var req DecideRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload"}
		return
	}
	if !c.acquireFast(msg) {
		return
	}
	defer c.releaseFast()
	resp, err := c.handlers.decide(req)
	c.reply(msg, resp, err)
}

func (c *WSClient) handlePlay(msg WSMessage) {
	var req PlayRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload"}
		return
	}
	if !c.acquireFast(msg) {
		return
	}
	defer c.releaseFast()
	resp, err := c.handlers.play(req)
	c.reply(msg, resp, err)
}

func (c *WSClient) handleSimulate(msg WSMessage) {
	var req SimulateRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload"}
		return
	}
	if pool := c.handlers.pool; pool != nil {
		if !pool.TryAcquireSlow() {
			c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "server busy"}
			return
		}
		defer pool.ReleaseSlow()
	}
	progress := func(p endgame.Progress) {
		c.sendChan <- WSResponse{Type: "progress", ID: msg.ID, Payload: toProgressResponse(p)}
	}
	resp, err := c.handlers.simulate(c.ctx, req, progress)
	c.reply(msg, resp, err)
}

func (c *WSClient) handleExact(msg WSMessage) {
	var req ExactRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload"}
		return
	}
	if pool := c.handlers.pool; pool != nil {
		if !pool.TryAcquireSlow() {
			c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "server busy"}
			return
		}
		defer pool.ReleaseSlow()
	}
	resp, err := c.handlers.exactDistribution(req)
	c.reply(msg, resp, err)
}
