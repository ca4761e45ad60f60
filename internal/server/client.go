// Package server manages individual WebSocket clients, handling read/write
// pumps, protocol decoding, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/Tyrowin/chatrelay/internal/config"
)

// Client represents one WebSocket connection in the chat room. The hub owns
// send, closed and state; the pumps own the connection.
type Client struct {
	id    string
	conn  *websocket.Conn
	send  chan []byte
	hub   *Hub
	addr  string
	cfg   config.WebSocketConfig
	log   zerolog.Logger
	state chat.State

	closed bool
}

// NewClient creates a Client with a fresh connection id for conn. conn may be
// nil for clients driven directly through the hub API.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.wsCfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxFrameSize)
	}
	id := uuid.NewString()

	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, hub.sendBuffer),
		hub:  hub,
		addr: addr,
		cfg:  cfg,
		log:  hub.log.With().Str("client_id", id).Str("addr", addr).Logger(),
	}
}

// ID returns the connection id assigned at creation.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's outbound queue. Each item is one encoded
// envelope.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

func (c *Client) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn().Err(err).Msg("Error closing connection")
	}
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.log.Warn().Err(err).Msg("Error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
			c.log.Warn().Err(err).Msg("Error setting read deadline in pong handler")
		}
		return nil
	})
}

// handleReadError logs the read failure at a level matching its cause. Every
// read error ends the read loop.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Int64("limit", c.cfg.MaxFrameSize).Msg("Frame exceeded maximum size")

	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info().Err(err).Msg("Client disconnected")

	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info().Err(err).Msg("Client connection closed")

	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn().Err(err).Msg("Unexpected WebSocket close")

	default:
		c.log.Warn().Err(err).Msg("WebSocket read error")
	}
}

// processMessage decodes one frame and forwards it to the hub. Frames that
// do not decode are dropped.
func (c *Client) processMessage(raw []byte) {
	in, err := chat.DecodeInbound(raw)
	if err != nil {
		c.log.Debug().Err(err).Msg("Discarding undecodable frame")
		return
	}

	switch in.Kind {
	case chat.InboundJoin:
		c.hub.Join(c, in.DisplayName)
	case chat.InboundMessage:
		c.hub.Say(c, in.Content)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.closeConn()
	}()

	c.setupReadConnection()

	for {
		msgType, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		if msgType != websocket.TextMessage {
			c.log.Debug().Int("type", msgType).Msg("Discarding non-text frame")
			continue
		}
		c.processMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case frame, ok := <-c.send:
		return c.handleMessage(frame, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// handleMessage writes one queued frame and returns false if the connection should be closed
func (c *Client) handleMessage(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.log.Warn().Err(err).Msg("Error setting write deadline")
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("Error writing frame")
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close frame once the hub has released the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug().Err(err).Msg("Error writing close message")
		}
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.log.Warn().Err(err).Msg("Error setting write deadline for ping")
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warn().Err(err).Msg("Error writing ping message")
		return false
	}
	return true
}
