/*
Package chat contains the realtime core: the connection registry, the online
roster, and the broadcast fan-out loop.

This file defines the Client struct, one per live WebSocket connection. It
owns outbound delivery to exactly one remote peer (WritePump), feeds inbound
frames to the Hub (ReadPump), and carries the peer's claimed display name
once a join event arrives.
*/
package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pulsechat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// capacity of each client's outbound queue.
	sendQueueSize = 256
)

// Client represents one live connection and its routing state.
type Client struct {
	// id is the opaque connection identifier, assigned at upgrade time.
	id string

	// the hub this connection is registered with.
	hub *Hub

	// underlying WebSocket connection.
	conn *websocket.Conn

	// userName is the display name bound by a join event, empty until then.
	// Owned by the hub's run loop after registration.
	userName string

	// send queues frames waiting to be written to the peer.
	send chan []byte

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for a freshly upgraded connection and assigns
// its connection ID.
func NewClient(hub *Hub, wsConn *websocket.Conn) *Client {
	id := uuid.NewString()

	clientLogger := logx.Logger().With().
		Str("conn_id", id).
		Logger()

	return &Client{
		id:     id,
		hub:    hub,
		conn:   wsConn,
		send:   make(chan []byte, sendQueueSize),
		logger: clientLogger,
	}
}

// ID returns the opaque connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Name returns the bound display name, or "" when the connection never joined.
func (c *Client) Name() string {
	return c.userName
}

// bindName binds (or rebinds) the display name. Rebinding is allowed without
// restriction. Called only from the hub's run loop.
func (c *Client) bindName(name string) {
	c.userName = name
}

// enqueue places a frame on the client's send queue without blocking.
// A full queue means the peer is too slow or gone; the frame is dropped and
// false is returned so the hub can unregister the connection.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping frame")
		return false
	}
}

// ReadPump reads frames from the WebSocket connection and forwards them to
// the hub. It handles heartbeats (Pong) and performs cleanup when the
// connection closes, however it closes.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// processInboundFrame parses a raw frame and hands it to the hub. Frames that
// are not valid envelope JSON are dropped; payloads are not validated here.
func (c *Client) processInboundFrame(frameBytes []byte) {
	var envelope Envelope
	if err := json.Unmarshal(frameBytes, &envelope); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame_bytes", frameBytes).
			Msg("Client sent invalid JSON")
		return
	}

	c.hub.Route(c, envelope)
}

// cleanupOnDisconnect runs when ReadPump terminates: it unregisters the
// connection from the hub and closes the socket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.hub.Unregister(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued frames to the WebSocket connection and sends
// periodic Ping messages to keep the heartbeat alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send queue. Returns true
// if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		// send queue closed by the hub
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic Ping. Returns false if the WritePump loop
// should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
