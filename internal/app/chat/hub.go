/*
Package chat contains the realtime core: the connection registry, the online
roster, and the broadcast fan-out loop.

This file defines the Hub, the single-room broadcast engine. One run loop
owns the connection map and serializes every roster mutation, so a userList
snapshot is never stale relative to the join or disconnect that produced it.
Delivery to peers goes through each client's buffered send queue and never
blocks the loop; a connection whose queue is full is treated as dead.
*/
package chat

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"pulsechat/internal/pkg/logx"
)

const (
	// inboundQueueSize is the capacity of the hub's inbound event channel.
	inboundQueueSize = 1024

	// deadQueueSize bounds how many dead connections detected during one
	// fan-out can wait for unregistration.
	deadQueueSize = 64
)

// inboundEvent pairs a decoded envelope with the connection it arrived on.
type inboundEvent struct {
	client   *Client
	envelope Envelope
}

// Hub routes inbound events to the roster and fans out to all connections.
type Hub struct {
	// presence is the roster of online display names.
	presence Presence

	// clients holds every registered connection, keyed by connection ID.
	// Owned exclusively by the Run loop.
	clients map[string]*Client

	// register queues freshly upgraded connections.
	register chan *Client

	// unregister queues disconnecting or dead connections.
	unregister chan *Client

	// inbound queues decoded client frames for routing.
	inbound chan inboundEvent

	// stop signals the Run loop to terminate.
	stop chan struct{}

	// done is closed when the Run loop has finished its cleanup.
	done chan struct{}

	// structured logger with hub context.
	logger zerolog.Logger
}

// NewHub constructs a Hub around the given roster implementation.
func NewHub(presence Presence) *Hub {
	hubLogger := logx.Logger().With().Str("component", "Hub").Logger()

	return &Hub{
		presence:   presence,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client, deadQueueSize),
		inbound:    make(chan inboundEvent, inboundQueueSize),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     hubLogger,
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.stop:
	}
}

// Unregister removes a connection from the hub. Safe to call more than once
// for the same connection.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

// Route hands an inbound envelope to the run loop for processing.
func (h *Hub) Route(c *Client, envelope Envelope) {
	select {
	case h.inbound <- inboundEvent{client: c, envelope: envelope}:
	case <-h.stop:
	}
}

// Stop signals the Run loop to terminate.
func (h *Hub) Stop() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
}

// Shutdown stops the hub and waits for the Run loop to finish cleanup.
func (h *Hub) Shutdown() {
	h.Stop()
	<-h.done
}

// Run is the hub's event loop. It processes one event at a time to
// completion: registrations, disconnects, and inbound frames from any
// connection all funnel through here.
func (h *Hub) Run() {
	defer func() {
		for _, client := range h.clients {
			close(client.send)
		}
		h.clients = nil

		h.logger.Info().Msg("Hub run loop finished.")
		close(h.done)
	}()

	h.logger.Info().Msg("Hub run loop started.")

	for {
		select {
		case client := <-h.register:
			h.clients[client.id] = client
			h.logger.Info().
				Str("conn_id", client.id).
				Int("total_conns", len(h.clients)).
				Msg("Connection registered.")

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case ev := <-h.inbound:
			h.routeEvent(ev)

		case <-h.stop:
			h.logger.Info().Msg("Hub stop initiated.")
			return
		}
	}
}

// routeEvent dispatches one inbound event per the fan-out policy:
//
//	join        -> bind name, roster add; userJoined to all on the
//	               offline->online transition; userList to all, always
//	chatMessage -> relayed verbatim to all, including the sender
//	typing      -> userTyping to all except the sender
//	stopTyping  -> userStopTyping to all except the sender
//
// None of the relayed events require the sender to have joined first.
func (h *Hub) routeEvent(ev inboundEvent) {
	switch ev.envelope.Type {
	case EventJoin:
		h.handleJoin(ev.client, ev.envelope.Payload)

	case EventChatMessage:
		frame, err := encodeRelay(EventChatMessage, ev.envelope.Payload)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to encode chatMessage relay.")
			return
		}
		h.broadcast(frame, nil)

	case EventTyping:
		frame, err := encodeRelay(EventUserTyping, ev.envelope.Payload)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to encode userTyping relay.")
			return
		}
		h.broadcast(frame, ev.client)

	case EventStopTyping:
		frame, err := encodeRelay(EventUserStopTyping, ev.envelope.Payload)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to encode userStopTyping relay.")
			return
		}
		h.broadcast(frame, ev.client)

	default:
		h.logger.Warn().
			Str("event_type", string(ev.envelope.Type)).
			Msg("Client sent unsupported event type.")
	}
}

// handleJoin binds the claimed name to the connection and updates the roster.
// Rejoining with an already-online name never re-announces the join, but the
// roster snapshot is redistributed so every peer stays in sync.
func (h *Hub) handleJoin(client *Client, payload json.RawMessage) {
	var name string
	if err := json.Unmarshal(payload, &name); err != nil {
		h.logger.Warn().Err(err).
			Str("conn_id", client.id).
			Msg("Client sent malformed join payload.")
		return
	}

	wasOffline := h.presence.Add(name)
	client.bindName(name)

	h.logger.Info().
		Str("conn_id", client.id).
		Str("user_name", name).
		Bool("was_offline", wasOffline).
		Msg("Connection joined.")

	if wasOffline {
		if frame, err := encodeEvent(EventUserJoined, name); err != nil {
			h.logger.Error().Err(err).Msg("Failed to encode userJoined event.")
		} else {
			h.broadcast(frame, nil)
		}
	}

	h.broadcastUserList()
}

// handleDisconnect removes the connection from the hub. A connection that
// never joined leaves silently; a bound one produces a leave notification
// and a fresh roster snapshot for the remaining peers.
func (h *Hub) handleDisconnect(client *Client) {
	current, ok := h.clients[client.id]
	if !ok || current != client {
		// already removed, or a stale handle
		return
	}

	delete(h.clients, client.id)
	close(client.send)

	h.logger.Info().
		Str("conn_id", client.id).
		Int("total_conns", len(h.clients)).
		Msg("Connection unregistered.")

	name := client.Name()
	if name == "" {
		return
	}

	h.presence.Remove(name)

	if frame, err := encodeEvent(EventUserLeft, name); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode userLeft event.")
	} else {
		h.broadcast(frame, nil)
	}

	h.broadcastUserList()
}

// broadcastUserList fans out the current roster snapshot to every connection.
func (h *Hub) broadcastUserList() {
	frame, err := encodeEvent(EventUserList, h.presence.Snapshot())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode userList event.")
		return
	}
	h.broadcast(frame, nil)
}

// broadcast delivers one frame to every registered connection, skipping
// except when set. Delivery is fire-and-forget: a connection that cannot
// accept the frame is queued for unregistration and the frame is dropped
// for that peer, never retried.
func (h *Hub) broadcast(frame []byte, except *Client) {
	for _, client := range h.clients {
		if client == except {
			continue
		}

		if !client.enqueue(frame) {
			select {
			case h.unregister <- client:
			default:
				h.logger.Warn().
					Str("conn_id", client.id).
					Msg("Unregister queue full, dead connection cleanup deferred.")
			}
		}
	}
}
