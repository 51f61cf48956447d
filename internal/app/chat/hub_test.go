package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameWait = 500 * time.Millisecond

// startHub runs a hub over a fresh Roster and tears it down with the test.
func startHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub(NewRoster())
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	return hub
}

// connect registers a conn-less client; the hub only ever touches the send
// queue, so no WebSocket is needed.
func connect(t *testing.T, hub *Hub) *Client {
	t.Helper()

	client := NewClient(hub, nil)
	hub.Register(client)
	return client
}

// readFrame pops the next frame delivered to the client, failing the test on
// timeout or a closed queue.
func readFrame(t *testing.T, client *Client) Envelope {
	t.Helper()

	select {
	case frame, ok := <-client.send:
		require.True(t, ok, "send queue closed while a frame was expected")

		var envelope Envelope
		require.NoError(t, json.Unmarshal(frame, &envelope))
		return envelope

	case <-time.After(frameWait):
		t.Fatal("timed out waiting for a frame")
		return Envelope{}
	}
}

// expectNoFrame asserts nothing is delivered to the client within a grace
// period.
func expectNoFrame(t *testing.T, client *Client) {
	t.Helper()

	select {
	case frame, ok := <-client.send:
		if ok {
			t.Fatalf("unexpected frame delivered: %s", frame)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func join(hub *Hub, client *Client, name string) {
	payload, _ := json.Marshal(name)
	hub.Route(client, Envelope{Type: EventJoin, Payload: payload})
}

func decodeString(t *testing.T, payload json.RawMessage) string {
	t.Helper()

	var s string
	require.NoError(t, json.Unmarshal(payload, &s))
	return s
}

func decodeUserList(t *testing.T, envelope Envelope) []string {
	t.Helper()

	require.Equal(t, EventUserList, envelope.Type)
	var names []string
	require.NoError(t, json.Unmarshal(envelope.Payload, &names))
	return names
}

func TestJoinAnnouncesToAllIncludingSender(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub)

	join(hub, a, "alice")

	joined := readFrame(t, a)
	assert.Equal(t, EventUserJoined, joined.Type)
	assert.Equal(t, "alice", decodeString(t, joined.Payload))

	assert.ElementsMatch(t, []string{"alice"}, decodeUserList(t, readFrame(t, a)))
}

func TestRejoinOnlyRedistributesUserList(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub)
	b := connect(t, hub)

	join(hub, a, "alice")
	join(hub, b, "alice")

	// A sees: userJoined, userList (its own join), then only the userList
	// triggered by B's join of the already-online name.
	assert.Equal(t, EventUserJoined, readFrame(t, a).Type)
	assert.ElementsMatch(t, []string{"alice"}, decodeUserList(t, readFrame(t, a)))
	assert.ElementsMatch(t, []string{"alice"}, decodeUserList(t, readFrame(t, a)))
	expectNoFrame(t, a)
}

func TestChatMessageRelayedVerbatimToAll(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub)
	b := connect(t, hub)

	payload, _ := json.Marshal(ChatMessagePayload{UserName: "alice", Text: "hi", Timestamp: 1700000000})
	hub.Route(a, Envelope{Type: EventChatMessage, Payload: payload})

	for _, client := range []*Client{a, b} {
		frame := readFrame(t, client)
		assert.Equal(t, EventChatMessage, frame.Type)
		assert.JSONEq(t, string(payload), string(frame.Payload))
	}
}

func TestChatMessageNotGatedOnJoin(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub)

	payload, _ := json.Marshal(map[string]string{"text": "early bird"})
	hub.Route(a, Envelope{Type: EventChatMessage, Payload: payload})

	frame := readFrame(t, a)
	assert.Equal(t, EventChatMessage, frame.Type)
}

func TestTypingExcludesSender(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub)
	b := connect(t, hub)

	payload, _ := json.Marshal(TypingPayload{UserName: "alice"})
	hub.Route(a, Envelope{Type: EventTyping, Payload: payload})

	frame := readFrame(t, b)
	assert.Equal(t, EventUserTyping, frame.Type)
	assert.JSONEq(t, string(payload), string(frame.Payload))

	expectNoFrame(t, a)
}

func TestStopTypingExcludesSender(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub)
	b := connect(t, hub)

	payload, _ := json.Marshal(TypingPayload{UserName: "alice"})
	hub.Route(a, Envelope{Type: EventStopTyping, Payload: payload})

	frame := readFrame(t, b)
	assert.Equal(t, EventUserStopTyping, frame.Type)

	expectNoFrame(t, a)
}

func TestDisconnectWithoutJoinIsSilent(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub)
	b := connect(t, hub)

	hub.Unregister(a)

	expectNoFrame(t, b)
}

func TestDisconnectAnnouncesLeaveToRemaining(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub)
	b := connect(t, hub)

	join(hub, a, "alice")
	join(hub, b, "bob")

	// drain B: alice's userJoined+userList happened before B connected only
	// if B registered later; here B was present for both joins.
	for i := 0; i < 4; i++ {
		readFrame(t, b)
	}

	hub.Unregister(a)

	left := readFrame(t, b)
	assert.Equal(t, EventUserLeft, left.Type)
	assert.Equal(t, "alice", decodeString(t, left.Payload))

	assert.ElementsMatch(t, []string{"bob"}, decodeUserList(t, readFrame(t, b)))
}

func TestUnsupportedEventIsDropped(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub)

	hub.Route(a, Envelope{Type: "mystery", Payload: json.RawMessage(`{}`)})

	expectNoFrame(t, a)
}

func TestMalformedJoinPayloadIsDropped(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub)

	hub.Route(a, Envelope{Type: EventJoin, Payload: json.RawMessage(`{"not":"a string"}`)})

	expectNoFrame(t, a)
}

// TestJoinChatLeaveSequence walks the canonical two-user session end to end.
func TestJoinChatLeaveSequence(t *testing.T) {
	hub := startHub(t)

	a := connect(t, hub)
	join(hub, a, "alice")

	joined := readFrame(t, a)
	require.Equal(t, EventUserJoined, joined.Type)
	require.Equal(t, "alice", decodeString(t, joined.Payload))
	require.ElementsMatch(t, []string{"alice"}, decodeUserList(t, readFrame(t, a)))

	b := connect(t, hub)
	join(hub, b, "bob")

	for _, client := range []*Client{a, b} {
		joined := readFrame(t, client)
		require.Equal(t, EventUserJoined, joined.Type)
		require.Equal(t, "bob", decodeString(t, joined.Payload))
		require.ElementsMatch(t, []string{"alice", "bob"}, decodeUserList(t, readFrame(t, client)))
	}

	chatPayload, _ := json.Marshal(ChatMessagePayload{UserName: "alice", Text: "hi"})
	hub.Route(a, Envelope{Type: EventChatMessage, Payload: chatPayload})

	for _, client := range []*Client{a, b} {
		frame := readFrame(t, client)
		require.Equal(t, EventChatMessage, frame.Type)
		require.JSONEq(t, string(chatPayload), string(frame.Payload))
	}

	hub.Unregister(a)

	left := readFrame(t, b)
	require.Equal(t, EventUserLeft, left.Type)
	require.Equal(t, "alice", decodeString(t, left.Payload))
	require.ElementsMatch(t, []string{"bob"}, decodeUserList(t, readFrame(t, b)))
}

func TestShutdownClosesClientQueues(t *testing.T) {
	hub := NewHub(NewRoster())
	go hub.Run()

	a := connect(t, hub)
	hub.Shutdown()

	for {
		select {
		case _, ok := <-a.send:
			if !ok {
				return
			}
		case <-time.After(frameWait):
			t.Fatal("send queue not closed on shutdown")
		}
	}
}
