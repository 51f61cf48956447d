package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsechat/internal/app/chat"
)

func wsURL(server *httptest.Server, token string) string {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func dialChat(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, eventType chat.EventType, payload any) {
	t.Helper()

	payloadBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	frame, err := json.Marshal(chat.Envelope{Type: eventType, Payload: payloadBytes})
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readEvent(t *testing.T, conn *websocket.Conn) chat.Envelope {
	t.Helper()

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope chat.Envelope
	require.NoError(t, json.Unmarshal(frame, &envelope))
	return envelope
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	router, _ := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketRejectsInvalidToken(t *testing.T) {
	router, _ := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "bogus.token.here"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketJoinAndChatFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	connA := dialChat(t, server, issueToken(t, "alice"))

	sendEvent(t, connA, chat.EventJoin, "alice")

	joined := readEvent(t, connA)
	require.Equal(t, chat.EventUserJoined, joined.Type)

	var joinedName string
	require.NoError(t, json.Unmarshal(joined.Payload, &joinedName))
	assert.Equal(t, "alice", joinedName)

	userList := readEvent(t, connA)
	require.Equal(t, chat.EventUserList, userList.Type)

	var names []string
	require.NoError(t, json.Unmarshal(userList.Payload, &names))
	assert.ElementsMatch(t, []string{"alice"}, names)

	connB := dialChat(t, server, issueToken(t, "bob"))
	sendEvent(t, connB, chat.EventJoin, "bob")

	// both peers see bob's arrival and the refreshed roster
	for _, conn := range []*websocket.Conn{connA, connB} {
		joined := readEvent(t, conn)
		require.Equal(t, chat.EventUserJoined, joined.Type)

		userList := readEvent(t, conn)
		require.Equal(t, chat.EventUserList, userList.Type)
		require.NoError(t, json.Unmarshal(userList.Payload, &names))
		assert.ElementsMatch(t, []string{"alice", "bob"}, names)
	}

	// chat messages echo to everyone, including the sender
	sendEvent(t, connA, chat.EventChatMessage, chat.ChatMessagePayload{UserName: "alice", Text: "hi", Timestamp: 1700000000})

	for _, conn := range []*websocket.Conn{connA, connB} {
		frame := readEvent(t, conn)
		require.Equal(t, chat.EventChatMessage, frame.Type)

		var msg chat.ChatMessagePayload
		require.NoError(t, json.Unmarshal(frame.Payload, &msg))
		assert.Equal(t, "hi", msg.Text)
	}

	// closing alice's socket announces the leave to bob
	require.NoError(t, connA.Close())

	left := readEvent(t, connB)
	require.Equal(t, chat.EventUserLeft, left.Type)

	var leftName string
	require.NoError(t, json.Unmarshal(left.Payload, &leftName))
	assert.Equal(t, "alice", leftName)

	userList = readEvent(t, connB)
	require.Equal(t, chat.EventUserList, userList.Type)
	require.NoError(t, json.Unmarshal(userList.Payload, &names))
	assert.ElementsMatch(t, []string{"bob"}, names)
}

func TestWebSocketTypingRelayExcludesSender(t *testing.T) {
	router, _ := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	connA := dialChat(t, server, issueToken(t, "alice"))
	sendEvent(t, connA, chat.EventJoin, "alice")
	readEvent(t, connA) // userJoined
	readEvent(t, connA) // userList

	connB := dialChat(t, server, issueToken(t, "bob"))
	sendEvent(t, connB, chat.EventJoin, "bob")
	readEvent(t, connB) // userJoined
	readEvent(t, connB) // userList
	readEvent(t, connA) // userJoined (bob)
	readEvent(t, connA) // userList

	sendEvent(t, connA, chat.EventTyping, chat.TypingPayload{UserName: "alice"})

	frame := readEvent(t, connB)
	require.Equal(t, chat.EventUserTyping, frame.Type)

	var typing chat.TypingPayload
	require.NoError(t, json.Unmarshal(frame.Payload, &typing))
	assert.Equal(t, "alice", typing.UserName)

	// the sender must not receive its own typing echo
	require.NoError(t, connA.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := connA.ReadMessage()
	assert.Error(t, err, "expected read timeout, sender got its own typing echo")
}
