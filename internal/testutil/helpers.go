// Package testutil provides helpers shared by the relay's tests: HTTP request
// assertions and a small WebSocket client that speaks the chat envelope.
package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

// DefaultTimeout bounds every blocking read in these helpers.
const DefaultTimeout = 2 * time.Second

// WebSocketURL turns an httptest server URL into the relay's ws endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err, "Failed to create request")

	resp, err := client.Do(req)
	require.NoError(t, err, "Failed to make request")

	return resp
}

// ConnectWebSocket dials url presenting origin. An empty origin sends no
// Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// MustConnect dials url with origin and registers a cleanup that closes the
// connection.
func MustConnect(t *testing.T, url, origin string) *websocket.Conn {
	t.Helper()
	conn, err := ConnectWebSocket(url, origin)
	require.NoError(t, err, "Failed to connect")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendJoin sends a join event carrying name.
func SendJoin(conn *websocket.Conn, name string) error {
	return sendEnvelope(conn, chat.EventJoin, name)
}

// SendChat sends a message event carrying content.
func SendChat(conn *websocket.Conn, content string) error {
	return sendEnvelope(conn, chat.EventMessage, map[string]string{"content": content})
}

func sendEnvelope(conn *websocket.Conn, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(chat.Envelope{Event: event, Data: raw})
}

// ReadEnvelope reads the next frame within timeout.
func ReadEnvelope(conn *websocket.Conn, timeout time.Duration) (chat.Envelope, error) {
	var env chat.Envelope
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return env, err
	}
	err := conn.ReadJSON(&env)
	return env, err
}

// DecodeFrame decodes one outbound frame as queued by the hub.
func DecodeFrame(t *testing.T, frame []byte) chat.Envelope {
	t.Helper()
	var env chat.Envelope
	require.NoError(t, json.Unmarshal(frame, &env), "frame is not an envelope: %s", frame)
	return env
}

// UserCount extracts the count from a userCount envelope.
func UserCount(t *testing.T, env chat.Envelope) int {
	t.Helper()
	require.Equal(t, chat.EventUserCount, env.Event, "unexpected event")
	var n int
	require.NoError(t, json.Unmarshal(env.Data, &n))
	return n
}

// Message extracts the message from a message envelope.
func Message(t *testing.T, env chat.Envelope) chat.Message {
	t.Helper()
	require.Equal(t, chat.EventMessage, env.Event, "unexpected event")
	var m chat.Message
	require.NoError(t, json.Unmarshal(env.Data, &m))
	return m
}

// ExpectUserCount reads the next frame and requires it to be userCount=want.
func ExpectUserCount(t *testing.T, conn *websocket.Conn, want int) {
	t.Helper()
	env, err := ReadEnvelope(conn, DefaultTimeout)
	require.NoError(t, err, "expected userCount %d", want)
	require.Equal(t, want, UserCount(t, env))
}

// ExpectMessage reads the next frame and requires it to be a message.
func ExpectMessage(t *testing.T, conn *websocket.Conn) chat.Message {
	t.Helper()
	env, err := ReadEnvelope(conn, DefaultTimeout)
	require.NoError(t, err, "expected a message")
	return Message(t, env)
}

// ExpectNoFrame requires that nothing arrives within timeout. A timed out
// read leaves a gorilla connection unusable, so call it last on conn.
func ExpectNoFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	env, err := ReadEnvelope(conn, timeout)
	if err == nil {
		t.Fatalf("expected no frame, got %s %s", env.Event, env.Data)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	t.Fatalf("expected read timeout, got %v", err)
}

// CloseWebSocket sends a normal close frame and closes conn.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return fmt.Errorf("write close: %w", err)
	}
	return conn.Close()
}
