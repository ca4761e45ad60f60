package pubsub

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBridge(t *testing.T) *WatermillBridge {
	t.Helper()
	bridge := NewWatermillBridge(zerolog.Nop())
	t.Cleanup(func() { _ = bridge.Close() })
	return bridge
}

func TestWatermillBridgePublishSubscribe(t *testing.T) {
	bridge := newTestBridge(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Message, 1)
	err := bridge.Subscribe(ctx, "chat.messages", func(_ context.Context, msg Message) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)

	err = bridge.Publish(ctx, Message{
		Topic:    "chat.messages",
		Payload:  []byte(`{"content":"hi"}`),
		Metadata: map[string]string{"author": "Alice"},
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "chat.messages", msg.Topic)
		assert.JSONEq(t, `{"content":"hi"}`, string(msg.Payload))
		assert.Equal(t, "Alice", msg.Metadata["author"])
		assert.NotContains(t, msg.Metadata, metaKeyTopic)
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestWatermillBridgeWithoutSubscribers(t *testing.T) {
	bridge := newTestBridge(t)
	err := bridge.Publish(context.Background(), Message{Topic: "nobody", Payload: []byte("x")})
	assert.NoError(t, err)
}

func TestWatermillBridgeHandlerErrorDoesNotRedeliver(t *testing.T) {
	bridge := newTestBridge(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 10)
	err := bridge.Subscribe(ctx, "t", func(context.Context, Message) error {
		calls <- struct{}{}
		return errors.New("boom")
	})
	require.NoError(t, err)
	require.NoError(t, bridge.Publish(ctx, Message{Topic: "t", Payload: []byte("x")}))

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}

	select {
	case <-calls:
		t.Fatal("message was redelivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestZerologAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))

	adapter.With(watermill.LogFields{"topic": "t"}).Info("subscribed", watermill.LogFields{"n": 1})
	adapter.Trace("hidden", nil)
	adapter.Error("failed", errors.New("boom"), nil)

	out := buf.String()
	assert.Contains(t, out, `"topic":"t"`)
	assert.Contains(t, out, `"n":1`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.NotContains(t, out, "hidden")
}
