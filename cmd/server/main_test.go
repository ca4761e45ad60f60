package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/Tyrowin/chatrelay/internal/pubsub"
)

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()

	for _, name := range []string{"config", "host", "port", "public-dir", "origins", "history-size", "room", "log-level", "log-format", "feed"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestTranscriptLogsMessages(t *testing.T) {
	var buf bytes.Buffer
	handler := transcript(zerolog.New(&buf))

	m := chat.NewChatMessage("Alice", "hi", time.Now())
	payload, err := json.Marshal(m)
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), pubsub.Message{Topic: "chat.messages", Payload: payload}))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Transcript", entry["message"])
	assert.Equal(t, m.ID, entry["message_id"])
	assert.Equal(t, "Alice", entry["author"])
	assert.Equal(t, "hi", entry["content"])
	assert.Equal(t, "chat", entry["type"])
}

func TestTranscriptRejectsGarbage(t *testing.T) {
	handler := transcript(zerolog.Nop())
	err := handler(context.Background(), pubsub.Message{Payload: []byte("not json")})
	assert.Error(t, err)
}
