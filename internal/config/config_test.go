package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Default configuration", func(t *testing.T) {
		chdir(t, t.TempDir())

		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, ":3000", cfg.Addr())
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, 100, cfg.Chat.HistorySize)
		assert.Equal(t, 20, cfg.Chat.MaxNameLength)
		assert.Equal(t, 500, cfg.Chat.MaxContentLength)
		assert.Equal(t, int64(8192), cfg.WebSocket.MaxFrameSize)
		assert.Equal(t, 54*time.Second, cfg.WebSocket.PingPeriod)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Feed.Enabled)
		assert.Equal(t, "chat.messages", cfg.Feed.Topic)
	})

	t.Run("From config file", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		path := filepath.Join(dir, "relay.yaml")

		content := `
server:
  port: 9090
  allowed_origins:
    - https://chat.example.com
  read_timeout: 30s
chat:
  history_size: 10
  room_name: Afizzt
log:
  format: json
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, []string{"https://chat.example.com"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 10, cfg.Chat.HistorySize)
		assert.Equal(t, "Afizzt", cfg.Chat.RoomName)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("Missing explicit file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		assert.Error(t, err)
	})

	t.Run("From environment variables", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("PORT", "4000")
		t.Setenv("CHAT_CHAT_ROOM_NAME", "Lobby")
		t.Setenv("CHAT_LOG_LEVEL", "DEBUG")
		t.Setenv("CHAT_SERVER_ALLOWED_ORIGINS", "http://a.test, http://b.test")

		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Server.Port)
		assert.Equal(t, "Lobby", cfg.Chat.RoomName)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	})

	t.Run("Prefixed port wins over PORT", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("PORT", "4000")
		t.Setenv("CHAT_SERVER_PORT", "5000")

		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("From .env file", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CHAT_CHAT_HISTORY_SIZE=7\n"), 0o644))
		t.Cleanup(func() { _ = os.Unsetenv("CHAT_CHAT_HISTORY_SIZE") })

		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Chat.HistorySize)
	})

	t.Run("Flags override environment", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("PORT", "4000")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("port", 0, "")
		flags.String("room", "", "")
		flags.Bool("feed", false, "")
		require.NoError(t, flags.Parse([]string{"--port=6000", "--room=Den", "--feed"}))

		cfg, err := Load("", flags)
		require.NoError(t, err)
		assert.Equal(t, 6000, cfg.Server.Port)
		assert.Equal(t, "Den", cfg.Chat.RoomName)
		assert.True(t, cfg.Feed.Enabled)
	})
}

func TestSanitize(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: -1, AllowedOrigins: []string{" http://x.test ", ""}},
		WebSocket: WebSocketConfig{
			PongWait:   10 * time.Second,
			PingPeriod: 20 * time.Second,
		},
		Log: LogConfig{Format: "yaml"},
	}
	cfg.Sanitize()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, []string{"http://x.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 9*time.Second, cfg.WebSocket.PingPeriod, "ping must fire before the pong deadline")
	assert.Equal(t, 100, cfg.Chat.HistorySize)
	assert.Equal(t, 256, cfg.WebSocket.SendBufferSize)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestSanitizeFrameSizeFitsContentLimit(t *testing.T) {
	tests := []struct {
		name      string
		content   int
		frame     int64
		wantFrame int64
	}{
		{"default content keeps default frame", 0, 0, 8192},
		{"small frame raised to fit content", 500, 4096, 6512},
		{"large content raises frame", 2000, 8192, 24512},
		{"generous frame is left alone", 500, 65536, 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Chat:      ChatConfig{MaxContentLength: tt.content},
				WebSocket: WebSocketConfig{MaxFrameSize: tt.frame},
			}
			cfg.Sanitize()
			assert.Equal(t, tt.wantFrame, cfg.WebSocket.MaxFrameSize)
			assert.GreaterOrEqual(t, cfg.WebSocket.MaxFrameSize, MinFrameSize(cfg.Chat.MaxContentLength))
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8081
	assert.Equal(t, "127.0.0.1:8081", cfg.Addr())
}

// chdir changes the working directory to dir for the duration of the test,
// restoring the previous one on cleanup (equivalent of testing.T.Chdir, which
// is unavailable on the module's Go version).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(prev))
	})
}
