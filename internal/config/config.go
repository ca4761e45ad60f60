// Package config loads runtime settings for the chat relay from defaults, an
// optional YAML file, a .env file, environment variables and CLI flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CHAT_LOG_LEVEL.
const EnvPrefix = "CHAT"

// Config holds the complete relay configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Chat      ChatConfig      `mapstructure:"chat"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Log       LogConfig       `mapstructure:"log"`
	Feed      FeedConfig      `mapstructure:"feed"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	PublicDir       string        `mapstructure:"public_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ChatConfig controls room behaviour.
type ChatConfig struct {
	HistorySize      int    `mapstructure:"history_size"`
	MaxNameLength    int    `mapstructure:"max_name_length"`
	MaxContentLength int    `mapstructure:"max_content_length"`
	RoomName         string `mapstructure:"room_name"`
}

// WebSocketConfig controls per-connection transport limits.
type WebSocketConfig struct {
	MaxFrameSize   int64         `mapstructure:"max_frame_size"`
	SendBufferSize int           `mapstructure:"send_buffer_size"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FeedConfig controls the in-process feed of accepted messages.
type FeedConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Topic   string `mapstructure:"topic"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			AllowedOrigins:  []string{"http://localhost:3000"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Chat: ChatConfig{
			HistorySize:      100,
			MaxNameLength:    20,
			MaxContentLength: 500,
		},
		WebSocket: WebSocketConfig{
			MaxFrameSize:   8192,
			SendBufferSize: 256,
			PongWait:       60 * time.Second,
			PingPeriod:     54 * time.Second,
			WriteWait:      10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Feed: FeedConfig{
			Topic: "chat.messages",
		},
	}
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"host":         "server.host",
	"port":         "server.port",
	"public-dir":   "server.public_dir",
	"origins":      "server.allowed_origins",
	"history-size": "chat.history_size",
	"room":         "chat.room_name",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"feed":         "feed.enabled",
}

// Load builds a Config. path may name a YAML file; when empty, config.yaml is
// looked up in the working directory and ./config, and its absence is not an
// error. flags may be nil; only flags named in flagKeys are bound.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is the conventional override used by hosting platforms.
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind PORT: %w", err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.public_dir", d.Server.PublicDir)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("chat.history_size", d.Chat.HistorySize)
	v.SetDefault("chat.max_name_length", d.Chat.MaxNameLength)
	v.SetDefault("chat.max_content_length", d.Chat.MaxContentLength)
	v.SetDefault("chat.room_name", d.Chat.RoomName)

	v.SetDefault("websocket.max_frame_size", d.WebSocket.MaxFrameSize)
	v.SetDefault("websocket.send_buffer_size", d.WebSocket.SendBufferSize)
	v.SetDefault("websocket.pong_wait", d.WebSocket.PongWait)
	v.SetDefault("websocket.ping_period", d.WebSocket.PingPeriod)
	v.SetDefault("websocket.write_wait", d.WebSocket.WriteWait)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("feed.enabled", d.Feed.Enabled)
	v.SetDefault("feed.topic", d.Feed.Topic)
}

// Sanitize replaces unusable values with defaults and normalises lists.
func (c *Config) Sanitize() {
	d := Default()

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		c.Server.Port = d.Server.Port
	}
	c.Server.AllowedOrigins = trimAll(c.Server.AllowedOrigins)
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if c.Server.IdleTimeout <= 0 {
		c.Server.IdleTimeout = d.Server.IdleTimeout
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}

	if c.Chat.HistorySize <= 0 {
		c.Chat.HistorySize = d.Chat.HistorySize
	}
	if c.Chat.MaxNameLength <= 0 {
		c.Chat.MaxNameLength = d.Chat.MaxNameLength
	}
	if c.Chat.MaxContentLength <= 0 {
		c.Chat.MaxContentLength = d.Chat.MaxContentLength
	}
	c.Chat.RoomName = strings.TrimSpace(c.Chat.RoomName)

	if c.WebSocket.MaxFrameSize <= 0 {
		c.WebSocket.MaxFrameSize = d.WebSocket.MaxFrameSize
	}
	if floor := MinFrameSize(c.Chat.MaxContentLength); c.WebSocket.MaxFrameSize < floor {
		c.WebSocket.MaxFrameSize = floor
	}
	if c.WebSocket.SendBufferSize <= 0 {
		c.WebSocket.SendBufferSize = d.WebSocket.SendBufferSize
	}
	if c.WebSocket.PongWait <= 0 {
		c.WebSocket.PongWait = d.WebSocket.PongWait
	}
	if c.WebSocket.PingPeriod <= 0 || c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		c.WebSocket.PingPeriod = c.WebSocket.PongWait * 9 / 10
	}
	if c.WebSocket.WriteWait <= 0 {
		c.WebSocket.WriteWait = d.WebSocket.WriteWait
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format != "json" {
		c.Log.Format = d.Log.Format
	}

	if c.Feed.Topic == "" {
		c.Feed.Topic = d.Feed.Topic
	}
}

// MinFrameSize is the smallest read limit that still admits every message of
// maxContent characters. A character outside the BMP can arrive as two \uXXXX
// escapes, 12 bytes; 512 covers the envelope around the content.
func MinFrameSize(maxContent int) int64 {
	return int64(12*maxContent + 512)
}

// Addr is the listen address, e.g. ":3000".
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		// A single env value arrives as "a, b"; split it here as well.
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
