package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/Tyrowin/chatrelay/internal/config"
	"github.com/Tyrowin/chatrelay/internal/logging"
	"github.com/Tyrowin/chatrelay/internal/pubsub"
	"github.com/Tyrowin/chatrelay/internal/server"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "chatrelay",
		Short:        "Real-time broadcast chat relay over WebSockets",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.String("host", "", "interface to listen on")
	flags.Int("port", 0, "port to listen on (default 3000, or $PORT)")
	flags.String("public-dir", "", "directory with the static chat client served at /")
	flags.StringSlice("origins", nil, "allowed WebSocket origins, or * for any")
	flags.Int("history-size", 0, "number of messages replayed to new joiners")
	flags.String("room", "", "room name appended to join and leave notices")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.Bool("feed", false, "log a transcript of every accepted message")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Log, os.Stdout)
	log.Info().Str("version", version).Msg("Starting chat relay")

	var opts []server.HubOption
	if cfg.Feed.Enabled {
		feed := pubsub.NewWatermillBridge(logging.Component(log, "feed"))
		defer func() {
			if err := feed.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing feed")
			}
		}()
		if err := feed.Subscribe(ctx, cfg.Feed.Topic, transcript(logging.Component(log, "transcript"))); err != nil {
			return fmt.Errorf("subscribe to feed: %w", err)
		}
		opts = append(opts, server.WithPublisher(feed, cfg.Feed.Topic))
	}

	hub := server.NewHub(cfg.Chat, cfg.WebSocket, log, opts...)
	go hub.Run()

	router := server.SetupRoutes(hub, cfg.Server, log)
	httpServer := server.CreateServer(cfg.Addr(), router, cfg.Server)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, log)
	}()

	select {
	case err := <-errCh:
		_ = hub.Shutdown(cfg.Server.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	if err := server.ShutdownServer(httpServer, cfg.Server.ShutdownTimeout, log); err != nil {
		log.Warn().Err(err).Msg("HTTP server did not shut down cleanly")
	}
	if err := hub.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		log.Warn().Err(err).Msg("Hub did not shut down cleanly")
	}
	return nil
}

// transcript logs each message from the feed as one line.
func transcript(log zerolog.Logger) pubsub.Handler {
	return func(_ context.Context, msg pubsub.Message) error {
		var m chat.Message
		if err := json.Unmarshal(msg.Payload, &m); err != nil {
			return fmt.Errorf("decode feed message: %w", err)
		}
		log.Info().
			Str("message_id", m.ID).
			Str("type", string(m.Type)).
			Str("author", m.Author).
			Str("content", m.Content).
			Time("timestamp", m.Timestamp).
			Msg("Transcript")
		return nil
	}
}
