// Package main implements the curve multiplayer game server.
//
// Architecture overview:
// - Clients connect over WebSocket at /ws and speak a JSON protocol
// - A router goroutine owns the room table and dispatches every message
// - Each room is an actor: one goroutine consuming a private inbox
// - While a round runs, a per-room tick engine simulates at 20Hz and
//   broadcasts state every tick, full trails once per second
//
// Connection flow:
// 1. Client connects via WebSocket to /ws, a player id is minted
// 2. Client sends createRoom or joinRoom, the router answers joinedRoom
// 3. Players flag isReady; once all of at least two are ready the room
//    counts down and starts the round
// 4. Clients steer with rotate messages and follow update/syncPaths frames
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/curve/server/config"
	"github.com/curve/server/internal/debugui"
	"github.com/curve/server/internal/server"
)

var version = "dev"

func main() {
	cfg := config.DefaultServerConfig()

	rootCmd := &cobra.Command{
		Use:     "gameserver",
		Short:   "Authoritative server for the curve game",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&cfg.Address, "address", "a", cfg.Address, "server address")
	flags.Uint16VarP(&cfg.Port, "port", "p", cfg.Port, "server port")
	flags.BoolVar(&cfg.DebugUI, "debug-ui", cfg.DebugUI, "render the terminal dashboard")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.ServerConfig) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.DebugUI {
		// The dashboard owns the terminal; only warnings and errors are
		// logged (to stderr) while it runs.
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.WarnLevel)
	}

	log.WithFields(logrus.Fields{
		"address":   cfg.Address,
		"port":      cfg.Port,
		"tick_rate": config.TickRate,
		"version":   version,
	}).Info("starting curve game server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if cfg.DebugUI {
		g.Go(func() error {
			ui := debugui.New(srv.Router().Snapshots)
			return ui.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
