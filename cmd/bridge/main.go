// Package main runs the PotatoMesh to Matrix appservice bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/l5yth/potato-mesh/internal/api"
	"github.com/l5yth/potato-mesh/internal/bridge"
	"github.com/l5yth/potato-mesh/internal/config"
	"github.com/l5yth/potato-mesh/internal/handlers"
	"github.com/l5yth/potato-mesh/internal/logger"
	"github.com/l5yth/potato-mesh/internal/matrix"
	"github.com/l5yth/potato-mesh/internal/potatomesh"
	"github.com/l5yth/potato-mesh/internal/store"
)

const appName = "potatomesh-matrix-bridge"

type flags struct {
	configPath          string
	stateFile           string
	stateDSN            string
	listenAddr          string
	baseURL             string
	pollIntervalSecs    uint64
	homeserver          string
	asToken             string
	hsToken             string
	serverName          string
	roomID              string
	containerDefaults   bool
	noContainerDefaults bool
	logLevel            string
	once                bool
}

func main() {
	if err := newRootCmd(&flags{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Relay PotatoMesh text messages into a Matrix room",
		Version:       handlers.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML config path (default config.yaml, /app/config.yaml in containers)")
	fs.StringVar(&f.configPath, "config-path", "", "Alias for --config")
	_ = fs.MarkHidden("config-path")
	fs.StringVar(&f.stateFile, "state-file", "", "Override the state file path")
	fs.StringVar(&f.stateDSN, "state-dsn", "", "Checkpoint store DSN (file, redis, postgres, sqlite, memory)")
	fs.StringVar(&f.listenAddr, "listen-addr", "", "Appservice listener address")
	fs.StringVar(&f.baseURL, "potatomesh-base-url", "", "Override the PotatoMesh base URL")
	fs.Uint64Var(&f.pollIntervalSecs, "potatomesh-poll-interval-secs", 0, "Override the PotatoMesh poll interval in seconds")
	fs.StringVar(&f.homeserver, "matrix-homeserver", "", "Override the Matrix homeserver URL")
	fs.StringVar(&f.asToken, "matrix-as-token", "", "Override the Matrix appservice access token")
	fs.StringVar(&f.hsToken, "matrix-hs-token", "", "Override the token the homeserver presents to the listener")
	fs.StringVar(&f.serverName, "matrix-server-name", "", "Override the Matrix server name")
	fs.StringVar(&f.roomID, "matrix-room-id", "", "Override the Matrix room ID")
	fs.BoolVar(&f.containerDefaults, "container-defaults", false, "Force container defaults on")
	fs.BoolVar(&f.noContainerDefaults, "no-container-defaults", false, "Disable container defaults even inside a container")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&f.once, "once", false, "Run a single poll cycle and exit")
	cmd.MarkFlagsMutuallyExclusive("container-defaults", "no-container-defaults")

	return cmd
}

// bootstrap turns the flags that were actually given into a config layer.
func bootstrap(cmd *cobra.Command, f *flags) config.Bootstrap {
	fs := cmd.Flags()
	set := func(name string, v string) *string {
		if !fs.Changed(name) {
			return nil
		}
		return &v
	}

	var boot config.Bootstrap
	boot.ConfigPath = f.configPath
	switch {
	case f.containerDefaults:
		on := true
		boot.ContainerDefaults = &on
	case f.noContainerDefaults:
		off := false
		boot.ContainerDefaults = &off
	}

	v := &boot.Values
	v.State.File = set("state-file", f.stateFile)
	v.State.DSN = set("state-dsn", f.stateDSN)
	v.ListenAddr = set("listen-addr", f.listenAddr)
	v.Log.Level = set("log-level", f.logLevel)
	v.PotatoMesh.BaseURL = set("potatomesh-base-url", f.baseURL)
	if fs.Changed("potatomesh-poll-interval-secs") {
		secs := f.pollIntervalSecs
		v.PotatoMesh.PollIntervalSecs = &secs
	}
	v.Matrix.Homeserver = set("matrix-homeserver", f.homeserver)
	v.Matrix.ASToken = set("matrix-as-token", f.asToken)
	v.Matrix.HSToken = set("matrix-hs-token", f.hsToken)
	v.Matrix.ServerName = set("matrix-server-name", f.serverName)
	v.Matrix.RoomID = set("matrix-room-id", f.roomID)
	return boot
}

func run(cmd *cobra.Command, f *flags) error {
	cfg, err := config.Load(bootstrap(cmd, f))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.IsDevelopment()})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if !cfg.Runtime.ConfigFileFound {
		log.Warn().Str("path", cfg.Runtime.ConfigPath).Msg("Config file not found, using environment and flags only")
	}
	log.Info().
		Bool("in_container", cfg.Runtime.InContainer).
		Bool("container_defaults", cfg.Runtime.ContainerDefaults).
		Stringer("config", cfg).
		Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	mesh := potatomesh.NewClient(cfg.PotatoMesh.BaseURL, httpClient, logger.WithComponent(log, "potatomesh"))
	if err := mesh.HealthCheck(ctx); err != nil {
		return fmt.Errorf("potatomesh health check: %w", err)
	}

	chat := matrix.NewClient(matrix.Config{
		Homeserver: cfg.Matrix.Homeserver,
		ASToken:    cfg.Matrix.ASToken,
		ServerName: cfg.Matrix.ServerName,
		RoomID:     cfg.Matrix.RoomID,
	}, httpClient, logger.WithComponent(log, "matrix"))
	if err := chat.HealthCheck(ctx); err != nil {
		return fmt.Errorf("matrix health check: %w", err)
	}

	checkpoints, err := store.Open(ctx, cfg.CheckpointDSN())
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer checkpoints.Close()

	cp, err := checkpoints.Load(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	log.Info().Interface("checkpoint", cp).Msg("Loaded state")

	b := bridge.New(bridge.Options{
		Mesh:       mesh,
		Chat:       chat,
		Store:      checkpoints,
		Checkpoint: cp,
		ServerName: cfg.Matrix.ServerName,
		Interval:   cfg.PotatoMesh.PollInterval,
		Logger:     logger.WithComponent(log, "bridge"),
	})

	if f.once {
		res, err := b.PollOnce(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Str("cycle_id", res.CycleID).
			Int("fetched", res.Fetched).
			Int("relayed", res.Relayed).
			Int("failed", res.Failed).
			Msg("Single poll cycle finished")
		return nil
	}

	listenerLog := logger.WithComponent(log, "listener")
	h := handlers.NewHandler(cfg.Matrix.ServerName, checkpoints, b, listenerLog)
	srv := api.NewServer(cfg.ListenAddr, api.NewRouter(listenerLog, cfg.Matrix.HSToken, h))

	// Listener failures are logged; the forwarding loop keeps running.
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Appservice listener started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Appservice listener failed")
		}
	}()

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Forwarding loop exited")
	}

	log.Info().Msg("Shutting down listener...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Listener forced to shutdown")
	}

	log.Info().Msg("Bridge stopped")
	return nil
}
