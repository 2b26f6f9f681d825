// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/courier-dev/courier/lib/clock"
	"github.com/courier-dev/courier/lib/config"
	"github.com/courier-dev/courier/lib/process"
	"github.com/courier-dev/courier/lib/secret"
	"github.com/courier-dev/courier/lib/tmux"
	"github.com/courier-dev/courier/lib/version"
	"github.com/courier-dev/courier/messaging"
	"github.com/courier-dev/courier/relay"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to courier.yaml (overrides COURIER_CONFIG)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		version.Print("courierd")
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon, err := buildDaemon(cfg, logger)
	if err != nil {
		return err
	}
	defer daemon.close()

	// Webhook HTTP server.
	webhookListener, err := net.Listen("tcp", cfg.Webhook.ListenAddr)
	if err != nil {
		return fmt.Errorf("binding webhook listener on %s: %w", cfg.Webhook.ListenAddr, err)
	}
	webhookServer := &http.Server{Handler: daemon.webhookHandler()}
	webhookDone := make(chan error, 1)
	go func() {
		webhookDone <- webhookServer.Serve(webhookListener)
	}()

	// Admin status socket.
	adminListener, err := listenAdmin(cfg.Admin.SocketPath)
	if err != nil {
		return err
	}
	go daemon.serveAdmin(ctx, adminListener)

	// Gateway ingest loop.
	ingestDone := make(chan struct{})
	go func() {
		daemon.runIngest(ctx)
		close(ingestDone)
	}()

	logger.Info("courier daemon running",
		"webhook_addr", webhookListener.Addr().String(),
		"admin_socket", cfg.Admin.SocketPath,
		"room_id", daemon.gateway.RoomID(),
		"default_session", cfg.Tmux.DefaultSession,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := webhookServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("webhook shutdown", "error", err)
	}
	<-webhookDone
	adminListener.Close()
	<-ingestDone

	return nil
}

// loadConfig resolves the configuration file: the --config flag wins,
// otherwise COURIER_CONFIG.
func loadConfig(flagPath string) (*config.Config, error) {
	if flagPath != "" {
		return config.LoadFile(flagPath)
	}
	return config.Load()
}

// daemon holds the wired runtime components. Created in run() and
// shared between the ingest loop, webhook handlers, and admin socket.
type daemon struct {
	gateway    *relay.Gateway
	store      *relay.Store
	router     *relay.Router
	dispatcher *relay.Dispatcher
	botUserID  messaging.UserID
	credential *secret.Buffer
	clock      clock.Clock
	startedAt  time.Time
	logger     *slog.Logger

	versionInfo string

	// injections is written by the counting injector and read by the
	// admin status handler.
	injections atomic.Uint64
}

// buildDaemon wires the store, gateway, router, and dispatcher from the
// validated configuration.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	userID, err := messaging.ParseUserID(cfg.Matrix.UserID)
	if err != nil {
		return nil, fmt.Errorf("matrix.user_id: %w", err)
	}
	roomID, err := messaging.ParseRoomID(cfg.Matrix.RoomID)
	if err != nil {
		return nil, fmt.Errorf("matrix.room_id: %w", err)
	}

	credential, err := secret.ReadFromPath(cfg.Matrix.CredentialFile)
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Matrix.HomeserverURL,
		Logger:        logger,
	})
	if err != nil {
		credential.Close()
		return nil, err
	}

	store, err := relay.OpenStore(relay.StoreConfig{
		Path:   cfg.Store.Path,
		Logger: logger,
	})
	if err != nil {
		credential.Close()
		return nil, err
	}

	gateway := relay.NewGateway(relay.GatewayConfig{
		Client:     client,
		UserID:     userID,
		Credential: credential,
		RoomID:     roomID,
		Logger:     logger,
	})

	injectTimeout, err := cfg.InjectTimeout()
	if err != nil {
		store.Close()
		credential.Close()
		return nil, err
	}
	tokenTTL, err := cfg.TokenTTL()
	if err != nil {
		store.Close()
		credential.Close()
		return nil, err
	}

	d := &daemon{
		gateway:     gateway,
		store:       store,
		botUserID:   userID,
		credential:  credential,
		clock:       clock.Real(),
		logger:      logger,
		versionInfo: version.Info(),
	}
	d.startedAt = d.clock.Now()

	tmuxServer := tmux.NewServer(tmuxSocketPath(cfg.Tmux.SocketPath), "")
	injector := &countingInjector{
		inner: relay.NewTmuxInjector(tmuxServer, injectTimeout, logger),
		count: &d.injections,
	}

	d.router = relay.NewRouter(relay.RouterConfig{
		Store:    store,
		Injector: injector,
		Channel:  roomID.String(),
		Logger:   logger,
	})
	d.dispatcher = relay.NewDispatcher(relay.DispatcherConfig{
		Store:          store,
		Announcer:      gateway,
		DefaultSession: cfg.Tmux.DefaultSession,
		TokenTTL:       tokenTTL,
		Logger:         logger,
	})

	return d, nil
}

// tmuxSocketPath resolves an empty configured socket path to the tmux
// default socket for this user.
func tmuxSocketPath(configured string) string {
	if configured != "" {
		return configured
	}
	return fmt.Sprintf("/tmp/tmux-%d/default", os.Getuid())
}

func (d *daemon) close() {
	if err := d.gateway.Disconnect(); err != nil {
		d.logger.Error("gateway disconnect", "error", err)
	}
	if err := d.store.Close(); err != nil {
		d.logger.Error("closing store", "error", err)
	}
	d.credential.Close()
}

// countingInjector wraps the tmux injector with a delivery counter for
// the admin status socket. Only successful injections count.
type countingInjector struct {
	inner relay.Injector
	count *atomic.Uint64
}

func (c *countingInjector) Inject(ctx context.Context, sessionName, commandText string) error {
	if err := c.inner.Inject(ctx, sessionName, commandText); err != nil {
		return err
	}
	c.count.Add(1)
	return nil
}
