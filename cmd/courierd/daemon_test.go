// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/courier-dev/courier/lib/clock"
	"github.com/courier-dev/courier/lib/secret"
	"github.com/courier-dev/courier/messaging"
	"github.com/courier-dev/courier/relay"
)

const testRoom = "!ops:test.local"

// recordingInjector captures injections instead of touching tmux.
type recordingInjector struct {
	mu    sync.Mutex
	calls []injectedCommand
}

type injectedCommand struct {
	session string
	command string
}

func (r *recordingInjector) Inject(_ context.Context, sessionName, commandText string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, injectedCommand{session: sessionName, command: commandText})
	return nil
}

func (r *recordingInjector) all() []injectedCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]injectedCommand(nil), r.calls...)
}

// recordingAnnouncer captures room announcements.
type recordingAnnouncer struct {
	mu            sync.Mutex
	announcements []string
}

func (r *recordingAnnouncer) Announce(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announcements = append(r.announcements, text)
	return nil
}

func (r *recordingAnnouncer) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.announcements...)
}

// testDaemon wires a daemon with a real store but recording fakes in
// place of tmux and the chat gateway's announcement path.
func testDaemon(t *testing.T) (*daemon, *recordingInjector, *recordingAnnouncer) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	store, err := relay.OpenStore(relay.StoreConfig{
		Path:   filepath.Join(t.TempDir(), "sessions.db"),
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: "http://127.0.0.1:1",
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	userID, err := messaging.ParseUserID("@courier:test.local")
	if err != nil {
		t.Fatalf("ParseUserID: %v", err)
	}
	roomID, err := messaging.ParseRoomID(testRoom)
	if err != nil {
		t.Fatalf("ParseRoomID: %v", err)
	}
	credential, err := secret.NewFromString("unused")
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	t.Cleanup(func() { credential.Close() })

	gateway := relay.NewGateway(relay.GatewayConfig{
		Client:     client,
		UserID:     userID,
		Credential: credential,
		RoomID:     roomID,
		Logger:     logger,
	})

	injector := &recordingInjector{}
	announcer := &recordingAnnouncer{}

	d := &daemon{
		gateway:     gateway,
		store:       store,
		botUserID:   userID,
		credential:  credential,
		clock:       clock.Real(),
		logger:      logger,
		versionInfo: "test",
	}
	d.startedAt = d.clock.Now()

	counting := &countingInjector{inner: injector, count: &d.injections}
	d.router = relay.NewRouter(relay.RouterConfig{
		Store:    store,
		Injector: counting,
		Channel:  testRoom,
		Logger:   logger,
	})
	d.dispatcher = relay.NewDispatcher(relay.DispatcherConfig{
		Store:          store,
		Announcer:      announcer,
		DefaultSession: "main",
		TokenTTL:       24 * time.Hour,
		Logger:         logger,
	})

	return d, injector, announcer
}
