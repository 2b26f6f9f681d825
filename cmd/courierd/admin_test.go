// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/courier-dev/courier/lib/codec"
	"github.com/courier-dev/courier/lib/testutil"
	"github.com/courier-dev/courier/relay"
)

// startAdmin binds the daemon's admin socket in a short temp directory
// and serves it until the test ends.
func startAdmin(t *testing.T, d *daemon) string {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "admin.sock")

	listener, err := listenAdmin(socketPath)
	if err != nil {
		t.Fatalf("listenAdmin: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.serveAdmin(ctx, listener)

	return socketPath
}

func adminRoundTrip(t *testing.T, socketPath string, request adminRequest, response any) {
	t.Helper()
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("dialing admin socket: %v", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("encoding request: %v", err)
	}
	if err := codec.NewDecoder(conn).Decode(response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestAdminStatus(t *testing.T) {
	d, _, _ := testDaemon(t)
	socketPath := startAdmin(t, d)

	var status adminStatusResponse
	adminRoundTrip(t, socketPath, adminRequest{Action: "status"}, &status)

	if status.Connected {
		t.Error("reported connected with no gateway session")
	}
	if status.GatewayState != "disconnected" {
		t.Errorf("gateway_state = %q, want disconnected", status.GatewayState)
	}
	if status.Room != testRoom {
		t.Errorf("room = %q, want %s", status.Room, testRoom)
	}
	if status.ActiveSessions != 0 {
		t.Errorf("active_sessions = %d, want 0", status.ActiveSessions)
	}
	if status.Injections != 0 {
		t.Errorf("injections = %d, want 0", status.Injections)
	}
	if status.Version != "test" {
		t.Errorf("version = %q", status.Version)
	}
}

func TestAdminStatusCountsSessions(t *testing.T) {
	d, _, _ := testDaemon(t)
	socketPath := startAdmin(t, d)

	notification := relay.Notification{Title: "build finished", Kind: "webhook"}
	if _, err := d.dispatcher.Dispatch(context.Background(), notification); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	var status adminStatusResponse
	adminRoundTrip(t, socketPath, adminRequest{Action: "status"}, &status)

	if status.ActiveSessions != 1 {
		t.Errorf("active_sessions = %d, want 1", status.ActiveSessions)
	}
}

func TestAdminUnknownAction(t *testing.T) {
	d, _, _ := testDaemon(t)
	socketPath := startAdmin(t, d)

	var response adminErrorResponse
	adminRoundTrip(t, socketPath, adminRequest{Action: "reboot"}, &response)

	if response.Error == "" {
		t.Error("unknown action got an empty error")
	}
}
