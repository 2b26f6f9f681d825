// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/courier-dev/courier/lib/codec"
	"github.com/courier-dev/courier/relay"
)

// adminRequest is the CBOR request read from an admin socket
// connection. One request per connection.
type adminRequest struct {
	Action string `cbor:"action"`
}

// adminStatusResponse is the wire format for the "status" action.
type adminStatusResponse struct {
	Connected      bool    `cbor:"connected"`
	GatewayState   string  `cbor:"gateway_state"`
	Room           string  `cbor:"room"`
	ActiveSessions int64   `cbor:"active_sessions"`
	Injections     uint64  `cbor:"injections"`
	UptimeSeconds  float64 `cbor:"uptime_seconds"`
	Version        string  `cbor:"version"`
}

// adminErrorResponse is returned for unknown actions or handler
// failures.
type adminErrorResponse struct {
	Error string `cbor:"error"`
}

// listenAdmin binds the admin Unix socket, removing a stale socket
// file left by a previous run.
func listenAdmin(socketPath string) (net.Listener, error) {
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale admin socket %s: %w", socketPath, err)
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("binding admin socket %s: %w", socketPath, err)
	}
	return listener, nil
}

// serveAdmin accepts admin connections until the listener closes. Each
// connection carries a single CBOR request and receives a single CBOR
// response.
func (d *daemon) serveAdmin(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				d.logger.Error("admin accept", "error", err)
			}
			return
		}
		go d.handleAdminConn(ctx, conn)
	}
}

func (d *daemon) handleAdminConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(d.clock.Now().Add(5 * time.Second))

	var request adminRequest
	if err := codec.NewDecoder(conn).Decode(&request); err != nil {
		d.logger.Warn("malformed admin request", "error", err)
		return
	}

	var response any
	switch request.Action {
	case "status":
		response = d.statusResponse(ctx)
	default:
		response = &adminErrorResponse{
			Error: fmt.Sprintf("unknown action %q", request.Action),
		}
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		d.logger.Warn("writing admin response", "error", err)
	}
}

func (d *daemon) statusResponse(ctx context.Context) *adminStatusResponse {
	state := d.gateway.State()

	count, err := d.store.Count(ctx)
	if err != nil {
		d.logger.Error("counting sessions for status", "error", err)
		count = -1
	}

	return &adminStatusResponse{
		Connected:      state == relay.StateConnected,
		GatewayState:   string(state),
		Room:           d.gateway.RoomID().String(),
		ActiveSessions: count,
		Injections:     d.injections.Load(),
		UptimeSeconds:  d.clock.Now().Sub(d.startedAt).Seconds(),
		Version:        d.versionInfo,
	}
}
