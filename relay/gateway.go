// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/courier-dev/courier/lib/secret"
	"github.com/courier-dev/courier/messaging"
)

// GatewayState is the connection state of the chat gateway.
type GatewayState string

const (
	// StateDisconnected means no session exists.
	StateDisconnected GatewayState = "disconnected"
	// StateConnecting means a login attempt is in flight.
	StateConnecting GatewayState = "connecting"
	// StateConnected means a session is established and reusable.
	StateConnected GatewayState = "connected"
)

// Gateway manages the process-wide Matrix connection: established
// lazily on first use, reused for the process lifetime, torn down
// explicitly on shutdown. A connection attempt that does not complete
// within the configured timeout fails; it is not retried automatically.
//
// Gateway is safe for concurrent use. Connection attempts are
// serialized — concurrent EnsureConnected calls share one login.
type Gateway struct {
	client         *messaging.Client
	userID         messaging.UserID
	credential     *secret.Buffer
	roomID         messaging.RoomID
	connectTimeout time.Duration
	logger         *slog.Logger

	// connectMu serializes connection attempts; stateMu guards the
	// state and session fields so State stays responsive while a
	// login is in flight.
	connectMu sync.Mutex
	stateMu   sync.Mutex
	state     GatewayState
	session   messaging.Session
}

// GatewayConfig holds the parameters for a Gateway. Client, UserID,
// Credential, and RoomID are required.
type GatewayConfig struct {
	Client     *messaging.Client
	UserID     messaging.UserID
	Credential *secret.Buffer
	RoomID     messaging.RoomID

	// ConnectTimeout bounds a single connection attempt. If zero,
	// defaults to 30 seconds.
	ConnectTimeout time.Duration

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// NewGateway creates a Gateway in the disconnected state. Panics if a
// required field is missing.
func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.Client == nil {
		panic("relay: GatewayConfig.Client is required")
	}
	if cfg.UserID.IsZero() {
		panic("relay: GatewayConfig.UserID is required")
	}
	if cfg.Credential == nil {
		panic("relay: GatewayConfig.Credential is required")
	}
	if cfg.RoomID.IsZero() {
		panic("relay: GatewayConfig.RoomID is required")
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Gateway{
		client:         cfg.Client,
		userID:         cfg.UserID,
		credential:     cfg.Credential,
		roomID:         cfg.RoomID,
		connectTimeout: timeout,
		logger:         logger,
		state:          StateDisconnected,
	}
}

// State returns the current connection state.
func (g *Gateway) State() GatewayState {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	return g.state
}

// RoomID returns the relay room.
func (g *Gateway) RoomID() messaging.RoomID {
	return g.roomID
}

// EnsureConnected returns the established session, logging in and
// joining the relay room first if necessary. The login attempt is
// bounded by the configured connect timeout; on failure the gateway
// returns to the disconnected state and the error is returned without
// automatic retry.
func (g *Gateway) EnsureConnected(ctx context.Context) (messaging.Session, error) {
	g.connectMu.Lock()
	defer g.connectMu.Unlock()

	if session := g.currentSession(); session != nil {
		return session, nil
	}

	g.setState(StateConnecting, nil)

	ctx, cancel := context.WithTimeout(ctx, g.connectTimeout)
	defer cancel()

	session, err := g.client.Login(ctx, g.userID.String(), g.credential)
	if err != nil {
		g.setState(StateDisconnected, nil)
		return nil, fmt.Errorf("relay: gateway login as %s: %w", g.userID, err)
	}

	// Joining an already-joined room is a no-op on the server, so
	// reconnects are safe.
	if _, err := session.JoinRoom(ctx, g.roomID); err != nil {
		session.Close()
		g.setState(StateDisconnected, nil)
		return nil, fmt.Errorf("relay: gateway joining %s: %w", g.roomID, err)
	}

	g.setState(StateConnected, session)
	g.logger.Info("gateway connected",
		"user_id", g.userID,
		"room_id", g.roomID,
	)
	return session, nil
}

// Disconnect tears down the session and returns the gateway to the
// disconnected state. Idempotent.
func (g *Gateway) Disconnect() error {
	g.connectMu.Lock()
	defer g.connectMu.Unlock()

	session := g.currentSession()
	g.setState(StateDisconnected, nil)
	if session == nil {
		return nil
	}

	if err := session.Close(); err != nil {
		return fmt.Errorf("relay: closing gateway session: %w", err)
	}
	g.logger.Info("gateway disconnected", "user_id", g.userID)
	return nil
}

// Announce sends announcement text to the relay room as a plain text
// message, connecting first if necessary. Implements Announcer.
func (g *Gateway) Announce(ctx context.Context, text string) error {
	session, err := g.EnsureConnected(ctx)
	if err != nil {
		return err
	}
	if _, err := session.SendMessage(ctx, g.roomID, messaging.NewTextMessage(text)); err != nil {
		return fmt.Errorf("relay: sending announcement: %w", err)
	}
	return nil
}

// Reply sends a routing reply to the relay room as an m.notice,
// connecting first if necessary. Notices mark the message as
// bot-originated so other automation (including Courier's own router)
// knows to skip it. Implements Replier.
func (g *Gateway) Reply(ctx context.Context, text string) error {
	session, err := g.EnsureConnected(ctx)
	if err != nil {
		return err
	}
	if _, err := session.SendMessage(ctx, g.roomID, messaging.NewNoticeMessage(text)); err != nil {
		return fmt.Errorf("relay: sending reply: %w", err)
	}
	return nil
}

func (g *Gateway) currentSession() messaging.Session {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	if g.state == StateConnected {
		return g.session
	}
	return nil
}

func (g *Gateway) setState(state GatewayState, session messaging.Session) {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	g.state = state
	g.session = session
}
