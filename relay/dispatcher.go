// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/courier-dev/courier/lib/clock"
)

// Notification is an outbound event to announce in the chat room: a
// completed or pending work item that the operator may respond to with
// a command.
type Notification struct {
	// Title is a short summary line.
	Title string

	// Message is the body text.
	Message string

	// Project is an optional project or context label.
	Project string

	// Kind identifies the ingress channel the notification arrived
	// on (e.g., "webhook", "cli").
	Kind string

	// TmuxSession is the execution context: the tmux session commands
	// authorized by this notification's token are injected into.
	// Empty means the dispatcher's configured default. Supplied
	// explicitly by the caller — the dispatcher never probes the
	// environment for a current session.
	TmuxSession string
}

// Announcer sends announcement text to the chat room. The production
// implementation is *Gateway.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// Dispatcher mints a token per notification, persists the
// token-session binding, and announces the token in the chat room.
type Dispatcher struct {
	store          *Store
	announcer      Announcer
	clock          clock.Clock
	defaultSession string
	tokenTTL       time.Duration
	logger         *slog.Logger
}

// DispatcherConfig holds the collaborators for a Dispatcher. Store,
// Announcer, and DefaultSession are required.
type DispatcherConfig struct {
	Store     *Store
	Announcer Announcer

	// DefaultSession is the tmux session used when a notification
	// carries none.
	DefaultSession string

	// TokenTTL is the validity window for minted tokens. If zero,
	// defaults to 24 hours.
	TokenTTL time.Duration

	// Clock supplies the time for record timestamps. If nil, the real
	// clock is used.
	Clock clock.Clock

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. Panics if a required
// collaborator is missing.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Store == nil {
		panic("relay: DispatcherConfig.Store is required")
	}
	if cfg.Announcer == nil {
		panic("relay: DispatcherConfig.Announcer is required")
	}
	if cfg.DefaultSession == "" {
		panic("relay: DispatcherConfig.DefaultSession is required")
	}

	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Dispatcher{
		store:          cfg.Store,
		announcer:      cfg.Announcer,
		clock:          clk,
		defaultSession: cfg.DefaultSession,
		tokenTTL:       ttl,
		logger:         logger,
	}
}

// maxMintAttempts bounds the collision-retry loop in Dispatch. With a
// 36^8 token space, a second attempt is already vanishingly rare.
const maxMintAttempts = 5

// Dispatch mints exactly one token for the notification, persists the
// session record, and announces the token verbatim in the chat room.
// Returns the minted token.
//
// Token minting retries on store collision: a generated token that
// already has a live record is discarded and redrawn. A collision with
// an expired record overwrites it.
func (d *Dispatcher) Dispatch(ctx context.Context, notification Notification) (string, error) {
	session := notification.TmuxSession
	if session == "" {
		session = d.defaultSession
	}

	token, err := d.mintToken(ctx)
	if err != nil {
		return "", err
	}

	now := d.clock.Now()
	deliveryID := uuid.NewString()
	record := Record{
		Token:        token,
		BoundSession: session,
		OriginPayload: map[string]any{
			"title":       notification.Title,
			"message":     notification.Message,
			"project":     notification.Project,
			"delivery_id": deliveryID,
		},
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(d.tokenTTL).Unix(),
		Kind:      notification.Kind,
	}
	if err := d.store.Create(ctx, record); err != nil {
		return "", fmt.Errorf("relay: persisting session for %s: %w", token, err)
	}

	if err := d.announcer.Announce(ctx, formatAnnouncement(notification, token)); err != nil {
		return "", fmt.Errorf("relay: announcing %s: %w", token, err)
	}

	d.logger.Info("notification dispatched",
		"token", token,
		"session", session,
		"kind", notification.Kind,
		"delivery_id", deliveryID,
	)
	return token, nil
}

// mintToken generates a token that has no live record in the store.
func (d *Dispatcher) mintToken(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= maxMintAttempts; attempt++ {
		token, err := GenerateToken()
		if err != nil {
			return "", err
		}

		existing, found, err := d.store.Lookup(ctx, token)
		if err != nil {
			return "", fmt.Errorf("relay: checking token collision: %w", err)
		}
		if found && !existing.ExpiredAt(d.clock.Now()) {
			d.logger.Warn("token collision, redrawing",
				"token", token,
				"attempt", attempt,
			)
			continue
		}
		return token, nil
	}
	return "", fmt.Errorf("relay: no unique token after %d attempts", maxMintAttempts)
}

// formatAnnouncement renders the outbound chat message. The token
// appears verbatim so the operator has something to copy back, and the
// usage instructions reference it explicitly.
func formatAnnouncement(notification Notification, token string) string {
	var builder strings.Builder

	title := notification.Title
	if title == "" {
		title = "Notification"
	}
	fmt.Fprintf(&builder, "%s\n", title)

	if notification.Project != "" {
		fmt.Fprintf(&builder, "Project: %s\n", notification.Project)
	}
	if notification.Message != "" {
		fmt.Fprintf(&builder, "\n%s\n", truncate(notification.Message, maxAnnouncementBody))
	}

	fmt.Fprintf(&builder, "\nToken: %s\n", token)
	fmt.Fprintf(&builder, "Reply with \"%s <command>\" to run a command in the bound session.", token)
	return builder.String()
}

// maxAnnouncementBody caps the notification body in the announcement.
// Chat messages carry status summaries, not full logs.
const maxAnnouncementBody = 1500

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	// Back up to a rune boundary so the cut never splits a multi-byte
	// character and sends invalid UTF-8 to the room.
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit] + "…"
}
