// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/courier-dev/courier/lib/clock"
)

// InboundMessage is a candidate command message from either ingress
// path (gateway sync stream or webhook).
type InboundMessage struct {
	// Text is the raw message body.
	Text string

	// Sender identifies the author.
	Sender string

	// IsSelf is true when the message was sent by the relay's own bot
	// account. Self messages are dropped to prevent feedback loops —
	// the relay's replies echo command text that would otherwise parse
	// as commands again.
	IsSelf bool

	// Channel is the room or channel the message arrived in.
	Channel string
}

// Replier sends a user-visible reply to the message's origin. The
// webhook ingress cannot reply in-line and passes NoopReplier.
type Replier interface {
	Reply(ctx context.Context, text string) error
}

// ReplierFunc adapts a function to the Replier interface.
type ReplierFunc func(ctx context.Context, text string) error

// Reply calls the wrapped function.
func (f ReplierFunc) Reply(ctx context.Context, text string) error {
	return f(ctx, text)
}

// NoopReplier discards replies. Used by ingress paths that have no way
// to respond to the sender.
var NoopReplier Replier = ReplierFunc(func(context.Context, string) error {
	return nil
})

// Router parses inbound chat text, resolves tokens against the session
// store, and orchestrates injection and replies. Safe for concurrent
// use: both ingress paths call HandleMessage on the same Router.
type Router struct {
	store    *Store
	injector Injector
	clock    clock.Clock
	channel  string
	logger   *slog.Logger
}

// RouterConfig holds the collaborators for a Router. Store, Injector,
// and Channel are required.
type RouterConfig struct {
	Store    *Store
	Injector Injector

	// Channel is the only channel the router acts on. Messages from
	// any other channel are silently ignored.
	Channel string

	// Clock supplies the time for expiry evaluation. If nil, the real
	// clock is used.
	Clock clock.Clock

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// NewRouter creates a Router. Panics if a required collaborator is
// missing — that is a programmer error, not a runtime condition.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Store == nil {
		panic("relay: RouterConfig.Store is required")
	}
	if cfg.Injector == nil {
		panic("relay: RouterConfig.Injector is required")
	}
	if cfg.Channel == "" {
		panic("relay: RouterConfig.Channel is required")
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Router{
		store:    cfg.Store,
		injector: cfg.Injector,
		clock:    clk,
		channel:  cfg.Channel,
		logger:   logger,
	}
}

// HandleMessage processes one inbound message end to end. Messages
// that fail the channel or sender filter, or that don't parse as
// token-prefixed commands, are silently dropped — chat rooms are full
// of ordinary conversation. Everything else produces a reply: token
// problems, injection failures, and successful injections alike.
//
// The returned error reports internal failures (store I/O) only; all
// user-addressable conditions are communicated through the replier.
func (r *Router) HandleMessage(ctx context.Context, message InboundMessage, replier Replier) error {
	if message.Channel != r.channel || message.IsSelf {
		return nil
	}

	command, ok := Parse(message.Text)
	if !ok {
		return nil
	}

	record, found, err := r.store.Lookup(ctx, command.Token)
	if err != nil {
		r.logger.Error("session lookup failed",
			"token", command.Token,
			"error", err,
		)
		r.reply(ctx, replier, fmt.Sprintf("Internal error handling token %s, please retry.", command.Token))
		return err
	}

	if !found {
		r.reply(ctx, replier, fmt.Sprintf("Token %s is invalid or expired.", command.Token))
		return nil
	}

	if record.ExpiredAt(r.clock.Now()) {
		r.reply(ctx, replier, fmt.Sprintf("Token %s has expired.", command.Token))
		if err := r.store.Remove(ctx, command.Token); err != nil {
			r.logger.Error("removing expired session failed",
				"token", command.Token,
				"error", err,
			)
			return err
		}
		return nil
	}

	if err := r.injector.Inject(ctx, record.BoundSession, command.Text); err != nil {
		r.logger.Warn("injection failed",
			"token", command.Token,
			"session", record.BoundSession,
			"error", err,
		)
		var notFound *SessionNotFoundError
		if errors.As(err, &notFound) {
			r.reply(ctx, replier, fmt.Sprintf("Command failed: tmux session %q no longer exists.", record.BoundSession))
		} else {
			r.reply(ctx, replier, fmt.Sprintf("Command failed: %v", err))
		}
		return nil
	}

	r.logger.Info("command routed",
		"token", command.Token,
		"session", record.BoundSession,
		"sender", message.Sender,
	)
	r.reply(ctx, replier, fmt.Sprintf("Executing in session %q:\n%s", record.BoundSession, command.Text))
	return nil
}

// reply sends a user-visible reply, logging delivery failures instead
// of propagating them — a lost reply must not fail the routing flow.
func (r *Router) reply(ctx context.Context, replier Replier, text string) {
	if err := replier.Reply(ctx, text); err != nil {
		r.logger.Warn("reply delivery failed", "error", err)
	}
}
