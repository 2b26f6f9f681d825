// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/courier-dev/courier/lib/tmux"
)

// Injector delivers command text into a named terminal session. The
// production implementation is TmuxInjector; tests substitute fakes
// that record calls.
type Injector interface {
	// Inject types commandText into the named session followed by an
	// execution trigger. Completes or fails within a bounded timeout.
	Inject(ctx context.Context, sessionName, commandText string) error
}

// SessionNotFoundError reports an injection target that does not exist
// on the tmux server.
type SessionNotFoundError struct {
	Session string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("relay: tmux session %q not found", e.Session)
}

// InjectError reports a delivery failure for a session that was
// expected to exist.
type InjectError struct {
	Session string
	Err     error
}

func (e *InjectError) Error() string {
	return fmt.Sprintf("relay: injecting into %q: %v", e.Session, e.Err)
}

func (e *InjectError) Unwrap() error { return e.Err }

// TmuxInjector delivers commands by typing them into tmux panes: the
// command text is sent literally (no key-name expansion), then Enter
// is pressed to submit it.
//
// Injections targeting the same session are serialized through a
// per-session lock so concurrent commands never interleave their
// keystrokes. Injections into different sessions run in parallel.
type TmuxInjector struct {
	server  *tmux.Server
	timeout time.Duration
	logger  *slog.Logger

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// NewTmuxInjector creates an injector targeting the given tmux server.
// timeout bounds each Inject call; it must be positive.
func NewTmuxInjector(server *tmux.Server, timeout time.Duration, logger *slog.Logger) *TmuxInjector {
	if timeout <= 0 {
		panic("relay: injector timeout must be positive")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TmuxInjector{
		server:       server,
		timeout:      timeout,
		logger:       logger,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

// Inject types commandText into the named tmux session and presses
// Enter. Returns *SessionNotFoundError if the session does not exist,
// *InjectError on delivery failure or timeout.
func (i *TmuxInjector) Inject(ctx context.Context, sessionName, commandText string) error {
	lock := i.sessionLock(sessionName)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	// tmux commands are quick, but a wedged server must not hang the
	// router. The delivery goroutine is left to finish on its own if
	// the deadline fires first — its result goes to a buffered channel.
	done := make(chan error, 1)
	go func() {
		done <- i.deliver(sessionName, commandText)
	}()

	select {
	case err := <-done:
		if err == nil {
			i.logger.Info("command injected",
				"session", sessionName,
				"command_bytes", len(commandText),
			)
		}
		return err
	case <-ctx.Done():
		return &InjectError{Session: sessionName, Err: fmt.Errorf("delivery did not complete within %v: %w", i.timeout, ctx.Err())}
	}
}

func (i *TmuxInjector) deliver(sessionName, commandText string) error {
	if !i.server.HasSession(sessionName) {
		return &SessionNotFoundError{Session: sessionName}
	}
	if err := i.server.SendText(sessionName, commandText); err != nil {
		return &InjectError{Session: sessionName, Err: err}
	}
	if err := i.server.SendEnter(sessionName); err != nil {
		return &InjectError{Session: sessionName, Err: err}
	}
	return nil
}

// sessionLock returns the mutex serializing injections for one
// session, creating it on first use. Locks are never removed — the
// set of session names is small and stable.
func (i *TmuxInjector) sessionLock(sessionName string) *sync.Mutex {
	i.mu.Lock()
	defer i.mu.Unlock()

	lock, ok := i.sessionLocks[sessionName]
	if !ok {
		lock = &sync.Mutex{}
		i.sessionLocks[sessionName] = lock
	}
	return lock
}
