// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay implements Courier's token-session relay: the bridge
// between chat notifications and command injection into tmux sessions.
//
// The flow has two halves that share only the session store. Outbound,
// the Dispatcher mints an 8-character token for each notification,
// binds it to a tmux session, persists the binding, and announces the
// token in the chat room. Inbound, the Router parses operator replies
// of the form "<TOKEN> <command>", resolves the token against the
// store, and hands the command to the Injector, which types it into
// the bound tmux session.
//
// Tokens stay valid for a fixed TTL and are reusable until they
// expire — a successful injection does not consume the token. Expired
// records are removed lazily when a lookup finds them; there is no
// background sweep.
//
// The Injector is the trust boundary: it executes attacker-reachable
// text verbatim in a privileged shell. The only gate is possession of
// a live token. No allow-list or content policy is applied to the
// command text.
package relay
