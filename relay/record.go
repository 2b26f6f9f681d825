// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"time"
)

// Record is the persisted binding of a token to a tmux session. It is
// the only entity the relay persists.
type Record struct {
	// Token is the 8-character upper-case session token.
	Token string `json:"id"`

	// BoundSession is the tmux session name commands for this token
	// are injected into.
	BoundSession string `json:"boundTerminalSessionId"`

	// OriginPayload is opaque metadata describing the triggering
	// notification. Preserved for display and audit only — the relay
	// never interprets it.
	OriginPayload map[string]any `json:"originPayload,omitempty"`

	// CreatedAt is the creation time in seconds since epoch.
	CreatedAt int64 `json:"createdAt"`

	// ExpiresAt is the end of the validity window in seconds since
	// epoch. Always strictly greater than CreatedAt.
	ExpiresAt int64 `json:"expiresAt"`

	// Kind identifies the ingress channel that created the record
	// (e.g., "gateway", "webhook").
	Kind string `json:"kind"`
}

// ExpiredAt reports whether the record's validity window has ended at
// the given instant. Expiry is always evaluated against the caller's
// clock at read time, never cached.
func (r Record) ExpiredAt(now time.Time) bool {
	return now.Unix() > r.ExpiresAt
}
