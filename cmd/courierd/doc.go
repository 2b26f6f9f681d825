// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Courierd is the Courier relay daemon. It bridges notifications from
// local tooling to a Matrix room and routes operator replies back into
// tmux sessions as typed commands.
//
// Two ingress paths run concurrently:
//
//   - The gateway ingest loop long-polls the configured Matrix room and
//     feeds every message event into the command router. A message of
//     the form "TOKEN command..." whose token has a live session record
//     gets its command typed into the bound tmux session.
//
//   - The webhook HTTP server accepts notification and message events
//     from local processes (including courier-notify). Notifications
//     mint a fresh token, persist its session binding, and announce the
//     token in the room.
//
// The two paths share only the session store. A small Unix admin socket
// serves CBOR status queries for operational monitoring.
//
// Configuration comes from a YAML file located via the COURIER_CONFIG
// environment variable or the --config flag.
package main
