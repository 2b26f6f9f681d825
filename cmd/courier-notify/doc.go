// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// courier-notify posts a notification to a running courierd's webhook
// ingress. The daemon mints a reply token for the notification,
// announces it in the relay room, and binds it to the given tmux
// session (or the daemon's default).
//
// Typical use is a shell hook at the end of a long-running task:
//
//	courier-notify --title "build finished" --message "$(tail -n 5 build.log)" --tmux-session work
package main
