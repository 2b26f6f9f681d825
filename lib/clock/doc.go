// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability.
//
// Production code injects Real(); tests inject Fake() and advance it
// explicitly. Courier's token expiry is evaluated against wall-clock
// time at every lookup, so expiry tests set up a fake clock, create a
// session, advance past the TTL, and observe the lazy removal — no
// sleeping, no flakes.
package clock
