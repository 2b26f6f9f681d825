// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides a fixed-size pool of SQLite connections
// with Courier-standard pragmas applied to every connection.
//
// WAL journaling gives the session store its concurrency contract:
// readers never block writers and never observe a half-written row, so
// a token lookup racing a create sees either the old record or the new
// one, nothing in between. The pool wraps zombiezen's sqlitex.Pool and
// exposes the same Take/Put API.
package sqlitepool
