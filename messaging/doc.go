// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is Courier's Matrix client.
//
// The relay uses a deliberately small slice of the client-server API:
// password login, room alias resolution, joining the relay room,
// sending messages, and /sync long-polling to receive operator
// replies. Client holds the homeserver URL and HTTP transport;
// DirectSession adds an access token for authenticated calls.
//
// Access tokens live in secret.Buffer (mmap-backed, locked against
// swap) and are only converted to heap strings at the Authorization
// header boundary.
package messaging
