// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Courier's standard CBOR encoding.
//
// All admin socket traffic uses CBOR with Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes. Consumers import only this package, never fxamacker/cbor
// directly, so the encoding configuration stays in one place.
package codec
