// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// tokenAlphabet is the 36-symbol alphabet tokens are drawn from.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TokenLength is the fixed length of a session token.
const TokenLength = 8

// GenerateToken draws a random token: TokenLength independent
// uniformly-random symbols from tokenAlphabet. Collisions are possible
// (36^-8 per draw) — callers that need store-wide uniqueness must
// check against the store and retry.
func GenerateToken() (string, error) {
	// Rejection sampling keeps the distribution uniform: 252 is the
	// largest multiple of 36 below 256, so bytes >= 252 are redrawn
	// instead of wrapping unevenly.
	const limit = byte(252)

	token := make([]byte, 0, TokenLength)
	buffer := make([]byte, TokenLength)
	for len(token) < TokenLength {
		if _, err := rand.Read(buffer); err != nil {
			return "", fmt.Errorf("relay: reading randomness: %w", err)
		}
		for _, b := range buffer {
			if b >= limit {
				continue
			}
			token = append(token, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(token) == TokenLength {
				break
			}
		}
	}
	return string(token), nil
}

// NormalizeToken upper-cases a raw token. Tokens are case-insensitive
// on input but stored and compared upper-case.
func NormalizeToken(raw string) string {
	return strings.ToUpper(raw)
}
