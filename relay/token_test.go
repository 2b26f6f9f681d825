// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"strings"
	"testing"
)

func TestGenerateTokenFormat(t *testing.T) {
	for range 200 {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if len(token) != TokenLength {
			t.Fatalf("token %q has length %d, want %d", token, len(token), TokenLength)
		}
		for _, symbol := range token {
			if !strings.ContainsRune(tokenAlphabet, symbol) {
				t.Fatalf("token %q contains %q, outside [A-Z0-9]", token, symbol)
			}
		}
	}
}

func TestGenerateTokenVaries(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		seen[token] = true
	}
	// 50 draws from a 36^8 space colliding would indicate broken
	// randomness, not bad luck.
	if len(seen) < 50 {
		t.Errorf("only %d distinct tokens in 50 draws", len(seen))
	}
}

func TestNormalizeToken(t *testing.T) {
	if got := NormalizeToken("ab1cd2ef"); got != "AB1CD2EF" {
		t.Errorf("NormalizeToken(ab1cd2ef) = %q", got)
	}
	if got := NormalizeToken("AB1CD2EF"); got != "AB1CD2EF" {
		t.Errorf("NormalizeToken(AB1CD2EF) = %q", got)
	}
}
