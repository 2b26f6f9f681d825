// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"regexp"
	"strings"
)

// Command is a successfully parsed operator reply: a normalized token
// and the command text to inject.
type Command struct {
	// Token is the upper-cased 8-character token.
	Token string

	// Text is the command to inject, trimmed of surrounding
	// whitespace. Always contains at least one non-whitespace
	// character.
	Text string
}

// commandPattern matches "<token> <command>": exactly eight
// alphanumeric characters, whitespace, then the command remainder.
// Token case is normalized after matching. A nine-character token
// segment does not match — the eighth character must be followed by
// whitespace.
var commandPattern = regexp.MustCompile(`^([A-Za-z0-9]{8})\s+(.+)$`)

// Parse attempts to read rawText as a token-prefixed command. The text
// is trimmed of surrounding whitespace before matching, so a copied
// token with a stray leading space still parses. Returns ok=false for
// any other shape — chat rooms are full of ordinary conversation, so
// non-matching text is expected noise, not an error.
func Parse(rawText string) (Command, bool) {
	match := commandPattern.FindStringSubmatch(strings.TrimSpace(rawText))
	if match == nil {
		return Command{}, false
	}

	text := strings.TrimSpace(match[2])
	if text == "" {
		return Command{}, false
	}

	return Command{
		Token: NormalizeToken(match[1]),
		Text:  text,
	}, true
}
