// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tmux_test

import (
	"strings"
	"testing"
	"time"

	"github.com/courier-dev/courier/lib/tmux"
)

func TestNewSessionAndHasSession(t *testing.T) {
	server := tmux.NewTestServer(t)

	if server.HasSession("work") {
		t.Fatal("HasSession(work) = true before creation")
	}

	if err := server.NewSession("work", "sleep", "infinity"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if !server.HasSession("work") {
		t.Error("HasSession(work) = false after creation")
	}

	if err := server.KillSession("work"); err != nil {
		t.Fatalf("KillSession: %v", err)
	}

	if server.HasSession("work") {
		t.Error("HasSession(work) = true after kill")
	}
}

func TestKillSessionMissingIsNil(t *testing.T) {
	server := tmux.NewTestServer(t)

	if err := server.KillSession("never-existed"); err != nil {
		t.Errorf("KillSession on missing session: %v", err)
	}
}

func TestSendTextIsLiteral(t *testing.T) {
	server := tmux.NewTestServer(t)

	// cat echoes each submitted line back to the pane, so the capture
	// shows the typed text once unsubmitted and twice after Enter.
	if err := server.NewSession("echo", "cat"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	// "Enter" and "C-c" must arrive as characters. Without -l, tmux
	// would translate them into keystrokes.
	const text = "say Enter and C-c verbatim"
	if err := server.SendText("echo", text); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	waitForPaneContent(t, server, "echo", text)

	if err := server.SendEnter("echo"); err != nil {
		t.Fatalf("SendEnter: %v", err)
	}

	// After Enter, cat repeats the line: the terminal echo plus cat's
	// own output.
	deadline := time.Now().Add(5 * time.Second)
	for {
		content, err := server.CapturePane("echo", 0)
		if err != nil {
			t.Fatalf("CapturePane: %v", err)
		}
		if strings.Count(content, text) >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pane never showed submitted line twice:\n%s", content)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSendTextMissingSession(t *testing.T) {
	server := tmux.NewTestServer(t)

	err := server.SendText("no-such-session", "ls")
	if err == nil {
		t.Fatal("SendText to missing session returned nil")
	}
	if !strings.Contains(err.Error(), "no-such-session") {
		t.Errorf("error %q does not name the session", err)
	}
}

func TestCapturePaneMaxLines(t *testing.T) {
	server := tmux.NewTestServer(t)

	if err := server.NewSession("lines", "cat"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	for _, line := range []string{"one", "two", "three"} {
		if err := server.SendText("lines", line); err != nil {
			t.Fatalf("SendText %q: %v", line, err)
		}
		if err := server.SendEnter("lines"); err != nil {
			t.Fatalf("SendEnter: %v", err)
		}
	}
	waitForPaneContent(t, server, "lines", "three")

	full, err := server.CapturePane("lines", 0)
	if err != nil {
		t.Fatalf("CapturePane unlimited: %v", err)
	}
	limited, err := server.CapturePane("lines", 2)
	if err != nil {
		t.Fatalf("CapturePane limited: %v", err)
	}

	if len(limited) >= len(full) {
		t.Errorf("limited capture (%d bytes) not smaller than full (%d bytes)",
			len(limited), len(full))
	}
	if lineCount := strings.Count(strings.TrimRight(limited, "\n"), "\n") + 1; lineCount != 2 {
		t.Errorf("limited capture has %d lines, want 2:\n%q", lineCount, limited)
	}
}

// waitForPaneContent polls CapturePane until the pane contains want or
// the deadline passes. Typing via send-keys is asynchronous with
// respect to the pane's process reading it.
func waitForPaneContent(t *testing.T, server *tmux.Server, session, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		content, err := server.CapturePane(session, 0)
		if err != nil {
			t.Fatalf("CapturePane: %v", err)
		}
		if strings.Contains(content, want) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("pane never showed %q:\n%s", want, content)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
