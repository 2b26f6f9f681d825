// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/courier-dev/courier/lib/netutil"
	"github.com/courier-dev/courier/lib/process"
	"github.com/courier-dev/courier/lib/version"
)

// notifyEnvelope matches courierd's webhook wire format.
type notifyEnvelope struct {
	Type string     `json:"type"`
	Data notifyData `json:"data"`
}

type notifyData struct {
	Title       string `json:"title"`
	Message     string `json:"message,omitempty"`
	Project     string `json:"project,omitempty"`
	Kind        string `json:"kind,omitempty"`
	TmuxSession string `json:"tmuxSession,omitempty"`
}

type notifyResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var addr, title, message, project, kind, tmuxSession string

	flagSet := pflag.NewFlagSet("courier-notify", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", "http://127.0.0.1:3002", "base URL of the courierd webhook server")
	flagSet.StringVar(&title, "title", "", "notification title (required)")
	flagSet.StringVar(&message, "message", "", "notification body")
	flagSet.StringVar(&project, "project", "", "project label")
	flagSet.StringVar(&kind, "kind", "cli", "ingress kind recorded with the session")
	flagSet.StringVar(&tmuxSession, "tmux-session", "", "tmux session the reply token binds to (default: daemon's configured session)")

	// Handle --version before flag parsing to match other Courier
	// binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("courier-notify")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if title == "" {
		return fmt.Errorf("--title is required")
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	token, err := postNotification(addr, notifyData{
		Title:       title,
		Message:     message,
		Project:     project,
		Kind:        kind,
		TmuxSession: tmuxSession,
	})
	if err != nil {
		return err
	}

	fmt.Printf("notified; reply token %s\n", token)
	return nil
}

// postNotification sends the notify event and returns the minted token.
func postNotification(addr string, data notifyData) (string, error) {
	body, err := json.Marshal(notifyEnvelope{Type: "notify", Data: data})
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	response, err := client.Post(addr+"/webhook", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("posting to %s: %w", addr, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("courierd rejected the notification: %s: %s",
			response.Status, netutil.ErrorBody(response.Body))
	}

	var decoded notifyResponse
	if err := netutil.DecodeResponse(response.Body, &decoded); err != nil {
		return "", fmt.Errorf("decoding courierd response: %w", err)
	}
	return decoded.Token, nil
}
