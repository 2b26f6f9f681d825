// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courier.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
matrix:
  homeserver_url: https://matrix.example.org
  user_id: "@courier:example.org"
  credential_file: /etc/courier/token
  room_id: "!ops:example.org"
`

func TestLoadFileAppliesDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Webhook.ListenAddr != ":3002" {
		t.Errorf("ListenAddr = %q, want :3002", cfg.Webhook.ListenAddr)
	}
	if cfg.Tmux.DefaultSession != "main" {
		t.Errorf("DefaultSession = %q, want main", cfg.Tmux.DefaultSession)
	}
	if cfg.Relay.TokenTTL != "24h" {
		t.Errorf("TokenTTL = %q, want 24h", cfg.Relay.TokenTTL)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	ttl, err := cfg.TokenTTL()
	if err != nil {
		t.Fatalf("TokenTTL: %v", err)
	}
	if ttl != 24*time.Hour {
		t.Errorf("parsed TTL = %v, want 24h", ttl)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, validConfig+`
webhook:
  listen_addr: "127.0.0.1:9000"
relay:
  token_ttl: 1h
`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Webhook.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q", cfg.Webhook.ListenAddr)
	}
	ttl, err := cfg.TokenTTL()
	if err != nil {
		t.Fatalf("TokenTTL: %v", err)
	}
	if ttl != time.Hour {
		t.Errorf("parsed TTL = %v, want 1h", ttl)
	}
}

func TestLoadRequiresEnvVar(t *testing.T) {
	t.Setenv("COURIER_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load with unset COURIER_CONFIG returned nil error")
	}
}

func TestLoadUsesEnvVar(t *testing.T) {
	path := writeConfig(t, validConfig)
	t.Setenv("COURIER_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Matrix.UserID != "@courier:example.org" {
		t.Errorf("UserID = %q", cfg.Matrix.UserID)
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	cfg, err := LoadFile(writeConfig(t, validConfig+`
store:
  path: ${HOME}/courier/sessions.db
admin:
  socket_path: ${COURIER_RUN_DIR:-/run/courier}/admin.sock
`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Store.Path != "/home/tester/courier/sessions.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Admin.SocketPath != "/run/courier/admin.sock" {
		t.Errorf("Admin.SocketPath = %q", cfg.Admin.SocketPath)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Relay.TokenTTL = "not-a-duration"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate on empty matrix section returned nil")
	}

	message := err.Error()
	for _, want := range []string{
		"matrix.homeserver_url",
		"matrix.user_id",
		"matrix.credential_file",
		"matrix.room_id",
		"relay.token_ttl",
	} {
		if !strings.Contains(message, want) {
			t.Errorf("Validate error missing %q:\n%s", want, message)
		}
	}
}

func TestValidateRejectsRelativeHomeserverURL(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg.Matrix.HomeserverURL = "matrix.example.org"

	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted homeserver URL without scheme")
	}
}

func TestEnsurePaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Store.Path = filepath.Join(root, "state", "sessions.db")
	cfg.Admin.SocketPath = filepath.Join(root, "run", "admin.sock")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}

	for _, dir := range []string{filepath.Join(root, "state"), filepath.Join(root, "run")} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
}
