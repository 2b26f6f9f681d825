// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Courier components.
//
// Configuration is loaded from a single file specified by:
//   - COURIER_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides. The
// only expansion performed is ${VAR} and ${VAR:-default} substitution
// in path fields, for portability across machines.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for Courier.
type Config struct {
	// Matrix configures the chat gateway connection.
	Matrix MatrixConfig `yaml:"matrix"`

	// Webhook configures the local HTTP notification ingress.
	Webhook WebhookConfig `yaml:"webhook"`

	// Tmux configures the terminal multiplexer target.
	Tmux TmuxConfig `yaml:"tmux"`

	// Store configures session persistence.
	Store StoreConfig `yaml:"store"`

	// Admin configures the local admin status socket.
	Admin AdminConfig `yaml:"admin"`

	// Relay configures token and injection behavior.
	Relay RelayConfig `yaml:"relay"`
}

// MatrixConfig configures the chat gateway connection.
type MatrixConfig struct {
	// HomeserverURL is the base URL of the Matrix homeserver,
	// e.g. https://matrix.example.org.
	HomeserverURL string `yaml:"homeserver_url"`

	// UserID is the bot's full Matrix user ID, e.g. @courier:example.org.
	UserID string `yaml:"user_id"`

	// CredentialFile is the path to a file holding the bot's access
	// token or password. Read once at startup into a locked buffer.
	CredentialFile string `yaml:"credential_file"`

	// RoomID is the single room the relay listens in. Messages from
	// any other room are ignored.
	RoomID string `yaml:"room_id"`
}

// WebhookConfig configures the local HTTP notification ingress.
type WebhookConfig struct {
	// ListenAddr is the address the webhook server binds.
	// Default: :3002
	ListenAddr string `yaml:"listen_addr"`
}

// TmuxConfig configures the terminal multiplexer target.
type TmuxConfig struct {
	// SocketPath is the Unix socket of the tmux server commands are
	// typed into. Empty means the tmux default socket for this user.
	SocketPath string `yaml:"socket_path"`

	// DefaultSession is the session name used when a notification
	// does not carry one.
	// Default: main
	DefaultSession string `yaml:"default_session"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	// Path is the SQLite database file for token sessions.
	// Default: ${HOME}/.cache/courier/sessions.db
	Path string `yaml:"path"`
}

// AdminConfig configures the local admin status socket.
type AdminConfig struct {
	// SocketPath is the Unix socket the daemon serves CBOR status
	// queries on. Default: ${HOME}/.cache/courier/admin.sock
	SocketPath string `yaml:"socket_path"`
}

// RelayConfig configures token and injection behavior.
type RelayConfig struct {
	// TokenTTL is how long a minted token stays usable, as a Go
	// duration string. Default: 24h
	TokenTTL string `yaml:"token_ttl"`

	// InjectTimeout bounds a single tmux injection, as a Go duration
	// string. Default: 10s
	InjectTimeout string `yaml:"inject_timeout"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file. They exist primarily to
// ensure all fields have sensible zero-values, not as a fallback - the
// config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "courier")

	return &Config{
		Webhook: WebhookConfig{
			ListenAddr: ":3002",
		},
		Tmux: TmuxConfig{
			DefaultSession: "main",
		},
		Store: StoreConfig{
			Path: filepath.Join(defaultRoot, "sessions.db"),
		},
		Admin: AdminConfig{
			SocketPath: filepath.Join(defaultRoot, "admin.sock"),
		},
		Relay: RelayConfig{
			TokenTTL:      "24h",
			InjectTimeout: "10s",
		},
	}
}

// Load loads configuration from the COURIER_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if COURIER_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("COURIER_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("COURIER_CONFIG environment variable not set; " +
			"set it to the path of your courier.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Matrix.CredentialFile = expandVars(c.Matrix.CredentialFile, vars)
	c.Tmux.SocketPath = expandVars(c.Tmux.SocketPath, vars)
	c.Store.Path = expandVars(c.Store.Path, vars)
	c.Admin.SocketPath = expandVars(c.Admin.SocketPath, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported at once via errors.Join so an operator fixes the file in
// one pass.
func (c *Config) Validate() error {
	var errs []error

	if c.Matrix.HomeserverURL == "" {
		errs = append(errs, fmt.Errorf("matrix.homeserver_url is required"))
	} else if parsed, err := url.Parse(c.Matrix.HomeserverURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("matrix.homeserver_url %q is not an absolute URL", c.Matrix.HomeserverURL))
	}

	if c.Matrix.UserID == "" {
		errs = append(errs, fmt.Errorf("matrix.user_id is required"))
	}
	if c.Matrix.CredentialFile == "" {
		errs = append(errs, fmt.Errorf("matrix.credential_file is required"))
	}
	if c.Matrix.RoomID == "" {
		errs = append(errs, fmt.Errorf("matrix.room_id is required"))
	}

	if c.Webhook.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("webhook.listen_addr is required"))
	}
	if c.Tmux.DefaultSession == "" {
		errs = append(errs, fmt.Errorf("tmux.default_session is required"))
	}
	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path is required"))
	}

	if _, err := c.TokenTTL(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.InjectTimeout(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// TokenTTL returns the parsed token lifetime.
func (c *Config) TokenTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Relay.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("relay.token_ttl %q: %w", c.Relay.TokenTTL, err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("relay.token_ttl %q must be positive", c.Relay.TokenTTL)
	}
	return ttl, nil
}

// InjectTimeout returns the parsed per-injection timeout.
func (c *Config) InjectTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.Relay.InjectTimeout)
	if err != nil {
		return 0, fmt.Errorf("relay.inject_timeout %q: %w", c.Relay.InjectTimeout, err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("relay.inject_timeout %q must be positive", c.Relay.InjectTimeout)
	}
	return timeout, nil
}

// EnsurePaths creates the parent directories of configured file paths
// if they don't exist.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Store.Path, c.Admin.SocketPath} {
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	return nil
}
