// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides helpers for binary entrypoints: fatal error
// reporting before the structured logger is available.
package process
