// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"testing"
	"time"
)

func TestRecordExpiredAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	record := Record{
		Token:     "ABCD1234",
		CreatedAt: now.Unix() - 100,
		ExpiresAt: now.Unix(),
	}

	if record.ExpiredAt(now) {
		t.Error("record expiring exactly now reported expired (window is inclusive)")
	}
	if !record.ExpiredAt(now.Add(time.Second)) {
		t.Error("record one second past expiry not reported expired")
	}
	if record.ExpiredAt(now.Add(-time.Hour)) {
		t.Error("record well within window reported expired")
	}
}
