// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(StoreConfig{
		Path: filepath.Join(t.TempDir(), "sessions.db"),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(token string) Record {
	now := time.Now().Unix()
	return Record{
		Token:        token,
		BoundSession: "main",
		OriginPayload: map[string]any{
			"title":   "build finished",
			"project": "courier",
		},
		CreatedAt: now,
		ExpiresAt: now + 86400,
		Kind:      "webhook",
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	record := testRecord("ABCD1234")

	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, found, err := store.Lookup(ctx, "ABCD1234")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found {
		t.Fatal("Lookup found = false after Create")
	}
	if !reflect.DeepEqual(got, record) {
		t.Errorf("Lookup = %+v, want %+v", got, record)
	}
}

func TestStoreLookupIsCaseInsensitive(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, testRecord("ABCD1234")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, found, err := store.Lookup(ctx, "abcd1234")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found {
		t.Fatal("lowercase lookup missed record stored uppercase")
	}
	if got.Token != "ABCD1234" {
		t.Errorf("stored token = %q, want upper-cased", got.Token)
	}
}

func TestStoreCreateOverwrites(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := testRecord("ABCD1234")
	if err := store.Create(ctx, first); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	second := first
	second.BoundSession = "deploy"
	second.ExpiresAt = first.ExpiresAt + 3600
	if err := store.Create(ctx, second); err != nil {
		t.Fatalf("second Create: %v", err)
	}

	got, found, err := store.Lookup(ctx, "ABCD1234")
	if err != nil || !found {
		t.Fatalf("Lookup: found=%v err=%v", found, err)
	}
	if got.BoundSession != "deploy" {
		t.Errorf("BoundSession = %q, want deploy", got.BoundSession)
	}
	if got.ExpiresAt != second.ExpiresAt {
		t.Errorf("ExpiresAt = %d, want %d", got.ExpiresAt, second.ExpiresAt)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d after overwrite, want 1", count)
	}
}

func TestStoreLookupMissing(t *testing.T) {
	store := testStore(t)

	_, found, err := store.Lookup(context.Background(), "ZZZZ9999")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found {
		t.Error("Lookup found a never-created token")
	}
}

func TestStoreRemoveIsIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, testRecord("ABCD1234")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Remove(ctx, "ABCD1234"); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	if err := store.Remove(ctx, "ABCD1234"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if err := store.Remove(ctx, "NEVER000"); err != nil {
		t.Fatalf("Remove of absent token: %v", err)
	}

	_, found, err := store.Lookup(ctx, "ABCD1234")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found {
		t.Error("record still present after Remove")
	}
}

func TestStoreRejectsMalformedRecords(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	short := testRecord("ABC")
	if err := store.Create(ctx, short); err == nil {
		t.Error("Create accepted a 3-character token")
	}

	inverted := testRecord("ABCD1234")
	inverted.ExpiresAt = inverted.CreatedAt
	if err := store.Create(ctx, inverted); err == nil {
		t.Error("Create accepted expiresAt == createdAt")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := OpenStore(StoreConfig{Path: path})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	record := testRecord("ABCD1234")
	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenStore(StoreConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, found, err := reopened.Lookup(ctx, "ABCD1234")
	if err != nil || !found {
		t.Fatalf("Lookup after reopen: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(got, record) {
		t.Errorf("record changed across reopen: %+v", got)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	const workers = 8
	var group sync.WaitGroup
	errs := make(chan error, workers*3)

	for worker := range workers {
		group.Add(1)
		go func() {
			defer group.Done()
			token := fmt.Sprintf("TOKEN%03d", worker)
			record := testRecord(token)

			if err := store.Create(ctx, record); err != nil {
				errs <- err
				return
			}
			if _, found, err := store.Lookup(ctx, token); err != nil || !found {
				errs <- fmt.Errorf("lookup %s: found=%v err=%v", token, found, err)
				return
			}
			if err := store.Remove(ctx, token); err != nil {
				errs <- err
			}
		}()
	}

	group.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent access: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("Count = %d after all removes, want 0", count)
	}
}
