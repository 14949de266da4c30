package store

import (
	"context"
	"path/filepath"
	"testing"

	"mercator-hq/saturn/pkg/expiry"
)

func newTestSQLiteCoreStore(t *testing.T) *SQLiteCoreStore {
	t.Helper()

	s, err := NewSQLiteCoreStore(&SQLiteCoreConfig{
		Path: filepath.Join(t.TempDir(), "records.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteCoreStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteCoreStore_SaveAndGet(t *testing.T) {
	s := newTestSQLiteCoreStore(t)
	ctx := context.Background()

	record := expiry.CoreRecord{
		CoreID:    "user-1",
		Kind:      "profile",
		CreatedAt: day(1),
		Body:      map[string]string{"name": "Ada", "plan": "pro"},
	}
	if err := s.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected record, got nil")
	}
	if !got.CreatedAt.Equal(record.CreatedAt) {
		t.Errorf("CreatedAt did not round-trip: %s vs %s", record.CreatedAt, got.CreatedAt)
	}
	if got.Body["plan"] != "pro" {
		t.Errorf("Body did not round-trip: %v", got.Body)
	}

	missing, err := s.Get(ctx, "user-404")
	if err != nil {
		t.Fatalf("Get for missing record failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing record, got %+v", missing)
	}
}

func TestSQLiteCoreStore_ListStream(t *testing.T) {
	s := newTestSQLiteCoreStore(t)
	ctx := context.Background()

	for _, r := range []expiry.CoreRecord{
		{CoreID: "device-1", Kind: "device", CreatedAt: day(1)},
		{CoreID: "user-1", Kind: "profile", CreatedAt: day(1)},
		{CoreID: "user-2", Kind: "profile", CreatedAt: day(2)},
	} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save(%s) failed: %v", r.CoreID, err)
		}
	}

	recordsCh, errCh, err := s.ListStream(ctx, CoreFilter{Kind: "profile"})
	if err != nil {
		t.Fatalf("ListStream failed: %v", err)
	}

	var ids []string
	for record := range recordsCh {
		ids = append(ids, record.CoreID)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("Expected 2 profile records, got %d", len(ids))
	}
	if ids[0] != "user-1" || ids[1] != "user-2" {
		t.Errorf("Unexpected order: %v", ids)
	}
}

func TestSQLiteCoreStore_ListStreamPrefixAndWindow(t *testing.T) {
	s := newTestSQLiteCoreStore(t)
	ctx := context.Background()

	for _, id := range []string{"user-1", "user-2", "user-3", "device-1"} {
		if err := s.Save(ctx, expiry.CoreRecord{CoreID: id, Kind: "any", CreatedAt: day(1)}); err != nil {
			t.Fatalf("Save(%s) failed: %v", id, err)
		}
	}

	recordsCh, errCh, err := s.ListStream(ctx, CoreFilter{CoreIDPrefix: "user-", Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("ListStream failed: %v", err)
	}

	var ids []string
	for record := range recordsCh {
		ids = append(ids, record.CoreID)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if len(ids) != 1 || ids[0] != "user-2" {
		t.Errorf("Expected [user-2], got %v", ids)
	}
}

func TestSQLiteCoreStore_Delete(t *testing.T) {
	s := newTestSQLiteCoreStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, expiry.CoreRecord{CoreID: "user-1", Kind: "profile", CreatedAt: day(1)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := s.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Error("Expected record to be gone after delete")
	}

	// Deleting again is not an error.
	if err := s.Delete(ctx, "user-1"); err != nil {
		t.Errorf("Delete of absent record failed: %v", err)
	}
}
