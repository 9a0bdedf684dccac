// Package storagetest holds behaviour checks shared by every storage backend.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"deskpet/internal/storage"
)

// Run exercises store against the storage.Store contract. The store must be empty.
func Run(t *testing.T, store storage.Store) {
	t.Helper()
	t.Run("SettingsRoundTrip", func(t *testing.T) { testSettings(t, store) })
	t.Run("SessionsOrderAndLimit", func(t *testing.T) { testSessions(t, store) })
	t.Run("SessionsDeleteBefore", func(t *testing.T) { testDeleteBefore(t, store) })
}

func testSettings(t *testing.T, store storage.Store) {
	ctx := context.Background()
	settings := store.Settings()

	values, err := settings.Load(ctx)
	if err != nil {
		t.Fatalf("load empty settings: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty settings, got %v", values)
	}

	if err := settings.Save(ctx, map[string]string{"focus_minutes": "25", "break_minutes": "5"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if err := settings.Save(ctx, map[string]string{"focus_minutes": "30"}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	values, err = settings.Load(ctx)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if values["focus_minutes"] != "30" {
		t.Errorf("expected focus_minutes 30, got %q", values["focus_minutes"])
	}
	if values["break_minutes"] != "5" {
		t.Errorf("expected break_minutes 5, got %q", values["break_minutes"])
	}
}

func record(id string, ended time.Time, elapsed time.Duration) storage.SessionRecord {
	return storage.SessionRecord{
		ID:        id,
		Mode:      "focus",
		StartedAt: ended.Add(-elapsed),
		EndedAt:   ended,
		Elapsed:   elapsed,
		Reason:    "expired",
	}
}

func testSessions(t *testing.T, store storage.Store) {
	ctx := context.Background()
	sessions := store.Sessions()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"b", "a", "c"} {
		r := record(id, base.Add(time.Duration(i)*time.Hour), 25*time.Minute)
		if err := sessions.Append(ctx, r); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	all, err := sessions.List(ctx, 0)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
	if all[0].ID != "c" || all[1].ID != "a" || all[2].ID != "b" {
		t.Errorf("expected newest first c,a,b; got %s,%s,%s", all[0].ID, all[1].ID, all[2].ID)
	}

	limited, err := sessions.List(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "c" {
		t.Errorf("unexpected limited list: %+v", limited)
	}

	got, err := sessions.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Elapsed != 25*time.Minute {
		t.Errorf("expected elapsed 25m, got %v", got.Elapsed)
	}
	if !got.EndedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("expected ended_at %v, got %v", base.Add(time.Hour), got.EndedAt)
	}
	if got.Mode != "focus" || got.Reason != "expired" {
		t.Errorf("unexpected record: %+v", got)
	}

	if _, err := sessions.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testDeleteBefore(t *testing.T, store storage.Store) {
	ctx := context.Background()
	sessions := store.Sessions()
	old := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"old-1", "old-2"} {
		if err := sessions.Append(ctx, record(id, old, time.Minute)); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	deleted, err := sessions.DeleteBefore(ctx, old.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	remaining, err := sessions.List(ctx, 0)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	for _, r := range remaining {
		if r.EndedAt.Before(old.Add(24 * time.Hour)) {
			t.Errorf("record %s should have been deleted", r.ID)
		}
	}
	if _, err := sessions.Get(ctx, "old-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted record, got %v", err)
	}
}
