package storage

import (
	"context"
	"testing"
	"time"

	"github.com/golfclapp/backoffice/internal/storage/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&n); err != nil {
		t.Fatalf("counting migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("recorded %d migrations, want 1", n)
	}
}

func TestAuditRecordAndList(t *testing.T) {
	repo := NewAuditRepository(openTestDB(t))
	ctx := context.Background()

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	entries := []*models.AuditEntry{
		{SessionID: "s1", Action: models.ActionSaveRange, CourseID: "c1", RangeIDs: []string{"r1"}, Outcome: models.OutcomeOK},
		{SessionID: "s1", Action: models.ActionBulkDelete, CourseID: "c2", RangeIDs: []string{"r2", "r3"}, Outcome: models.OutcomeOK},
		{SessionID: "s2", Action: models.ActionDeleteRange, CourseID: "c1", Outcome: models.OutcomeError, Error: "API error (status 500)"},
	}
	for _, e := range entries {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if e.ID == "" || e.CreatedAt.IsZero() {
			t.Errorf("Record did not fill ID/CreatedAt: %+v", e)
		}
	}

	got, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List returned %d entries", len(got))
	}
	if got[0].ID != entries[2].ID || got[2].ID != entries[0].ID {
		t.Errorf("List not newest first: %s, %s, %s", got[0].Action, got[1].Action, got[2].Action)
	}
	if !got[0].Failed() || got[0].Error == "" || len(got[0].RangeIDs) != 0 {
		t.Errorf("failed entry = %+v", got[0])
	}
	if ids := got[1].RangeIDs; len(ids) != 2 || ids[1] != "r3" {
		t.Errorf("RangeIDs = %v", ids)
	}
	if !got[2].CreatedAt.Equal(entries[0].CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got[2].CreatedAt, entries[0].CreatedAt)
	}

	limited, err := repo.List(ctx, 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("List(2) = %d entries, %v", len(limited), err)
	}

	byCourse, err := repo.ListByCourse(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("ListByCourse: %v", err)
	}
	if len(byCourse) != 2 || byCourse[0].Action != models.ActionDeleteRange {
		t.Errorf("ListByCourse = %+v", byCourse)
	}
}

func TestAuditListEmpty(t *testing.T) {
	repo := NewAuditRepository(openTestDB(t))
	got, err := repo.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List = %#v, want empty slice", got)
	}
}
