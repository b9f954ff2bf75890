package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

func openTestDB(t *testing.T) (*SessionRepository, *ActivityRepository) {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "testdesk_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewSessionRepository(db), NewActivityRepository(db)
}

func TestBrowserSessionRoundTripAndClear(t *testing.T) {
	ctx := context.Background()
	repo, _ := openTestDB(t)

	store := repo.ForBrowser("cookie-1", time.Hour)
	if _, err := store.Load(ctx); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected ErrNoSession before save, got %v", err)
	}

	want := domain.Session{Token: "jwt-1", User: domain.User{ID: 4, Username: "ana", Email: "ana@example.com", Role: domain.RoleAdmin}}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected session: %+v", got)
	}

	other := repo.ForBrowser("cookie-2", time.Hour)
	if _, err := other.Load(ctx); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("sessions must not leak across cookies, got %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}

func TestBrowserSessionSaveReplaces(t *testing.T) {
	ctx := context.Background()
	repo, _ := openTestDB(t)
	store := repo.ForBrowser("cookie-1", time.Hour)

	if err := store.Save(ctx, domain.Session{Token: "old"}); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := store.Save(ctx, domain.Session{Token: "new", User: domain.User{ID: 2}}); err != nil {
		t.Fatalf("save new: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Token != "new" || got.User.ID != 2 {
		t.Fatalf("expected replaced session, got %+v", got)
	}
}

func TestExpiredSessionsAreNotLoaded(t *testing.T) {
	ctx := context.Background()
	repo, _ := openTestDB(t)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }

	if err := repo.ForBrowser("short", time.Minute).Save(ctx, domain.Session{Token: "a"}); err != nil {
		t.Fatalf("save short: %v", err)
	}
	if err := repo.ForBrowser("long", 24*time.Hour).Save(ctx, domain.Session{Token: "b"}); err != nil {
		t.Fatalf("save long: %v", err)
	}

	repo.now = func() time.Time { return base.Add(time.Hour) }

	if _, err := repo.ForBrowser("short", time.Minute).Load(ctx); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	removed, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expired row should already be deleted on load, removed %d", removed)
	}
	if _, err := repo.ForBrowser("long", time.Hour).Load(ctx); err != nil {
		t.Fatalf("long session should survive: %v", err)
	}
}

func TestHashIDDoesNotStorePlainID(t *testing.T) {
	if HashID("abc") == "abc" || len(HashID("abc")) != 64 {
		t.Fatalf("unexpected hash %q", HashID("abc"))
	}
	if HashID("abc") != HashID("abc") {
		t.Fatalf("hash must be stable")
	}
}

func TestActivityRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	_, activity := openTestDB(t)

	uid := int64(3)
	for _, action := range []string{"project.create", "execution.submit", "permission.grant"} {
		target := int64(len(action))
		if err := activity.Record(ctx, domain.Activity{UserID: &uid, Username: "ana", Action: action, TargetType: "test", TargetID: &target}); err != nil {
			t.Fatalf("record %s: %v", action, err)
		}
	}

	recent, err := activity.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recent))
	}
	if recent[0].Action != "permission.grant" || recent[1].Action != "execution.submit" {
		t.Fatalf("unexpected order: %+v", recent)
	}
	if recent[0].UserID == nil || *recent[0].UserID != uid {
		t.Fatalf("user id not kept: %+v", recent[0])
	}
}
