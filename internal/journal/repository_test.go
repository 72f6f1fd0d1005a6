package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/raceband/vrxlink/internal/infrastructure/database"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLiteRepository(db.DB)
	if err != nil {
		t.Fatalf("creating repository: %v", err)
	}
	return repo
}

func TestCreateAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seat := 3
	events := []*Event{
		{DeviceID: "CV2-1", EventType: EventConnected},
		{DeviceID: "CV2-1", EventType: EventReady, Seat: &seat,
			Details: map[string]any{"cv_version": "1.21a"}},
		{DeviceID: "CV2-2", EventType: EventConnected},
	}
	for _, e := range events {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create(%+v) error = %v", e, err)
		}
		if e.ID == "" || e.CreatedAt.IsZero() {
			t.Errorf("Create did not fill ID/CreatedAt: %+v", e)
		}
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if result.Total != 3 || len(result.Events) != 3 {
		t.Errorf("List total = %d, events = %d", result.Total, len(result.Events))
	}

	result, err = repo.List(ctx, Filter{DeviceID: "CV2-1"})
	if err != nil {
		t.Fatalf("List by device error = %v", err)
	}
	if result.Total != 2 {
		t.Errorf("device filter total = %d, want 2", result.Total)
	}

	result, err = repo.List(ctx, Filter{EventType: EventReady})
	if err != nil {
		t.Fatalf("List by type error = %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("type filter total = %d, want 1", result.Total)
	}
	got := result.Events[0]
	if got.Seat == nil || *got.Seat != 3 {
		t.Errorf("seat not round-tripped: %+v", got.Seat)
	}
	if got.Details["cv_version"] != "1.21a" {
		t.Errorf("details not round-tripped: %+v", got.Details)
	}
}

func TestListClampsLimit(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	result, err := repo.List(ctx, Filter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if result.Limit != 200 || result.Offset != 0 {
		t.Errorf("limit/offset = %d/%d, want 200/0", result.Limit, result.Offset)
	}
	if len(result.Events) != 0 {
		t.Errorf("empty journal returned %d events", len(result.Events))
	}
}
