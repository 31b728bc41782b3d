package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-velux/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "audit.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx, migrations.Source()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestRecord_FillsDefaults(t *testing.T) {
	repo := newTestRepo(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	e := &Entry{Action: ActionRefresh, Outcome: "ok"}
	if err := repo.Record(context.Background(), e); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e.ID == "" {
		t.Error("ID not generated")
	}
	if !e.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, fixed)
	}

	res, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("List = %+v, want one entry", res)
	}
	got := res.Entries[0]
	if got.ID != e.ID || got.Item != "" || got.Subject != "" || got.Details != nil {
		t.Errorf("entry = %+v", got)
	}
	if !got.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
}

func TestList_FilterAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Action: ActionConfigure, Subject: "alice", Role: "admin", Outcome: "ok",
			Details: map[string]any{"keys": []string{"retries"}}},
		{Action: ActionCommand, Item: "Kitchen_Window", Subject: "panel", Role: "user", Outcome: "forwarded",
			Details: map[string]any{"command": "UP"}},
		{Action: ActionCommand, Item: "Gateway_Firmware", Subject: "panel", Role: "user", Outcome: "not_permitted"},
		{Action: ActionCommand, Item: "Kitchen_Window", Subject: "panel", Role: "user", Outcome: "forwarded"},
	}
	for i := range entries {
		entries[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.Record(ctx, &entries[i]); err != nil {
			t.Fatalf("Record(%d): %v", i, err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string // ID of the first entry returned
		wantLen   int
	}{
		{"all newest first", Filter{}, 4, entries[3].ID, 4},
		{"by action", Filter{Action: ActionCommand}, 3, entries[3].ID, 3},
		{"by item", Filter{Item: "Kitchen_Window"}, 2, entries[3].ID, 2},
		{"action and item", Filter{Action: ActionCommand, Item: "Gateway_Firmware"}, 1, entries[2].ID, 1},
		{"paged", Filter{Limit: 2, Offset: 2}, 4, entries[1].ID, 2},
		{"no match", Filter{Action: ActionRefresh}, 0, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if len(res.Entries) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(res.Entries), tt.wantLen)
			}
			if tt.wantLen > 0 && res.Entries[0].ID != tt.wantFirst {
				t.Errorf("first = %s, want %s", res.Entries[0].ID, tt.wantFirst)
			}
		})
	}

	res, err := repo.List(ctx, Filter{Action: ActionConfigure})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	keys, ok := res.Entries[0].Details["keys"].([]any)
	if !ok || len(keys) != 1 || keys[0] != "retries" {
		t.Errorf("details = %#v", res.Entries[0].Details)
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := newTestRepo(t)

	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{10, 10},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		res, err := repo.List(context.Background(), Filter{Limit: tt.in, Offset: -1})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if res.Limit != tt.want {
			t.Errorf("Limit(%d) = %d, want %d", tt.in, res.Limit, tt.want)
		}
		if res.Offset != 0 {
			t.Errorf("Offset = %d, want 0", res.Offset)
		}
		if res.Entries == nil {
			t.Error("Entries = nil, want empty slice")
		}
	}
}
