package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// openTestStore creates a store backed by a file in a test temp dir, so
// the connection pool shares one database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, DefaultConfig())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchemaAndDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tables := []string{
		"settings", "accommodations", "places", "events", "walks",
		"team_members", "pages", "partner_feeds", "admin_users", "sessions",
	}
	for _, table := range tables {
		var name string
		err := s.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	title, err := s.GetSetting(ctx, "site_title")
	if err != nil {
		t.Fatalf("GetSetting(site_title) error = %v", err)
	}
	if title == "" {
		t.Error("default site_title is empty")
	}

	interval, err := s.GetSettingInt(ctx, "import_interval")
	if err != nil {
		t.Fatalf("GetSettingInt(import_interval) error = %v", err)
	}
	if interval <= 0 {
		t.Errorf("default import_interval = %d, want > 0", interval)
	}
}

func TestInsertGetUpdateDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	row := Record{
		"id":     "p1",
		"name":   "La Table du Marché",
		"type":   "restaurant",
		"status": "published",
	}
	if err := s.Insert(ctx, "places", row); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	rec, err := s.Get(ctx, "places", "p1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got, _ := NullableString(rec, "name"); got != "La Table du Marché" {
		t.Errorf("name = %q", got)
	}

	if err := s.Update(ctx, "places", "p1", Record{"cuisine": "traditionnelle"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	rec, err = s.Get(ctx, "places", "p1")
	if err != nil {
		t.Fatalf("Get() after update error = %v", err)
	}
	if got, _ := NullableString(rec, "cuisine"); got != "traditionnelle" {
		t.Errorf("cuisine = %q", got)
	}

	if err := s.Delete(ctx, "places", "p1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "places", "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(context.Background(), "places", "nope", Record{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUnknownTableRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Select(ctx, "admin_users", nil, Order{}); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("Select(admin_users) error = %v, want ErrUnknownTable", err)
	}
	if _, err := s.Select(ctx, "places; DROP TABLE places", nil, Order{}); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("Select(injection) error = %v, want ErrUnknownTable", err)
	}
}

func TestInvalidColumnRejected(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Select(context.Background(), "places", Filter{"name; --": "x"}, Order{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Select() with bad column error = %v, want ErrInvalidInput", err)
	}
}

func TestSelectFilterAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []Record{
		{"id": "r1", "name": "Chez Paul", "type": "restaurant", "status": "published"},
		{"id": "c1", "name": "Café de la Place", "type": "cafe", "status": "published"},
		{"id": "m1", "name": "Musée du Textile", "type": "museum", "status": "published"},
		{"id": "r2", "name": "Bistrot Neuf", "type": "restaurant", "status": "draft"},
	}
	for _, row := range rows {
		if err := s.Insert(ctx, "places", row); err != nil {
			t.Fatalf("Insert(%v) error = %v", row["id"], err)
		}
	}

	t.Run("in clause", func(t *testing.T) {
		recs, err := s.Select(ctx, "places",
			Filter{"type": []string{"restaurant", "cafe"}}, Order{Column: "name"})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if len(recs) != 3 {
			t.Fatalf("got %d rows, want 3", len(recs))
		}
		if got, _ := NullableString(recs[0], "id"); got != "r2" {
			t.Errorf("first row id = %q, want r2 (Bistrot Neuf sorts first)", got)
		}
	})

	t.Run("combined equality and in", func(t *testing.T) {
		recs, err := s.Select(ctx, "places",
			Filter{"type": []string{"restaurant", "cafe"}, "status": "published"}, Order{})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if len(recs) != 2 {
			t.Errorf("got %d rows, want 2", len(recs))
		}
	})

	t.Run("empty in matches nothing", func(t *testing.T) {
		recs, err := s.Select(ctx, "places", Filter{"type": []string{}}, Order{})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if len(recs) != 0 {
			t.Errorf("got %d rows, want 0", len(recs))
		}
	})
}

func TestIncrementViews(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, "places", Record{"id": "v1", "name": "Lieu", "type": "museum"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := s.IncrementViews(ctx, "places", "v1"); err != nil {
		t.Fatalf("IncrementViews() error = %v", err)
	}
	rec, err := s.Get(ctx, "places", "v1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if n, ok := rec["view_count"].(int64); !ok || n != 1 {
		t.Errorf("view_count = %v, want 1", rec["view_count"])
	}

	// team_members has no view_count column; the call is a no-op.
	if err := s.Insert(ctx, "team_members", Record{"id": "t1", "name": "Claire"}); err != nil {
		t.Fatalf("Insert(team_members) error = %v", err)
	}
	if err := s.IncrementViews(ctx, "team_members", "t1"); err != nil {
		t.Errorf("IncrementViews(team_members) error = %v, want nil", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpdateSetting(ctx, "site_title", "Pays des Collines", "string"); err != nil {
		t.Fatalf("UpdateSetting() error = %v", err)
	}
	got, err := s.GetSetting(ctx, "site_title")
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if got != "Pays des Collines" {
		t.Errorf("site_title = %q", got)
	}

	if err := s.UpdateSetting(ctx, "default_lat", "45.5", "float"); err != nil {
		t.Fatalf("UpdateSetting(float) error = %v", err)
	}
	lat, err := s.GetSettingFloat(ctx, "default_lat")
	if err != nil {
		t.Fatalf("GetSettingFloat() error = %v", err)
	}
	if lat != 45.5 {
		t.Errorf("default_lat = %v, want 45.5", lat)
	}

	all, err := s.AllSettings(ctx)
	if err != nil {
		t.Fatalf("AllSettings() error = %v", err)
	}
	if all["site_title"] != "Pays des Collines" {
		t.Errorf("AllSettings site_title = %q", all["site_title"])
	}
}
