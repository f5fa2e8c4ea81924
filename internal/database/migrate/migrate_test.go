package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRun_AppliesPendingInOrder(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	files := fstest.MapFS{
		"002_photos.sql":   {Data: []byte(`CREATE TABLE photos (id TEXT PRIMARY KEY, album_id TEXT REFERENCES albums(id));`)},
		"001_albums.sql":   {Data: []byte(`CREATE TABLE albums (id TEXT PRIMARY KEY); CREATE INDEX idx_albums ON albums(id);`)},
		"README.md":        {Data: []byte("not a migration")},
		"old/003_skip.sql": {Data: []byte("garbage")},
	}

	done, err := New(db, files, Question).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"001_albums.sql", "002_photos.sql"}
	if diff := cmp.Diff(want, done); diff != "" {
		t.Errorf("applied mismatch (-want +got):\n%s", diff)
	}

	// A second run only applies what is new.
	files["003_captions.sql"] = &fstest.MapFile{Data: []byte(`ALTER TABLE photos ADD COLUMN caption TEXT NOT NULL DEFAULT '';`)}
	done, err = New(db, files, Question).Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if diff := cmp.Diff([]string{"003_captions.sql"}, done); diff != "" {
		t.Errorf("second run mismatch (-want +got):\n%s", diff)
	}

	applied, err := New(db, files, Question).Applied(ctx)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if diff := cmp.Diff(append(want, "003_captions.sql"), applied); diff != "" {
		t.Errorf("recorded mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_FailedMigrationIsNotRecorded(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	files := fstest.MapFS{
		"001_ok.sql":     {Data: []byte(`CREATE TABLE ok (id TEXT);`)},
		"002_broken.sql": {Data: []byte(`CREATE TABLE broken (id TEXT); SELECT * FROM missing_table;`)},
	}

	done, err := New(db, files, Question).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "002_broken.sql") {
		t.Fatalf("expected error naming the broken file, got %v", err)
	}
	if diff := cmp.Diff([]string{"001_ok.sql"}, done); diff != "" {
		t.Errorf("applied mismatch (-want +got):\n%s", diff)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'broken'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("expected broken migration to be rolled back")
	}
}

func TestPlaceholders(t *testing.T) {
	if got := Dollar(2); got != "$2" {
		t.Errorf("Dollar(2) = %q", got)
	}
	if got := Question(2); got != "?" {
		t.Errorf("Question(2) = %q", got)
	}
}
