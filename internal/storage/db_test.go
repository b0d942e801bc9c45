package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("test.db")

	if config.Path != "test.db" {
		t.Errorf("expected path 'test.db', got '%s'", config.Path)
	}

	if config.MaxOpenConns != 4 {
		t.Errorf("expected MaxOpenConns 4, got %d", config.MaxOpenConns)
	}

	if config.BusyTimeout != 5*time.Second {
		t.Errorf("expected BusyTimeout 5s, got %v", config.BusyTimeout)
	}

	if config.JournalMode != "WAL" {
		t.Errorf("expected JournalMode 'WAL', got '%s'", config.JournalMode)
	}

	if config.Synchronous != "FULL" {
		t.Errorf("expected Synchronous 'FULL', got '%s'", config.Synchronous)
	}

	if config.AutoMigrate {
		t.Error("expected AutoMigrate to default to false")
	}
}

func TestConfig_DSN(t *testing.T) {
	dsn := DefaultConfig("data/decks.db").dsn()

	for _, want := range []string{"file:data/decks.db?", "busy_timeout(5000)", "journal_mode(WAL)", "synchronous(FULL)", "foreign_keys(1)"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("expected DSN %q to contain %q", dsn, want)
		}
	}
}

func TestOpen_NilConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(&Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpen_AutoMigrate(t *testing.T) {
	db := openTestDB(t)

	var count int
	err := db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('decks', 'deck_cards', 'battles')`).Scan(&count)
	if err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 tables, got %d", count)
	}

	if err := db.Ping(); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestWithTransaction_CommitAndRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO decks (name, created_at, updated_at) VALUES (?, ?, ?)`, "Committed", now, now)
		return err
	})
	if err != nil {
		t.Fatalf("commit transaction failed: %v", err)
	}

	boom := errors.New("boom")
	err = db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO decks (name, created_at, updated_at) VALUES (?, ?, ?)`, "RolledBack", now, now); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}

	var names []string
	err = db.WithReadTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT name FROM decks ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	if err != nil {
		t.Fatalf("read transaction failed: %v", err)
	}

	if len(names) != 1 || names[0] != "Committed" {
		t.Errorf("expected only the committed deck, got %v", names)
	}
}

func TestWithTransaction_Panic(t *testing.T) {
	db := openTestDB(t)

	defer func() {
		if recover() == nil {
			t.Error("expected panic to be re-raised")
		}
	}()

	_ = db.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		panic("boom")
	})
}

func openTestDB(t *testing.T) *DB {
	t.Helper()

	config := DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	config.AutoMigrate = true
	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
