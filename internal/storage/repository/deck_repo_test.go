package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/storage"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

// setupDeckTestDB opens a migrated SQLite database in a temporary directory.
func setupDeckTestDB(t *testing.T) *storage.DB {
	t.Helper()

	config := storage.DefaultConfig(filepath.Join(t.TempDir(), "decks.db"))
	config.AutoMigrate = true
	db, err := storage.Open(config)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Error closing database: %v", err)
		}
	})
	return db
}

func newTestDeck(name string) *models.Deck {
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	return &models.Deck{
		Name:      name,
		Cards:     []models.CardEntry{},
		Battles:   []models.Battle{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestDeckRepository_Create(t *testing.T) {
	repo := NewDeckRepository(setupDeckTestDB(t))
	ctx := context.Background()

	deck := newTestDeck("Lightning Rush")
	if err := repo.Create(ctx, deck); err != nil {
		t.Fatalf("failed to create deck: %v", err)
	}

	retrieved, err := repo.Get(ctx, "Lightning Rush")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}
	if retrieved == nil {
		t.Fatal("expected deck, got nil")
	}
	if retrieved.Name != deck.Name {
		t.Errorf("expected name %s, got %s", deck.Name, retrieved.Name)
	}
	if retrieved.LoadStatus != models.LoadStatusLoaded {
		t.Errorf("expected load status loaded, got %s", retrieved.LoadStatus)
	}
	if !retrieved.CreatedAt.Equal(deck.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", deck.CreatedAt, retrieved.CreatedAt)
	}
	if len(retrieved.Cards) != 0 || len(retrieved.Battles) != 0 {
		t.Errorf("expected empty deck, got %d cards and %d battles", len(retrieved.Cards), len(retrieved.Battles))
	}
}

func TestDeckRepository_CreateDuplicate(t *testing.T) {
	repo := NewDeckRepository(setupDeckTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, newTestDeck("Mono Water")); err != nil {
		t.Fatalf("failed to create deck: %v", err)
	}

	err := repo.Create(ctx, newTestDeck("Mono Water"))
	if !errors.Is(err, ErrDeckExists) {
		t.Errorf("expected ErrDeckExists, got %v", err)
	}
}

func TestDeckRepository_GetMissing(t *testing.T) {
	repo := NewDeckRepository(setupDeckTestDB(t))

	deck, err := repo.Get(context.Background(), "Nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deck != nil {
		t.Errorf("expected nil deck, got %+v", deck)
	}
}

func TestDeckRepository_Save(t *testing.T) {
	repo := NewDeckRepository(setupDeckTestDB(t))
	ctx := context.Background()

	deck := newTestDeck("Fire Deck")
	if err := repo.Create(ctx, deck); err != nil {
		t.Fatalf("failed to create deck: %v", err)
	}

	battleTime := time.Date(2025, 1, 16, 20, 0, 0, 123456789, time.UTC)
	deck.Cards = []models.CardEntry{
		{CardID: "a1-036", Name: "Charizard ex", Set: "Genetic Apex (A1)", Count: 2},
		{CardID: "a1-033", Name: "Charmander", Set: "Genetic Apex (A1)", Count: 1},
	}
	deck.Battles = []models.Battle{
		{Result: models.BattleWin, Opponent: "Mewtwo ex · Psychic", Timestamp: battleTime},
		{Result: models.BattleLoss, Opponent: "", Timestamp: battleTime.Add(time.Hour)},
	}
	deck.UpdatedAt = battleTime
	if err := repo.Save(ctx, deck); err != nil {
		t.Fatalf("failed to save deck: %v", err)
	}

	retrieved, err := repo.Get(ctx, "Fire Deck")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}

	if len(retrieved.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(retrieved.Cards))
	}
	for i := range deck.Cards {
		if retrieved.Cards[i] != deck.Cards[i] {
			t.Errorf("card %d: expected %+v, got %+v", i, deck.Cards[i], retrieved.Cards[i])
		}
	}

	if len(retrieved.Battles) != 2 {
		t.Fatalf("expected 2 battles, got %d", len(retrieved.Battles))
	}
	if retrieved.Battles[0].Opponent != "Mewtwo ex · Psychic" {
		t.Errorf("expected opponent stored verbatim, got %q", retrieved.Battles[0].Opponent)
	}
	if retrieved.Battles[1].Opponent != "" {
		t.Errorf("expected empty opponent, got %q", retrieved.Battles[1].Opponent)
	}
	if !retrieved.Battles[0].Timestamp.Equal(battleTime) {
		t.Errorf("expected timestamp %v, got %v", battleTime, retrieved.Battles[0].Timestamp)
	}
	if !retrieved.UpdatedAt.Equal(battleTime) {
		t.Errorf("expected updated_at %v, got %v", battleTime, retrieved.UpdatedAt)
	}

	// Removing a card and appending a battle keeps the earlier history.
	deck.Cards = deck.Cards[1:]
	deck.Battles = append(deck.Battles, models.Battle{Result: models.BattleWin, Opponent: "Water", Timestamp: battleTime.Add(2 * time.Hour)})
	if err := repo.Save(ctx, deck); err != nil {
		t.Fatalf("failed to save deck again: %v", err)
	}

	retrieved, err = repo.Get(ctx, "Fire Deck")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}
	if len(retrieved.Cards) != 1 || retrieved.Cards[0].CardID != "a1-033" {
		t.Errorf("expected only Charmander, got %+v", retrieved.Cards)
	}
	if len(retrieved.Battles) != 3 || retrieved.Battles[2].Opponent != "Water" {
		t.Errorf("expected 3 battles ending with Water, got %+v", retrieved.Battles)
	}
}

func TestDeckRepository_SaveRejectsRewrittenHistory(t *testing.T) {
	repo := NewDeckRepository(setupDeckTestDB(t))
	ctx := context.Background()

	deck := newTestDeck("History")
	deck.Battles = []models.Battle{{Result: models.BattleWin, Timestamp: time.Now()}}
	if err := repo.Create(ctx, deck); err != nil {
		t.Fatalf("failed to create deck: %v", err)
	}

	deck.Battles = nil
	err := repo.Save(ctx, deck)
	if !errors.Is(err, ErrBattlesRewritten) {
		t.Errorf("expected ErrBattlesRewritten, got %v", err)
	}
}

func TestDeckRepository_SaveMissing(t *testing.T) {
	repo := NewDeckRepository(setupDeckTestDB(t))

	err := repo.Save(context.Background(), newTestDeck("Ghost"))
	if !errors.Is(err, ErrDeckNotFound) {
		t.Errorf("expected ErrDeckNotFound, got %v", err)
	}
}

func TestDeckRepository_SaveFailureKeepsPreviousRecord(t *testing.T) {
	repo := NewDeckRepository(setupDeckTestDB(t))
	ctx := context.Background()

	deck := newTestDeck("Atomic")
	deck.Cards = []models.CardEntry{{CardID: "a1-001", Name: "Bulbasaur", Set: "A1", Count: 1}}
	if err := repo.Create(ctx, deck); err != nil {
		t.Fatalf("failed to create deck: %v", err)
	}

	// The second entry violates the count check, so the whole save must roll back.
	deck.Cards = []models.CardEntry{
		{CardID: "a1-002", Name: "Ivysaur", Set: "A1", Count: 1},
		{CardID: "a1-003", Name: "Venusaur", Set: "A1", Count: 0},
	}
	if err := repo.Save(ctx, deck); err == nil {
		t.Fatal("expected save to fail")
	}

	retrieved, err := repo.Get(ctx, "Atomic")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}
	if len(retrieved.Cards) != 1 || retrieved.Cards[0].CardID != "a1-001" {
		t.Errorf("expected original card list, got %+v", retrieved.Cards)
	}
}

func TestDeckRepository_List(t *testing.T) {
	repo := NewDeckRepository(setupDeckTestDB(t))
	ctx := context.Background()

	empty, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("failed to list decks: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", empty)
	}

	for _, name := range []string{"Zapdos", "Articuno", "Moltres"} {
		if err := repo.Create(ctx, newTestDeck(name)); err != nil {
			t.Fatalf("failed to create deck %s: %v", name, err)
		}
	}

	names, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("failed to list decks: %v", err)
	}

	want := []string{"Articuno", "Moltres", "Zapdos"}
	if len(names) != len(want) {
		t.Fatalf("expected %d decks, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], names[i])
		}
	}
}

func TestDeckRepository_Delete(t *testing.T) {
	repo := NewDeckRepository(setupDeckTestDB(t))
	ctx := context.Background()

	deck := newTestDeck("Disposable")
	deck.Battles = []models.Battle{{Result: models.BattleLoss, Opponent: "x", Timestamp: time.Now()}}
	if err := repo.Create(ctx, deck); err != nil {
		t.Fatalf("failed to create deck: %v", err)
	}

	if err := repo.Delete(ctx, "Disposable"); err != nil {
		t.Fatalf("failed to delete deck: %v", err)
	}

	retrieved, err := repo.Get(ctx, "Disposable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retrieved != nil {
		t.Error("expected deck to be deleted")
	}

	if err := repo.Delete(ctx, "Disposable"); !errors.Is(err, ErrDeckNotFound) {
		t.Errorf("expected ErrDeckNotFound, got %v", err)
	}

	// Recreating the name starts with a clean history.
	if err := repo.Create(ctx, newTestDeck("Disposable")); err != nil {
		t.Fatalf("failed to recreate deck: %v", err)
	}
	retrieved, err = repo.Get(ctx, "Disposable")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}
	if len(retrieved.Battles) != 0 {
		t.Errorf("expected no battles, got %d", len(retrieved.Battles))
	}
}

func TestDeckRepository_SaveRejectsStaleSnapshot(t *testing.T) {
	repo := NewDeckRepository(setupDeckTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, newTestDeck("Alpha")); err != nil {
		t.Fatalf("failed to create deck: %v", err)
	}
	first, err := repo.Get(ctx, "Alpha")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}
	second, err := repo.Get(ctx, "Alpha")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}

	first.Battles = append(first.Battles, models.Battle{Result: models.BattleWin, Opponent: "from-a", Timestamp: time.Now()})
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if first.Revision != 1 {
		t.Errorf("expected revision 1 after save, got %d", first.Revision)
	}

	second.Battles = append(second.Battles, models.Battle{Result: models.BattleLoss, Opponent: "from-b", Timestamp: time.Now()})
	if err := repo.Save(ctx, second); !errors.Is(err, ErrDeckConflict) {
		t.Fatalf("expected ErrDeckConflict, got %v", err)
	}
	if second.Revision != 0 {
		t.Errorf("failed save must not advance the snapshot revision, got %d", second.Revision)
	}

	stored, err := repo.Get(ctx, "Alpha")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}
	if len(stored.Battles) != 1 || stored.Battles[0].Opponent != "from-a" {
		t.Errorf("unexpected battles: %+v", stored.Battles)
	}
	if stored.Revision != 1 {
		t.Errorf("expected stored revision 1, got %d", stored.Revision)
	}

	// A fresh snapshot saves normally.
	stored.Battles = append(stored.Battles, second.Battles[0])
	if err := repo.Save(ctx, stored); err != nil {
		t.Fatalf("save from fresh snapshot failed: %v", err)
	}
}
