package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/storage"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

var (
	// ErrDeckExists is returned by Create when a deck with the same name is stored.
	ErrDeckExists = errors.New("deck already exists")

	// ErrDeckNotFound is returned by Save and Delete when the deck is not stored.
	ErrDeckNotFound = errors.New("deck not found")

	// ErrBattlesRewritten is returned by Save when the deck's battle history is
	// shorter than the stored one. Battles are append-only.
	ErrBattlesRewritten = errors.New("battle history is append-only")

	// ErrDeckConflict is returned by Save when the deck was saved by another
	// writer after the snapshot was read. Reload and retry.
	ErrDeckConflict = errors.New("deck was changed by another writer")
)

// DeckRepository persists one durable record per deck, keyed by name.
// Every write is atomic: a failed write leaves the previous record intact.
type DeckRepository interface {
	// Create stores a new, empty deck. Returns ErrDeckExists if the name is taken.
	Create(ctx context.Context, deck *models.Deck) error

	// Get retrieves a deck with its cards and battles in insertion order.
	// Returns nil, nil if the deck does not exist.
	Get(ctx context.Context, name string) (*models.Deck, error)

	// Save replaces the deck's cards and appends any battles not yet stored.
	// It returns ErrDeckConflict unless deck.Revision matches the stored
	// revision, and increments deck.Revision on success.
	Save(ctx context.Context, deck *models.Deck) error

	// List returns all deck names in lexicographic order.
	List(ctx context.Context) ([]string, error)

	// Delete removes a deck and its history.
	Delete(ctx context.Context, name string) error
}

// deckRepository is the SQLite implementation of DeckRepository.
type deckRepository struct {
	db *storage.DB
}

// NewDeckRepository creates a new SQLite deck repository.
func NewDeckRepository(db *storage.DB) DeckRepository {
	return &deckRepository{db: db}
}

// Create inserts a new deck row.
func (r *deckRepository) Create(ctx context.Context, deck *models.Deck) error {
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		exists, err := deckExists(ctx, tx, deck.Name)
		if err != nil {
			return err
		}
		if exists {
			return ErrDeckExists
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO decks (name, created_at, updated_at) VALUES (?, ?, ?)`,
			deck.Name,
			formatTime(deck.CreatedAt),
			formatTime(deck.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create deck: %w", err)
		}

		if err := insertCards(ctx, tx, deck); err != nil {
			return err
		}
		return insertBattles(ctx, tx, deck.Name, 0, deck.Battles)
	})
	if err != nil {
		return err
	}
	deck.Revision = 0
	return nil
}

// Get retrieves a deck by name.
func (r *deckRepository) Get(ctx context.Context, name string) (*models.Deck, error) {
	var deck *models.Deck

	err := r.db.WithReadTransaction(ctx, func(tx *sql.Tx) error {
		var createdAt, updatedAt string
		var revision int64
		err := tx.QueryRowContext(ctx,
			`SELECT name, created_at, updated_at, revision FROM decks WHERE name = ?`, name,
		).Scan(&name, &createdAt, &updatedAt, &revision)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get deck: %w", err)
		}

		d := &models.Deck{
			Name:       name,
			Cards:      []models.CardEntry{},
			Battles:    []models.Battle{},
			LoadStatus: models.LoadStatusLoaded,
			CreatedAt:  parseTime(createdAt),
			UpdatedAt:  parseTime(updatedAt),
			Revision:   revision,
		}

		if d.Cards, err = getCards(ctx, tx, name); err != nil {
			return err
		}
		if d.Battles, err = getBattles(ctx, tx, name); err != nil {
			return err
		}

		deck = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deck, nil
}

// Save rewrites the deck's card list and appends new battles in one transaction.
// The revision guard on the UPDATE makes a stale snapshot fail instead of
// overwriting another writer's changes.
func (r *deckRepository) Save(ctx context.Context, deck *models.Deck) error {
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE decks SET updated_at = ?, revision = revision + 1 WHERE name = ? AND revision = ?`,
			formatTime(deck.UpdatedAt),
			deck.Name,
			deck.Revision,
		)
		if err != nil {
			return fmt.Errorf("failed to update deck: %w", err)
		}
		if affected, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to check updated deck: %w", err)
		} else if affected == 0 {
			exists, err := deckExists(ctx, tx, deck.Name)
			if err != nil {
				return err
			}
			if !exists {
				return ErrDeckNotFound
			}
			return fmt.Errorf("%w: deck %q", ErrDeckConflict, deck.Name)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM deck_cards WHERE deck_name = ?`, deck.Name); err != nil {
			return fmt.Errorf("failed to clear deck cards: %w", err)
		}
		if err := insertCards(ctx, tx, deck); err != nil {
			return err
		}

		var stored int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM battles WHERE deck_name = ?`, deck.Name,
		).Scan(&stored); err != nil {
			return fmt.Errorf("failed to count battles: %w", err)
		}
		if len(deck.Battles) < stored {
			return fmt.Errorf("%w: deck %q has %d stored battles, got %d", ErrBattlesRewritten, deck.Name, stored, len(deck.Battles))
		}

		return insertBattles(ctx, tx, deck.Name, stored, deck.Battles[stored:])
	})
	if err != nil {
		return err
	}
	deck.Revision++
	return nil
}

// List retrieves all deck names.
func (r *deckRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `SELECT name FROM decks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan deck: %w", err)
		}
		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decks: %w", err)
	}

	return names, nil
}

// Delete deletes a deck with its cards and battles.
func (r *deckRepository) Delete(ctx context.Context, name string) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM battles WHERE deck_name = ?`, name); err != nil {
			return fmt.Errorf("failed to delete battles: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM deck_cards WHERE deck_name = ?`, name); err != nil {
			return fmt.Errorf("failed to delete deck cards: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("failed to delete deck: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check deleted deck: %w", err)
		}
		if affected == 0 {
			return ErrDeckNotFound
		}
		return nil
	})
}

func deckExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM decks WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check deck: %w", err)
	}
	return true, nil
}

func insertCards(ctx context.Context, tx *sql.Tx, deck *models.Deck) error {
	for position, entry := range deck.Cards {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deck_cards (deck_name, position, card_id, name, set_name, count)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			deck.Name,
			position,
			entry.CardID,
			entry.Name,
			entry.Set,
			entry.Count,
		)
		if err != nil {
			return fmt.Errorf("failed to add card %s: %w", entry.CardID, err)
		}
	}
	return nil
}

func insertBattles(ctx context.Context, tx *sql.Tx, deckName string, offset int, battles []models.Battle) error {
	for i, battle := range battles {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO battles (deck_name, seq, result, opponent, recorded_at)
			VALUES (?, ?, ?, ?, ?)
		`,
			deckName,
			offset+i,
			string(battle.Result),
			battle.Opponent,
			formatTime(battle.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("failed to record battle: %w", err)
		}
	}
	return nil
}

func getCards(ctx context.Context, tx *sql.Tx, deckName string) ([]models.CardEntry, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT card_id, name, set_name, count
		FROM deck_cards
		WHERE deck_name = ?
		ORDER BY position
	`, deckName)
	if err != nil {
		return nil, fmt.Errorf("failed to get deck cards: %w", err)
	}
	defer rows.Close()

	cards := []models.CardEntry{}
	for rows.Next() {
		var entry models.CardEntry
		if err := rows.Scan(&entry.CardID, &entry.Name, &entry.Set, &entry.Count); err != nil {
			return nil, fmt.Errorf("failed to scan deck card: %w", err)
		}
		cards = append(cards, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deck cards: %w", err)
	}

	return cards, nil
}

func getBattles(ctx context.Context, tx *sql.Tx, deckName string) ([]models.Battle, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT result, opponent, recorded_at
		FROM battles
		WHERE deck_name = ?
		ORDER BY seq
	`, deckName)
	if err != nil {
		return nil, fmt.Errorf("failed to get battles: %w", err)
	}
	defer rows.Close()

	battles := []models.Battle{}
	for rows.Next() {
		var battle models.Battle
		var result, recordedAt string
		if err := rows.Scan(&result, &battle.Opponent, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan battle: %w", err)
		}
		battle.Result = models.BattleResult(result)
		battle.Timestamp = parseTime(recordedAt)
		battles = append(battles, battle)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating battles: %w", err)
	}

	return battles, nil
}

// Timestamps are stored as RFC 3339 text so they round-trip exactly.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
