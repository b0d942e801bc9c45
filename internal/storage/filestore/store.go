// Package filestore keeps each deck in its own JSON file. The file layout is
// compatible with decks written by earlier releases of the command-line tool.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/repository"
)

const (
	fileExt = ".json"

	// legacyDateLayout is how older deck files recorded battle dates, in local time.
	legacyDateLayout = "2006-01-02 15:04:05"
)

type cardRecord struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Set   string `json:"set"`
	Count int    `json:"count"`
}

type battleRecord struct {
	Date     string `json:"date"`
	Result   string `json:"result"`
	Opponent string `json:"opponent"`
}

type deckFile struct {
	Cards         []cardRecord   `json:"cards"`
	BattleHistory []battleRecord `json:"battle_history"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
	Revision      int64          `json:"revision,omitempty"`
}

// Store implements repository.DeckRepository on a directory of JSON files.
type Store struct {
	dir    string
	logger *slog.Logger
}

var _ repository.DeckRepository = (*Store)(nil)

// New creates the deck directory if needed and returns a store rooted at it.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create deck directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the directory holding the deck files.
func (s *Store) Dir() string {
	return s.dir
}

// fileName maps a deck name to its file name. Names are kept as typed so that
// files written by earlier releases, which used the bare name, are found.
// Only path separators, '%', control characters and a leading dot are
// percent-encoded.
func fileName(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '%' || c == '/' || c == '\\' || c < 0x20 || c == 0x7f, i == 0 && c == '.':
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String() + fileExt
}

// deckName reverses fileName. A file whose name does not decode back to
// itself was written by hand or by an older release, and its base name is
// the deck name.
func deckName(file string) string {
	base := strings.TrimSuffix(file, fileExt)
	if decoded, err := url.PathUnescape(base); err == nil && fileName(decoded) == file {
		return decoded
	}
	return base
}

// path returns the file holding name. When no encoded file exists, a legacy
// file saved under the bare name is used instead.
func (s *Store) path(name string) string {
	encoded := filepath.Join(s.dir, fileName(name))
	if _, err := os.Stat(encoded); err == nil {
		return encoded
	}
	if strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, ".") {
		return encoded
	}
	legacy := filepath.Join(s.dir, name+fileExt)
	if legacy != encoded {
		if _, err := os.Stat(legacy); err == nil {
			return legacy
		}
	}
	return encoded
}

// Create writes the first record for a new deck.
func (s *Store) Create(ctx context.Context, deck *models.Deck) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(deck.Name)
	unlock, err := s.lockFile(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		return repository.ErrDeckExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check deck file: %w", err)
	}
	deck.Revision = 0
	return s.write(deck)
}

// Get reads a deck file. A file that cannot be decoded yields an empty deck
// with LoadStatusReset; its next save replaces the unreadable content.
func (s *Store) Get(ctx context.Context, name string) (*models.Deck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read deck file: %w", err)
	}

	deck := &models.Deck{
		Name:       name,
		Cards:      []models.CardEntry{},
		Battles:    []models.Battle{},
		LoadStatus: models.LoadStatusLoaded,
	}
	if info, statErr := os.Stat(path); statErr == nil {
		deck.CreatedAt = info.ModTime()
		deck.UpdatedAt = info.ModTime()
	}

	var file deckFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Warn("deck file unreadable, starting from an empty deck", "deck", name, "path", path, "error", err)
		deck.LoadStatus = models.LoadStatusReset
		return deck, nil
	}

	if file.CreatedAt != nil {
		deck.CreatedAt = *file.CreatedAt
	}
	if file.UpdatedAt != nil {
		deck.UpdatedAt = *file.UpdatedAt
	}
	deck.Revision = file.Revision
	for _, card := range file.Cards {
		deck.Cards = append(deck.Cards, models.CardEntry{
			CardID: card.ID,
			Name:   card.Name,
			Set:    card.Set,
			Count:  card.Count,
		})
	}
	for _, battle := range file.BattleHistory {
		deck.Battles = append(deck.Battles, models.Battle{
			Result:    models.BattleResult(strings.ToUpper(strings.TrimSpace(battle.Result))),
			Opponent:  battle.Opponent,
			Timestamp: parseDate(battle.Date),
		})
	}

	return deck, nil
}

// Save atomically replaces an existing deck file. Writers on the same deck,
// in this or another process, are serialized by a lock file, and a snapshot
// older than the file on disk is rejected with repository.ErrDeckConflict.
func (s *Store) Save(ctx context.Context, deck *models.Deck) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.path(deck.Name)
	unlock, err := s.lockFile(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	stored, err := storedRevision(path)
	if errors.Is(err, os.ErrNotExist) {
		return repository.ErrDeckNotFound
	}
	if err != nil {
		return err
	}
	if stored != deck.Revision {
		return fmt.Errorf("%w: deck %q is at revision %d, snapshot has %d",
			repository.ErrDeckConflict, deck.Name, stored, deck.Revision)
	}

	deck.Revision++
	if err := s.write(deck); err != nil {
		deck.Revision--
		return err
	}
	return nil
}

// storedRevision reads the revision of the deck file at path. An unreadable
// file counts as revision 0, matching the reset deck Get returns for it.
func storedRevision(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, err
		}
		return 0, fmt.Errorf("read deck file: %w", err)
	}
	var file struct {
		Revision int64 `json:"revision"`
	}
	if json.Unmarshal(data, &file) != nil {
		return 0, nil
	}
	return file.Revision, nil
}

const (
	lockRetryInterval = 10 * time.Millisecond
	lockTimeout       = 5 * time.Second
	staleLockAge      = 30 * time.Second
)

// lockFile creates "<dir>/.<file>.lock" exclusively and returns its release
// function. A lock older than staleLockAge is left over from a crashed writer
// and is removed.
func (s *Store) lockFile(ctx context.Context, path string) (func(), error) {
	lockPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".lock")
	deadline := time.Now().Add(lockTimeout)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create deck lock: %w", err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			s.logger.Warn("removing stale deck lock", "path", lockPath, "age", time.Since(info.ModTime()))
			_ = os.Remove(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("deck file %s is locked by another writer", filepath.Base(path))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// List returns deck names derived from the file names, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read deck directory: %w", err)
	}

	names := []string{}
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		file := entry.Name()
		if entry.IsDir() || strings.HasPrefix(file, ".") || !strings.HasSuffix(file, fileExt) {
			continue
		}
		name := deckName(file)
		if _, dup := seen[name]; dup {
			s.logger.Warn("skipping second file for deck", "deck", name, "file", file)
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a deck file.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return repository.ErrDeckNotFound
	}
	if err != nil {
		return fmt.Errorf("remove deck file: %w", err)
	}
	return nil
}

// write encodes the deck to a temporary file in the same directory, syncs it
// and renames it over the target, so readers never observe a partial file.
func (s *Store) write(deck *models.Deck) (err error) {
	file := deckFile{
		Cards:         make([]cardRecord, 0, len(deck.Cards)),
		BattleHistory: make([]battleRecord, 0, len(deck.Battles)),
	}
	if !deck.CreatedAt.IsZero() {
		created := deck.CreatedAt.UTC()
		file.CreatedAt = &created
	}
	if !deck.UpdatedAt.IsZero() {
		updated := deck.UpdatedAt.UTC()
		file.UpdatedAt = &updated
	}
	file.Revision = deck.Revision
	for _, entry := range deck.Cards {
		file.Cards = append(file.Cards, cardRecord{ID: entry.CardID, Name: entry.Name, Set: entry.Set, Count: entry.Count})
	}
	for _, battle := range deck.Battles {
		file.BattleHistory = append(file.BattleHistory, battleRecord{
			Date:     battle.Timestamp.Format(time.RFC3339Nano),
			Result:   string(battle.Result),
			Opponent: battle.Opponent,
		})
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode deck: %w", err)
	}

	target := s.path(deck.Name)
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp deck file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp deck file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp deck file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp deck file: %w", err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replace deck file: %w", err)
	}
	return nil
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(legacyDateLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
