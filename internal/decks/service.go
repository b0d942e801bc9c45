// Package decks manages named decks: validating cards against the catalog,
// recording battles, and persisting every change before it is acknowledged.
package decks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/catalog"
	"github.com/ramonehamilton/TCG-Companion/internal/stats"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
	"github.com/ramonehamilton/TCG-Companion/internal/storage/repository"
)

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Clock    func() time.Time
	Logger   *slog.Logger
	OnChange func(DeckEvent) // Called after each successful mutation

	// MaxCopies caps the copies of one card name a deck may hold, counted
	// across every entry with that name. Zero means no cap.
	MaxCopies int
}

// saveAttempts bounds how often a mutation is replayed after another writer
// changed the deck between load and save.
const saveAttempts = 3

// Service is the deck store. Mutations on the same deck name are serialized;
// reads take no lock and return point-in-time snapshots.
type Service struct {
	repo      repository.DeckRepository
	index     *catalog.Index
	clock     func() time.Time
	logger    *slog.Logger
	onChange  func(DeckEvent)
	maxCopies int

	mu    sync.Mutex
	locks map[string]*deckLock
}

// deckLock is a per-name mutex. refs counts holders and waiters so the entry
// can be dropped once nobody uses it.
type deckLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a deck store backed by repo that validates cards against index.
// A nil index behaves as an empty catalog.
func NewService(repo repository.DeckRepository, index *catalog.Index, opts Options) *Service {
	if index == nil {
		index = catalog.NewIndex(nil, catalog.SourceNone, "")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Service{
		repo:      repo,
		index:     index,
		clock:     opts.Clock,
		logger:    opts.Logger,
		onChange:  opts.OnChange,
		maxCopies: opts.MaxCopies,
		locks:     make(map[string]*deckLock),
	}
}

// Catalog returns the card index the service validates against.
func (s *Service) Catalog() *catalog.Index {
	return s.index
}

// ListDecks returns every stored deck name in lexicographic order.
func (s *Service) ListDecks(ctx context.Context) ([]string, error) {
	names, err := s.repo.List(ctx)
	if err != nil {
		return nil, persistenceError("list decks", err)
	}
	if names == nil {
		names = []string{}
	}
	sort.Strings(names)
	return names, nil
}

// CreateDeck creates and persists an empty deck.
func (s *Service) CreateDeck(ctx context.Context, name string) (*models.Deck, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(name)
	defer unlock()

	now := s.clock()
	deck := &models.Deck{
		Name:       name,
		Cards:      []models.CardEntry{},
		Battles:    []models.Battle{},
		LoadStatus: models.LoadStatusNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, deck); err != nil {
		if errors.Is(err, repository.ErrDeckExists) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, name)
		}
		return nil, persistenceError("create deck", err)
	}

	s.logger.Info("deck created", "deck", name)
	snapshot := s.snapshot(deck)
	s.notify(EventDeckCreated, name, snapshot)
	return snapshot, nil
}

// LoadDeck returns a snapshot of the named deck, including any catalog warning.
func (s *Service) LoadDeck(ctx context.Context, name string) (*models.Deck, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	deck, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.snapshot(deck), nil
}

// DeleteDeck removes a deck and its battle history.
func (s *Service) DeleteDeck(ctx context.Context, name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}

	unlock := s.lock(name)
	defer unlock()

	if err := s.repo.Delete(ctx, name); err != nil {
		if errors.Is(err, repository.ErrDeckNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return persistenceError("delete deck", err)
	}

	s.logger.Info("deck deleted", "deck", name)
	s.notify(EventDeckDeleted, name, nil)
	return nil
}

// SearchCards returns up to limit catalog cards matching term. A limit of zero
// or less returns every match.
func (s *Service) SearchCards(term string, limit int) []catalog.Card {
	return catalog.Take(s.index.Search(term), limit)
}

// AddCardByID adds one copy of a catalog card to the deck. An entry for the same
// card has its count incremented; otherwise a new entry is appended. With a
// copy cap configured, a card name already at the cap is rejected with
// ErrCopyLimit.
func (s *Service) AddCardByID(ctx context.Context, name, cardID string) (*models.Deck, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	card, ok := s.index.Lookup(cardID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCard, cardID)
	}

	return s.mutate(ctx, name, EventDeckUpdated, func(deck *models.Deck) error {
		if s.maxCopies > 0 {
			if held := copiesNamed(deck, card.Name); held >= s.maxCopies {
				return fmt.Errorf("%w: deck already holds %d of %q", ErrCopyLimit, held, card.Name)
			}
		}
		for i := range deck.Cards {
			if sameCard(deck.Cards[i], card) {
				deck.Cards[i].Count++
				deck.Cards[i].CardID = card.ID
				return nil
			}
		}
		deck.Cards = append(deck.Cards, models.CardEntry{
			CardID: card.ID,
			Name:   card.Name,
			Set:    card.Set,
			Count:  1,
		})
		return nil
	})
}

// RemoveCardAt deletes the entry at position index, whatever its count.
func (s *Service) RemoveCardAt(ctx context.Context, name string, index int) (*models.Deck, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	return s.mutate(ctx, name, EventDeckUpdated, func(deck *models.Deck) error {
		if index >= len(deck.Cards) {
			return fmt.Errorf("%w: %d (deck has %d entries)", ErrIndexOutOfRange, index, len(deck.Cards))
		}
		deck.Cards = append(deck.Cards[:index], deck.Cards[index+1:]...)
		return nil
	})
}

// RecordBattle appends a battle outcome. The opponent label is stored exactly as given.
func (s *Service) RecordBattle(ctx context.Context, name, result, opponent string) (*models.Deck, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	parsed, ok := models.ParseBattleResult(result)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResult, result)
	}

	return s.mutate(ctx, name, EventBattleRecorded, func(deck *models.Deck) error {
		deck.Battles = append(deck.Battles, models.Battle{
			Result:    parsed,
			Opponent:  opponent,
			Timestamp: s.clock(),
		})
		return nil
	})
}

// Stats computes the deck's win/loss summary.
func (s *Service) Stats(ctx context.Context, name string) (stats.Stats, error) {
	deck, err := s.LoadDeck(ctx, name)
	if err != nil {
		return stats.Stats{}, err
	}
	return stats.Compute(deck.Battles), nil
}

// Streaks returns the deck's win and loss streaks.
func (s *Service) Streaks(ctx context.Context, name string) (stats.StreakStats, error) {
	deck, err := s.LoadDeck(ctx, name)
	if err != nil {
		return stats.StreakStats{}, err
	}
	return stats.CalculateStreaks(deck.Battles), nil
}

// StatsInRange computes the summary over battles recorded inside tr.
func (s *Service) StatsInRange(ctx context.Context, name string, tr stats.TimeRange) (stats.Stats, error) {
	deck, err := s.LoadDeck(ctx, name)
	if err != nil {
		return stats.Stats{}, err
	}
	return stats.Compute(stats.FilterBattles(deck.Battles, tr)), nil
}

// mutate runs fn against the current deck under the deck's lock and persists
// the result. Nothing is saved when fn fails. When another writer saved the
// deck first, the deck is reloaded and fn replayed on the fresh copy.
func (s *Service) mutate(ctx context.Context, name string, event EventType, fn func(*models.Deck) error) (*models.Deck, error) {
	unlock := s.lock(name)
	defer unlock()

	var deck *models.Deck
	for attempt := 1; ; attempt++ {
		var err error
		deck, err = s.get(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := fn(deck); err != nil {
			return nil, err
		}

		deck.UpdatedAt = s.clock()
		err = s.repo.Save(ctx, deck)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDeckNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		if errors.Is(err, repository.ErrDeckConflict) && attempt < saveAttempts {
			s.logger.Debug("deck changed by another writer, retrying", "deck", name, "attempt", attempt)
			continue
		}
		return nil, persistenceError("save deck", err)
	}
	deck.LoadStatus = models.LoadStatusLoaded

	snapshot := s.snapshot(deck)
	s.notify(event, name, snapshot)
	return snapshot, nil
}

func (s *Service) get(ctx context.Context, name string) (*models.Deck, error) {
	deck, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, persistenceError("load deck", err)
	}
	if deck == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if deck.LoadStatus == models.LoadStatusReset {
		s.logger.Warn("deck record was unreadable and has been reset", "deck", name)
	}
	if deck.Cards == nil {
		deck.Cards = []models.CardEntry{}
	}
	if deck.Battles == nil {
		deck.Battles = []models.Battle{}
	}
	return deck, nil
}

func (s *Service) snapshot(deck *models.Deck) *models.Deck {
	snapshot := deck.Clone()
	snapshot.CatalogWarning = s.index.Warning()
	return snapshot
}

func (s *Service) notify(event EventType, name string, deck *models.Deck) {
	if s.onChange == nil {
		return
	}
	s.onChange(DeckEvent{
		Type:      event,
		Name:      name,
		Deck:      deck.Clone(),
		Timestamp: s.clock(),
	})
}

// lock acquires the mutex for name and returns its release function.
func (s *Service) lock(name string) func() {
	s.mu.Lock()
	l, ok := s.locks[name]
	if !ok {
		l = &deckLock{}
		s.locks[name] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, name)
		}
		s.mu.Unlock()
	}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// sameCard matches by catalog id. Entries written before ids were tracked
// fall back to name and set.
func sameCard(entry models.CardEntry, card catalog.Card) bool {
	if entry.CardID != "" {
		return strings.EqualFold(entry.CardID, card.ID)
	}
	return strings.EqualFold(entry.Name, card.Name) && strings.EqualFold(entry.Set, card.Set)
}

// copiesNamed counts the copies of cardName across all entries.
func copiesNamed(deck *models.Deck, cardName string) int {
	held := 0
	for _, entry := range deck.Cards {
		if strings.EqualFold(entry.Name, cardName) {
			held += entry.Count
		}
	}
	return held
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrPersistence, op, err)
}
