package catalog

import (
	"iter"
	"sort"
	"strings"
)

// Index is an in-memory searchable view over the card catalog.
// It is never modified after NewIndex returns, so concurrent readers need no locking.
type Index struct {
	cards   []Card
	names   []string // lowercased names, parallel to cards
	sets    []string // lowercased set labels, parallel to cards
	byID    map[string]int
	source  Source
	warning string
}

// NewIndex builds an index from cards. Records without an id or name are skipped,
// the first record wins when ids collide, and cards are kept in id order so that
// searches are deterministic regardless of the order the source returned them in.
func NewIndex(cards []Card, source Source, warning string) *Index {
	cleaned := make([]Card, 0, len(cards))
	seen := make(map[string]struct{}, len(cards))
	for _, card := range cards {
		card.ID = strings.TrimSpace(card.ID)
		card.Name = strings.TrimSpace(card.Name)
		card.Set = strings.TrimSpace(card.Set)
		if card.ID == "" || card.Name == "" {
			continue
		}
		key := strings.ToLower(card.ID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, card)
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		return strings.ToLower(cleaned[i].ID) < strings.ToLower(cleaned[j].ID)
	})

	idx := &Index{
		cards:   cleaned,
		names:   make([]string, len(cleaned)),
		sets:    make([]string, len(cleaned)),
		byID:    make(map[string]int, len(cleaned)),
		source:  source,
		warning: strings.TrimSpace(warning),
	}
	for i, card := range cleaned {
		idx.names[i] = strings.ToLower(card.Name)
		idx.sets[i] = strings.ToLower(card.Set)
		idx.byID[strings.ToLower(card.ID)] = i
	}
	return idx
}

// Lookup finds a card by id, ignoring case and surrounding whitespace.
func (idx *Index) Lookup(id string) (Card, bool) {
	if idx == nil {
		return Card{}, false
	}
	pos, ok := idx.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Card{}, false
	}
	return idx.cards[pos], true
}

// Search yields cards whose name or set contains term, case-insensitively.
// Cards whose name starts with term come first, then the remaining matches,
// each group in id order. A blank term yields the whole catalog.
// The sequence is lazy; callers decide how many results to take.
func (idx *Index) Search(term string) iter.Seq[Card] {
	needle := strings.ToLower(strings.TrimSpace(term))
	return func(yield func(Card) bool) {
		if idx == nil {
			return
		}
		for i, card := range idx.cards {
			if strings.HasPrefix(idx.names[i], needle) {
				if !yield(card) {
					return
				}
			}
		}
		if needle == "" {
			return
		}
		for i, card := range idx.cards {
			if strings.HasPrefix(idx.names[i], needle) {
				continue
			}
			if strings.Contains(idx.names[i], needle) || strings.Contains(idx.sets[i], needle) {
				if !yield(card) {
					return
				}
			}
		}
	}
}

// Take collects at most limit cards from seq. A limit of zero or less collects everything.
func Take(seq iter.Seq[Card], limit int) []Card {
	result := []Card{}
	for card := range seq {
		result = append(result, card)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}

// Len returns the number of cards in the index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.cards)
}

// Source reports where the catalog was loaded from.
func (idx *Index) Source() Source {
	if idx == nil {
		return SourceNone
	}
	return idx.source
}

// Warning is the degraded-load message recorded when the catalog could not be
// loaded from its preferred source. Empty when loading went cleanly.
func (idx *Index) Warning() string {
	if idx == nil {
		return ""
	}
	return idx.warning
}
