package decks

import (
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

// EventType names a completed deck mutation.
type EventType string

const (
	EventDeckCreated    EventType = "deck.created"
	EventDeckUpdated    EventType = "deck.updated"
	EventDeckDeleted    EventType = "deck.deleted"
	EventBattleRecorded EventType = "battle.recorded"
)

// DeckEvent describes a mutation after it has been persisted.
// Deck is the post-mutation snapshot and is nil for deletions.
type DeckEvent struct {
	Type      EventType    `json:"type"`
	Name      string       `json:"name"`
	Deck      *models.Deck `json:"deck,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
