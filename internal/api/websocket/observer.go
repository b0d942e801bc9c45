package websocket

import (
	"github.com/ramonehamilton/TCG-Companion/internal/decks"
)

// DeckEventPayload is the data sent with each deck event.
type DeckEventPayload struct {
	Name      string      `json:"name"`
	Deck      interface{} `json:"deck,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// DeckObserver forwards deck store events to WebSocket clients.
type DeckObserver struct {
	hub *Hub
}

// NewDeckObserver creates an observer that broadcasts on hub.
func NewDeckObserver(hub *Hub) *DeckObserver {
	return &DeckObserver{hub: hub}
}

// OnDeckEvent matches decks.Options.OnChange.
func (o *DeckObserver) OnDeckEvent(event decks.DeckEvent) {
	if o == nil || o.hub == nil {
		return
	}

	payload := DeckEventPayload{
		Name:      event.Name,
		Timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if event.Deck != nil {
		payload.Deck = event.Deck
	}

	o.hub.BroadcastEvent(Event{
		Type: string(event.Type),
		Data: payload,
	})
}
