package models

import (
	"strings"
	"time"
)

// BattleResult is the outcome of a single recorded battle.
type BattleResult string

const (
	BattleWin  BattleResult = "W"
	BattleLoss BattleResult = "L"
)

// ParseBattleResult accepts "W" or "L" in any case, ignoring surrounding whitespace.
func ParseBattleResult(value string) (BattleResult, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(BattleWin):
		return BattleWin, true
	case string(BattleLoss):
		return BattleLoss, true
	default:
		return "", false
	}
}

// LoadStatus describes how a deck snapshot was obtained from storage.
type LoadStatus string

const (
	LoadStatusNew    LoadStatus = "new"    // Created by the current call
	LoadStatusLoaded LoadStatus = "loaded" // Read back from its durable record
	LoadStatusReset  LoadStatus = "reset"  // Durable record was unreadable and replaced by an empty deck
)

// CardEntry is a catalog card held by a deck together with its copy count.
type CardEntry struct {
	CardID string `json:"card_id"`
	Name   string `json:"name"`
	Set    string `json:"set"`
	Count  int    `json:"count"`
}

// Battle is one recorded match outcome. Opponent is kept exactly as entered.
type Battle struct {
	Result    BattleResult `json:"result"`
	Opponent  string       `json:"opponent"`
	Timestamp time.Time    `json:"timestamp"`
}

// Deck is a named collection of card entries plus its battle history.
// Name is the deck's only identity.
type Deck struct {
	Name           string      `json:"name"`
	Cards          []CardEntry `json:"cards"`
	Battles        []Battle    `json:"battles"`
	LoadStatus     LoadStatus  `json:"load_status"`
	CatalogWarning string      `json:"catalog_warning,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	// Revision counts saves of the durable record. A save is only accepted
	// from a snapshot carrying the stored revision.
	Revision int64 `json:"revision"`
}

// Clone returns a deep copy so callers can hand out snapshots without sharing slices.
func (d *Deck) Clone() *Deck {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Cards = append(make([]CardEntry, 0, len(d.Cards)), d.Cards...)
	clone.Battles = append(make([]Battle, 0, len(d.Battles)), d.Battles...)
	return &clone
}

// TotalCards returns the number of copies across all entries.
func (d *Deck) TotalCards() int {
	total := 0
	for _, entry := range d.Cards {
		total += entry.Count
	}
	return total
}
