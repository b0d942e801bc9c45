package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

// Kind selects which part of a deck is exported.
type Kind string

const (
	KindBattles Kind = "battles"
	KindCards   Kind = "cards"
)

// ParseKind accepts "battles" or "cards" in any case.
func ParseKind(value string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(value))); k {
	case KindBattles, KindCards:
		return k, nil
	default:
		return "", fmt.Errorf("unsupported export kind: %q", value)
	}
}

// BattleRow is one exported battle. Number is 1-based in recording order.
type BattleRow struct {
	Number    int       `csv:"number" json:"number"`
	Result    string    `csv:"result" json:"result"`
	Opponent  string    `csv:"opponent" json:"opponent"`
	Timestamp time.Time `csv:"timestamp" json:"timestamp"`
}

// CardRow is one exported card entry. Index matches the position used to remove it.
type CardRow struct {
	Index  int    `csv:"index" json:"index"`
	CardID string `csv:"card_id" json:"card_id"`
	Name   string `csv:"name" json:"name"`
	Set    string `csv:"set" json:"set"`
	Count  int    `csv:"count" json:"count"`
}

// BattleRows flattens a deck's battle history.
func BattleRows(deck *models.Deck) []BattleRow {
	rows := make([]BattleRow, 0, len(deck.Battles))
	for i, b := range deck.Battles {
		rows = append(rows, BattleRow{
			Number:    i + 1,
			Result:    string(b.Result),
			Opponent:  b.Opponent,
			Timestamp: b.Timestamp,
		})
	}
	return rows
}

// CardRows flattens a deck's card entries.
func CardRows(deck *models.Deck) []CardRow {
	rows := make([]CardRow, 0, len(deck.Cards))
	for i, c := range deck.Cards {
		rows = append(rows, CardRow{
			Index:  i,
			CardID: c.CardID,
			Name:   c.Name,
			Set:    c.Set,
			Count:  c.Count,
		})
	}
	return rows
}

// Rows returns the rows of the given kind.
func Rows(deck *models.Deck, kind Kind) any {
	if kind == KindCards {
		return CardRows(deck)
	}
	return BattleRows(deck)
}
