// Package stats derives win/loss statistics from a deck's battle history.
// Every function here is pure: results depend only on the battles passed in.
package stats

import (
	"math"
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

// Stats summarizes a battle history.
type Stats struct {
	TotalBattles   int            `json:"totalBattles"`
	Wins           int            `json:"wins"`
	Losses         int            `json:"losses"`
	WinPercentage  float64        `json:"winPercentage"`
	LossByOpponent map[string]int `json:"lossByOpponent"`
}

// RunningTotal is the cumulative record after the battle at a given position.
type RunningTotal struct {
	Battle    int       `json:"battle"` // 1-based position in the history
	Timestamp time.Time `json:"timestamp"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	WinRate   float64   `json:"winRate"`
}

// Compute aggregates battles in a single pass. Every battle counts toward the
// total and anything other than a win toward the losses; only recorded losses
// are keyed by the opponent label, exactly as recorded. With no battles every
// figure is zero.
func Compute(battles []models.Battle) Stats {
	stats := Stats{
		LossByOpponent: make(map[string]int),
	}

	for _, battle := range battles {
		switch battle.Result {
		case models.BattleWin:
			stats.Wins++
		case models.BattleLoss:
			stats.LossByOpponent[battle.Opponent]++
		}
	}
	stats.TotalBattles = len(battles)
	stats.Losses = stats.TotalBattles - stats.Wins
	stats.WinPercentage = winRate(stats.Wins, stats.TotalBattles)

	return stats
}

// RunningTotals returns the cumulative wins and losses after each battle, in order.
// It counts battles the same way Compute does, so the last entry matches it.
func RunningTotals(battles []models.Battle) []RunningTotal {
	totals := make([]RunningTotal, 0, len(battles))
	wins := 0

	for i, battle := range battles {
		if battle.Result == models.BattleWin {
			wins++
		}
		played := i + 1
		totals = append(totals, RunningTotal{
			Battle:    played,
			Timestamp: battle.Timestamp,
			Wins:      wins,
			Losses:    played - wins,
			WinRate:   winRate(wins, played),
		})
	}

	return totals
}

// winRate is wins/total as a percentage rounded to two decimals; zero when total is zero.
func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(wins)/float64(total)*100*100) / 100
}
