package stats

import (
	"fmt"

	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

// StreakStats holds win/loss streak information.
type StreakStats struct {
	CurrentStreak     int `json:"currentStreak"` // positive for wins, negative for losses
	LongestWinStreak  int `json:"longestWinStreak"`
	LongestLossStreak int `json:"longestLossStreak"`
}

// CalculateStreaks calculates win/loss streak statistics from battles in recorded order.
func CalculateStreaks(battles []models.Battle) StreakStats {
	var stats StreakStats
	currentWinStreak := 0
	currentLossStreak := 0

	for _, battle := range battles {
		switch battle.Result {
		case models.BattleWin:
			currentWinStreak++
			currentLossStreak = 0
			if currentWinStreak > stats.LongestWinStreak {
				stats.LongestWinStreak = currentWinStreak
			}

		case models.BattleLoss:
			currentLossStreak++
			currentWinStreak = 0
			if currentLossStreak > stats.LongestLossStreak {
				stats.LongestLossStreak = currentLossStreak
			}

		default:
			currentWinStreak = 0
			currentLossStreak = 0
		}
	}

	switch {
	case currentWinStreak > 0:
		stats.CurrentStreak = currentWinStreak
	case currentLossStreak > 0:
		stats.CurrentStreak = -currentLossStreak
	}

	return stats
}

// FormatCurrentStreak returns a human-readable string for the current streak.
func FormatCurrentStreak(streak int) string {
	if streak == 0 {
		return "No active streak"
	}
	if streak > 0 {
		if streak == 1 {
			return "1 win streak"
		}
		return fmt.Sprintf("%d win streak", streak)
	}
	absStreak := -streak
	if absStreak == 1 {
		return "1 loss streak"
	}
	return fmt.Sprintf("%d loss streak", absStreak)
}
