package stats

import (
	"testing"

	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

func TestCalculateStreaks(t *testing.T) {
	w, l := models.BattleWin, models.BattleLoss

	tests := []struct {
		name                  string
		battles               []models.Battle
		wantCurrentStreak     int
		wantLongestWinStreak  int
		wantLongestLossStreak int
	}{
		{
			name:    "Empty battles",
			battles: nil,
		},
		{
			name:                 "Single win",
			battles:              battles(w),
			wantCurrentStreak:    1,
			wantLongestWinStreak: 1,
		},
		{
			name:                  "Single loss",
			battles:               battles(l),
			wantCurrentStreak:     -1,
			wantLongestLossStreak: 1,
		},
		{
			name:                 "Win streak of 3",
			battles:              battles(w, w, w),
			wantCurrentStreak:    3,
			wantLongestWinStreak: 3,
		},
		{
			name:                  "Mixed ending in losses",
			battles:               battles(w, w, w, l, w, l, l),
			wantCurrentStreak:     -2,
			wantLongestWinStreak:  3,
			wantLongestLossStreak: 2,
		},
		{
			name:                  "Unknown result breaks streak",
			battles:               append(battles(w, w), models.Battle{Result: "D"}),
			wantCurrentStreak:     0,
			wantLongestWinStreak:  2,
			wantLongestLossStreak: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateStreaks(tt.battles)

			if got.CurrentStreak != tt.wantCurrentStreak {
				t.Errorf("CurrentStreak = %d, want %d", got.CurrentStreak, tt.wantCurrentStreak)
			}
			if got.LongestWinStreak != tt.wantLongestWinStreak {
				t.Errorf("LongestWinStreak = %d, want %d", got.LongestWinStreak, tt.wantLongestWinStreak)
			}
			if got.LongestLossStreak != tt.wantLongestLossStreak {
				t.Errorf("LongestLossStreak = %d, want %d", got.LongestLossStreak, tt.wantLongestLossStreak)
			}
		})
	}
}

func TestFormatCurrentStreak(t *testing.T) {
	tests := []struct {
		streak int
		want   string
	}{
		{0, "No active streak"},
		{1, "1 win streak"},
		{4, "4 win streak"},
		{-1, "1 loss streak"},
		{-3, "3 loss streak"},
	}

	for _, tt := range tests {
		if got := FormatCurrentStreak(tt.streak); got != tt.want {
			t.Errorf("FormatCurrentStreak(%d) = %q, want %q", tt.streak, got, tt.want)
		}
	}
}
