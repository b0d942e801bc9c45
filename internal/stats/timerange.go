package stats

import (
	"fmt"
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/storage/models"
)

// TimeRange is a half-open period [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// FilterBattles keeps the battles recorded inside tr, preserving order.
func FilterBattles(battles []models.Battle, tr TimeRange) []models.Battle {
	filtered := make([]models.Battle, 0, len(battles))
	for _, battle := range battles {
		if tr.Contains(battle.Timestamp) {
			filtered = append(filtered, battle)
		}
	}
	return filtered
}

// WeekRangeFrom returns the Monday-to-Monday week containing referenceTime,
// shifted by offset weeks (0 = that week, -1 = the week before).
func WeekRangeFrom(referenceTime time.Time, offset int) TimeRange {
	weekday := int(referenceTime.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday is 7 (ISO 8601)
	}
	day := referenceTime.AddDate(0, 0, -weekday+1)
	currentWeekStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, referenceTime.Location())

	weekStart := currentWeekStart.AddDate(0, 0, offset*7)
	return TimeRange{
		Start: weekStart,
		End:   weekStart.AddDate(0, 0, 7),
	}
}

// MonthRangeFrom returns the calendar month containing referenceTime, shifted by offset months.
func MonthRangeFrom(referenceTime time.Time, offset int) TimeRange {
	currentMonthStart := time.Date(referenceTime.Year(), referenceTime.Month(), 1, 0, 0, 0, 0, referenceTime.Location())

	monthStart := currentMonthStart.AddDate(0, offset, 0)
	return TimeRange{
		Start: monthStart,
		End:   monthStart.AddDate(0, 1, 0),
	}
}

// FormatPeriod returns a human-readable description of the time period.
func (tr TimeRange) FormatPeriod() string {
	start := tr.Start.Format("2006-01-02")
	end := tr.End.AddDate(0, 0, -1).Format("2006-01-02") // End is exclusive
	return fmt.Sprintf("%s to %s", start, end)
}

// GetWeekLabel returns a descriptive label for a week offset.
func GetWeekLabel(offset int) string {
	switch offset {
	case 0:
		return "This Week"
	case -1:
		return "Last Week"
	default:
		if offset < 0 {
			return fmt.Sprintf("%d Weeks Ago", -offset)
		}
		return fmt.Sprintf("%d Weeks From Now", offset)
	}
}

// GetMonthLabel returns a descriptive label for a month offset.
func GetMonthLabel(offset int) string {
	switch offset {
	case 0:
		return "This Month"
	case -1:
		return "Last Month"
	default:
		if offset < 0 {
			return fmt.Sprintf("%d Months Ago", -offset)
		}
		return fmt.Sprintf("%d Months From Now", offset)
	}
}
