package schedule

import (
	"math"
	"time"

	"github.com/clinsched/rotations-api/internal/models"
)

const slotDays = 7

// Day truncates a timestamp to a UTC calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SlotCount returns the number of weekly slots a rotation window hosts.
// The count follows round((finish-start)/7d); windows spanning fewer than
// seven calendar days host no slots at all.
func SlotCount(start, finish time.Time) int {
	start, finish = Day(start), Day(finish)
	if finish.Before(start) {
		return 0
	}
	diffDays := int(finish.Sub(start).Hours() / 24)
	if diffDays+1 < slotDays {
		return 0
	}
	return int(math.Round(float64(diffDays) / slotDays))
}

// Slots partitions a rotation window into ordered, non-overlapping weekly
// slots. The first slot begins the day after the window start; each slot is
// exactly seven days wide and tiles forward without gaps. The result is
// recomputed from the inputs alone, so callers may regenerate it at will.
func Slots(start, finish time.Time) []models.RotationWindow {
	n := SlotCount(start, finish)
	if n == 0 {
		return nil
	}

	slots := make([]models.RotationWindow, 0, n)
	cursor := Day(start)
	for i := 0; i < n; i++ {
		slotStart := cursor.AddDate(0, 0, 1)
		slotFinish := slotStart.AddDate(0, 0, slotDays-1)
		slots = append(slots, models.RotationWindow{StartDate: slotStart, FinishDate: slotFinish})
		cursor = slotFinish
	}
	return slots
}

// SameSlot reports whether two windows denote the same calendar slot.
func SameSlot(a, b models.RotationWindow) bool {
	return Day(a.StartDate).Equal(Day(b.StartDate)) && Day(a.FinishDate).Equal(Day(b.FinishDate))
}
