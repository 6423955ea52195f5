package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSlotsTwoWeekWindow(t *testing.T) {
	slots := Slots(date(2025, time.January, 1), date(2025, time.January, 14))
	require.Len(t, slots, 2)

	assert.Equal(t, date(2025, time.January, 2), slots[0].StartDate)
	assert.Equal(t, date(2025, time.January, 8), slots[0].FinishDate)
	assert.Equal(t, date(2025, time.January, 9), slots[1].StartDate)
	assert.Equal(t, date(2025, time.January, 15), slots[1].FinishDate)
}

func TestSlotsTileWithoutGapsOrOverlaps(t *testing.T) {
	slots := Slots(date(2025, time.March, 1), date(2025, time.May, 30))
	require.NotEmpty(t, slots)

	for i, slot := range slots {
		assert.Equal(t, slot.StartDate.AddDate(0, 0, 6), slot.FinishDate, "slot %d must span 7 days", i)
		if i > 0 {
			assert.Equal(t, slots[i-1].FinishDate.AddDate(0, 0, 1), slot.StartDate, "slot %d must start right after slot %d", i, i-1)
		}
	}
}

func TestSlotsShortWindowYieldsNone(t *testing.T) {
	assert.Empty(t, Slots(date(2025, time.January, 1), date(2025, time.January, 5)))
	assert.Empty(t, Slots(date(2025, time.January, 1), date(2025, time.January, 1)))
	assert.Empty(t, Slots(date(2025, time.January, 5), date(2025, time.January, 1)))
}

func TestSlotsRestartable(t *testing.T) {
	start, finish := date(2025, time.February, 1), date(2025, time.March, 28)
	first := Slots(start, finish)
	second := Slots(start, finish)
	assert.Equal(t, first, second)
}

func TestSlotCountRounds(t *testing.T) {
	// 13 days difference rounds to 2 weekly slots.
	assert.Equal(t, 2, SlotCount(date(2025, time.January, 1), date(2025, time.January, 14)))
	// 10 days difference rounds down to 1.
	assert.Equal(t, 1, SlotCount(date(2025, time.January, 1), date(2025, time.January, 11)))
	// 11 days difference rounds up to 2.
	assert.Equal(t, 2, SlotCount(date(2025, time.January, 1), date(2025, time.January, 12)))
}

func TestDayNormalizesToUTCMidnight(t *testing.T) {
	ts := time.Date(2025, time.June, 3, 17, 45, 12, 0, time.UTC)
	assert.Equal(t, date(2025, time.June, 3), Day(ts))
}
