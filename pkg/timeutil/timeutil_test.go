package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayBoundsInZone(t *testing.T) {
	from := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	start, end, err := DayBoundsInZone(from, to, "Africa/Nairobi")
	require.NoError(t, err)

	// Nairobi is UTC+3 year-round
	assert.Equal(t, time.Date(2025, 6, 10, 21, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 11, 21, 0, 0, 0, time.UTC), end)
}

func TestDayBoundsInZone_InclusiveRange(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	start, end, err := DayBoundsInZone(from, to, "UTC")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), start)
	// the end bound covers the whole of June 30
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestDayBoundsInZone_InvalidZone(t *testing.T) {
	_, _, err := DayBoundsInZone(time.Now(), time.Now(), "Mars/Olympus")
	assert.Error(t, err)
}

func TestDaysUntilDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, 7, DaysUntilDate(now, time.Date(2025, 6, 22, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysUntilDate(now, time.Date(2025, 6, 15, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysUntilDate(now, time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)))
}

func TestNextDailyFire(t *testing.T) {
	now := time.Date(2025, 6, 15, 8, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC), NextDailyFire(now, 9, 0))

	exactly := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC), NextDailyFire(exactly, 9, 0))
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2025-06-11")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseDate("11/06/2025")
	assert.Error(t, err)
}
