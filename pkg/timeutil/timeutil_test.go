package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", loc.String())

	_, err = LoadLocation("Mars/Olympus")
	assert.Error(t, err)
}

func TestDayBoundariesFollowLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	// 16:00 UTC is already the next day in Seoul.
	instant := time.Date(2025, 4, 1, 16, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-04-01", FormatDate(instant, time.UTC))
	assert.Equal(t, "2025-04-02", FormatDate(instant, seoul))
	assert.True(t, StartOfDay(instant, seoul).Equal(time.Date(2025, 4, 2, 0, 0, 0, 0, seoul)))
	assert.True(t, EndOfDay(instant, time.UTC).Equal(time.Date(2025, 4, 1, 23, 59, 59, 999999999, time.UTC)))

	next := time.Date(2025, 4, 2, 1, 0, 0, 0, time.UTC)
	assert.False(t, SameDay(instant, next, time.UTC))
	assert.True(t, SameDay(instant, next, seoul))
	assert.Equal(t, 1, DaysBetween(instant, next, time.UTC))
	assert.Equal(t, 0, DaysBetween(instant, next, seoul))
	assert.Equal(t, -1, DaysBetween(next, instant, time.UTC))
}

func TestStartOfWeek(t *testing.T) {
	sunday := time.Date(2025, 4, 6, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Monday, StartOfWeek(sunday, time.UTC).Weekday())
	assert.Equal(t, 31, StartOfWeek(sunday, time.UTC).Day())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-15", time.UTC)
	require.NoError(t, err)
	assert.True(t, d.Equal(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)))

	ts, err := ParseDate("2025-03-15T10:30:00+09:00", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ts.UTC().Hour())

	_, err = ParseDate("15/03/2025", time.UTC)
	assert.Error(t, err)
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, Fixed(at)().Equal(at))
	assert.False(t, SystemClock().IsZero())
}
