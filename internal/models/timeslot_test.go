package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(t *testing.T, raw string) int {
	t.Helper()
	secs, err := ParseClock(raw)
	require.NoError(t, err)
	return secs
}

func TestTimeRangeOverlapsBoundary(t *testing.T) {
	morning := TimeRange{Start: clock(t, "08:00"), End: clock(t, "09:15")}

	assert.False(t, morning.Overlaps(TimeRange{Start: clock(t, "09:15"), End: clock(t, "10:30")}))
	assert.True(t, morning.Overlaps(TimeRange{Start: clock(t, "09:00"), End: clock(t, "10:00")}))
	assert.True(t, morning.Overlaps(TimeRange{Start: clock(t, "08:15"), End: clock(t, "08:30")}))
	assert.True(t, morning.Overlaps(morning))
	assert.False(t, morning.Overlaps(TimeRange{Start: clock(t, "07:00"), End: clock(t, "08:00")}))
}

func TestTimeRangeOverlapsSymmetric(t *testing.T) {
	// every pair of ranges on a quarter-hour grid between 08:00 and 10:00
	var ranges []TimeRange
	for start := 8 * 3600; start < 10*3600; start += 900 {
		for end := start + 900; end <= 10*3600; end += 900 {
			ranges = append(ranges, TimeRange{Start: start, End: end})
		}
	}
	require.NotEmpty(t, ranges)

	for _, a := range ranges {
		for _, b := range ranges {
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "%s vs %s", a, b)
		}
	}
}

func TestTimeRangeValid(t *testing.T) {
	assert.True(t, TimeRange{Start: 0, End: SecondsPerDay}.Valid())
	assert.False(t, TimeRange{Start: 3600, End: 3600}.Valid())
	assert.False(t, TimeRange{Start: 7200, End: 3600}.Valid())
	assert.False(t, TimeRange{Start: -1, End: 3600}.Valid())
}

func TestParseClock(t *testing.T) {
	cases := map[string]int{
		"08:30":    30600,
		"8:30":     30600,
		"09:45:30": 35130,
		"24:00":    SecondsPerDay,
		"3600":     3600,
	}
	for raw, want := range cases {
		got, err := ParseClock(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "25:00", "24:01", "10:60", "abc", "1:2:3:4", "-5"} {
		_, err := ParseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "08:30", FormatClock(30600))
	assert.Equal(t, "09:45:30", FormatClock(35130))
	assert.Equal(t, "08:30-09:45", TimeRange{Start: 30600, End: 35100}.String())
}
