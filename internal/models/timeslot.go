package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SecondsPerDay bounds a time-of-day value.
const SecondsPerDay = 24 * 60 * 60

// TimeRange is a half-open interval [Start, End) of seconds since midnight.
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two ranges share any instant. Ranges that only
// touch at a boundary do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// Valid reports whether the range lies within one day and start precedes end.
func (r TimeRange) Valid() bool {
	return r.Start >= 0 && r.End <= SecondsPerDay && r.Start < r.End
}

// String renders the range as HH:MM-HH:MM.
func (r TimeRange) String() string {
	return FormatClock(r.Start) + "-" + FormatClock(r.End)
}

// Timeslot is a registered time range with a display ordering number.
type Timeslot struct {
	ID           string    `db:"id" json:"id"`
	StartSeconds int       `db:"start_seconds" json:"start_seconds"`
	EndSeconds   int       `db:"end_seconds" json:"end_seconds"`
	SlotNumber   int       `db:"slot_number" json:"slot_number"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Range returns the timeslot interval.
func (t Timeslot) Range() TimeRange {
	return TimeRange{Start: t.StartSeconds, End: t.EndSeconds}
}

// TimeslotRequest is the create/update payload. Start and End accept HH:MM,
// HH:MM:SS or a plain number of seconds since midnight.
type TimeslotRequest struct {
	Start      string `json:"start" validate:"required"`
	End        string `json:"end" validate:"required"`
	SlotNumber int    `json:"slot_number" validate:"required,min=1"`
}

// TimeslotOverlapError describes the stored timeslot a candidate collides with.
type TimeslotOverlapError struct {
	Candidate    TimeRange `json:"candidate"`
	ConflictWith string    `json:"conflict_with"`
	Existing     TimeRange `json:"existing"`
	SlotNumber   int       `json:"slot_number"`
}

// Error implements the error interface.
func (e *TimeslotOverlapError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("timeslot %s overlaps timeslot %s (%s)", e.Candidate, e.ConflictWith, e.Existing)
}

// ParseClock converts HH:MM, HH:MM:SS or raw seconds into seconds since midnight.
// "24:00" is accepted as the end of day.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty time value")
	}
	if !strings.Contains(raw, ":") {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 || secs > SecondsPerDay {
			return 0, fmt.Errorf("invalid time value %q", raw)
		}
		return secs, nil
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time value %q", raw)
	}
	limits := []int{24, 59, 59}
	total := 0
	multipliers := []int{3600, 60, 1}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time value %q", raw)
		}
		total += n * multipliers[i]
	}
	if total > SecondsPerDay {
		return 0, fmt.Errorf("invalid time value %q", raw)
	}
	return total, nil
}

// FormatClock renders seconds since midnight as HH:MM, adding :SS when needed.
func FormatClock(secs int) string {
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}
