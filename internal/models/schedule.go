package models

import "strings"

// Conflict kinds carried by ScheduleConflictError.Type.
const (
	ConflictTypeOverlap   = "TIME_OVERLAP"
	ConflictTypeCompanion = "COMPANION_REQUIRED"
)

// ScheduleConflict names two offerings that cannot share a timetable.
type ScheduleConflict struct {
	ClassA string          `json:"class_a"`
	ClassB string          `json:"class_b"`
	Cells  []OccupancyCell `json:"cells,omitempty"`
}

// ScheduleConflictError is returned when a class set contains a collision.
type ScheduleConflictError struct {
	Type     string             `json:"type"`
	Message  string             `json:"message"`
	Conflict ScheduleConflict   `json:"conflict"`
	Errors   []ScheduleConflict `json:"errors,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	return strings.ToLower(e.Type)
}
