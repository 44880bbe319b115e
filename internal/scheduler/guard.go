package scheduler

import "github.com/noah-isme/campus-timetable-api/internal/models"

// ValidateNoOverlap checks candidate against every stored timeslot except
// excludeID. It fails with INVALID_ARGUMENT for an empty or inverted range and
// TIMESLOT_OVERLAP when any stored range intersects the candidate.
func ValidateNoOverlap(candidate models.TimeRange, existing []models.Timeslot, excludeID string) error {
	if !candidate.Valid() {
		return invalidArgument("timeslot start %s must be before end %s", models.FormatClock(candidate.Start), models.FormatClock(candidate.End))
	}
	for _, slot := range existing {
		if excludeID != "" && slot.ID == excludeID {
			continue
		}
		if candidate.Overlaps(slot.Range()) {
			return overlapError(&models.TimeslotOverlapError{
				Candidate:    candidate,
				ConflictWith: slot.ID,
				Existing:     slot.Range(),
				SlotNumber:   slot.SlotNumber,
			})
		}
	}
	return nil
}
