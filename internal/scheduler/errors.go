// Package scheduler holds the pure timetable rules: timeslot overlap guard,
// class occupancy and conflicts, companion expansion, combination search and
// mutation planning. Nothing here touches storage.
package scheduler

import (
	"fmt"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

func overlapError(payload *models.TimeslotOverlapError) error {
	err := appErrors.Wrap(payload, appErrors.ErrTimeslotOverlap.Code, appErrors.ErrTimeslotOverlap.Status, payload.Error())
	err.Details = payload
	return err
}

func conflictError(kind string, conflicts []models.ScheduleConflict) error {
	first := conflicts[0]
	var message string
	switch kind {
	case models.ConflictTypeCompanion:
		message = fmt.Sprintf("class %s requires companion class %s", first.ClassA, first.ClassB)
	default:
		message = fmt.Sprintf("class %s conflicts with class %s", first.ClassA, first.ClassB)
	}
	payload := &models.ScheduleConflictError{
		Type:     kind,
		Message:  message,
		Conflict: first,
		Errors:   conflicts,
	}
	err := appErrors.Wrap(payload, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, message)
	err.Details = payload
	return err
}

func unresolvedError(format string, args ...any) error {
	return appErrors.Clone(appErrors.ErrUnresolvedReference, fmt.Sprintf(format, args...))
}

func invalidArgument(format string, args ...any) error {
	return appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf(format, args...))
}
