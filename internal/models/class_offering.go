package models

import (
	"strings"
	"time"
)

// WeekDay enumerates the days a class can meet.
type WeekDay string

const (
	Monday    WeekDay = "MONDAY"
	Tuesday   WeekDay = "TUESDAY"
	Wednesday WeekDay = "WEDNESDAY"
	Thursday  WeekDay = "THURSDAY"
	Friday    WeekDay = "FRIDAY"
	Saturday  WeekDay = "SATURDAY"
	Sunday    WeekDay = "SUNDAY"
)

// WeekDays lists every day in calendar order.
var WeekDays = []WeekDay{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid reports whether d is one of the seven known days.
func (d WeekDay) Valid() bool {
	for _, day := range WeekDays {
		if d == day {
			return true
		}
	}
	return false
}

// ParseWeekDay normalises case and surrounding whitespace.
func ParseWeekDay(raw string) (WeekDay, bool) {
	d := WeekDay(strings.ToUpper(strings.TrimSpace(raw)))
	return d, d.Valid()
}

// ClassOffering is one section of a subject occupying one or two
// (day, timeslot) cells. A single-session offering repeats the first cell.
type ClassOffering struct {
	ClassERP       string    `db:"class_erp" json:"class_erp"`
	SubjectCode    string    `db:"subject_code" json:"subject_code"`
	TermID         string    `db:"term_id" json:"term_id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	ClassroomID    string    `db:"classroom_id" json:"classroom_id"`
	Semester       string    `db:"semester" json:"semester"`
	ParentClassERP *string   `db:"parent_class_erp" json:"parent_class_erp,omitempty"`
	Day1           WeekDay   `db:"day_1" json:"day_1"`
	Timeslot1      string    `db:"timeslot_1" json:"timeslot_1"`
	Day2           WeekDay   `db:"day_2" json:"day_2"`
	Timeslot2      string    `db:"timeslot_2" json:"timeslot_2"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Parent returns the companion class_erp or "" when the offering has none.
func (c ClassOffering) Parent() string {
	if c.ParentClassERP == nil {
		return ""
	}
	return *c.ParentClassERP
}

// ClassOfferingFilter narrows class offering listings.
type ClassOfferingFilter struct {
	TermID       string
	SubjectCode  string
	SubjectCodes []string
	TeacherID    string
	Semester     string
	Page         int
	PageSize     int
}

// ClassOfferingRequest is the create/update payload. Day2/Timeslot2 default
// to the first pair for single-session offerings.
type ClassOfferingRequest struct {
	ClassERP       string  `json:"class_erp" validate:"required,max=64"`
	SubjectCode    string  `json:"subject_code" validate:"required,max=32"`
	TermID         string  `json:"term_id" validate:"required"`
	TeacherID      string  `json:"teacher_id" validate:"required"`
	ClassroomID    string  `json:"classroom_id" validate:"required"`
	Semester       string  `json:"semester" validate:"required,max=32"`
	ParentClassERP *string `json:"parent_class_erp"`
	Day1           string  `json:"day_1" validate:"required"`
	Timeslot1      string  `json:"timeslot_1" validate:"required"`
	Day2           string  `json:"day_2"`
	Timeslot2      string  `json:"timeslot_2"`
}

// OccupancyCell is one (day, timeslot) cell held by an offering.
type OccupancyCell struct {
	Day        WeekDay    `json:"day"`
	TimeslotID string     `json:"timeslot_id"`
	Range      *TimeRange `json:"range,omitempty"`
}

// ConflictCheckRequest asks whether two offerings can share a timetable.
type ConflictCheckRequest struct {
	ClassA string `json:"class_a" validate:"required"`
	ClassB string `json:"class_b" validate:"required"`
}

// ConflictCheckResult answers a ConflictCheckRequest.
type ConflictCheckResult struct {
	ClassA     string          `json:"class_a"`
	ClassB     string          `json:"class_b"`
	Conflicts  bool            `json:"conflicts"`
	Companions bool            `json:"companions"`
	Shared     []OccupancyCell `json:"shared,omitempty"`
}
