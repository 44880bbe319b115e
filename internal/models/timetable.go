package models

import "time"

// Timetable is a student's adopted set of class offerings for a term.
type Timetable struct {
	ID         string          `db:"id" json:"id"`
	StudentERP string          `db:"student_erp" json:"student_erp"`
	TermID     string          `db:"term_id" json:"term_id"`
	IsActive   bool            `db:"is_active" json:"is_active"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
	Classes    []ClassOffering `db:"-" json:"classes,omitempty"`
}

// TimetableFilter narrows timetable listings.
type TimetableFilter struct {
	StudentERP string
	TermID     string
	IsActive   *bool
	Page       int
	PageSize   int
}

// TimetableDraft is an unpersisted candidate produced by the generator.
type TimetableDraft struct {
	TermID   string          `json:"term_id"`
	IsActive bool            `json:"is_active"`
	Classes  []ClassOffering `json:"classes"`
}

// GenerateTimetablesRequest drives the combination generator.
type GenerateTimetablesRequest struct {
	TermID        string   `json:"term_id" validate:"required"`
	NumOfSubjects int      `json:"num_of_subjects" validate:"required,min=1"`
	SubjectCodes  []string `json:"subject_codes" validate:"omitempty,dive,required"`
	Limit         int      `json:"limit" validate:"omitempty,min=1"`
}

// GenerateTimetablesResponse returns the drafts found for a request.
type GenerateTimetablesResponse struct {
	TermID        string           `json:"term_id"`
	NumOfSubjects int              `json:"num_of_subjects"`
	Drafts        []TimetableDraft `json:"drafts"`
	Truncated     bool             `json:"truncated"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// CreateTimetableRequest persists a timetable from explicit class ids.
// StudentERP is only honoured for administrators.
type CreateTimetableRequest struct {
	StudentERP string   `json:"student_erp"`
	TermID     string   `json:"term_id" validate:"required"`
	Classes    []string `json:"classes" validate:"required,min=1,dive,required"`
	IsActive   bool     `json:"is_active"`
}

// MutateTimetableRequest adds and/or removes classes.
type MutateTimetableRequest struct {
	Add    []string `json:"add" validate:"omitempty,dive,required"`
	Remove []string `json:"remove" validate:"omitempty,dive,required"`
}

// MutationSummary reports an accepted add/remove request.
type MutationSummary struct {
	Accepted    bool     `json:"accepted"`
	RowsAdded   int      `json:"rows_added"`
	RowsRemoved int      `json:"rows_removed"`
	Added       []string `json:"added,omitempty"`
	Removed     []string `json:"removed,omitempty"`
}

// ActivateTimetableRequest toggles the active flag.
type ActivateTimetableRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// ActivationSummary reports the rows touched by an activation.
type ActivationSummary struct {
	TimetableID string `json:"timetable_id"`
	IsActive    bool   `json:"is_active"`
	RowsMatched int    `json:"rows_matched"`
	RowsChanged int    `json:"rows_changed"`
}

// ExportFormat enumerates timetable export encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered timetable document.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
