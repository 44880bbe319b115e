package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

const classOfferingColumns = `class_erp, subject_code, term_id, teacher_id, classroom_id, semester, parent_class_erp, day_1, timeslot_1, day_2, timeslot_2, created_at, updated_at`

// ClassOfferingRepository persists class offerings.
type ClassOfferingRepository struct {
	db *sqlx.DB
}

// NewClassOfferingRepository constructs a class offering repository.
func NewClassOfferingRepository(db *sqlx.DB) *ClassOfferingRepository {
	return &ClassOfferingRepository{db: db}
}

// List returns offerings matching filter with the total count.
func (r *ClassOfferingRepository) List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOffering, int, error) {
	base := "FROM class_offerings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.SubjectCode != "" {
		conditions = append(conditions, fmt.Sprintf("subject_code = $%d", len(args)+1))
		args = append(args, filter.SubjectCode)
	}
	if len(filter.SubjectCodes) > 0 {
		conditions = append(conditions, fmt.Sprintf("subject_code = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.SubjectCodes))
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY subject_code ASC, class_erp ASC LIMIT %d OFFSET %d", classOfferingColumns, base, size, offset)
	var offerings []models.ClassOffering
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class offerings: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count class offerings: %w", err)
	}
	return offerings, total, nil
}

// ListByTerm returns every offering in a term, optionally restricted to subjects.
// Rows come back in a stable order so generated drafts are reproducible.
func (r *ClassOfferingRepository) ListByTerm(ctx context.Context, termID string, subjectCodes []string) ([]models.ClassOffering, error) {
	query := `SELECT ` + classOfferingColumns + ` FROM class_offerings WHERE term_id = $1`
	args := []interface{}{termID}
	if len(subjectCodes) > 0 {
		query += ` AND subject_code = ANY($2)`
		args = append(args, pq.Array(subjectCodes))
	}
	query += ` ORDER BY subject_code ASC, class_erp ASC`

	var offerings []models.ClassOffering
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, fmt.Errorf("list term class offerings: %w", err)
	}
	return offerings, nil
}

// FindByERP loads one offering.
func (r *ClassOfferingRepository) FindByERP(ctx context.Context, erp string) (*models.ClassOffering, error) {
	query := `SELECT ` + classOfferingColumns + ` FROM class_offerings WHERE class_erp = $1`
	var offering models.ClassOffering
	if err := r.db.GetContext(ctx, &offering, query, erp); err != nil {
		return nil, err
	}
	return &offering, nil
}

// FindByERPs loads the offerings that exist among erps; missing ids are simply absent.
func (r *ClassOfferingRepository) FindByERPs(ctx context.Context, erps []string) ([]models.ClassOffering, error) {
	if len(erps) == 0 {
		return nil, nil
	}
	query := `SELECT ` + classOfferingColumns + ` FROM class_offerings WHERE class_erp = ANY($1) ORDER BY class_erp ASC`
	var offerings []models.ClassOffering
	if err := r.db.SelectContext(ctx, &offerings, query, pq.Array(erps)); err != nil {
		return nil, fmt.Errorf("find class offerings: %w", err)
	}
	return offerings, nil
}

// Create inserts an offering.
func (r *ClassOfferingRepository) Create(ctx context.Context, offering *models.ClassOffering) error {
	now := time.Now().UTC()
	if offering.CreatedAt.IsZero() {
		offering.CreatedAt = now
	}
	offering.UpdatedAt = now

	const query = `INSERT INTO class_offerings (class_erp, subject_code, term_id, teacher_id, classroom_id, semester, parent_class_erp, day_1, timeslot_1, day_2, timeslot_2, created_at, updated_at) VALUES (:class_erp, :subject_code, :term_id, :teacher_id, :classroom_id, :semester, :parent_class_erp, :day_1, :timeslot_1, :day_2, :timeslot_2, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("create class offering: %w", err)
	}
	return nil
}

// Update overwrites an offering's mutable fields.
func (r *ClassOfferingRepository) Update(ctx context.Context, offering *models.ClassOffering) error {
	offering.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_offerings SET subject_code = :subject_code, term_id = :term_id, teacher_id = :teacher_id, classroom_id = :classroom_id, semester = :semester, parent_class_erp = :parent_class_erp, day_1 = :day_1, timeslot_1 = :timeslot_1, day_2 = :day_2, timeslot_2 = :timeslot_2, updated_at = :updated_at WHERE class_erp = :class_erp`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("update class offering: %w", err)
	}
	return nil
}

// Delete removes an offering.
func (r *ClassOfferingRepository) Delete(ctx context.Context, erp string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_offerings WHERE class_erp = $1`, erp); err != nil {
		return fmt.Errorf("delete class offering: %w", err)
	}
	return nil
}

// CountDependents returns the number of companion children and timetables
// that reference the offering.
func (r *ClassOfferingRepository) CountDependents(ctx context.Context, erp string) (children int, timetables int, err error) {
	if err = r.db.GetContext(ctx, &children, `SELECT COUNT(*) FROM class_offerings WHERE parent_class_erp = $1`, erp); err != nil {
		return 0, 0, fmt.Errorf("count companion children: %w", err)
	}
	if err = r.db.GetContext(ctx, &timetables, `SELECT COUNT(*) FROM timetable_classes WHERE class_erp = $1`, erp); err != nil {
		return 0, 0, fmt.Errorf("count timetable references: %w", err)
	}
	return children, timetables, nil
}
