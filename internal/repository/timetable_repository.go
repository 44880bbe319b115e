package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

const timetableColumns = `id, student_erp, term_id, is_active, created_at, updated_at`

// TimetableRepository persists timetables and their class membership.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns timetables matching filter with the total count.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	base := "FROM timetables WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentERP != "" {
		conditions = append(conditions, fmt.Sprintf("student_erp = $%d", len(args)+1))
		args = append(args, filter.StudentERP)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", timetableColumns, base, size, offset)
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}
	return timetables, total, nil
}

// FindByID loads a timetable without its classes.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetables WHERE id = $1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ListClasses returns the offerings held by a timetable.
func (r *TimetableRepository) ListClasses(ctx context.Context, exec sqlx.ExtContext, timetableID string) ([]models.ClassOffering, error) {
	const query = `SELECT co.class_erp, co.subject_code, co.term_id, co.teacher_id, co.classroom_id, co.semester, co.parent_class_erp, co.day_1, co.timeslot_1, co.day_2, co.timeslot_2, co.created_at, co.updated_at
FROM timetable_classes tc
JOIN class_offerings co ON co.class_erp = tc.class_erp
WHERE tc.timetable_id = $1
ORDER BY co.subject_code ASC, co.class_erp ASC`
	var offerings []models.ClassOffering
	if err := sqlx.SelectContext(ctx, r.exec(exec), &offerings, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable classes: %w", err)
	}
	return offerings, nil
}

// Create inserts the timetable row. Classes are attached with AddClasses.
func (r *TimetableRepository) Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	const query = `INSERT INTO timetables (id, student_erp, term_id, is_active, created_at, updated_at) VALUES (:id, :student_erp, :term_id, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, timetable); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// AddClasses attaches offerings and returns how many rows were inserted.
func (r *TimetableRepository) AddClasses(ctx context.Context, exec sqlx.ExtContext, timetableID string, erps []string) (int, error) {
	target := r.exec(exec)
	inserted := 0
	for _, erp := range erps {
		res, err := target.ExecContext(ctx, `INSERT INTO timetable_classes (timetable_id, class_erp) VALUES ($1, $2) ON CONFLICT DO NOTHING`, timetableID, erp)
		if err != nil {
			return inserted, fmt.Errorf("add timetable class %s: %w", erp, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("add timetable class rows: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// RemoveClasses detaches offerings and returns how many rows were deleted.
func (r *TimetableRepository) RemoveClasses(ctx context.Context, exec sqlx.ExtContext, timetableID string, erps []string) (int, error) {
	if len(erps) == 0 {
		return 0, nil
	}
	res, err := r.exec(exec).ExecContext(ctx, `DELETE FROM timetable_classes WHERE timetable_id = $1 AND class_erp = ANY($2)`, timetableID, pq.Array(erps))
	if err != nil {
		return 0, fmt.Errorf("remove timetable classes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove timetable classes rows: %w", err)
	}
	return int(n), nil
}

// Touch bumps updated_at after a membership change.
func (r *TimetableRepository) Touch(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `UPDATE timetables SET updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch timetable: %w", err)
	}
	return nil
}

// SetActive deactivates the student's other active timetable for the term
// and activates the target. Callers run it inside a transaction so both
// transitions commit together.
func (r *TimetableRepository) SetActive(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) (*models.ActivationSummary, error) {
	target := r.exec(exec)
	now := time.Now().UTC()

	res, err := target.ExecContext(ctx, `UPDATE timetables SET is_active = FALSE, updated_at = $3 WHERE student_erp = $1 AND term_id = $2 AND is_active = TRUE AND id <> $4`,
		timetable.StudentERP, timetable.TermID, now, timetable.ID)
	if err != nil {
		return nil, fmt.Errorf("deactivate sibling timetables: %w", err)
	}
	deactivated, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("deactivate sibling timetables rows: %w", err)
	}

	res, err = target.ExecContext(ctx, `UPDATE timetables SET is_active = TRUE, updated_at = $2 WHERE id = $1 AND is_active = FALSE`, timetable.ID, now)
	if err != nil {
		return nil, fmt.Errorf("activate timetable: %w", err)
	}
	activated, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("activate timetable rows: %w", err)
	}

	timetable.IsActive = true
	timetable.UpdatedAt = now
	return &models.ActivationSummary{
		TimetableID: timetable.ID,
		IsActive:    true,
		RowsMatched: int(deactivated) + 1,
		RowsChanged: int(deactivated + activated),
	}, nil
}

// Deactivate clears the active flag and returns the rows changed.
func (r *TimetableRepository) Deactivate(ctx context.Context, exec sqlx.ExtContext, id string) (int, error) {
	res, err := r.exec(exec).ExecContext(ctx, `UPDATE timetables SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active = TRUE`, id, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deactivate timetable: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate timetable rows: %w", err)
	}
	return int(n), nil
}

// Delete removes a timetable; membership rows cascade.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	return nil
}

// Lock takes a row lock on the timetable for the rest of the transaction.
func (r *TimetableRepository) Lock(ctx context.Context, exec sqlx.ExtContext, id string) error {
	var locked string
	if err := sqlx.GetContext(ctx, r.exec(exec), &locked, `SELECT id FROM timetables WHERE id = $1 FOR UPDATE`, id); err != nil {
		return err
	}
	return nil
}
