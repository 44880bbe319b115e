package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

const timeslotColumns = `id, start_seconds, end_seconds, slot_number, created_at, updated_at`

// TimeslotRepository persists the timeslot registry.
type TimeslotRepository struct {
	db *sqlx.DB
}

// NewTimeslotRepository constructs a timeslot repository.
func NewTimeslotRepository(db *sqlx.DB) *TimeslotRepository {
	return &TimeslotRepository{db: db}
}

func (r *TimeslotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns every timeslot ordered by start time.
func (r *TimeslotRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]models.Timeslot, error) {
	query := `SELECT ` + timeslotColumns + ` FROM timeslots ORDER BY start_seconds ASC, slot_number ASC`
	var slots []models.Timeslot
	if err := sqlx.SelectContext(ctx, r.exec(exec), &slots, query); err != nil {
		return nil, fmt.Errorf("list timeslots: %w", err)
	}
	return slots, nil
}

// FindByID loads a timeslot by identifier.
func (r *TimeslotRepository) FindByID(ctx context.Context, id string) (*models.Timeslot, error) {
	query := `SELECT ` + timeslotColumns + ` FROM timeslots WHERE id = $1`
	var slot models.Timeslot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Lock blocks concurrent timeslot writers until the transaction ends while
// still allowing reads.
func (r *TimeslotRepository) Lock(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := r.exec(exec).ExecContext(ctx, `LOCK TABLE timeslots IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock timeslots: %w", err)
	}
	return nil
}

// Create inserts a new timeslot.
func (r *TimeslotRepository) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.Timeslot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO timeslots (id, start_seconds, end_seconds, slot_number, created_at, updated_at) VALUES (:id, :start_seconds, :end_seconds, :slot_number, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot); err != nil {
		return fmt.Errorf("create timeslot: %w", err)
	}
	return nil
}

// Update overwrites the range and slot number of an existing timeslot.
func (r *TimeslotRepository) Update(ctx context.Context, exec sqlx.ExtContext, slot *models.Timeslot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timeslots SET start_seconds = :start_seconds, end_seconds = :end_seconds, slot_number = :slot_number, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot); err != nil {
		return fmt.Errorf("update timeslot: %w", err)
	}
	return nil
}

// Delete removes a timeslot.
func (r *TimeslotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timeslots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timeslot: %w", err)
	}
	return nil
}

// CountReferences returns how many class offerings meet in the timeslot.
func (r *TimeslotRepository) CountReferences(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM class_offerings WHERE timeslot_1 = $1 OR timeslot_2 = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count timeslot references: %w", err)
	}
	return count, nil
}
