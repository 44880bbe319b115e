package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type timeslotRepository interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Timeslot, error)
	FindByID(ctx context.Context, id string) (*models.Timeslot, error)
	Lock(ctx context.Context, exec sqlx.ExtContext) error
	Create(ctx context.Context, exec sqlx.ExtContext, slot *models.Timeslot) error
	Update(ctx context.Context, exec sqlx.ExtContext, slot *models.Timeslot) error
	Delete(ctx context.Context, id string) error
	CountReferences(ctx context.Context, id string) (int, error)
}

// TimeslotService manages the timeslot registry and keeps it free of overlaps.
type TimeslotService struct {
	repo      timeslotRepository
	tx        txProvider
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeslotService constructs a TimeslotService.
func NewTimeslotService(repo timeslotRepository, tx txProvider, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TimeslotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeslotService{repo: repo, tx: tx, cache: cache, validator: validate, logger: logger}
}

// List returns the registry ordered by start time.
func (s *TimeslotService) List(ctx context.Context) ([]models.Timeslot, error) {
	slots, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timeslots")
	}
	return slots, nil
}

// Get returns a timeslot by id.
func (s *TimeslotService) Get(ctx context.Context, id string) (*models.Timeslot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timeslot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timeslot")
	}
	return slot, nil
}

// Create validates and stores a new timeslot.
func (s *TimeslotService) Create(ctx context.Context, req models.TimeslotRequest) (*models.Timeslot, error) {
	candidate, err := s.parseRequest(req)
	if err != nil {
		return nil, err
	}
	slot := &models.Timeslot{StartSeconds: candidate.Start, EndSeconds: candidate.End, SlotNumber: req.SlotNumber}
	if err := s.write(ctx, slot, "", s.repo.Create); err != nil {
		return nil, err
	}
	s.logger.Info("timeslot created", zap.String("timeslot_id", slot.ID), zap.Stringer("range", slot.Range()))
	return slot, nil
}

// Update replaces the range of an existing timeslot. The record itself is
// excluded from the overlap check. A referenced timeslot keeps its range; only
// its slot number may change.
func (s *TimeslotService) Update(ctx context.Context, id string, req models.TimeslotRequest) (*models.Timeslot, error) {
	candidate, err := s.parseRequest(req)
	if err != nil {
		return nil, err
	}
	slot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot.StartSeconds != candidate.Start || slot.EndSeconds != candidate.End {
		refs, err := s.repo.CountReferences(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check timeslot usage")
		}
		if refs > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot change range of timeslot used by %d class offerings", refs))
		}
	}
	slot.StartSeconds = candidate.Start
	slot.EndSeconds = candidate.End
	slot.SlotNumber = req.SlotNumber
	if err := s.write(ctx, slot, id, s.repo.Update); err != nil {
		return nil, err
	}
	s.logger.Info("timeslot updated", zap.String("timeslot_id", slot.ID), zap.Stringer("range", slot.Range()))
	return slot, nil
}

// Delete removes an unreferenced timeslot.
func (s *TimeslotService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check timeslot usage")
	}
	if refs > 0 {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("timeslot is used by %d class offerings", refs))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timeslot")
	}
	s.cache.Invalidate(ctx, draftCachePattern)
	return nil
}

func (s *TimeslotService) parseRequest(req models.TimeslotRequest) (models.TimeRange, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.TimeRange{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timeslot payload")
	}
	start, err := models.ParseClock(req.Start)
	if err != nil {
		return models.TimeRange{}, appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status, "invalid start time")
	}
	end, err := models.ParseClock(req.End)
	if err != nil {
		return models.TimeRange{}, appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status, "invalid end time")
	}
	return models.TimeRange{Start: start, End: end}, nil
}

// write runs the overlap guard and the store call under the registry lock so
// two concurrent writers cannot both pass the check.
func (s *TimeslotService) write(ctx context.Context, slot *models.Timeslot, excludeID string, store func(context.Context, sqlx.ExtContext, *models.Timeslot) error) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.Lock(ctx, tx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock timeslots")
	}
	existing, err := s.repo.List(ctx, tx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timeslots")
	}
	if err = scheduler.ValidateNoOverlap(slot.Range(), existing, excludeID); err != nil {
		return err
	}
	if err = store(ctx, tx, slot); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timeslot")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timeslot")
	}
	s.cache.Invalidate(ctx, draftCachePattern)
	return nil
}
