package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type classOfferingRepository interface {
	List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOffering, int, error)
	ListByTerm(ctx context.Context, termID string, subjectCodes []string) ([]models.ClassOffering, error)
	FindByERP(ctx context.Context, erp string) (*models.ClassOffering, error)
	FindByERPs(ctx context.Context, erps []string) ([]models.ClassOffering, error)
	Create(ctx context.Context, offering *models.ClassOffering) error
	Update(ctx context.Context, offering *models.ClassOffering) error
	Delete(ctx context.Context, erp string) error
	CountDependents(ctx context.Context, erp string) (int, int, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type timeslotLister interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Timeslot, error)
}

// ClassOfferingService manages class offerings and answers occupancy and
// conflict questions about them.
type ClassOfferingService struct {
	repo      classOfferingRepository
	terms     termReader
	timeslots timeslotLister
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassOfferingService constructs a ClassOfferingService.
func NewClassOfferingService(repo classOfferingRepository, terms termReader, timeslots timeslotLister, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassOfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassOfferingService{repo: repo, terms: terms, timeslots: timeslots, cache: cache, validator: validate, logger: logger}
}

// List returns offerings matching filter.
func (s *ClassOfferingService) List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOffering, *models.Pagination, error) {
	offerings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class offerings")
	}
	page, size := normalizePage(filter.Page, filter.PageSize, 50, 200)
	return offerings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single offering.
func (s *ClassOfferingService) Get(ctx context.Context, erp string) (*models.ClassOffering, error) {
	offering, err := s.repo.FindByERP(ctx, erp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class offering")
	}
	return offering, nil
}

// Create stores a new offering after checking its references.
func (s *ClassOfferingService) Create(ctx context.Context, req models.ClassOfferingRequest) (*models.ClassOffering, error) {
	offering, err := s.buildOffering(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByERP(ctx, offering.ClassERP); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("class offering %s already exists", offering.ClassERP))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class offering")
	}
	if err := s.checkReferences(ctx, offering); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class offering")
	}
	s.cache.Invalidate(ctx, draftCachePattern)
	s.logger.Info("class offering created", zap.String("class_erp", offering.ClassERP), zap.String("term_id", offering.TermID))
	return offering, nil
}

// Update replaces the mutable fields of an offering.
func (s *ClassOfferingService) Update(ctx context.Context, erp string, req models.ClassOfferingRequest) (*models.ClassOffering, error) {
	req.ClassERP = erp
	offering, err := s.buildOffering(req)
	if err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, erp)
	if err != nil {
		return nil, err
	}
	offering.CreatedAt = current.CreatedAt
	if err := s.checkDependents(ctx, current, offering); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, offering); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class offering")
	}
	s.cache.Invalidate(ctx, draftCachePattern)
	return offering, nil
}

// checkDependents refuses edits that would strand companions or stored
// timetables: children must stay in their parent's term, and timetables keep
// the term, cells and companion they were validated against.
func (s *ClassOfferingService) checkDependents(ctx context.Context, current, next *models.ClassOffering) error {
	termChanged := current.TermID != next.TermID
	cellsChanged := !slices.Equal(scheduler.Occupancy(*current), scheduler.Occupancy(*next))
	parentChanged := current.Parent() != next.Parent()
	if !termChanged && !cellsChanged && !parentChanged {
		return nil
	}
	children, timetables, err := s.repo.CountDependents(ctx, current.ClassERP)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class offering usage")
	}
	if termChanged && (children > 0 || timetables > 0) {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot move class offering to term %s: companion of %d classes and used by %d timetables", next.TermID, children, timetables))
	}
	if timetables > 0 && (cellsChanged || parentChanged) {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot reschedule class offering used by %d timetables", timetables))
	}
	return nil
}

// Delete removes an offering nothing else depends on.
func (s *ClassOfferingService) Delete(ctx context.Context, erp string) error {
	if _, err := s.Get(ctx, erp); err != nil {
		return err
	}
	children, timetables, err := s.repo.CountDependents(ctx, erp)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class offering usage")
	}
	if children > 0 || timetables > 0 {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("class offering is companion of %d classes and used by %d timetables", children, timetables))
	}
	if err := s.repo.Delete(ctx, erp); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class offering")
	}
	s.cache.Invalidate(ctx, draftCachePattern)
	return nil
}

// Occupancy returns the cells held by an offering with their time ranges.
func (s *ClassOfferingService) Occupancy(ctx context.Context, erp string) ([]models.OccupancyCell, error) {
	offering, err := s.Get(ctx, erp)
	if err != nil {
		return nil, err
	}
	detector, err := s.detector(ctx)
	if err != nil {
		return nil, err
	}
	cells := scheduler.Occupancy(*offering)
	for i := range cells {
		if r, ok := detector.Range(cells[i].TimeslotID); ok {
			cells[i].Range = &r
		}
	}
	return cells, nil
}

// CheckConflict reports whether two offerings collide.
func (s *ClassOfferingService) CheckConflict(ctx context.Context, req models.ConflictCheckRequest) (*models.ConflictCheckResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	a, err := s.Get(ctx, req.ClassA)
	if err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, req.ClassB)
	if err != nil {
		return nil, err
	}
	detector, err := s.detector(ctx)
	if err != nil {
		return nil, err
	}
	shared := detector.SharedCells(*a, *b)
	return &models.ConflictCheckResult{
		ClassA:     a.ClassERP,
		ClassB:     b.ClassERP,
		Conflicts:  len(shared) > 0,
		Companions: scheduler.Companions(*a, *b),
		Shared:     shared,
	}, nil
}

func (s *ClassOfferingService) detector(ctx context.Context) (*scheduler.Detector, error) {
	slots, err := s.timeslots.List(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timeslots")
	}
	return scheduler.NewDetector(slots), nil
}

func (s *ClassOfferingService) buildOffering(req models.ClassOfferingRequest) (*models.ClassOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class offering payload")
	}
	day1, ok := models.ParseWeekDay(req.Day1)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("unknown day %q", req.Day1))
	}
	day2, slot2 := day1, req.Timeslot1
	if strings.TrimSpace(req.Day2) != "" || strings.TrimSpace(req.Timeslot2) != "" {
		if day2, ok = models.ParseWeekDay(req.Day2); !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("unknown day %q", req.Day2))
		}
		if slot2 = strings.TrimSpace(req.Timeslot2); slot2 == "" {
			return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "timeslot_2 is required when day_2 is set")
		}
	}

	offering := &models.ClassOffering{
		ClassERP:    strings.TrimSpace(req.ClassERP),
		SubjectCode: strings.TrimSpace(req.SubjectCode),
		TermID:      req.TermID,
		TeacherID:   req.TeacherID,
		ClassroomID: req.ClassroomID,
		Semester:    req.Semester,
		Day1:        day1,
		Timeslot1:   strings.TrimSpace(req.Timeslot1),
		Day2:        day2,
		Timeslot2:   slot2,
	}
	if req.ParentClassERP != nil {
		if parent := strings.TrimSpace(*req.ParentClassERP); parent != "" {
			offering.ParentClassERP = &parent
		}
	}
	return offering, nil
}

// checkReferences verifies the term, both timeslots and the companion link.
func (s *ClassOfferingService) checkReferences(ctx context.Context, offering *models.ClassOffering) error {
	if _, err := s.terms.FindByID(ctx, offering.TermID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnresolvedReference, fmt.Sprintf("term %s not found", offering.TermID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	detector, err := s.detector(ctx)
	if err != nil {
		return err
	}
	for _, id := range []string{offering.Timeslot1, offering.Timeslot2} {
		if _, ok := detector.Range(id); !ok {
			return appErrors.Clone(appErrors.ErrUnresolvedReference, fmt.Sprintf("timeslot %s not found", id))
		}
	}

	if offering.Parent() == "" {
		return nil
	}
	siblings, err := s.repo.ListByTerm(ctx, offering.TermID, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term offerings")
	}
	catalog := scheduler.NewCatalog(siblings)
	if _, ok := catalog[offering.Parent()]; !ok {
		// The parent may live in another term; load it so the term mismatch is reported.
		parents, err := s.repo.FindByERPs(ctx, []string{offering.Parent()})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load companion class")
		}
		catalog.Add(parents...)
	}
	catalog.Add(*offering)
	return catalog.ValidateParent(*offering)
}

func normalizePage(page, size, defaultSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxSize {
		size = defaultSize
	}
	return page, size
}
