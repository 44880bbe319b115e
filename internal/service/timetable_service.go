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
	"github.com/lib/pq"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/export"
)

type timetableRepository interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	Lock(ctx context.Context, exec sqlx.ExtContext, id string) error
	ListClasses(ctx context.Context, exec sqlx.ExtContext, timetableID string) ([]models.ClassOffering, error)
	Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	AddClasses(ctx context.Context, exec sqlx.ExtContext, timetableID string, erps []string) (int, error)
	RemoveClasses(ctx context.Context, exec sqlx.ExtContext, timetableID string, erps []string) (int, error)
	Touch(ctx context.Context, exec sqlx.ExtContext, id string) error
	SetActive(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) (*models.ActivationSummary, error)
	Deactivate(ctx context.Context, exec sqlx.ExtContext, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

type tableRenderer interface {
	ContentType() string
	Render(table export.Table) ([]byte, error)
}

// TimetableService persists student timetables and keeps every stored set
// conflict free with its companions present.
type TimetableService struct {
	repo      timetableRepository
	offerings generatorOfferingReader
	terms     termReader
	timeslots timeslotLister
	tx        txProvider
	metrics   *MetricsService
	renderers map[models.ExportFormat]tableRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(
	repo timetableRepository,
	offerings generatorOfferingReader,
	terms termReader,
	timeslots timeslotLister,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:      repo,
		offerings: offerings,
		terms:     terms,
		timeslots: timeslots,
		tx:        tx,
		metrics:   metrics,
		renderers: map[models.ExportFormat]tableRenderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(),
		},
		validator: validate,
		logger:    logger,
	}
}

// List returns timetables visible to actor. Students only see their own.
func (s *TimetableService) List(ctx context.Context, actor *models.JWTClaims, filter models.TimetableFilter) ([]models.Timetable, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		filter.StudentERP = actor.StudentERP
	}
	timetables, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	page, size := normalizePage(filter.Page, filter.PageSize, 20, 100)
	return timetables, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a timetable with its classes.
func (s *TimetableService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Timetable, error) {
	timetable, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	classes, err := s.repo.ListClasses(ctx, nil, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable classes")
	}
	timetable.Classes = classes
	return timetable, nil
}

// Create stores a timetable built from explicit class ids. Required
// companions are added automatically; activation happens in the same
// transaction when requested.
func (s *TimetableService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateTimetableRequest) (_ *models.Timetable, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	studentERP, err := resolveStudent(actor, req.StudentERP)
	if err != nil {
		return nil, err
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnresolvedReference, fmt.Sprintf("term %s not found", req.TermID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	selected, err := s.loadSelection(ctx, req.TermID, req.Classes)
	if err != nil {
		return nil, err
	}
	catalog, detector, err := s.planningContext(ctx, selected)
	if err != nil {
		return nil, err
	}
	plan, err := scheduler.PlanMutation(nil, selected, nil, catalog, detector)
	if err != nil {
		s.recordConflict(err)
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	timetable := &models.Timetable{StudentERP: studentERP, TermID: req.TermID}
	if err = s.repo.Create(ctx, tx, timetable); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}
	if _, err = s.repo.AddClasses(ctx, tx, timetable.ID, plan.Added); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable classes")
	}
	if req.IsActive {
		if _, err = s.repo.SetActive(ctx, tx, timetable); err != nil {
			return nil, activationError(err)
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, activationError(err)
	}

	timetable.Classes = plan.Classes
	s.logger.Info("timetable created",
		zap.String("timetable_id", timetable.ID),
		zap.String("student_erp", studentERP),
		zap.Int("classes", len(plan.Classes)),
		zap.Bool("active", timetable.IsActive),
	)
	return timetable, nil
}

// Mutate adds and removes classes as one all-or-nothing change.
func (s *TimetableService) Mutate(ctx context.Context, actor *models.JWTClaims, id string, req models.MutateTimetableRequest) (_ *models.MutationSummary, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mutation payload")
	}
	if len(req.Add) == 0 && len(req.Remove) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "nothing to add or remove")
	}
	timetable, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	added, err := s.loadSelection(ctx, timetable.TermID, req.Add)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.Lock(ctx, tx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock timetable")
	}
	existing, err := s.repo.ListClasses(ctx, tx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable classes")
	}
	catalog, detector, err := s.planningContext(ctx, append(slices.Clone(existing), added...))
	if err != nil {
		return nil, err
	}
	plan, err := scheduler.PlanMutation(existing, added, lo.Uniq(req.Remove), catalog, detector)
	if err != nil {
		s.recordConflict(err)
		return nil, err
	}

	summary := &models.MutationSummary{Accepted: true, Added: plan.Added, Removed: plan.Removed}
	if summary.RowsRemoved, err = s.repo.RemoveClasses(ctx, tx, id, plan.Removed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove timetable classes")
	}
	if summary.RowsAdded, err = s.repo.AddClasses(ctx, tx, id, plan.Added); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add timetable classes")
	}
	if err = s.repo.Touch(ctx, tx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable changes")
	}
	return summary, nil
}

// Activate sets or clears the active flag. Activating deactivates any other
// active timetable of the same student and term atomically.
func (s *TimetableService) Activate(ctx context.Context, actor *models.JWTClaims, id string, req models.ActivateTimetableRequest) (_ *models.ActivationSummary, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activation payload")
	}
	timetable, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.Lock(ctx, tx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock timetable")
	}

	var summary *models.ActivationSummary
	if *req.IsActive {
		if summary, err = s.repo.SetActive(ctx, tx, timetable); err != nil {
			return nil, activationError(err)
		}
	} else {
		var changed int
		if changed, err = s.repo.Deactivate(ctx, tx, id); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate timetable")
		}
		summary = &models.ActivationSummary{TimetableID: id, IsActive: false, RowsMatched: 1, RowsChanged: changed}
	}
	if err = tx.Commit(); err != nil {
		return nil, activationError(err)
	}

	s.logger.Info("timetable activation changed",
		zap.String("timetable_id", id),
		zap.Bool("active", summary.IsActive),
		zap.Int("rows_changed", summary.RowsChanged),
	)
	return summary, nil
}

// Delete removes a timetable owned by actor.
func (s *TimetableService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}

var exportHeaders = []string{"Subject", "Class", "Day", "Time", "Classroom", "Teacher"}

// Export renders a timetable as CSV or PDF, one row per occupied cell in
// weekday then start time order.
func (s *TimetableService) Export(ctx context.Context, actor *models.JWTClaims, id string, format models.ExportFormat) (*models.ExportFile, error) {
	if format == "" {
		format = models.ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("unsupported export format %q", format))
	}
	timetable, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	slots, err := s.timeslots.List(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timeslots")
	}
	detector := scheduler.NewDetector(slots)

	type entry struct {
		day   int
		start int
		row   []string
	}
	var entries []entry
	for _, o := range timetable.Classes {
		for _, cell := range scheduler.Occupancy(o) {
			r, known := detector.Range(cell.TimeslotID)
			label := cell.TimeslotID
			if known {
				label = r.String()
			}
			entries = append(entries, entry{
				day:   slices.Index(models.WeekDays, cell.Day),
				start: r.Start,
				row:   []string{o.SubjectCode, o.ClassERP, string(cell.Day), label, o.ClassroomID, o.TeacherID},
			})
		}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		if a.day != b.day {
			return a.day - b.day
		}
		return a.start - b.start
	})

	table := export.Table{
		Title:   fmt.Sprintf("Timetable %s / %s", timetable.StudentERP, timetable.TermID),
		Headers: exportHeaders,
		Rows:    lo.Map(entries, func(e entry, _ int) []string { return e.row }),
	}
	body, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return &models.ExportFile{
		Filename:    fmt.Sprintf("timetable-%s.%s", timetable.ID, format),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// load fetches a timetable and checks that actor may touch it.
func (s *TimetableService) load(ctx context.Context, actor *models.JWTClaims, id string) (*models.Timetable, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	timetable, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if !actor.IsAdmin() && timetable.StudentERP != actor.StudentERP {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "timetable belongs to another student")
	}
	return timetable, nil
}

// loadSelection resolves class ids to offerings of termID in request order.
func (s *TimetableService) loadSelection(ctx context.Context, termID string, ids []string) ([]models.ClassOffering, error) {
	ids = lo.Uniq(lo.Map(ids, func(id string, _ int) string { return strings.TrimSpace(id) }))
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.offerings.FindByERPs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class offerings")
	}
	byID := lo.KeyBy(found, func(o models.ClassOffering) string { return o.ClassERP })

	selection := make([]models.ClassOffering, 0, len(ids))
	for _, id := range ids {
		o, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrUnresolvedReference, fmt.Sprintf("class offering %s not found", id))
		}
		if o.TermID != termID {
			return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("class offering %s belongs to term %s", id, o.TermID))
		}
		selection = append(selection, o)
	}
	return selection, nil
}

// planningContext builds the companion catalog and conflict detector for offerings.
func (s *TimetableService) planningContext(ctx context.Context, offerings []models.ClassOffering) (scheduler.Catalog, *scheduler.Detector, error) {
	catalog := scheduler.NewCatalog(offerings)
	if missing := catalog.MissingParents(offerings); len(missing) > 0 {
		parents, err := s.offerings.FindByERPs(ctx, missing)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load companion classes")
		}
		catalog.Add(parents...)
	}
	slots, err := s.timeslots.List(ctx, nil)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timeslots")
	}
	return catalog, scheduler.NewDetector(slots), nil
}

func (s *TimetableService) recordConflict(err error) {
	var conflict *models.ScheduleConflictError
	if errors.As(err, &conflict) {
		s.metrics.RecordScheduleConflict(conflict.Type)
	}
}

// resolveStudent decides whose timetable is being written.
func resolveStudent(actor *models.JWTClaims, requested string) (string, error) {
	if actor == nil {
		return "", appErrors.ErrUnauthorized
	}
	requested = strings.TrimSpace(requested)
	if actor.IsAdmin() {
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "student_erp is required")
		}
		return requested, nil
	}
	if requested != "" && requested != actor.StudentERP {
		return "", appErrors.Clone(appErrors.ErrForbidden, "students may only manage their own timetables")
	}
	return actor.StudentERP, nil
}

// activationError maps a race on the one-active-per-term index to CONFLICT.
func activationError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "another timetable was activated concurrently")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change timetable activation")
}
