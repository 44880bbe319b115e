package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

const (
	draftCachePrefix  = "timetable:drafts:"
	draftCachePattern = draftCachePrefix + "*"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type generatorOfferingReader interface {
	ListByTerm(ctx context.Context, termID string, subjectCodes []string) ([]models.ClassOffering, error)
	FindByERPs(ctx context.Context, erps []string) ([]models.ClassOffering, error)
}

// TimetableGeneratorConfig governs generator behaviour.
type TimetableGeneratorConfig struct {
	MaxDrafts int
	CacheTTL  time.Duration
}

// TimetableGeneratorService enumerates conflict-free timetable drafts for a term.
type TimetableGeneratorService struct {
	offerings generatorOfferingReader
	terms     termReader
	timeslots timeslotLister
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableGeneratorConfig
	now       func() time.Time
}

// NewTimetableGeneratorService wires generator dependencies.
func NewTimetableGeneratorService(
	offerings generatorOfferingReader,
	terms termReader,
	timeslots timeslotLister,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableGeneratorConfig,
) *TimetableGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxDrafts <= 0 {
		cfg.MaxDrafts = 50
	}
	return &TimetableGeneratorService{
		offerings: offerings,
		terms:     terms,
		timeslots: timeslots,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate returns up to limit drafts. The boolean reports a cache hit.
// A search that finds nothing yields NO_TIMETABLES.
func (s *TimetableGeneratorService) Generate(ctx context.Context, req models.GenerateTimetablesRequest) (*models.GenerateTimetablesResponse, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}
	limit := req.Limit
	if limit <= 0 || limit > s.cfg.MaxDrafts {
		limit = s.cfg.MaxDrafts
	}
	subjects := normalizeCodes(req.SubjectCodes)

	key := draftCacheKey(req.TermID, req.NumOfSubjects, subjects, limit)
	var cached models.GenerateTimetablesResponse
	if s.cache.Get(ctx, key, &cached) {
		if len(cached.Drafts) == 0 {
			return nil, true, noTimetables(req.NumOfSubjects)
		}
		return &cached, true, nil
	}

	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	loadStart := time.Now()
	pool, err := s.offerings.ListByTerm(ctx, req.TermID, subjects)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class offerings")
	}
	slots, err := s.timeslots.List(ctx, nil)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timeslots")
	}
	catalog := scheduler.NewCatalog(pool)
	if missing := catalog.MissingParents(pool); len(missing) > 0 {
		parents, err := s.offerings.FindByERPs(ctx, missing)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load companion classes")
		}
		catalog.Add(parents...)
	}
	s.metrics.ObserveDBQuery("generator_pool", time.Since(loadStart))

	start := time.Now()
	seq, err := scheduler.Generate(scheduler.GenerateInput{
		TermID:      req.TermID,
		Pool:        pool,
		NumSubjects: req.NumOfSubjects,
		Catalog:     catalog,
		Detector:    scheduler.NewDetector(slots),
	})
	if err != nil {
		s.metrics.ObserveGeneratorRun(GeneratorOutcomeError, 0, time.Since(start))
		return nil, false, err
	}

	resp := &models.GenerateTimetablesResponse{
		TermID:        req.TermID,
		NumOfSubjects: req.NumOfSubjects,
		Drafts:        make([]models.TimetableDraft, 0, min(limit, 16)),
	}
	for draft := range seq {
		if err := ctx.Err(); err != nil {
			s.metrics.ObserveGeneratorRun(GeneratorOutcomeError, len(resp.Drafts), time.Since(start))
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable generation cancelled")
		}
		if len(resp.Drafts) == limit {
			resp.Truncated = true
			break
		}
		resp.Drafts = append(resp.Drafts, draft)
	}
	resp.GeneratedAt = s.now()

	elapsed := time.Since(start)
	outcome := GeneratorOutcomeDrafts
	switch {
	case len(resp.Drafts) == 0:
		outcome = GeneratorOutcomeEmpty
	case resp.Truncated:
		outcome = GeneratorOutcomeTruncated
	}
	s.metrics.ObserveGeneratorRun(outcome, len(resp.Drafts), elapsed)
	s.logger.Info("timetable drafts generated",
		zap.String("term_id", req.TermID),
		zap.Int("num_of_subjects", req.NumOfSubjects),
		zap.Int("pool", len(pool)),
		zap.Int("drafts", len(resp.Drafts)),
		zap.Bool("truncated", resp.Truncated),
		zap.Duration("elapsed", elapsed),
	)

	s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	if len(resp.Drafts) == 0 {
		return nil, false, noTimetables(req.NumOfSubjects)
	}
	return resp, false, nil
}

func noTimetables(numSubjects int) error {
	return appErrors.Clone(appErrors.ErrNoTimetables, fmt.Sprintf("no conflict-free timetable with %d subjects exists", numSubjects))
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func draftCacheKey(termID string, numSubjects int, subjects []string, limit int) string {
	return fmt.Sprintf("%s%s:%d:%d:%s", draftCachePrefix, termID, numSubjects, limit, strings.Join(subjects, ","))
}
