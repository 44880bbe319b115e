package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

func newGeneratorService(repo *stubOfferingRepo, cache *CacheService, metrics *MetricsService, maxDrafts int) *TimetableGeneratorService {
	return NewTimetableGeneratorService(repo, &stubTermRepo{}, &stubTimeslotRepo{slots: testTimeslots()}, cache, metrics, nil, nil, TimetableGeneratorConfig{MaxDrafts: maxDrafts})
}

func draftIDs(d models.TimetableDraft) []string {
	ids := make([]string, 0, len(d.Classes))
	for _, o := range d.Classes {
		ids = append(ids, o.ClassERP)
	}
	return ids
}

func TestTimetableGeneratorServiceGenerate(t *testing.T) {
	repo := &stubOfferingRepo{offerings: []models.ClassOffering{
		offering("M1", "MATH", models.Monday, "s1"),
		offering("P1", "PHYS", models.Monday, "s2"),
		offering("C1", "CHEM", models.Tuesday, "s1"),
	}}
	metrics := NewMetricsService()
	svc := newGeneratorService(repo, nil, metrics, 10)

	resp, hit, err := svc.Generate(context.Background(), models.GenerateTimetablesRequest{TermID: "term-1", NumOfSubjects: 3})
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, resp.Drafts, 1)
	assert.ElementsMatch(t, []string{"M1", "P1", "C1"}, draftIDs(resp.Drafts[0]))
	assert.False(t, resp.Truncated)
	assert.Equal(t, uint64(1), metrics.Snapshot().GeneratorRuns)
}

func TestTimetableGeneratorServiceNoTimetables(t *testing.T) {
	repo := &stubOfferingRepo{offerings: []models.ClassOffering{
		offering("M1", "MATH", models.Monday, "s1"),
		offering("P1", "PHYS", models.Monday, "s1"),
		offering("P2", "PHYS", models.Monday, "x1"),
	}}
	svc := newGeneratorService(repo, nil, nil, 10)

	_, _, err := svc.Generate(context.Background(), models.GenerateTimetablesRequest{TermID: "term-1", NumOfSubjects: 2})
	assert.ErrorIs(t, err, appErrors.ErrNoTimetables)
}

func TestTimetableGeneratorServiceTruncatesAtLimit(t *testing.T) {
	repo := &stubOfferingRepo{offerings: []models.ClassOffering{
		offering("M1", "MATH", models.Monday, "s1"),
		offering("M2", "MATH", models.Tuesday, "s1"),
		offering("M3", "MATH", models.Wednesday, "s1"),
	}}
	svc := newGeneratorService(repo, nil, nil, 50)

	resp, _, err := svc.Generate(context.Background(), models.GenerateTimetablesRequest{TermID: "term-1", NumOfSubjects: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Drafts, 2)
	assert.True(t, resp.Truncated)

	resp, _, err = svc.Generate(context.Background(), models.GenerateTimetablesRequest{TermID: "term-1", NumOfSubjects: 1, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Drafts, 3)
	assert.False(t, resp.Truncated)
}

func TestTimetableGeneratorServiceLoadsCompanionsOutsidePool(t *testing.T) {
	lecture := offering("L", "BIO", models.Monday, "s2")
	lab := withParent(offering("T", "BIO-LAB", models.Monday, "s3"), "L")
	repo := &stubOfferingRepo{offerings: []models.ClassOffering{lecture, lab, offering("A1", "ART", models.Tuesday, "s2")}}
	svc := newGeneratorService(repo, nil, nil, 10)

	resp, _, err := svc.Generate(context.Background(), models.GenerateTimetablesRequest{TermID: "term-1", NumOfSubjects: 2, SubjectCodes: []string{"BIO-LAB", " ART "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ART", "BIO-LAB"}, repo.lastSubject)
	require.Len(t, repo.findByERPs, 1)
	assert.Equal(t, []string{"L"}, repo.findByERPs[0])
	require.Len(t, resp.Drafts, 1)
	assert.ElementsMatch(t, []string{"T", "L", "A1"}, draftIDs(resp.Drafts[0]))
}

func TestTimetableGeneratorServiceValidation(t *testing.T) {
	svc := newGeneratorService(&stubOfferingRepo{}, nil, nil, 10)

	_, _, err := svc.Generate(context.Background(), models.GenerateTimetablesRequest{TermID: "term-1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.Generate(context.Background(), models.GenerateTimetablesRequest{TermID: "term-1", NumOfSubjects: 1})
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgument)

	svc.terms = &stubTermRepo{missing: true}
	_, _, err = svc.Generate(context.Background(), models.GenerateTimetablesRequest{TermID: "term-9", NumOfSubjects: 1})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTimetableGeneratorServiceCachesDrafts(t *testing.T) {
	repo := &stubOfferingRepo{offerings: []models.ClassOffering{
		offering("M1", "MATH", models.Monday, "s1"),
		offering("P1", "PHYS", models.Monday, "s2"),
	}}
	cacheRepo := newMemoryCache()
	metrics := NewMetricsService()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, nil, true)
	svc := newGeneratorService(repo, cache, metrics, 10)
	req := models.GenerateTimetablesRequest{TermID: "term-1", NumOfSubjects: 2}

	first, hit, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, repo.listByTerm)
	assert.Equal(t, draftIDs(first.Drafts[0]), draftIDs(second.Drafts[0]))

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)

	// a registry change drops every cached draft
	require.NoError(t, NewTimeslotService(&stubTimeslotRepo{slots: testTimeslots()}, nil, cache, nil, nil).Delete(context.Background(), "x1"))
	_, hit, err = svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.listByTerm)
}

func TestDraftCacheKeyIsOrderInsensitive(t *testing.T) {
	a := draftCacheKey("term-1", 2, normalizeCodes([]string{"B", "A", "A"}), 10)
	b := draftCacheKey("term-1", 2, normalizeCodes([]string{"A", "B"}), 10)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, draftCacheKey("term-1", 3, []string{"A", "B"}, 10))
}
