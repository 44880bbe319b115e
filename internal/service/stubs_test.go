package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// hourly 08:00-12:00 plus an off-grid 08:30-09:30 slot
func testTimeslots() []models.Timeslot {
	hour := 3600
	return []models.Timeslot{
		{ID: "s1", StartSeconds: 8 * hour, EndSeconds: 9 * hour, SlotNumber: 1},
		{ID: "s2", StartSeconds: 9 * hour, EndSeconds: 10 * hour, SlotNumber: 2},
		{ID: "s3", StartSeconds: 10 * hour, EndSeconds: 11 * hour, SlotNumber: 3},
		{ID: "x1", StartSeconds: 8*hour + 1800, EndSeconds: 9*hour + 1800, SlotNumber: 9},
	}
}

func offering(erp, subject string, day models.WeekDay, slot string) models.ClassOffering {
	return models.ClassOffering{
		ClassERP: erp, SubjectCode: subject, TermID: "term-1", TeacherID: "t-" + erp, ClassroomID: "r-" + erp,
		Semester: "FALL", Day1: day, Timeslot1: slot, Day2: day, Timeslot2: slot,
	}
}

func withParent(o models.ClassOffering, parent string) models.ClassOffering {
	o.ParentClassERP = &parent
	return o
}

type stubTimeslotRepo struct {
	slots   []models.Timeslot
	refs    int
	locked  bool
	created []models.Timeslot
	updated []models.Timeslot
	deleted []string
	listErr error
}

func (s *stubTimeslotRepo) List(ctx context.Context, exec sqlx.ExtContext) ([]models.Timeslot, error) {
	return s.slots, s.listErr
}

func (s *stubTimeslotRepo) FindByID(ctx context.Context, id string) (*models.Timeslot, error) {
	for _, slot := range s.slots {
		if slot.ID == id {
			copied := slot
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubTimeslotRepo) Lock(ctx context.Context, exec sqlx.ExtContext) error {
	s.locked = true
	return nil
}

func (s *stubTimeslotRepo) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.Timeslot) error {
	slot.ID = "new"
	s.created = append(s.created, *slot)
	return nil
}

func (s *stubTimeslotRepo) Update(ctx context.Context, exec sqlx.ExtContext, slot *models.Timeslot) error {
	s.updated = append(s.updated, *slot)
	return nil
}

func (s *stubTimeslotRepo) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubTimeslotRepo) CountReferences(ctx context.Context, id string) (int, error) {
	return s.refs, nil
}

type stubTermRepo struct {
	missing bool
}

func (s *stubTermRepo) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if s.missing {
		return nil, sql.ErrNoRows
	}
	return &models.Term{ID: id, Name: "Fall"}, nil
}

type stubOfferingRepo struct {
	offerings   []models.ClassOffering
	created     []models.ClassOffering
	updated     []models.ClassOffering
	deleted     []string
	children    int
	timetables  int
	listByTerm  int
	findByERPs  [][]string
	lastSubject []string
}

func (s *stubOfferingRepo) List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOffering, int, error) {
	return s.offerings, len(s.offerings), nil
}

func (s *stubOfferingRepo) ListByTerm(ctx context.Context, termID string, subjectCodes []string) ([]models.ClassOffering, error) {
	s.listByTerm++
	s.lastSubject = subjectCodes
	var out []models.ClassOffering
	for _, o := range s.offerings {
		if o.TermID != termID {
			continue
		}
		if len(subjectCodes) > 0 && !contains(subjectCodes, o.SubjectCode) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *stubOfferingRepo) FindByERP(ctx context.Context, erp string) (*models.ClassOffering, error) {
	for _, o := range s.offerings {
		if o.ClassERP == erp {
			copied := o
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubOfferingRepo) FindByERPs(ctx context.Context, erps []string) ([]models.ClassOffering, error) {
	s.findByERPs = append(s.findByERPs, erps)
	var out []models.ClassOffering
	for _, o := range s.offerings {
		if contains(erps, o.ClassERP) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubOfferingRepo) Create(ctx context.Context, offering *models.ClassOffering) error {
	s.created = append(s.created, *offering)
	return nil
}

func (s *stubOfferingRepo) Update(ctx context.Context, offering *models.ClassOffering) error {
	s.updated = append(s.updated, *offering)
	return nil
}

func (s *stubOfferingRepo) Delete(ctx context.Context, erp string) error {
	s.deleted = append(s.deleted, erp)
	return nil
}

func (s *stubOfferingRepo) CountDependents(ctx context.Context, erp string) (int, int, error) {
	return s.children, s.timetables, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// memoryCache mimics the redis repository with JSON round trips.
type memoryCache struct {
	items       map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}
