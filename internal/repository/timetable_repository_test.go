package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

func TestTimetableRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	active := true
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_erp, term_id, is_active, created_at, updated_at FROM timetables WHERE 1=1 AND student_erp = $1 AND is_active = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("ERP-1", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_erp", "term_id", "is_active", "created_at", "updated_at"}).
			AddRow("tt-1", "ERP-1", "term-1", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetables WHERE 1=1 AND student_erp = $1 AND is_active = $2")).
		WithArgs("ERP-1", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TimetableFilter{StudentERP: "ERP-1", IsActive: &active})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.True(t, list[0].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateWithClasses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO timetables").
		WithArgs(sqlmock.AnyArg(), "ERP-1", "term-1", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	insert := regexp.QuoteMeta("INSERT INTO timetable_classes (timetable_id, class_erp) VALUES ($1, $2) ON CONFLICT DO NOTHING")
	mock.ExpectExec(insert).WithArgs(sqlmock.AnyArg(), "CS101-A").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WithArgs(sqlmock.AnyArg(), "MA201-B").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	timetable := &models.Timetable{StudentERP: "ERP-1", TermID: "term-1"}
	require.NoError(t, repo.Create(ctx, tx, timetable))
	added, err := repo.AddClasses(ctx, tx, timetable.ID, []string{"CS101-A", "MA201-B"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, timetable.ID)
	assert.Equal(t, 1, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryRemoveClasses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_classes WHERE timetable_id = $1 AND class_erp = ANY($2)")).
		WithArgs("tt-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	removed, err := repo.RemoveClasses(context.Background(), nil, "tt-1", []string{"CS101-A", "MA201-B"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = repo.RemoveClasses(context.Background(), nil, "tt-1", nil)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositorySetActiveReplacesPrevious(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetables SET is_active = FALSE, updated_at = $3 WHERE student_erp = $1 AND term_id = $2 AND is_active = TRUE AND id <> $4")).
		WithArgs("ERP-1", "term-1", sqlmock.AnyArg(), "tt-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetables SET is_active = TRUE, updated_at = $2 WHERE id = $1 AND is_active = FALSE")).
		WithArgs("tt-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	timetable := &models.Timetable{ID: "tt-2", StudentERP: "ERP-1", TermID: "term-1"}
	summary, err := repo.SetActive(ctx, tx, timetable)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 2, summary.RowsMatched)
	assert.Equal(t, 2, summary.RowsChanged)
	assert.True(t, timetable.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositorySetActiveWithoutPrevious(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("UPDATE timetables SET is_active = FALSE").
		WithArgs("ERP-1", "term-1", sqlmock.AnyArg(), "tt-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE timetables SET is_active = TRUE").
		WithArgs("tt-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := repo.SetActive(context.Background(), nil, &models.Timetable{ID: "tt-1", StudentERP: "ERP-1", TermID: "term-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RowsMatched)
	assert.Equal(t, 1, summary.RowsChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetables SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active = TRUE")).
		WithArgs("tt-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Deactivate(context.Background(), nil, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryLock(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM timetables WHERE id = $1 FOR UPDATE")).
		WithArgs("tt-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tt-1"))

	require.NoError(t, repo.Lock(context.Background(), nil, "tt-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
