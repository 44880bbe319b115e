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

var classOfferingRowColumns = []string{"class_erp", "subject_code", "term_id", "teacher_id", "classroom_id", "semester", "parent_class_erp", "day_1", "timeslot_1", "day_2", "timeslot_2", "created_at", "updated_at"}

func TestClassOfferingRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_erp, subject_code, term_id, teacher_id, classroom_id, semester, parent_class_erp, day_1, timeslot_1, day_2, timeslot_2, created_at, updated_at FROM class_offerings WHERE 1=1 AND term_id = $1 AND subject_code = $2 ORDER BY subject_code ASC, class_erp ASC LIMIT 50 OFFSET 0")).
		WithArgs("term-1", "CS101").
		WillReturnRows(sqlmock.NewRows(classOfferingRowColumns).
			AddRow("CS101-A", "CS101", "term-1", "t1", "r1", "FALL", nil, "MONDAY", "s1", "WEDNESDAY", "s1", now, now).
			AddRow("CS101-L", "CS101", "term-1", "t1", "lab", "FALL", "CS101-A", "FRIDAY", "s3", "FRIDAY", "s3", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_offerings WHERE 1=1 AND term_id = $1 AND subject_code = $2")).
		WithArgs("term-1", "CS101").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	list, total, err := repo.List(context.Background(), models.ClassOfferingFilter{TermID: "term-1", SubjectCode: "CS101"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, "", list[0].Parent())
	assert.Equal(t, "CS101-A", list[1].Parent())
	assert.Equal(t, models.Wednesday, list[0].Day2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassOfferingRepositoryListByTermWithSubjects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_offerings WHERE term_id = $1 AND subject_code = ANY($2) ORDER BY subject_code ASC, class_erp ASC")).
		WithArgs("term-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(classOfferingRowColumns))

	list, err := repo.ListByTerm(context.Background(), "term-1", []string{"CS101", "MA201"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassOfferingRepositoryFindByERPsSkipsEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	list, err := repo.FindByERPs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassOfferingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	parent := "CS101-A"
	mock.ExpectExec("INSERT INTO class_offerings").
		WithArgs("CS101-L", "CS101", "term-1", "t1", "lab", "FALL", "CS101-A", "FRIDAY", "s3", "FRIDAY", "s3", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.ClassOffering{
		ClassERP: "CS101-L", SubjectCode: "CS101", TermID: "term-1", TeacherID: "t1", ClassroomID: "lab", Semester: "FALL",
		ParentClassERP: &parent, Day1: models.Friday, Timeslot1: "s3", Day2: models.Friday, Timeslot2: "s3",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassOfferingRepositoryCountDependents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_offerings WHERE parent_class_erp = $1")).
		WithArgs("CS101-A").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetable_classes WHERE class_erp = $1")).
		WithArgs("CS101-A").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	children, timetables, err := repo.CountDependents(context.Background(), "CS101-A")
	require.NoError(t, err)
	assert.Equal(t, 1, children)
	assert.Equal(t, 4, timetables)
	assert.NoError(t, mock.ExpectationsWereMet())
}
