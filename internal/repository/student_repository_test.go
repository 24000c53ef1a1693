package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/school-api/internal/models"
	appErrors "github.com/edusuite/school-api/pkg/errors"
)

func sampleStudent() *models.Student {
	return &models.Student{
		AdmissionNo:  "20260042",
		FirstName:    "Asha",
		LastName:     "Verma",
		Gender:       "female",
		DateOfBirth:  time.Date(2015, time.June, 2, 0, 0, 0, 0, time.UTC),
		ClassID:      "c5",
		SectionID:    "sec-a",
		AcademicYear: "2026-27",
		Guardians:    models.GuardianList{{Relation: "father", Name: "R Verma"}},
		Active:       true,
	}
}

func sampleAccount() *models.User {
	return &models.User{
		Username:     "asha.verma",
		Email:        "asha.verma@school.com",
		PasswordHash: "hash",
		FullName:     "Asha Verma",
		Role:         models.RoleStudent,
		Active:       true,
	}
}

func TestStudentRepositoryCreateWithAccount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO students`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO section_members`)).
		WithArgs(sqlmock.AnyArg(), "sec-a", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := sampleStudent()
	user := sampleAccount()
	require.NoError(t, repo.CreateWithAccount(context.Background(), student, user))

	assert.NotEmpty(t, student.ID)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, user.ID, student.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateWithAccountDuplicateAdmissionNo(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO students`)).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateWithAccount(context.Background(), sampleStudent(), sampleAccount())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateWithAccountRollsBackOnAccountFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateWithAccount(context.Background(), sampleStudent(), sampleAccount())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateWithSectionMovesMembership(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE students SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM section_members WHERE student_id = $1`)).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO section_members`)).
		WithArgs(sqlmock.AnyArg(), "sec-b", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := sampleStudent()
	student.ID = "s1"
	student.SectionID = "sec-b"
	require.NoError(t, repo.UpdateWithSection(context.Background(), student, "sec-a"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateWithSectionKeepsMembership(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE students SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := sampleStudent()
	student.ID = "s1"
	require.NoError(t, repo.UpdateWithSection(context.Background(), student, "sec-a"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteWithAccount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM section_members WHERE student_id = $1`)).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM students WHERE id = $1`)).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteWithAccount(context.Background(), "s1", "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryLastAdmissionNumberEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT admission_no FROM students ORDER BY created_at DESC LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"admission_no"}))

	last, err := repo.LastAdmissionNumber(context.Background())
	require.NoError(t, err)
	assert.Empty(t, last)
	require.NoError(t, mock.ExpectationsWereMet())
}
