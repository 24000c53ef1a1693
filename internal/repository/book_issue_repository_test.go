package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/school-api/internal/models"
)

func issueRows() *sqlmock.Rows {
	now := time.Now().UTC()
	due := now.AddDate(0, 0, 14)
	return sqlmock.NewRows([]string{
		"id", "book_id", "issued_to", "issued_by", "issue_date", "due_date", "return_date",
		"status", "fine", "remarks", "created_at", "updated_at",
		"book_title", "book_author", "book_code", "borrower_name",
	}).AddRow("i1", "b1", "u1", "lib1", now, due, nil,
		"issued", 0.0, nil, now, now,
		"Go in Action", "W. Kennedy", "BK-00000001", "Asha Verma")
}

func TestBookIssueRepositoryFindByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookIssueRepository(db)

	mock.ExpectQuery(`SELECT i\.id, .+ FROM book_issues i JOIN books b ON b\.id = i\.book_id JOIN users u ON u\.id = i\.issued_to WHERE i\.id = \$1 LIMIT 1`).
		WithArgs("i1").
		WillReturnRows(issueRows())

	issue, err := repo.FindByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, "Go in Action", issue.BookTitle)
	assert.Equal(t, models.BookIssueStatusIssued, issue.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookIssueRepositoryListOverdueFilter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookIssueRepository(db)

	mock.ExpectQuery(`SELECT i\.id, .+ WHERE 1=1 AND i\.due_date < \$1 AND i\.status NOT IN \('returned', 'lost'\) ORDER BY i\.issue_date DESC LIMIT 20 OFFSET 0`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(issueRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM book_issues i .+ WHERE 1=1 AND i\.due_date < \$1 AND i\.status NOT IN \('returned', 'lost'\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	issues, total, err := repo.List(context.Background(), models.BookIssueFilter{Overdue: true})
	require.NoError(t, err)
	assert.Len(t, issues, 1)
	assert.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookIssueRepositoryListByBorrowerAndStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookIssueRepository(db)

	status := models.BookIssueStatusIssued
	mock.ExpectQuery(`SELECT i\.id, .+ WHERE 1=1 AND i\.issued_to = \$1 AND i\.status = \$2 ORDER BY i\.issue_date DESC LIMIT 20 OFFSET 0`).
		WithArgs("u1", status).
		WillReturnRows(issueRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) .+ WHERE 1=1 AND i\.issued_to = \$1 AND i\.status = \$2`).
		WithArgs("u1", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, total, err := repo.List(context.Background(), models.BookIssueFilter{IssuedTo: "u1", Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookIssueRepositoryCreateAssignsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookIssueRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO book_issues`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	issue := &models.BookIssue{
		BookID:    "b1",
		IssuedTo:  "u1",
		IssuedBy:  "lib1",
		IssueDate: time.Now().UTC(),
		DueDate:   time.Now().UTC().AddDate(0, 0, 14),
		Status:    models.BookIssueStatusIssued,
	}
	require.NoError(t, repo.Create(context.Background(), issue))
	assert.NotEmpty(t, issue.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookIssueRepositoryUpdateFine(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookIssueRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE book_issues SET fine = $2, updated_at = $3 WHERE id = $1`)).
		WithArgs("i1", 15.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateFine(context.Background(), "i1", 15))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookIssueRepositoryDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookIssueRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM book_issues WHERE id = $1`)).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "gone")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookIssueRepositoryHasActiveIssue(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookIssueRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM book_issues WHERE book_id = $1 AND issued_to = $2 AND status NOT IN ('returned', 'lost') LIMIT 1`)).
		WithArgs("b1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	held, err := repo.HasActiveIssue(context.Background(), "b1", "u1")
	require.NoError(t, err)
	assert.True(t, held)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM book_issues`)).
		WithArgs("b1", "u2").
		WillReturnError(sql.ErrNoRows)

	held, err = repo.HasActiveIssue(context.Background(), "b1", "u2")
	require.NoError(t, err)
	assert.False(t, held)
	require.NoError(t, mock.ExpectationsWereMet())
}
