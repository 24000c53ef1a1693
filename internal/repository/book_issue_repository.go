package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusuite/school-api/internal/models"
)

// BookIssueRepository provides database access for lending records.
type BookIssueRepository struct {
	db *sqlx.DB
}

// NewBookIssueRepository creates a new instance of BookIssueRepository.
func NewBookIssueRepository(db *sqlx.DB) *BookIssueRepository {
	return &BookIssueRepository{db: db}
}

const issueColumns = `i.id, i.book_id, i.issued_to, i.issued_by, i.issue_date, i.due_date, i.return_date,
	i.status, i.fine, i.remarks, i.created_at, i.updated_at`

const issueDetailColumns = issueColumns + `, b.title AS book_title, b.author AS book_author,
	b.book_id AS book_code, u.full_name AS borrower_name`

const issueJoin = ` FROM book_issues i JOIN books b ON b.id = i.book_id JOIN users u ON u.id = i.issued_to`

// List returns lending records matching the filter with total count.
func (r *BookIssueRepository) List(ctx context.Context, filter models.BookIssueFilter) ([]models.BookIssueDetail, int, error) {
	base := issueJoin + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.BookID != "" {
		conditions = append(conditions, fmt.Sprintf("i.book_id = $%d", len(args)+1))
		args = append(args, filter.BookID)
	}
	if filter.IssuedTo != "" {
		conditions = append(conditions, fmt.Sprintf("i.issued_to = $%d", len(args)+1))
		args = append(args, filter.IssuedTo)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Overdue {
		conditions = append(conditions, fmt.Sprintf("i.due_date < $%d AND i.status NOT IN ('returned', 'lost')", len(args)+1))
		args = append(args, time.Now().UTC())
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY i.issue_date DESC LIMIT %d OFFSET %d`, issueDetailColumns, base+clause, size, offset)
	var issues []models.BookIssueDetail
	if err := r.db.SelectContext(ctx, &issues, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list book issues: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count book issues: %w", err)
	}
	return issues, total, nil
}

// FindByID returns a lending record with book and borrower context.
func (r *BookIssueRepository) FindByID(ctx context.Context, id string) (*models.BookIssueDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE i.id = $1 LIMIT 1`, issueDetailColumns, issueJoin)
	var issue models.BookIssueDetail
	if err := r.db.GetContext(ctx, &issue, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find book issue: %w", err)
	}
	return &issue, nil
}

// Create inserts a lending record.
func (r *BookIssueRepository) Create(ctx context.Context, issue *models.BookIssue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now
	const query = `INSERT INTO book_issues (id, book_id, issued_to, issued_by, issue_date, due_date, return_date, status, fine, remarks, created_at, updated_at)
	VALUES (:id, :book_id, :issued_to, :issued_by, :issue_date, :due_date, :return_date, :status, :fine, :remarks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, issue); err != nil {
		return fmt.Errorf("create book issue: %w", err)
	}
	return nil
}

// Update persists status, return date, fine and remarks for a lending record.
func (r *BookIssueRepository) Update(ctx context.Context, issue *models.BookIssue) error {
	issue.UpdatedAt = time.Now().UTC()
	const query = `UPDATE book_issues SET status = :status, return_date = :return_date, fine = :fine,
	remarks = :remarks, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, issue); err != nil {
		return fmt.Errorf("update book issue: %w", err)
	}
	return nil
}

// UpdateFine persists only a recomputed fine.
func (r *BookIssueRepository) UpdateFine(ctx context.Context, id string, fine float64) error {
	const query = `UPDATE book_issues SET fine = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, fine, time.Now().UTC()); err != nil {
		return fmt.Errorf("update book issue fine: %w", err)
	}
	return nil
}

// Delete removes a lending record.
func (r *BookIssueRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM book_issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book issue: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasActiveIssue reports whether the user already holds an unreturned copy of
// the book.
func (r *BookIssueRepository) HasActiveIssue(ctx context.Context, bookID, userID string) (bool, error) {
	const query = `SELECT 1 FROM book_issues WHERE book_id = $1 AND issued_to = $2 AND status NOT IN ('returned', 'lost') LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, bookID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active issue: %w", err)
	}
	return true, nil
}
