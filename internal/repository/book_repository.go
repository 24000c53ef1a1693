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

// BookRepository provides database access for the library catalog.
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository creates a new instance of BookRepository.
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

const bookColumns = `id, book_id, title, author, isbn, category, quantity, shelf_location, publisher, created_at, updated_at`

// List returns catalog entries matching the filter with total count.
func (r *BookRepository) List(ctx context.Context, filter models.BookFilter) ([]models.Book, int, error) {
	base := `FROM books WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(author) LIKE $%d OR book_id LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY title ASC LIMIT %d OFFSET %d`, bookColumns, base, size, offset)
	var books []models.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}
	return books, total, nil
}

// FindByID returns a book by surrogate id or public BK- token.
func (r *BookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = $1 OR book_id = $1 LIMIT 1`, bookColumns)
	var book models.Book
	if err := r.db.GetContext(ctx, &book, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find book by id: %w", err)
	}
	return &book, nil
}

// FindByISBN returns a book by its ISBN.
func (r *BookRepository) FindByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE isbn = $1 LIMIT 1`, bookColumns)
	var book models.Book
	if err := r.db.GetContext(ctx, &book, query, isbn); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find book by isbn: %w", err)
	}
	return &book, nil
}

// Create inserts a new catalog entry.
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now
	const query = `INSERT INTO books (id, book_id, title, author, isbn, category, quantity, shelf_location, publisher, created_at, updated_at)
	VALUES (:id, :book_id, :title, :author, :isbn, :category, :quantity, :shelf_location, :publisher, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, book); err != nil {
		return translateUnique(fmt.Errorf("create book: %w", err), "book id or isbn already exists")
	}
	return nil
}

// Update persists mutable catalog fields.
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	book.UpdatedAt = time.Now().UTC()
	const query = `UPDATE books SET title = :title, author = :author, isbn = :isbn, category = :category,
	quantity = :quantity, shelf_location = :shelf_location, publisher = :publisher, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, book); err != nil {
		return translateUnique(fmt.Errorf("update book: %w", err), "book id or isbn already exists")
	}
	return nil
}

// Delete removes a catalog entry.
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

// ActiveIssueCount returns the number of unreturned issues for a book.
func (r *BookRepository) ActiveIssueCount(ctx context.Context, bookID string) (int, error) {
	const query = `SELECT COUNT(*) FROM book_issues WHERE book_id = $1 AND status NOT IN ('returned', 'lost')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, bookID); err != nil {
		return 0, fmt.Errorf("count active issues: %w", err)
	}
	return count, nil
}
