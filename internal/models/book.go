package models

import "time"

// Book represents a library catalog entry.
type Book struct {
	ID            string    `db:"id" json:"id"`
	BookID        string    `db:"book_id" json:"book_id"`
	Title         string    `db:"title" json:"title"`
	Author        string    `db:"author" json:"author"`
	ISBN          string    `db:"isbn" json:"isbn"`
	Category      string    `db:"category" json:"category"`
	Quantity      int       `db:"quantity" json:"quantity"`
	ShelfLocation string    `db:"shelf_location" json:"shelf_location"`
	Publisher     string    `db:"publisher" json:"publisher"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// BookFilter encapsulates catalog list parameters.
type BookFilter struct {
	Search   string
	Category string
	Page     int
	PageSize int
}

// CreateBookRequest payload for adding a catalog entry.
type CreateBookRequest struct {
	Title         string `json:"title" validate:"required"`
	Author        string `json:"author" validate:"required"`
	ISBN          string `json:"isbn" validate:"required"`
	Category      string `json:"category"`
	Quantity      int    `json:"quantity" validate:"gte=0"`
	ShelfLocation string `json:"shelf_location"`
	Publisher     string `json:"publisher"`
}

// UpdateBookRequest carries merge-semantics updates.
type UpdateBookRequest struct {
	Title         *string `json:"title,omitempty"`
	Author        *string `json:"author,omitempty"`
	ISBN          *string `json:"isbn,omitempty"`
	Category      *string `json:"category,omitempty"`
	Quantity      *int    `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	ShelfLocation *string `json:"shelf_location,omitempty"`
	Publisher     *string `json:"publisher,omitempty"`
}

// BookIssueStatus tracks a lending record's lifecycle.
type BookIssueStatus string

const (
	BookIssueStatusIssued   BookIssueStatus = "issued"
	BookIssueStatusReturned BookIssueStatus = "returned"
	BookIssueStatusOverdue  BookIssueStatus = "overdue"
	BookIssueStatusLost     BookIssueStatus = "lost"
)

var bookIssueTransitions = map[BookIssueStatus][]BookIssueStatus{
	BookIssueStatusIssued:  {BookIssueStatusReturned, BookIssueStatusOverdue, BookIssueStatusLost},
	BookIssueStatusOverdue: {BookIssueStatusReturned, BookIssueStatusLost},
}

// CanTransition reports whether moving from one status to another is allowed.
func (s BookIssueStatus) CanTransition(target BookIssueStatus) bool {
	for _, allowed := range bookIssueTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// BookIssue represents one lending of a book to a user.
type BookIssue struct {
	ID         string          `db:"id" json:"id"`
	BookID     string          `db:"book_id" json:"book_id"`
	IssuedTo   string          `db:"issued_to" json:"issued_to"`
	IssuedBy   string          `db:"issued_by" json:"issued_by"`
	IssueDate  time.Time       `db:"issue_date" json:"issue_date"`
	DueDate    time.Time       `db:"due_date" json:"due_date"`
	ReturnDate *time.Time      `db:"return_date" json:"return_date,omitempty"`
	Status     BookIssueStatus `db:"status" json:"status"`
	Fine       float64         `db:"fine" json:"fine"`
	Remarks    *string         `db:"remarks" json:"remarks,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// BookIssueDetail adds book and borrower context for listings.
type BookIssueDetail struct {
	BookIssue
	BookTitle    string `db:"book_title" json:"book_title"`
	BookAuthor   string `db:"book_author" json:"book_author"`
	BookCode     string `db:"book_code" json:"book_code"`
	BorrowerName string `db:"borrower_name" json:"borrower_name"`
}

// BookIssueFilter encapsulates lending list parameters.
type BookIssueFilter struct {
	BookID   string
	IssuedTo string
	Status   *BookIssueStatus
	Overdue  bool
	Page     int
	PageSize int
}

// CreateBookIssueRequest lends a book to a user.
type CreateBookIssueRequest struct {
	BookID   string     `json:"book_id" validate:"required"`
	IssuedTo string     `json:"issued_to" validate:"required,uuid"`
	DueDate  *time.Time `json:"due_date,omitempty"`
	Remarks  *string    `json:"remarks,omitempty"`
}

// UpdateBookIssueRequest transitions a lending record.
type UpdateBookIssueRequest struct {
	Status  BookIssueStatus `json:"status" validate:"required,oneof=returned overdue lost"`
	Remarks *string         `json:"remarks,omitempty"`
}
