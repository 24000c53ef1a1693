package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/pkg/config"
	appErrors "github.com/edusuite/school-api/pkg/errors"
	"github.com/edusuite/school-api/pkg/export"
)

type bookIssueRepository interface {
	List(ctx context.Context, filter models.BookIssueFilter) ([]models.BookIssueDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.BookIssueDetail, error)
	Create(ctx context.Context, issue *models.BookIssue) error
	Update(ctx context.Context, issue *models.BookIssue) error
	UpdateFine(ctx context.Context, id string, fine float64) error
	Delete(ctx context.Context, id string) error
	HasActiveIssue(ctx context.Context, bookID, userID string) (bool, error)
}

type issueBookResolver interface {
	FindByID(ctx context.Context, id string) (*models.Book, error)
	ActiveIssueCount(ctx context.Context, bookID string) (int, error)
}

type borrowerResolver interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type receiptRenderer interface {
	Render(receipt export.Receipt) ([]byte, error)
}

type csvRenderer interface {
	Render(dataset export.Dataset) ([]byte, error)
}

// BookIssueService manages lending records: issue, return, fine accrual and
// receipt generation. Fines accrue per day past the due date and freeze once
// the book is returned or marked lost.
type BookIssueService struct {
	repo      bookIssueRepository
	books     issueBookResolver
	users     borrowerResolver
	accounts  accountChecker
	receipts  receiptRenderer
	csv       csvRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.LibraryConfig
}

// NewBookIssueService constructs a BookIssueService instance.
func NewBookIssueService(repo bookIssueRepository, books issueBookResolver, users borrowerResolver, accounts accountChecker, receipts receiptRenderer, csv csvRenderer, validate *validator.Validate, logger *zap.Logger, cfg config.LibraryConfig) *BookIssueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BookIssueService{
		repo:      repo,
		books:     books,
		users:     users,
		accounts:  accounts,
		receipts:  receipts,
		csv:       csv,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// List returns lending records matching the filter. Fines on overdue records
// are refreshed before the page is returned.
func (s *BookIssueService) List(ctx context.Context, filter models.BookIssueFilter) ([]models.BookIssueDetail, int, error) {
	issues, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list book issues")
	}
	for i := range issues {
		s.refreshFine(ctx, &issues[i].BookIssue)
	}
	return issues, total, nil
}

// Get returns one lending record with its fine brought up to date.
func (s *BookIssueService) Get(ctx context.Context, id string) (*models.BookIssueDetail, error) {
	issue, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book issue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book issue")
	}
	s.refreshFine(ctx, &issue.BookIssue)
	return issue, nil
}

// Create lends a book to a user. Availability is checked against the catalog
// quantity minus live issues, and a borrower cannot hold two copies of the
// same book at once.
func (s *BookIssueService) Create(ctx context.Context, req models.CreateBookIssueRequest, actorID string) (*models.BookIssueDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid issue payload")
	}

	book, err := s.books.FindByID(ctx, req.BookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
	}

	if _, err := s.users.FindByID(ctx, req.IssuedTo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrower not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load borrower")
	}

	active, err := s.books.ActiveIssueCount(ctx, book.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active issues")
	}
	if active >= book.Quantity {
		return nil, appErrors.Clone(appErrors.ErrConflict, "no copies of this book are available")
	}

	held, err := s.repo.HasActiveIssue(ctx, book.ID, req.IssuedTo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing issues")
	}
	if held {
		return nil, appErrors.Clone(appErrors.ErrConflict, "borrower already holds a copy of this book")
	}

	now := time.Now().UTC()
	due := now.AddDate(0, 0, s.cfg.DefaultLoanDays)
	if req.DueDate != nil {
		due = req.DueDate.UTC()
	}
	if !due.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due date must be after the issue date")
	}

	issue := &models.BookIssue{
		BookID:    book.ID,
		IssuedTo:  req.IssuedTo,
		IssuedBy:  actorID,
		IssueDate: now,
		DueDate:   due,
		Status:    models.BookIssueStatusIssued,
		Remarks:   req.Remarks,
	}
	if err := s.repo.Create(ctx, issue); err != nil {
		return nil, err
	}

	s.auditIssue(ctx, actorID, models.AuditActionBookIssue, issue.ID, issue)
	s.logger.Info("book issued",
		zap.String("issue_id", issue.ID),
		zap.String("book_id", book.BookID),
		zap.String("issued_to", issue.IssuedTo))

	return s.Get(ctx, issue.ID)
}

// Update transitions a lending record. Returning stamps the return date and
// freezes the fine at its final value.
func (s *BookIssueService) Update(ctx context.Context, id string, req models.UpdateBookIssueRequest, actorID string) (*models.BookIssueDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid issue payload")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	issue := detail.BookIssue

	if !issue.Status.CanTransition(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot transition from "+string(issue.Status)+" to "+string(req.Status))
	}

	now := time.Now().UTC()
	issue.Status = req.Status
	if req.Remarks != nil {
		issue.Remarks = req.Remarks
	}
	if req.Status == models.BookIssueStatusReturned {
		issue.ReturnDate = &now
		issue.Fine = s.computeFine(issue.DueDate, now)
	}

	if err := s.repo.Update(ctx, &issue); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update book issue")
	}

	if req.Status == models.BookIssueStatusReturned {
		s.auditIssue(ctx, actorID, models.AuditActionBookReturn, issue.ID, issue)
	}
	return s.Get(ctx, id)
}

// Delete removes a lending record. Live records stay until the book comes
// back or is written off.
func (s *BookIssueService) Delete(ctx context.Context, id string, actorID string) error {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if issue.Status == models.BookIssueStatusIssued || issue.Status == models.BookIssueStatusOverdue {
		return appErrors.Clone(appErrors.ErrConflict, "cannot delete an active book issue")
	}

	if err := s.repo.Delete(ctx, issue.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "book issue not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete book issue")
	}
	s.auditIssue(ctx, actorID, models.AuditActionBookIssueDelete, issue.ID, issue)
	return nil
}

// Fine returns the current fine for a lending record.
func (s *BookIssueService) Fine(ctx context.Context, id string) (float64, error) {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return issue.Fine, nil
}

// Receipt renders a PDF receipt for a lending record.
func (s *BookIssueService) Receipt(ctx context.Context, id string) ([]byte, error) {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	receipt := export.Receipt{
		IssueID:     issue.ID,
		BookID:      issue.BookCode,
		BookTitle:   issue.BookTitle,
		BookAuthor:  issue.BookAuthor,
		BorrowerID:  issue.IssuedTo,
		Borrower:    issue.BorrowerName,
		IssueDate:   issue.IssueDate,
		DueDate:     issue.DueDate,
		ReturnDate:  issue.ReturnDate,
		Status:      string(issue.Status),
		Fine:        issue.Fine,
		GeneratedAt: time.Now().UTC(),
	}
	data, err := s.receipts.Render(receipt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return data, nil
}

// ExportCSV renders the filtered lending list as CSV.
func (s *BookIssueService) ExportCSV(ctx context.Context, filter models.BookIssueFilter) ([]byte, error) {
	filter.Page = 1
	filter.PageSize = 10000
	issues, _, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Issue ID", "Book", "Book Code", "Borrower", "Issued", "Due", "Returned", "Status", "Fine"},
		Rows:    make([][]string, 0, len(issues)),
	}
	for _, issue := range issues {
		returned := ""
		if issue.ReturnDate != nil {
			returned = issue.ReturnDate.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, []string{
			issue.ID,
			issue.BookTitle,
			issue.BookCode,
			issue.BorrowerName,
			issue.IssueDate.Format("2006-01-02"),
			issue.DueDate.Format("2006-01-02"),
			returned,
			string(issue.Status),
			strconv.FormatFloat(issue.Fine, 'f', 2, 64),
		})
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return data, nil
}

// refreshFine recomputes the accrued fine for a live overdue record and
// persists it when it changed. Returned and lost records keep their frozen
// amount.
func (s *BookIssueService) refreshFine(ctx context.Context, issue *models.BookIssue) {
	if issue.Status == models.BookIssueStatusReturned || issue.Status == models.BookIssueStatusLost {
		return
	}
	fine := s.computeFine(issue.DueDate, time.Now().UTC())
	if fine == issue.Fine {
		return
	}
	issue.Fine = fine
	if err := s.repo.UpdateFine(ctx, issue.ID, fine); err != nil {
		s.logger.Warn("failed to persist accrued fine",
			zap.String("issue_id", issue.ID),
			zap.Error(err))
	}
}

// computeFine charges the per-day rate for each full day past the due date.
func (s *BookIssueService) computeFine(dueDate, asOf time.Time) float64 {
	if !asOf.After(dueDate) {
		return 0
	}
	daysLate := int(asOf.Sub(dueDate).Hours() / 24)
	if daysLate <= 0 {
		return 0
	}
	return float64(daysLate) * s.cfg.FineRatePerDay
}

func (s *BookIssueService) auditIssue(ctx context.Context, actorID, action, resourceID string, payload interface{}) {
	var values []byte
	if payload != nil {
		values, _ = json.Marshal(payload)
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "book_issues",
		ResourceID: &resourceID,
		NewValues:  values,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.accounts.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
