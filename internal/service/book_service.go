package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusuite/school-api/internal/models"
	appErrors "github.com/edusuite/school-api/pkg/errors"
)

const bookListCacheKey = "books:list"

type bookRepository interface {
	List(ctx context.Context, filter models.BookFilter) ([]models.Book, int, error)
	FindByID(ctx context.Context, id string) (*models.Book, error)
	FindByISBN(ctx context.Context, isbn string) (*models.Book, error)
	Create(ctx context.Context, book *models.Book) error
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id string) error
	ActiveIssueCount(ctx context.Context, bookID string) (int, error)
}

// BookService manages the library catalog. The unfiltered first page is
// cached in Redis and invalidated on every write.
type BookService struct {
	repo      bookRepository
	cache     cacheStore
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookService constructs a BookService instance.
func NewBookService(repo bookRepository, cache cacheStore, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *BookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BookService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

type cachedBookList struct {
	Books []models.Book `json:"books"`
	Total int           `json:"total"`
}

// List returns catalog entries matching the filter.
func (s *BookService) List(ctx context.Context, filter models.BookFilter) ([]models.Book, int, error) {
	cacheable := s.cache != nil && filter.Search == "" && filter.Category == "" && filter.Page <= 1
	if cacheable {
		var cached cachedBookList
		if err := s.cache.Get(ctx, bookListCacheKey, &cached); err == nil {
			return cached.Books, cached.Total, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("book list cache read failed", zap.Error(err))
		}
	}

	books, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list books")
	}

	if cacheable {
		if err := s.cache.Set(ctx, bookListCacheKey, cachedBookList{Books: books, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("book list cache write failed", zap.Error(err))
		}
	}
	return books, total, nil
}

// Get returns one catalog entry by row id or public book id.
func (s *BookService) Get(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
	}
	return book, nil
}

// GetByISBN returns the catalog entry carrying the given ISBN.
func (s *BookService) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	book, err := s.repo.FindByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
	}
	return book, nil
}

// Create registers a catalog entry with a generated public book id.
func (s *BookService) Create(ctx context.Context, req models.CreateBookRequest) (*models.Book, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid book payload")
	}

	if existing, err := s.repo.FindByISBN(ctx, req.ISBN); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a book with this isbn already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check isbn")
	}

	book := &models.Book{
		BookID:        NewBookID(),
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Category:      req.Category,
		Quantity:      req.Quantity,
		ShelfLocation: req.ShelfLocation,
		Publisher:     req.Publisher,
	}
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("book cataloged", zap.String("book_id", book.BookID), zap.String("title", book.Title))
	return book, nil
}

// Update persists catalog changes with merge semantics.
func (s *BookService) Update(ctx context.Context, id string, req models.UpdateBookRequest) (*models.Book, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid book payload")
	}

	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applyString(&book.Title, req.Title)
	applyString(&book.Author, req.Author)
	applyString(&book.ISBN, req.ISBN)
	applyString(&book.Category, req.Category)
	if req.Quantity != nil {
		active, err := s.repo.ActiveIssueCount(ctx, book.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active issues")
		}
		if *req.Quantity < active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "quantity cannot drop below the number of copies currently issued")
		}
		book.Quantity = *req.Quantity
	}
	applyString(&book.ShelfLocation, req.ShelfLocation)
	applyString(&book.Publisher, req.Publisher)

	if err := s.repo.Update(ctx, book); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return book, nil
}

// Delete removes a catalog entry. Books with live lending records stay.
func (s *BookService) Delete(ctx context.Context, id string) error {
	book, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	active, err := s.repo.ActiveIssueCount(ctx, book.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active issues")
	}
	if active > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "book has copies currently issued")
	}

	if err := s.repo.Delete(ctx, book.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete book")
	}
	s.invalidate(ctx)
	return nil
}

func (s *BookService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "books:*"); err != nil {
		s.logger.Warn("book cache invalidation failed", zap.Error(err))
	}
}
