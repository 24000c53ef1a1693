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

const classListCacheKey = "classes:list"

type classRepository interface {
	List(ctx context.Context) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
	Sections(ctx context.Context, classID string) ([]models.Section, error)
	CreateSection(ctx context.Context, section *models.Section) error
	Subjects(ctx context.Context, classID string) ([]models.Subject, error)
	AssignSubject(ctx context.Context, classID, subjectID string) error
	RemoveSubject(ctx context.Context, classID, subjectID string) error
}

type subjectChecker interface {
	ExistAll(ctx context.Context, ids []string) (bool, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ClassService manages classes, their sections and subject assignments. The
// class list is cached in Redis and invalidated on every write.
type ClassService struct {
	repo      classRepository
	subjects  subjectChecker
	cache     cacheStore
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService instance.
func NewClassService(repo classRepository, subjects subjectChecker, cache cacheStore, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, subjects: subjects, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns all classes, served from cache when possible.
func (s *ClassService) List(ctx context.Context) ([]models.Class, error) {
	if s.cache != nil {
		var cached []models.Class
		if err := s.cache.Get(ctx, classListCacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("class list cache read failed", zap.Error(err))
		}
	}

	classes, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, classListCacheKey, classes, s.cacheTTL); err != nil {
			s.logger.Warn("class list cache write failed", zap.Error(err))
		}
	}
	return classes, nil
}

// Get returns a class with its sections and assigned subjects.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	sections, err := s.repo.Sections(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	subjects, err := s.repo.Subjects(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subjects")
	}

	return &models.ClassDetail{Class: *class, Sections: sections, Subjects: subjects}, nil
}

// Create registers a class.
func (s *ClassService) Create(ctx context.Context, req models.CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid class payload")
	}

	class := &models.Class{Name: req.Name, AcademicYear: req.AcademicYear}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return class, nil
}

// Update persists class changes.
func (s *ClassService) Update(ctx context.Context, id string, req models.UpdateClassRequest) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	applyString(&class.Name, req.Name)
	applyString(&class.AcademicYear, req.AcademicYear)

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return class, nil
}

// Delete removes a class.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.invalidate(ctx)
	return nil
}

// AddSection creates a section within a class. Duplicate names within the
// same class conflict.
func (s *ClassService) AddSection(ctx context.Context, classID string, req models.CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid section payload")
	}
	if _, err := s.repo.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	section := &models.Section{Name: req.Name, ClassID: classID}
	if err := s.repo.CreateSection(ctx, section); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return section, nil
}

// AssignSubjects attaches subjects to a class after verifying each id exists.
func (s *ClassService) AssignSubjects(ctx context.Context, classID string, req models.AssignSubjectsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.FromValidator(err, "invalid subject assignment payload")
	}
	if _, err := s.repo.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	allExist, err := s.subjects.ExistAll(ctx, req.SubjectIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify subjects")
	}
	if !allExist {
		return appErrors.Clone(appErrors.ErrNotFound, "one or more subjects do not exist")
	}

	for _, subjectID := range req.SubjectIDs {
		if err := s.repo.AssignSubject(ctx, classID, subjectID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveSubject detaches a subject from a class.
func (s *ClassService) RemoveSubject(ctx context.Context, classID, subjectID string) error {
	if err := s.repo.RemoveSubject(ctx, classID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject is not assigned to this class")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove subject")
	}
	return nil
}

func (s *ClassService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "classes:*"); err != nil {
		s.logger.Warn("class cache invalidation failed", zap.Error(err))
	}
}
