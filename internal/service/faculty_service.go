package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/pkg/config"
	appErrors "github.com/edusuite/school-api/pkg/errors"
)

type facultyRepository interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error)
	FindByID(ctx context.Context, id string) (*models.FacultyDetail, error)
	LastEmployeeID(ctx context.Context) (string, error)
	CreateWithAccount(ctx context.Context, member *models.Faculty, user *models.User, subjectIDs, classIDs []string) error
	Update(ctx context.Context, member *models.Faculty, subjectIDs, classIDs []string) error
	DeleteWithAccount(ctx context.Context, facultyID, userID string) error
}

type subjectNameResolver interface {
	FindByNames(ctx context.Context, names []string) (map[string]models.Subject, error)
}

type classNameResolver interface {
	FindByNames(ctx context.Context, names []string) (map[string]models.Class, error)
}

// FacultyService orchestrates staff onboarding: employee id generation,
// account provisioning and name-based subject/class resolution.
type FacultyService struct {
	repo      facultyRepository
	subjects  subjectNameResolver
	classes   classNameResolver
	accounts  accountChecker
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.AccountsConfig
}

// NewFacultyService constructs a FacultyService instance.
func NewFacultyService(repo facultyRepository, subjects subjectNameResolver, classes classNameResolver, accounts accountChecker, validate *validator.Validate, logger *zap.Logger, cfg config.AccountsConfig) *FacultyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FacultyService{repo: repo, subjects: subjects, classes: classes, accounts: accounts, validator: validate, logger: logger, cfg: cfg}
}

// List returns faculty matching the filter.
func (s *FacultyService) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	members, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	return members, total, nil
}

// Get returns one faculty member with subject and class references.
func (s *FacultyService) Get(ctx context.Context, id string) (*models.FacultyDetail, error) {
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty member")
	}
	return member, nil
}

// Create onboards a staff member with a generated employee id and a
// provisioned login account.
func (s *FacultyService) Create(ctx context.Context, req models.CreateFacultyRequest, actorID string) (*models.FacultyDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid faculty payload")
	}

	subjectIDs, err := s.resolveSubjects(ctx, req.SubjectNames)
	if err != nil {
		return nil, err
	}
	classIDs, err := s.resolveClasses(ctx, req.ClassNames)
	if err != nil {
		return nil, err
	}

	last, err := s.repo.LastEmployeeID(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read last employee id")
	}
	employeeID, err := NextEmployeeID(last)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate employee id")
	}

	user, err := buildAccount(s.cfg, req.FirstName, req.LastName, req.Email, req.Password, models.RoleFaculty)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision account")
	}
	taken, err := s.accounts.UsernameExists(ctx, user.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already in use")
	}
	emailTaken, err := s.accounts.EmailExists(ctx, user.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if emailTaken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
	}

	joining := time.Now().UTC()
	if req.JoiningDate != nil {
		joining = *req.JoiningDate
	}
	member := &models.Faculty{
		EmployeeID:    employeeID,
		FirstName:     req.FirstName,
		MiddleName:    req.MiddleName,
		LastName:      req.LastName,
		Gender:        req.Gender,
		DateOfBirth:   req.DateOfBirth,
		JoiningDate:   joining,
		Qualification: req.Qualification,
		ExperienceYrs: req.ExperienceYrs,
		Designation:   req.Designation,
		Department:    req.Department,
		ContactNumber: req.ContactNumber,
		Email:         user.Email,
		Active:        true,
	}

	if err := s.repo.CreateWithAccount(ctx, member, user, subjectIDs, classIDs); err != nil {
		return nil, err
	}

	s.auditFaculty(ctx, actorID, models.AuditActionFacultyCreate, member.ID, member)
	s.logger.Info("faculty onboarded",
		zap.String("faculty_id", member.ID),
		zap.String("employee_id", member.EmployeeID))

	return s.Get(ctx, member.ID)
}

// Update applies merge semantics. Subject and class name lists, when present,
// replace the stored references after resolution.
func (s *FacultyService) Update(ctx context.Context, id string, req models.UpdateFacultyRequest, actorID string) (*models.FacultyDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid faculty payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	member := existing.Faculty
	applyString(&member.FirstName, req.FirstName)
	if req.MiddleName != nil {
		member.MiddleName = req.MiddleName
	}
	applyString(&member.LastName, req.LastName)
	applyString(&member.Gender, req.Gender)
	if req.DateOfBirth != nil {
		member.DateOfBirth = *req.DateOfBirth
	}
	if req.JoiningDate != nil {
		member.JoiningDate = *req.JoiningDate
	}
	applyString(&member.Qualification, req.Qualification)
	if req.ExperienceYrs != nil {
		member.ExperienceYrs = *req.ExperienceYrs
	}
	applyString(&member.Designation, req.Designation)
	applyString(&member.Department, req.Department)
	applyString(&member.ContactNumber, req.ContactNumber)
	if req.Active != nil {
		member.Active = *req.Active
	}

	var subjectIDs, classIDs []string
	if req.SubjectNames != nil {
		if subjectIDs, err = s.resolveSubjects(ctx, req.SubjectNames); err != nil {
			return nil, err
		}
	}
	if req.ClassNames != nil {
		if classIDs, err = s.resolveClasses(ctx, req.ClassNames); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &member, subjectIDs, classIDs); err != nil {
		return nil, err
	}

	s.auditFaculty(ctx, actorID, models.AuditActionFacultyUpdate, member.ID, req)
	return s.Get(ctx, id)
}

// Delete removes the member and its account.
func (s *FacultyService) Delete(ctx context.Context, id string, actorID string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteWithAccount(ctx, existing.ID, existing.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faculty member")
	}

	s.auditFaculty(ctx, actorID, models.AuditActionFacultyDelete, existing.ID, nil)
	return nil
}

// resolveSubjects maps subject names to ids. Any unknown name fails the whole
// request with a not-found error naming the missing subjects.
func (s *FacultyService) resolveSubjects(ctx context.Context, names []string) ([]string, error) {
	if names == nil {
		return nil, nil
	}
	found, err := s.subjects.FindByNames(ctx, names)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subjects")
	}
	ids := make([]string, 0, len(names))
	var missing []string
	for _, name := range names {
		subject, ok := found[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		ids = append(ids, subject.ID)
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subjects not found: "+strings.Join(missing, ", "))
	}
	return ids, nil
}

func (s *FacultyService) resolveClasses(ctx context.Context, names []string) ([]string, error) {
	if names == nil {
		return nil, nil
	}
	found, err := s.classes.FindByNames(ctx, names)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve classes")
	}
	ids := make([]string, 0, len(names))
	var missing []string
	for _, name := range names {
		class, ok := found[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		ids = append(ids, class.ID)
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "classes not found: "+strings.Join(missing, ", "))
	}
	return ids, nil
}

func (s *FacultyService) auditFaculty(ctx context.Context, actorID, action, resourceID string, payload interface{}) {
	var values []byte
	if payload != nil {
		values, _ = json.Marshal(payload)
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "faculty",
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
