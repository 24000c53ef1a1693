package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/pkg/config"
	appErrors "github.com/edusuite/school-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	LastAdmissionNumber(ctx context.Context) (string, error)
	CreateWithAccount(ctx context.Context, student *models.Student, user *models.User) error
	UpdateWithSection(ctx context.Context, student *models.Student, previousSectionID string) error
	DeleteWithAccount(ctx context.Context, studentID, userID string) error
}

type sectionResolver interface {
	FindByName(ctx context.Context, name string) (*models.Class, error)
	FindSectionByName(ctx context.Context, classID, name string) (*models.Section, error)
}

type accountChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// StudentService orchestrates student registration: identifier generation,
// account provisioning and the transactional write of student plus section
// membership.
type StudentService struct {
	repo      studentRepository
	classes   sectionResolver
	accounts  accountChecker
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.AccountsConfig
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(repo studentRepository, classes sectionResolver, accounts accountChecker, validate *validator.Validate, logger *zap.Logger, cfg config.AccountsConfig) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, classes: classes, accounts: accounts, validator: validate, logger: logger, cfg: cfg}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Get returns one student with class and section context.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student: resolves the class and section by name,
// generates the admission number, provisions the login account and commits
// everything in one transaction.
func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest, actorID string) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid student payload")
	}

	class, section, err := s.resolveSection(ctx, req.ClassName, req.SectionName)
	if err != nil {
		return nil, err
	}

	last, err := s.repo.LastAdmissionNumber(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read last admission number")
	}
	admissionNo, err := NextAdmissionNumber(last, time.Now().UTC().Year())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate admission number")
	}

	user, err := buildAccount(s.cfg, req.FirstName, req.LastName, req.Email, req.Password, models.RoleStudent)
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

	now := time.Now().UTC()
	student := &models.Student{
		AdmissionNo:   admissionNo,
		FirstName:     req.FirstName,
		MiddleName:    req.MiddleName,
		LastName:      req.LastName,
		Gender:        req.Gender,
		DateOfBirth:   req.DateOfBirth,
		BloodGroup:    req.BloodGroup,
		ClassID:       class.ID,
		SectionID:     section.ID,
		RollNumber:    req.RollNumber,
		AcademicYear:  req.AcademicYear,
		Guardians:     req.Guardians,
		Address:       req.Address,
		Phone:         req.Phone,
		Active:        true,
		AdmissionDate: &now,
	}

	if err := s.repo.CreateWithAccount(ctx, student, user); err != nil {
		return nil, err
	}

	s.audit(ctx, actorID, models.AuditActionStudentCreate, student.ID, student)
	s.logger.Info("student registered",
		zap.String("student_id", student.ID),
		zap.String("admission_no", student.AdmissionNo),
		zap.String("section_id", section.ID))

	return s.Get(ctx, student.ID)
}

// Update applies merge semantics: nil request fields keep stored values. A
// section or class change moves the membership row atomically with the row
// update.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest, actorID string) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid student payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	student := existing.Student
	applyString(&student.FirstName, req.FirstName)
	if req.MiddleName != nil {
		student.MiddleName = req.MiddleName
	}
	applyString(&student.LastName, req.LastName)
	applyString(&student.Gender, req.Gender)
	if req.DateOfBirth != nil {
		student.DateOfBirth = *req.DateOfBirth
	}
	if req.BloodGroup != nil {
		student.BloodGroup = req.BloodGroup
	}
	if req.RollNumber != nil {
		student.RollNumber = req.RollNumber
	}
	applyString(&student.AcademicYear, req.AcademicYear)
	if req.Guardians != nil {
		student.Guardians = *req.Guardians
	}
	if req.Address != nil {
		student.Address = *req.Address
	}
	applyString(&student.Phone, req.Phone)
	if req.Active != nil {
		student.Active = *req.Active
	}

	if req.ClassName != nil || req.SectionName != nil {
		className := existing.ClassName
		if req.ClassName != nil {
			className = *req.ClassName
		}
		sectionName := existing.SectionName
		if req.SectionName != nil {
			sectionName = *req.SectionName
		}
		class, section, err := s.resolveSection(ctx, className, sectionName)
		if err != nil {
			return nil, err
		}
		if section.ClassID != class.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section does not belong to the requested class")
		}
		student.ClassID = class.ID
		student.SectionID = section.ID
	}

	if err := s.repo.UpdateWithSection(ctx, &student, existing.SectionID); err != nil {
		return nil, err
	}

	s.audit(ctx, actorID, models.AuditActionStudentUpdate, student.ID, req)
	return s.Get(ctx, id)
}

// Delete removes the student, its account and its section membership.
func (s *StudentService) Delete(ctx context.Context, id string, actorID string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteWithAccount(ctx, existing.ID, existing.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}

	s.audit(ctx, actorID, models.AuditActionStudentDelete, existing.ID, nil)
	s.logger.Info("student removed", zap.String("student_id", existing.ID))
	return nil
}

func (s *StudentService) resolveSection(ctx context.Context, className, sectionName string) (*models.Class, *models.Section, error) {
	class, err := s.classes.FindByName(ctx, className)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found: "+className)
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve class")
	}
	section, err := s.classes.FindSectionByName(ctx, class.ID, sectionName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "section not found: "+sectionName)
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve section")
	}
	return class, section, nil
}

func (s *StudentService) audit(ctx context.Context, actorID, action, resourceID string, payload interface{}) {
	var values []byte
	if payload != nil {
		values, _ = json.Marshal(payload)
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "students",
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

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
