package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/pkg/config"
	appErrors "github.com/edusuite/school-api/pkg/errors"
)

type admissionRepository interface {
	FindDraft(ctx context.Context, draftID string) (*models.AdmissionDraft, error)
	UpsertDraft(ctx context.Context, draft *models.AdmissionDraft) error
	DeleteExpiredDrafts(ctx context.Context) (int64, error)
	ListApplications(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionApplication, int, error)
	FindApplication(ctx context.Context, id string) (*models.AdmissionApplication, error)
	CreateApplication(ctx context.Context, application *models.AdmissionApplication, draftID string) error
	UpdateStatus(ctx context.Context, application *models.AdmissionApplication) error
}

// AdmissionService manages the public application workflow: draft upsert,
// submission and the admin decision state machine.
type AdmissionService struct {
	repo      admissionRepository
	accounts  accountChecker
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.AdmissionConfig
}

// NewAdmissionService constructs an AdmissionService instance.
func NewAdmissionService(repo admissionRepository, accounts accountChecker, validate *validator.Validate, logger *zap.Logger, cfg config.AdmissionConfig) *AdmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AdmissionService{repo: repo, accounts: accounts, validator: validate, logger: logger, cfg: cfg}
}

// SaveDraft upserts an in-progress application keyed by draft id. A missing
// draft id starts a new draft. The expiry window is refreshed on every save.
func (s *AdmissionService) SaveDraft(ctx context.Context, req models.SaveDraftRequest) (*models.AdmissionDraft, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid draft payload")
	}

	if purged, err := s.repo.DeleteExpiredDrafts(ctx); err != nil {
		s.logger.Warn("failed to purge expired drafts", zap.Error(err))
	} else if purged > 0 {
		s.logger.Debug("purged expired admission drafts", zap.Int64("count", purged))
	}

	draftID := req.DraftID
	if draftID == "" {
		draftID = uuid.NewString()
	}

	draft := &models.AdmissionDraft{
		DraftID:              draftID,
		Email:                req.Email,
		Form:                 req.Form,
		LastCompletedSection: req.LastCompletedSection,
		ExpiresAt:            time.Now().UTC().Add(s.cfg.DraftTTL),
	}
	if err := s.repo.UpsertDraft(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save draft")
	}
	return draft, nil
}

// GetDraft returns a live draft by its public id.
func (s *AdmissionService) GetDraft(ctx context.Context, draftID string) (*models.AdmissionDraft, error) {
	draft, err := s.repo.FindDraft(ctx, draftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found or expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
	}
	return draft, nil
}

// Submit promotes a draft into a submitted application, assigns an
// application number and deletes the draft atomically.
func (s *AdmissionService) Submit(ctx context.Context, req models.SubmitAdmissionRequest) (*models.AdmissionApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid submission payload")
	}

	draft, err := s.GetDraft(ctx, req.DraftID)
	if err != nil {
		return nil, err
	}

	application := &models.AdmissionApplication{
		AdmissionNo:     NewApplicationNumber(time.Now().UTC()),
		FirstName:       req.FirstName,
		MiddleName:      req.MiddleName,
		LastName:        req.LastName,
		Email:           draft.Email,
		AppliedClass:    req.AppliedClass,
		AcademicSession: req.AcademicSession,
		Status:          models.AdmissionStatusSubmitted,
		Form:            draft.Form,
		Active:          false,
	}

	if err := s.repo.CreateApplication(ctx, application, draft.DraftID); err != nil {
		return nil, err
	}

	s.logger.Info("admission submitted",
		zap.String("application_id", application.ID),
		zap.String("admission_no", application.AdmissionNo))
	return application, nil
}

// List returns applications matching the filter.
func (s *AdmissionService) List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionApplication, int, error) {
	applications, total, err := s.repo.ListApplications(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return applications, total, nil
}

// Get returns one application.
func (s *AdmissionService) Get(ctx context.Context, id string) (*models.AdmissionApplication, error) {
	application, err := s.repo.FindApplication(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return application, nil
}

// UpdateStatus applies an admin decision. Enrolling activates the applicant
// and stamps the admission date; any transition outside the allowed set is a
// validation failure.
func (s *AdmissionService) UpdateStatus(ctx context.Context, id string, req models.UpdateAdmissionStatusRequest, actorID string) (*models.AdmissionApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid status payload")
	}

	application, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !application.Status.CanTransition(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot transition from "+string(application.Status)+" to "+string(req.Status))
	}

	previous := application.Status
	application.Status = req.Status
	if req.Remarks != nil {
		application.Remarks = req.Remarks
	}
	if req.Status == models.AdmissionStatusEnrolled {
		now := time.Now().UTC()
		application.Active = true
		application.AdmissionDate = &now
	}

	if err := s.repo.UpdateStatus(ctx, application); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application status")
	}

	decision, _ := json.Marshal(map[string]string{"from": string(previous), "to": string(req.Status)})
	log := &models.AuditLog{
		Action:     models.AuditActionAdmissionDecision,
		Resource:   "admissions",
		ResourceID: &application.ID,
		NewValues:  decision,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.accounts.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record admission audit log", zap.Error(err))
	}

	return application, nil
}
