package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/pkg/config"
	appErrors "github.com/edusuite/school-api/pkg/errors"
)

type stubAdmissionRepo struct {
	drafts        map[string]*models.AdmissionDraft
	applications  map[string]*models.AdmissionApplication
	purged        int64
	upsertedDraft *models.AdmissionDraft
	created       *models.AdmissionApplication
	createdDraft  string
	updated       *models.AdmissionApplication
}

func (m *stubAdmissionRepo) FindDraft(ctx context.Context, draftID string) (*models.AdmissionDraft, error) {
	d, ok := m.drafts[draftID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d, nil
}

func (m *stubAdmissionRepo) UpsertDraft(ctx context.Context, draft *models.AdmissionDraft) error {
	m.upsertedDraft = draft
	if m.drafts == nil {
		m.drafts = make(map[string]*models.AdmissionDraft)
	}
	m.drafts[draft.DraftID] = draft
	return nil
}

func (m *stubAdmissionRepo) DeleteExpiredDrafts(ctx context.Context) (int64, error) {
	return m.purged, nil
}

func (m *stubAdmissionRepo) ListApplications(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionApplication, int, error) {
	var out []models.AdmissionApplication
	for _, a := range m.applications {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *stubAdmissionRepo) FindApplication(ctx context.Context, id string) (*models.AdmissionApplication, error) {
	a, ok := m.applications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func (m *stubAdmissionRepo) CreateApplication(ctx context.Context, application *models.AdmissionApplication, draftID string) error {
	application.ID = "app-1"
	m.created = application
	m.createdDraft = draftID
	delete(m.drafts, draftID)
	if m.applications == nil {
		m.applications = make(map[string]*models.AdmissionApplication)
	}
	m.applications[application.ID] = application
	return nil
}

func (m *stubAdmissionRepo) UpdateStatus(ctx context.Context, application *models.AdmissionApplication) error {
	m.updated = application
	return nil
}

func testAdmissionConfig() config.AdmissionConfig {
	return config.AdmissionConfig{DraftTTL: 7 * 24 * time.Hour}
}

func TestAdmissionServiceSaveDraftGeneratesID(t *testing.T) {
	repo := &stubAdmissionRepo{}
	svc := NewAdmissionService(repo, &stubAccountChecker{}, validator.New(), zap.NewNop(), testAdmissionConfig())

	draft, err := svc.SaveDraft(context.Background(), models.SaveDraftRequest{
		Email: "parent@example.com",
		Form:  models.AdmissionForm{"personal": json.RawMessage(`{"first_name":"Asha"}`)},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, draft.DraftID)
	assert.True(t, draft.ExpiresAt.After(time.Now().UTC().Add(6*24*time.Hour)))
	assert.Same(t, draft, repo.upsertedDraft)
}

func TestAdmissionServiceSaveDraftKeepsID(t *testing.T) {
	repo := &stubAdmissionRepo{}
	svc := NewAdmissionService(repo, &stubAccountChecker{}, validator.New(), zap.NewNop(), testAdmissionConfig())

	draft, err := svc.SaveDraft(context.Background(), models.SaveDraftRequest{
		DraftID:              "draft-1",
		Email:                "parent@example.com",
		Form:                 models.AdmissionForm{"personal": json.RawMessage(`{}`)},
		LastCompletedSection: "personal",
	})
	require.NoError(t, err)
	assert.Equal(t, "draft-1", draft.DraftID)
	assert.Equal(t, "personal", draft.LastCompletedSection)
}

func TestAdmissionServiceGetDraftMissing(t *testing.T) {
	svc := NewAdmissionService(&stubAdmissionRepo{}, &stubAccountChecker{}, validator.New(), zap.NewNop(), testAdmissionConfig())

	_, err := svc.GetDraft(context.Background(), "gone")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "expired")
}

func TestAdmissionServiceSubmit(t *testing.T) {
	repo := &stubAdmissionRepo{drafts: map[string]*models.AdmissionDraft{
		"draft-1": {
			DraftID:   "draft-1",
			Email:     "parent@example.com",
			Form:      models.AdmissionForm{"personal": json.RawMessage(`{"first_name":"Asha"}`)},
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}}
	svc := NewAdmissionService(repo, &stubAccountChecker{}, validator.New(), zap.NewNop(), testAdmissionConfig())

	app, err := svc.Submit(context.Background(), models.SubmitAdmissionRequest{
		DraftID:         "draft-1",
		FirstName:       "Asha",
		LastName:        "Verma",
		AppliedClass:    "Grade 5",
		AcademicSession: "2026-27",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ADM-\d{4}-[0-9A-F]{4}$`), app.AdmissionNo)
	assert.Equal(t, models.AdmissionStatusSubmitted, app.Status)
	assert.Equal(t, "parent@example.com", app.Email)
	assert.False(t, app.Active)
	assert.Equal(t, "draft-1", repo.createdDraft)
	_, stillThere := repo.drafts["draft-1"]
	assert.False(t, stillThere)
}

func TestAdmissionServiceSubmitMissingDraft(t *testing.T) {
	svc := NewAdmissionService(&stubAdmissionRepo{}, &stubAccountChecker{}, validator.New(), zap.NewNop(), testAdmissionConfig())

	_, err := svc.Submit(context.Background(), models.SubmitAdmissionRequest{
		DraftID:         "gone",
		FirstName:       "Asha",
		LastName:        "Verma",
		AppliedClass:    "Grade 5",
		AcademicSession: "2026-27",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdmissionServiceUpdateStatusEnrolls(t *testing.T) {
	repo := &stubAdmissionRepo{applications: map[string]*models.AdmissionApplication{
		"app-1": {ID: "app-1", AdmissionNo: "ADM-2608-AB12", Status: models.AdmissionStatusUnderReview},
	}}
	accounts := &stubAccountChecker{}
	svc := NewAdmissionService(repo, accounts, validator.New(), zap.NewNop(), testAdmissionConfig())

	app, err := svc.UpdateStatus(context.Background(), "app-1", models.UpdateAdmissionStatusRequest{Status: models.AdmissionStatusEnrolled}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, models.AdmissionStatusEnrolled, app.Status)
	assert.True(t, app.Active)
	require.NotNil(t, app.AdmissionDate)

	require.Len(t, accounts.auditLogs, 1)
	assert.Equal(t, models.AuditActionAdmissionDecision, accounts.auditLogs[0].Action)
	var decision map[string]string
	require.NoError(t, json.Unmarshal(accounts.auditLogs[0].NewValues, &decision))
	assert.Equal(t, "under_review", decision["from"])
	assert.Equal(t, "enrolled", decision["to"])
}

func TestAdmissionServiceUpdateStatusKeepsUnderReview(t *testing.T) {
	repo := &stubAdmissionRepo{applications: map[string]*models.AdmissionApplication{
		"app-1": {ID: "app-1", Status: models.AdmissionStatusUnderReview},
	}}
	svc := NewAdmissionService(repo, &stubAccountChecker{}, validator.New(), zap.NewNop(), testAdmissionConfig())

	app, err := svc.UpdateStatus(context.Background(), "app-1", models.UpdateAdmissionStatusRequest{Status: models.AdmissionStatusUnderReview}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusUnderReview, app.Status)
	assert.False(t, app.Active)
	assert.Nil(t, app.AdmissionDate)
}

func TestAdmissionServiceUpdateStatusIllegalTransition(t *testing.T) {
	repo := &stubAdmissionRepo{applications: map[string]*models.AdmissionApplication{
		"app-1": {ID: "app-1", Status: models.AdmissionStatusRejected},
	}}
	svc := NewAdmissionService(repo, &stubAccountChecker{}, validator.New(), zap.NewNop(), testAdmissionConfig())

	_, err := svc.UpdateStatus(context.Background(), "app-1", models.UpdateAdmissionStatusRequest{Status: models.AdmissionStatusEnrolled}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "cannot transition")
	assert.Nil(t, repo.updated)
}
