package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/internal/service"
)

type authRepoMock struct {
	created *models.User
}

func (m *authRepoMock) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) Create(ctx context.Context, user *models.User) error {
	user.ID = "new-user"
	m.created = user
	return nil
}

func (m *authRepoMock) UsernameExists(ctx context.Context, username string) (bool, error) {
	return false, nil
}

func (m *authRepoMock) EmailExists(ctx context.Context, email string) (bool, error) {
	return false, nil
}

func (m *authRepoMock) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *authRepoMock) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

func (m *authRepoMock) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (m *authRepoMock) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return nil
}

func (m *authRepoMock) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return nil, sql.ErrNoRows
}

func (m *authRepoMock) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return nil
}

func (m *authRepoMock) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func TestAuthHandlerRegisterWithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &authRepoMock{}
	handler := NewAuthHandler(service.NewAuthService(repo, nil, nil, service.AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Minute,
	}))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	payload := `{"username":"ravi.iyer","email":"ravi@school.com","password":"secret123","full_name":"Ravi Iyer","role":"PARENT"}`
	req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	// No claims on the context: registration is open to unauthenticated callers.
	handler.Register(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.RoleParent, repo.created.Role)

	var envelope struct {
		Data models.UserInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "ravi.iyer", envelope.Data.Username)
}
