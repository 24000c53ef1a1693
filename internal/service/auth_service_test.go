package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusuite/school-api/internal/models"
	appErrors "github.com/edusuite/school-api/pkg/errors"
)

type stubAuthRepo struct {
	userByUsername   *models.User
	userByID         *models.User
	usernameTaken    bool
	emailTaken       bool
	refreshTokens    map[string]*models.RefreshToken
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
	createdUser      *models.User
	passwordUpdated  string
}

func (m *stubAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.userByUsername == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByUsername, nil
}

func (m *stubAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByUsername != nil {
		return m.userByUsername, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubAuthRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "new-user"
	m.createdUser = user
	return nil
}

func (m *stubAuthRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return m.usernameTaken, nil
}

func (m *stubAuthRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return m.emailTaken, nil
}

func (m *stubAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *stubAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordUpdated = passwordHash
	return nil
}

func (m *stubAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (m *stubAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *stubAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *stubAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *stubAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "school-api",
	}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &stubAuthRepo{userByUsername: &models.User{
		ID:           "u1",
		Username:     "jane.doe",
		Email:        "jane.doe@school.com",
		PasswordHash: string(hash),
		Active:       true,
		Role:         models.RoleAdmin,
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "jane.doe", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "jane.doe", res.User.Username)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &stubAuthRepo{userByUsername: &models.User{ID: "u1", Username: "jane.doe", PasswordHash: string(hash), Active: true}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jane.doe", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	repo := &stubAuthRepo{}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &stubAuthRepo{userByUsername: &models.User{ID: "u1", Username: "jane.doe", PasswordHash: string(hash), Active: false}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jane.doe", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	user := &models.User{ID: "u1", Username: "jane.doe", PasswordHash: "hash", Active: true, Role: models.RoleAdmin}
	repo := &stubAuthRepo{
		userByID:      user,
		refreshTokens: map[string]*models.RefreshToken{"old-token": {ID: "rt1", UserID: "u1", Token: "old-token", ExpiresAt: time.Now().Add(time.Hour)}},
	}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "old-token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["old-token"].Revoked)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	repo := &stubAuthRepo{
		refreshTokens: map[string]*models.RefreshToken{"old-token": {ID: "rt1", UserID: "u1", Token: "old-token", ExpiresAt: time.Now().Add(-time.Hour)}},
	}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	user := &models.User{ID: "u1", Username: "jane.doe", PasswordHash: string(hash), Active: true, Role: models.RoleFaculty, FullName: "Jane Doe"}
	repo := &stubAuthRepo{userByUsername: user}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "jane.doe", Password: "password"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleFaculty, claims.Role)
}

func TestAuthServiceValidateTokenBadSignature(t *testing.T) {
	repo := &stubAuthRepo{}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
}

func TestAuthServiceRegisterConflict(t *testing.T) {
	repo := &stubAuthRepo{usernameTaken: true}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "jane.doe",
		Email:    "jane@school.com",
		Password: "password1",
		FullName: "Jane Doe",
		Role:     models.RoleParent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := &stubAuthRepo{emailTaken: true}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "jane.doe",
		Email:    "jane@school.com",
		Password: "password1",
		FullName: "Jane Doe",
		Role:     models.RoleParent,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "email")
	assert.Nil(t, repo.createdUser)
}

func TestAuthServiceRegisterValidationListsFields(t *testing.T) {
	svc := NewAuthService(&stubAuthRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "not-an-email"})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.NotEmpty(t, appErr.Fields)

	byField := map[string]string{}
	for _, f := range appErr.Fields {
		byField[f.Field] = f.Message
	}
	assert.Equal(t, "is required", byField["Username"])
	assert.Equal(t, "must be a valid email address", byField["Email"])
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("oldpass"), bcrypt.DefaultCost)
	user := &models.User{ID: "u1", Username: "jane.doe", PasswordHash: string(oldHash), Active: true}
	repo := &stubAuthRepo{userByID: user}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "oldpass", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwordUpdated)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwordUpdated), []byte("newpassword")))
}
