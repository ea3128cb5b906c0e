package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/models"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]*models.User
	byEmail       map[string]string
	refreshTokens map[string]*models.RefreshToken
	verifications map[string]*models.EmailVerification
	auditLogs     []*models.AuditLog
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         map[string]*models.User{},
		byEmail:       map[string]string{},
		refreshTokens: map[string]*models.RefreshToken{},
		verifications: map[string]*models.EmailVerification{},
	}
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	cp := *user
	m.users[user.ID] = &cp
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if id, ok := m.byEmail[email]; ok {
		cp := *m.users[id]
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if user, ok := m.users[id]; ok {
		user.LastLogin = &ts
	}
	return nil
}

func (m *mockAuthRepo) MarkEmailVerified(ctx context.Context, id string, ts time.Time) error {
	if user, ok := m.users[id]; ok {
		user.EmailVerified = true
	}
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	cp := *token
	m.refreshTokens[token.Token] = &cp
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.refreshTokens[token]; ok {
		cp := *stored
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, token := range m.refreshTokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateEmailVerification(ctx context.Context, v *models.EmailVerification) error {
	cp := *v
	m.verifications[v.Token] = &cp
	return nil
}

func (m *mockAuthRepo) ConsumeEmailVerification(ctx context.Context, token string, now time.Time) (string, error) {
	v, ok := m.verifications[token]
	if !ok || v.UsedAt != nil || !v.ExpiresAt.After(now) {
		return "", sql.ErrNoRows
	}
	v.UsedAt = &now
	return v.UserID, nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func authFixture(repo *mockAuthRepo, cfg AuthConfig) *AuthService {
	if cfg.AccessTokenSecret == "" {
		cfg.AccessTokenSecret = "test-secret"
	}
	if cfg.AccessTokenExpiry == 0 {
		cfg.AccessTokenExpiry = 15 * time.Minute
	}
	if cfg.RefreshTokenExpiry == 0 {
		cfg.RefreshTokenExpiry = 24 * time.Hour
	}
	return NewAuthService(repo, nil, zap.NewNop(), cfg)
}

func TestRegisterEnforcesInstitutionalDomain(t *testing.T) {
	svc := authFixture(newMockAuthRepo(), AuthConfig{EmailDomain: "school.edu"})

	_, _, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       "ana@gmail.com",
		Password:    "long-enough-password",
		DisplayName: "Ana",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidEmail.Code, appErrors.FromError(err).Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := authFixture(newMockAuthRepo(), AuthConfig{EmailDomain: "school.edu", MinPasswordLen: 8})

	_, _, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       "ana@school.edu",
		Password:    "short",
		DisplayName: "Ana",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWeakPassword.Code, appErrors.FromError(err).Code)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo()
	svc := authFixture(repo, AuthConfig{EmailDomain: "school.edu"})

	_, _, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       "Ana@School.edu",
		Password:    "long-enough-password",
		DisplayName: "Ana",
	})
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), models.RegisterRequest{
		Email:       "ana@school.edu",
		Password:    "long-enough-password",
		DisplayName: "Ana Again",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmailInUse.Code, appErrors.FromError(err).Code)
}

func TestRegisterIssuesVerificationToken(t *testing.T) {
	repo := newMockAuthRepo()
	svc := authFixture(repo, AuthConfig{EmailDomain: "school.edu"})

	info, token, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       "ANA@SCHOOL.EDU",
		Password:    "long-enough-password",
		DisplayName: "Ana",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@school.edu", info.Email, "stored email must be lowercase")
	assert.False(t, info.EmailVerified)
	require.NotEmpty(t, token)
	assert.Contains(t, repo.verifications, token)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	svc := authFixture(repo, AuthConfig{EmailDomain: "school.edu"})

	_, _, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       "ana@school.edu",
		Password:    "long-enough-password",
		DisplayName: "Ana",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ana@school.edu", Password: "wrong-password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	repo := newMockAuthRepo()
	svc := authFixture(repo, AuthConfig{EmailDomain: "school.edu", RequireVerified: true})

	_, token, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       "ana@school.edu",
		Password:    "long-enough-password",
		DisplayName: "Ana",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ana@school.edu", Password: "long-enough-password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmailNotVerified.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.VerifyEmail(context.Background(), token))

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@school.edu", Password: "long-enough-password"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.True(t, resp.User.EmailVerified)
}

func TestVerifyEmailTokenSingleUse(t *testing.T) {
	repo := newMockAuthRepo()
	svc := authFixture(repo, AuthConfig{EmailDomain: "school.edu"})

	_, token, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       "ana@school.edu",
		Password:    "long-enough-password",
		DisplayName: "Ana",
	})
	require.NoError(t, err)

	require.NoError(t, svc.VerifyEmail(context.Background(), token))

	err = svc.VerifyEmail(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLoginIssuesValidatableToken(t *testing.T) {
	repo := newMockAuthRepo()
	svc := authFixture(repo, AuthConfig{EmailDomain: "school.edu"})

	_, _, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       "ana@school.edu",
		Password:    "long-enough-password",
		DisplayName: "Ana",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@school.edu", Password: "long-enough-password"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "ana@school.edu", claims.Email)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo()
	svc := authFixture(repo, AuthConfig{EmailDomain: "school.edu"})

	_, _, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       "ana@school.edu",
		Password:    "long-enough-password",
		DisplayName: "Ana",
	})
	require.NoError(t, err)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@school.edu", Password: "long-enough-password"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestResendVerificationDoesNotLeakAccounts(t *testing.T) {
	repo := newMockAuthRepo()
	svc := authFixture(repo, AuthConfig{EmailDomain: "school.edu"})

	token, err := svc.ResendVerification(context.Background(), "nobody@school.edu")
	require.NoError(t, err)
	assert.Empty(t, token)
}
