package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	findByEmailErr   error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newTestAuthService(repo authUserRepository) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "campus-timetable-api",
	})
}

func studentUser(t *testing.T) *models.User {
	t.Helper()
	password, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	erp := "ERP-1"
	return &models.User{ID: "123", Email: "student@example.com", PasswordHash: string(password), Active: true, Role: models.RoleStudent, StudentERP: &erp}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: studentUser(t)}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "ERP-1", res.User.StudentERP)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.UserID)
	assert.Equal(t, "ERP-1", claims.StudentERP)
	assert.False(t, claims.IsAdmin())
}

func TestAuthServiceLoginInvalidPassword(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{userByEmail: studentUser(t)})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{findByEmailErr: sql.ErrNoRows})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginRepositoryFailure(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{findByEmailErr: errors.New("db down")})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	user := studentUser(t)
	user.Active = false
	svc := newTestAuthService(&mockAuthRepo{userByEmail: user})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewAuthService(nil, nil, nil, AuthConfig{AccessTokenSecret: "other", Issuer: "campus-timetable-api"})
	token, err := issuer.IssueToken(&models.User{ID: "1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = newTestAuthService(nil).ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceValidateTokenRequiresStudentERP(t *testing.T) {
	svc := newTestAuthService(nil)
	token, err := svc.IssueToken(&models.User{ID: "1", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
