package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinsched/rotations-api/internal/models"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
)

type mockUserRepo struct {
	user *models.User
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func newAuthFixture(t *testing.T, active bool) (*AuthService, models.LoginRequest) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &mockUserRepo{user: &models.User{
		ID:           "usr-1",
		Email:        "coordinator@clinsched.edu",
		PasswordHash: string(hash),
		Role:         "coordinator",
		Active:       active,
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "rotations-api"})
	return svc, models.LoginRequest{Email: "coordinator@clinsched.edu", Password: "s3cret"}
}

func TestAuthServiceLogin(t *testing.T) {
	svc, req := newAuthFixture(t, true)

	resp, err := svc.Login(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, "coordinator", claims.Role)
	assert.Equal(t, "rotations-api", claims.Issuer)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, req := newAuthFixture(t, true)
	req.Password = "wrong"

	_, err := svc.Login(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, req := newAuthFixture(t, true)
	req.Email = "nobody@clinsched.edu"

	_, err := svc.Login(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactive(t *testing.T) {
	svc, req := newAuthFixture(t, false)

	_, err := svc.Login(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceValidateTokenTampered(t *testing.T) {
	svc, req := newAuthFixture(t, true)

	resp, err := svc.Login(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
