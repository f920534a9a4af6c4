package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travvy-ai/travvy-backend/internal/storage/memory"
	"github.com/travvy-ai/travvy-backend/internal/storage/postgres"
)

const (
	demoEmail    = "demo@travvy.app"
	demoPassword = "demo123456"
)

func newAuth() *AuthService {
	return NewAuthService(memory.NewUserStore(), "test-secret", time.Hour, 24*time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	auth := newAuth()

	user, err := auth.Register(context.Background(), "ada@example.com", "correct horse", "Ada")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	got, pair, err := auth.Login(context.Background(), "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)
}

func TestLoginWrongPassword(t *testing.T) {
	auth := newAuth()
	_, err := auth.Register(context.Background(), "ada@example.com", "correct horse", "Ada")
	require.NoError(t, err)

	_, _, err = auth.Login(context.Background(), "ada@example.com", "battery staple")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = auth.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDuplicateEmailRejected(t *testing.T) {
	auth := newAuth()
	_, err := auth.Register(context.Background(), "ada@example.com", "correct horse", "Ada")
	require.NoError(t, err)

	_, err = auth.Register(context.Background(), "ada@example.com", "other password", "Imposter")
	assert.ErrorIs(t, err, postgres.ErrEmailTaken)
}

func TestDemoLoginRequiresGate(t *testing.T) {
	auth := newAuth()

	// Gate off: the literal demo pair is an ordinary failed login.
	_, _, err := auth.Login(context.Background(), demoEmail, demoPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDemoLoginWithGate(t *testing.T) {
	auth := newAuth()
	auth.EnableDemoMode(demoEmail, demoPassword)

	user, pair, err := auth.Login(context.Background(), demoEmail, demoPassword)
	require.NoError(t, err)
	assert.Equal(t, demoEmail, user.Email)
	assert.NotEmpty(t, pair.AccessToken)

	// The demo account persists between sessions.
	again, _, err := auth.Login(context.Background(), demoEmail, demoPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	// A wrong password still fails even with the gate on.
	_, _, err = auth.Login(context.Background(), demoEmail, "not-the-demo-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsRefresh(t *testing.T) {
	auth := newAuth()
	user, err := auth.Register(context.Background(), "ada@example.com", "correct horse", "Ada")
	require.NoError(t, err)
	_, pair, err := auth.Login(context.Background(), "ada@example.com", "correct horse")
	require.NoError(t, err)

	claims, err := auth.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)

	_, err = auth.ValidateToken(pair.RefreshToken)
	assert.Error(t, err)
}

func TestRefreshIssuesNewPair(t *testing.T) {
	auth := newAuth()
	_, err := auth.Register(context.Background(), "ada@example.com", "correct horse", "Ada")
	require.NoError(t, err)
	_, pair, err := auth.Login(context.Background(), "ada@example.com", "correct horse")
	require.NoError(t, err)

	next, err := auth.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)

	// An access token cannot be used as a refresh token.
	_, err = auth.Refresh(context.Background(), pair.AccessToken)
	assert.Error(t, err)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	auth := newAuth()
	other := NewAuthService(memory.NewUserStore(), "different-secret", time.Hour, 24*time.Hour)

	_, err := other.Register(context.Background(), "eve@example.com", "some password", "Eve")
	require.NoError(t, err)
	_, pair, err := other.Login(context.Background(), "eve@example.com", "some password")
	require.NoError(t, err)

	_, err = auth.ValidateToken(pair.AccessToken)
	assert.Error(t, err)
}
