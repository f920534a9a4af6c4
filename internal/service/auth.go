package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/travvy-ai/travvy-backend/internal/storage/postgres"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidCredentials is returned when login fails. Deliberately the same
// for unknown email and wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims represents the JWT claims structure.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// UserStore is the persistence surface the auth service needs.
type UserStore interface {
	Create(ctx context.Context, user *types.User) error
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
}

// AuthService handles registration, login and JWT issuance/validation.
//
// Demo mode is an explicit, environment-gated test-only path. When the gate
// is off, the literal demo credential pair is treated like any other login
// attempt and fails hard; there is no silent fallback.
type AuthService struct {
	users        UserStore
	jwtSecret    []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
	demoMode     bool
	demoEmail    string
	demoPassword string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, secret string, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		jwtSecret:  []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// EnableDemoMode turns on the demo credential gate.
func (a *AuthService) EnableDemoMode(email, password string) {
	a.demoMode = true
	a.demoEmail = email
	a.demoPassword = password
}

// Register creates a new account with a bcrypt-hashed password.
func (a *AuthService) Register(ctx context.Context, email, password, displayName string) (*types.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &types.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a token pair.
func (a *AuthService) Login(ctx context.Context, email, password string) (*types.User, *TokenPair, error) {
	if a.demoMode && email == a.demoEmail && password == a.demoPassword {
		return a.demoLogin(ctx)
	}

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := a.issuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// demoLogin backs the gated demo credential pair with a persistent demo
// account so trips and conversations survive between demo sessions.
func (a *AuthService) demoLogin(ctx context.Context) (*types.User, *TokenPair, error) {
	user, err := a.users.GetByEmail(ctx, a.demoEmail)
	if errors.Is(err, postgres.ErrNotFound) {
		user, err = a.Register(ctx, a.demoEmail, a.demoPassword, "Demo Traveler")
	}
	if err != nil {
		return nil, nil, err
	}
	pair, err := a.issuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := a.parseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, errors.New("refresh token required")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errors.New("token missing user id")
	}
	if _, err := a.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return a.issuePair(userID)
}

// GetUser returns the account for an authenticated user id.
func (a *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return a.users.GetByID(ctx, id)
}

// ValidateToken validates an access token and returns the claims.
func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims, err := a.parseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, errors.New("access token required")
	}
	return claims, nil
}

func (a *AuthService) parseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token missing user id")
	}
	return claims, nil
}

func (a *AuthService) issuePair(userID uuid.UUID) (*TokenPair, error) {
	access, err := a.issueToken(userID, TokenTypeAccess, a.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := a.issueToken(userID, TokenTypeRefresh, a.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (a *AuthService) issueToken(userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    userID.String(),
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
