package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrTokenExpired        = errors.New("token expired, log in again")
	ErrRefreshNotSupported = errors.New("strapi tokens cannot be refreshed")
	ErrInvalidJWTFormat    = errors.New("invalid JWT format")
	ErrNoExpirationClaim   = errors.New("no expiration claim found")
)

// TokenManager supplies the bearer token of outgoing requests.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
}

// Token is a bearer credential. API tokens have no expiry; user JWTs issued
// by /auth/local carry an exp claim.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the token is set and not about to expire.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(constants.TokenExpirationBuffer).Before(t.ExpiresAt)
}

// TokenStore holds a token behind a read/write lock.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the stored token or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the stored token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
}

// StaticTokenManager serves a fixed API token or user JWT. Strapi has no
// refresh grant, so an expired JWT fails instead of being renewed.
type StaticTokenManager struct {
	store *TokenStore
}

// NewStaticTokenManager creates a manager for token. A JWT's exp claim is
// honoured when present.
func NewStaticTokenManager(token string) *StaticTokenManager {
	manager := &StaticTokenManager{store: NewTokenStore()}

	expiresAt, err := JWTExpiry(token)
	if err != nil {
		expiresAt = time.Time{}
	}

	manager.SetToken(token, expiresAt)

	return manager
}

// GetToken returns the token, or ErrTokenExpired once it has expired.
func (m *StaticTokenManager) GetToken(_ context.Context) (string, error) {
	token := m.store.Get()
	if token == nil || token.AccessToken == "" {
		return "", nil
	}

	if !token.Valid() {
		return "", ErrTokenExpired
	}

	return token.AccessToken, nil
}

// RefreshToken always fails: Strapi issues no refresh tokens.
func (m *StaticTokenManager) RefreshToken(_ context.Context) error {
	return ErrRefreshNotSupported
}

// SetToken replaces the token. A zero expiresAt means it never expires.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}

// JWTExpiry reads the exp claim of a JWT without verifying its signature.
// API tokens are not JWTs and return ErrInvalidJWTFormat.
func JWTExpiry(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, ErrInvalidJWTFormat
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidJWTFormat, err)
	}

	var claims struct {
		Exp *int64 `json:"exp"`
	}

	err = json.Unmarshal(payload, &claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidJWTFormat, err)
	}

	if claims.Exp == nil {
		return time.Time{}, ErrNoExpirationClaim
	}

	return time.Unix(*claims.Exp, 0), nil
}
