package userinfo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/opensocial-oauth/internal/models"
)

// TokenStore looks up issued access tokens. FindByValue returns nil, nil when
// no token matches; the store guarantees token values are unique.
type TokenStore interface {
	FindByValue(ctx context.Context, value string) (*models.AccessToken, error)
}

// Resolver validates presented bearer tokens against a TokenStore.
type Resolver struct {
	store TokenStore
	now   func() time.Time
}

// NewResolver creates a resolver using the wall clock.
func NewResolver(store TokenStore) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// WithClock returns a copy of the resolver reading time from now.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	return &Resolver{store: r.store, now: now}
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively and must be followed by whitespace.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	const scheme = "bearer"
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", ErrMissingToken
	}
	rest := header[len(scheme):]
	if rest[0] != ' ' && rest[0] != '\t' {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(rest)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Resolve returns the user ID the presented token was issued to.
// It never modifies the token.
func (r *Resolver) Resolve(ctx context.Context, presented string) (int64, error) {
	if presented == "" {
		return 0, ErrMissingToken
	}

	token, err := r.store.FindByValue(ctx, presented)
	if err != nil {
		return 0, fmt.Errorf("failed to look up access token: %w", err)
	}
	if token == nil {
		return 0, ErrInvalidToken
	}

	if token.Expired(r.now()) {
		return 0, ErrExpiredToken
	}

	return token.UserID, nil
}
