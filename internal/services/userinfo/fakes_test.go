package userinfo

import (
	"context"
	"sync"

	"github.com/benvon/opensocial-oauth/internal/models"
)

type fakeTokenStore struct {
	mu      sync.Mutex
	tokens  map[string]*models.AccessToken
	err     error
	lookups int
}

func (f *fakeTokenStore) FindByValue(_ context.Context, value string) (*models.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tokens[value]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokenStore) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

type fakeIdentityStore struct {
	users map[int64]*models.Identity
	err   error
}

func (f *fakeIdentityStore) Load(_ context.Context, userID int64) (*models.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func stringPtr(s string) *string {
	return &s
}
