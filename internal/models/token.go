package models

import "time"

// AccessToken is an issued OAuth2 access token as persisted by the token store.
// Tokens are read-only here: issuance and revocation belong to the issuer.
type AccessToken struct {
	ID        int64     `json:"id"`
	Value     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	ClientID  string    `json:"client_id"`
	Scopes    []string  `json:"scopes,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token expiry is strictly earlier than now,
// compared at whole-second resolution.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now.Truncate(time.Second))
}
