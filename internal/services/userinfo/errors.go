package userinfo

import "errors"

// Resolution failures. Each maps to its own HTTP status and message, so
// callers must match them with errors.Is rather than collapsing them.
var (
	ErrMissingToken     = errors.New("no access token provided")
	ErrInvalidToken     = errors.New("invalid access token")
	ErrExpiredToken     = errors.New("access token expired")
	ErrIdentityNotFound = errors.New("user not found")
)

// IsAuthError reports whether err is one of the resolution failures above.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrIdentityNotFound)
}
