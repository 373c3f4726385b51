package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
)

// TokenExpiry decodes the exp claim without verifying the signature; the
// backend remains the authority on validity. A token without exp is reported
// as already expired (zero time).
func TokenExpiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// TokenSubject returns the sub claim, which the backend sets to the user name.
func TokenSubject(token string) string {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}
