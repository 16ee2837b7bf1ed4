package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessExpiry reads 'exp' claim of a JWT access token without verifying the signature.
// The client has no key to verify it; the value is only a hint when to refresh.
// Returns false for opaque tokens or tokens without expiration.
func AccessExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}
