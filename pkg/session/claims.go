package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity fields the backend puts in the bearer token.
type Claims struct {
	UserID   int64  `json:"userid"`
	DriverID *int64 `json:"driverid,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the token payload without checking the signature.
// The client has no signing key; the backend verifies tokens on every call.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token claims: %w", err)
	}
	return claims, nil
}
