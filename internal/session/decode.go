package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fiverow/lobby-client/pkg/types"
)

type tokenClaims struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ParseUser decodes the token's payload without verifying the signature and
// returns the identity it carries, or nil if the token is absent, malformed
// or expired. It never returns an error: no user *is* the error signal for
// upstream navigation logic.
//
// The server is the authority for all mutating operations and re-validates
// the credential itself, so this decode is a convenience view, not a
// security boundary.
func ParseUser(token string) *types.User {
	if token == "" {
		return nil
	}
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		// Missing segment, bad base64, bad JSON: all collapse to "no user".
		return nil
	}
	if claims.ExpiresAt != nil && !time.Now().Before(claims.ExpiresAt.Time) {
		return nil
	}
	id := claims.Subject
	if id == "" {
		id = claims.UserID
	}
	if id == "" {
		return nil
	}
	return &types.User{ID: id, Name: claims.Name, Email: claims.Email}
}
