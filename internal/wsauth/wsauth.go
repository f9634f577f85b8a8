// Package wsauth verifies an externally-issued bearer token before a
// room WebSocket upgrade. Token issuance (login, registration) stays
// out of scope, per spec.md's exclusion of authentication token
// issuance; this package only validates what another service signed.
package wsauth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the payload an upstream auth service is expected to issue:
// which user, for which room.
type Claims struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	RoomID      string `json:"room_id"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates tokenStr, returning its claims.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
