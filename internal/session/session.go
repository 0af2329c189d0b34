// Package session carries the authenticated identity for one client run.
// The engine receives a Session at construction instead of reading a
// credential from ambient storage.
package session

import (
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"

	"ligdichat/client/internal/models"
)

// Session is the explicit session context: the bearer credential attached to
// every API call and channel connect, plus the identity it was issued for.
type Session struct {
	Token string
	Me    models.User
}

// FromToken builds a Session by reading the user_id and email claims out of
// the bearer token. The client holds no signing secret, so the claims are
// parsed without signature verification; the server still verifies the token
// on every call.
func FromToken(token string) (Session, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("failed to parse session token: %w", err)
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return Session{}, fmt.Errorf("session token missing user_id claim")
	}
	email, ok := claims["email"].(string)
	if !ok {
		return Session{}, fmt.Errorf("session token missing email claim")
	}

	return Session{
		Token: token,
		Me:    models.User{ID: int64(userID), Email: email},
	}, nil
}
