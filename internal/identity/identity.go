// Package identity establishes who the signed-in user is.
//
// Authentication itself belongs to the external identity provider; this
// package only verifies the session token it issued ([JWKSAuthenticator]) or
// returns a fixed development user ([Static]).
package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrSignedOut is returned when there is no session token at all.
	ErrSignedOut = errors.New("identity: signed out")

	// ErrInvalidToken is returned when a session token fails verification.
	ErrInvalidToken = errors.New("identity: invalid session token")
)

// SignInNotice is shown in place of protected screens when no user is
// signed in.
const SignInNotice = "Please sign in to access your interview dashboard."

// User is the signed-in user.
type User struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	Email     string `json:"email"`
}

// DisplayName returns the full name, falling back to the first name.
func (u User) DisplayName() string {
	if n := strings.TrimSpace(u.FullName); n != "" {
		return n
	}
	return strings.TrimSpace(u.FirstName)
}

// Authenticator resolves a session token to a [User].
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (User, error)
}

// Static authenticates every caller as the same configured user. An empty
// User ID means nobody is signed in.
type Static struct {
	User User
}

// Authenticate returns the configured user or [ErrSignedOut].
func (s Static) Authenticate(ctx context.Context, _ string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if s.User.ID == "" {
		return User{}, ErrSignedOut
	}
	return s.User, nil
}

var _ Authenticator = Static{}
