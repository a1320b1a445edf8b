package services

import (
	"context"
	"errors"
	"strings"

	"github.com/charlesng35/authcore/internal/models"
)

// ErrInvalidCredentials is returned when the email/password pair does not match.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// PasswordEncoder is the password hashing collaborator.
type PasswordEncoder interface {
	Hash(plain string) (string, error)
	Matches(plain, digest string) bool
}

// Authenticator checks credentials and returns the matching user with roles loaded.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// LocalAuthenticator checks email and password against the user store.
type LocalAuthenticator struct {
	users   UserStore
	encoder PasswordEncoder
	// dummy is compared when the user is unknown so both paths cost one hash check.
	dummy string
}

// NewLocalAuthenticator builds an authenticator over users and encoder.
func NewLocalAuthenticator(users UserStore, encoder PasswordEncoder) (*LocalAuthenticator, error) {
	if users == nil || encoder == nil {
		return nil, errors.New("local authenticator: user store and encoder are required")
	}
	dummy, err := encoder.Hash("authcore-unknown-user")
	if err != nil {
		return nil, err
	}
	return &LocalAuthenticator{users: users, encoder: encoder, dummy: dummy}, nil
}

func (a *LocalAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.users.FindByEmailWithRoles(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		a.encoder.Matches(password, a.dummy)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !a.encoder.Matches(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
