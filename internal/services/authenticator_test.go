package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
)

type stubUsers struct {
	UserStore
	user *models.User
	err  error
}

func (s stubUsers) FindByEmailWithRoles(context.Context, string) (*models.User, error) {
	return s.user, s.err
}

func TestLocalAuthenticator(t *testing.T) {
	encoder := crypto.BcryptEncoder{Cost: bcrypt.MinCost}
	digest, err := encoder.Hash("Secret123")
	require.NoError(t, err)
	user := &models.User{Email: "a@example.com", Password: digest}

	authn, err := NewLocalAuthenticator(stubUsers{user: user}, encoder)
	require.NoError(t, err)

	got, err := authn.Authenticate(context.Background(), "a@example.com", "Secret123")
	require.NoError(t, err)
	require.Same(t, user, got)

	_, err = authn.Authenticate(context.Background(), "a@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = authn.Authenticate(context.Background(), " ", "Secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalAuthenticator_UnknownUserAndStoreFailure(t *testing.T) {
	encoder := crypto.BcryptEncoder{Cost: bcrypt.MinCost}

	authn, err := NewLocalAuthenticator(stubUsers{err: ErrUserNotFound}, encoder)
	require.NoError(t, err)
	_, err = authn.Authenticate(context.Background(), "ghost@example.com", "Secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	boom := errors.New("db down")
	authn, err = NewLocalAuthenticator(stubUsers{err: boom}, encoder)
	require.NoError(t, err)
	_, err = authn.Authenticate(context.Background(), "a@example.com", "Secret123")
	require.ErrorIs(t, err, boom)

	_, err = NewLocalAuthenticator(nil, encoder)
	require.Error(t, err)
}
