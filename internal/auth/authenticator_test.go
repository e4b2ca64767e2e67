package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, "dave", "pw"))
	a := NewAuthenticator(store, NewRegistry())

	_, err := a.Authenticate(ctx, "dave", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Authenticate(ctx, "erin", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown users look like bad passwords")

	release, err := a.Authenticate(ctx, "dave", "pw")
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, "Dave", "pw")
	assert.ErrorIs(t, err, ErrAlreadyLoggedIn)

	release()
	release()
	assert.Equal(t, 0, a.Registry().Len())

	release, err = a.Authenticate(ctx, "dave", "pw")
	require.NoError(t, err)
	release()
}
