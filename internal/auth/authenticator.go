package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrAlreadyLoggedIn = errors.New("user already logged in")

type Authenticator struct {
	store    Store
	registry *Registry
}

func NewAuthenticator(store Store, registry *Registry) *Authenticator {
	return &Authenticator{store: store, registry: registry}
}

// Authenticate checks the credentials and claims the username for this
// process. The returned release func gives the name back; call it once the
// connection is gone.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (func(), error) {
	if err := a.store.Verify(ctx, username, password); err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify %q: %w", username, err)
	}
	if !a.registry.Claim(username) {
		return nil, ErrAlreadyLoggedIn
	}
	var once sync.Once
	return func() { once.Do(func() { a.registry.Release(username) }) }, nil
}

func (a *Authenticator) Store() Store { return a.store }

func (a *Authenticator) Registry() *Registry { return a.registry }
