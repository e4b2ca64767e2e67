package auth

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Registry is the process-wide set of logged-in usernames. Sessions never
// touch it.
type Registry struct {
	mu    sync.Mutex
	users map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]struct{})}
}

// Claim adds name unless it is already present.
func (r *Registry) Claim(name string) bool {
	key := Normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[key]; ok {
		return false
	}
	r.users[key] = struct{}{}
	return true
}

func (r *Registry) Release(name string) {
	key := Normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, key)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Normalize maps visually identical usernames onto one key.
func Normalize(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}
