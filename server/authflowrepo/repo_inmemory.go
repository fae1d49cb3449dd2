package authflowrepo

import (
	"fmt"
	"sync"
	"time"

	"github.com/BharatiPatra/fi-dashboard/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.RWMutex
	states map[string]AuthFlowState
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]AuthFlowState),
	}
}

// Upsert stores a copy of authState under state
func (r *InMemoryRepo) Upsert(state string, authState *AuthFlowState) error {
	if state == "" {
		return fmt.Errorf("state cannot be empty")
	}
	if authState == nil {
		return fmt.Errorf("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state] = *authState
	return nil
}

// Get returns a copy of the stored state
func (r *InMemoryRepo) Get(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, fmt.Errorf("state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	authState, ok := r.states[state]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "auth flow state")
	}
	return &authState, nil
}

func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return fmt.Errorf("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

func (r *InMemoryRepo) DeleteExpired(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for state, authState := range r.states {
		if authState.CreatedAt.Before(cutoff) {
			delete(r.states, state)
			removed++
		}
	}
	return removed
}
