package auth

import (
	"context"
	"sync"
	"time"
)

// memoryUserRepository is an in-process UserRepository for tests and
// USER_STORE=memory development runs. Create checks and inserts under one
// lock, so email uniqueness holds under concurrent registrations.
type memoryUserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*User
	byEmail map[string]int64
}

// NewMemoryUserRepository creates an empty in-memory user repository.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:    make(map[int64]*User),
		byEmail: make(map[string]int64),
	}
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, errNotFound()
	}
	return r.copyOf(id), nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.byID[id]; !ok {
		return nil, errNotFound()
	}
	return r.copyOf(id), nil
}

func (r *memoryUserRepository) Create(_ context.Context, name, email, passwordHash string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return nil, ErrDuplicateEmail
	}

	r.nextID++
	u := &User{
		ID:           r.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return r.copyOf(u.ID), nil
}

// remove deletes a user. Test-only: the service never deletes users.
func (r *memoryUserRepository) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, u.Email)
		delete(r.byID, id)
	}
}

// copyOf returns a copy so callers cannot mutate stored records.
// Caller must hold r.mu.
func (r *memoryUserRepository) copyOf(id int64) *User {
	u := *r.byID[id]
	return &u
}
