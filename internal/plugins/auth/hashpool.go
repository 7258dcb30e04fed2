package auth

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// HashPool bounds how many PBKDF2 computations run at once. Hashing is
// deliberately slow; without a bound a burst of logins would occupy every
// CPU and starve unrelated requests.
type HashPool struct {
	hasher PasswordHasher
	sem    *semaphore.Weighted
	size   int
}

// NewHashPool wraps hasher so at most workers computations run concurrently.
// workers <= 0 means one per CPU.
func NewHashPool(hasher PasswordHasher, workers int) *HashPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &HashPool{
		hasher: hasher,
		sem:    semaphore.NewWeighted(int64(workers)),
		size:   workers,
	}
}

// Size returns the concurrency bound.
func (p *HashPool) Size() int {
	return p.size
}

// Hash waits for a free slot, then hashes password.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for hash worker: %w", err)
	}
	defer p.sem.Release(1)

	return p.hasher.Hash(password)
}

// Verify waits for a free slot, then verifies password against stored.
func (p *HashPool) Verify(ctx context.Context, password, stored string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("waiting for hash worker: %w", err)
	}
	defer p.sem.Release(1)

	return p.hasher.Verify(password, stored), nil
}
