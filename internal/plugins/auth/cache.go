package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// identityKeyPrefix is the Redis key prefix for cached user records.
const identityKeyPrefix = "identity:"

// cachedUserRepository wraps a UserRepository with a short-lived Redis
// read-through cache for FindByID, the lookup every authenticated request
// performs. Cached entries never contain the password hash, and FindByEmail
// (the login path, which needs the hash) always goes to the store.
//
// Redis failures degrade to the underlying store; the cache is an
// optimization, not a source of truth.
type cachedUserRepository struct {
	next  UserRepository
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedUserRepository returns next wrapped with a Redis identity cache.
func NewCachedUserRepository(next UserRepository, rdb *redis.Client, ttl time.Duration) UserRepository {
	return &cachedUserRepository{next: next, redis: rdb, ttl: ttl}
}

func (r *cachedUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *cachedUserRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	key := identityKey(id)

	data, err := r.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u User
		if jsonErr := json.Unmarshal(data, &u); jsonErr == nil {
			return &u, nil
		}
		slog.Warn("discarding unreadable cached identity", slog.Int64("user_id", id))
	case !errors.Is(err, redis.Nil):
		slog.Warn("identity cache read failed",
			slog.Int64("user_id", id),
			slog.Any("error", err),
		)
	}

	u, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, u)
	return u, nil
}

func (r *cachedUserRepository) Create(ctx context.Context, name, email, passwordHash string) (*User, error) {
	u, err := r.next.Create(ctx, name, email, passwordHash)
	if err != nil {
		return nil, err
	}
	r.store(ctx, u)
	return u, nil
}

// store caches u without its password hash (User.PasswordHash is json:"-").
func (r *cachedUserRepository) store(ctx context.Context, u *User) {
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, identityKey(u.ID), data, r.ttl).Err(); err != nil {
		slog.Warn("identity cache write failed",
			slog.Int64("user_id", u.ID),
			slog.Any("error", err),
		)
	}
}

func identityKey(id int64) string {
	return identityKeyPrefix + strconv.FormatInt(id, 10)
}
