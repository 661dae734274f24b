package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefixes. The version key is bumped on every write so a fill
// that read the store before the write cannot land after it.
const (
	userCacheKeyPrefix     = "user:email:"
	userCacheVersionPrefix = "user:version:"
)

// errStaleFill aborts a cache fill that raced with a write.
var errStaleFill = errors.New("user changed during cache fill")

// SessionUsers resolves the subject of a validated token to the current
// stored user. The result never carries credentials the caller may need to
// verify; use UserRepository for that.
type SessionUsers interface {
	SessionUser(ctx context.Context, email string) (*User, error)
}

// SessionUserFunc adapts a plain lookup (usually UserRepository.FindByEmail)
// to SessionUsers.
type SessionUserFunc func(ctx context.Context, email string) (*User, error)

// SessionUser calls f.
func (f SessionUserFunc) SessionUser(ctx context.Context, email string) (*User, error) {
	return f(ctx, email)
}

// CachedUserRepository decorates a UserRepository with a short-lived Redis
// copy of each user for session resolution. Writes that change what the
// authenticator sees (role, active flag, admin credential) drop the entry.
//
// The cached JSON is the User's public encoding, so password and admin
// credential never reach Redis.
type CachedUserRepository struct {
	UserRepository
	rdb *redis.Client
	ttl time.Duration
}

// NewCachedUserRepository wraps repo with a Redis cache holding entries for ttl.
func NewCachedUserRepository(repo UserRepository, rdb *redis.Client, ttl time.Duration) *CachedUserRepository {
	return &CachedUserRepository{UserRepository: repo, rdb: rdb, ttl: ttl}
}

// SessionUser returns the cached user for email, loading it from the
// repository on a miss. Redis failures fall back to the repository.
func (r *CachedUserRepository) SessionUser(ctx context.Context, email string) (*User, error) {
	key := userCacheKeyPrefix + email

	data, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var user User
		if err := json.Unmarshal(data, &user); err == nil {
			return &user, nil
		}
		slog.Warn("discarding corrupt cached user", slog.String("email", email))
	case errors.Is(err, redis.Nil):
	default:
		slog.Warn("user cache read failed",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}

	// The version must be read before the store: a write committed after
	// this point bumps it and the fill below is dropped.
	version, verErr := r.version(ctx, email)

	user, err := r.UserRepository.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if verErr == nil {
		r.fill(ctx, email, version, user)
	}

	return publicCopy(user), nil
}

// version returns the write counter for email; zero if never written.
func (r *CachedUserRepository) version(ctx context.Context, email string) (int64, error) {
	v, err := r.rdb.Get(ctx, userCacheVersionPrefix+email).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// fill caches user only if no write has happened since version was read.
// The check and the SET run under WATCH, so a write racing the fill either
// aborts the transaction or deletes the entry after it.
func (r *CachedUserRepository) fill(ctx context.Context, email string, version int64, user *User) {
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	versionKey := userCacheVersionPrefix + email

	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userCacheKeyPrefix+email, data, r.ttl)
			return nil
		})
		return err
	}, versionKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		slog.Debug("skipped stale user cache fill", slog.String("email", email))
	default:
		slog.Warn("user cache write failed",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}
}

// UpdateAdminPassword updates the store, then drops the cached entry.
func (r *CachedUserRepository) UpdateAdminPassword(ctx context.Context, id int64, newHash, expected string) (bool, error) {
	updated, err := r.UserRepository.UpdateAdminPassword(ctx, id, newHash, expected)
	if err != nil {
		return false, err
	}
	if updated {
		r.invalidate(ctx, id)
	}
	return updated, nil
}

// UpdateRole updates the store, then drops the cached entry.
func (r *CachedUserRepository) UpdateRole(ctx context.Context, id int64, role Role) error {
	if err := r.UserRepository.UpdateRole(ctx, id, role); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// UpdateActive updates the store, then drops the cached entry.
func (r *CachedUserRepository) UpdateActive(ctx context.Context, id int64, active bool) error {
	if err := r.UserRepository.UpdateActive(ctx, id, active); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// invalidate bumps the version of user id and removes its cache entry.
// Failures are logged; the entry then lives until its TTL.
func (r *CachedUserRepository) invalidate(ctx context.Context, id int64) {
	user, err := r.UserRepository.FindByID(ctx, id)
	if err != nil {
		slog.Warn("user cache invalidation lookup failed",
			slog.Int64("user_id", id),
			slog.Any("error", err),
		)
		return
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, userCacheVersionPrefix+user.Email)
		pipe.Del(ctx, userCacheKeyPrefix+user.Email)
		return nil
	})
	if err != nil {
		slog.Warn("user cache invalidation failed",
			slog.Int64("user_id", id),
			slog.Any("error", fmt.Errorf("bumping cache version: %w", err)),
		)
	}
}

// publicCopy strips credentials so cache hits and misses look the same to
// callers.
func publicCopy(u *User) *User {
	c := *u
	c.PasswordHash = ""
	c.AdminPassword = nil
	return &c
}
