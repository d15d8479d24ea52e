package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/trs-ewc-import/pkg/errors"
)

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// LockRepository provides a Redis lease so only one replica runs a job at a time.
type LockRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewLockRepository constructs the repository. A nil client makes every Acquire succeed.
func NewLockRepository(client *redis.Client, logger *zap.Logger) *LockRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockRepository{client: client, logger: logger}
}

// Acquire takes the lease on key for ttl and returns the token needed to release it.
func (r *LockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if r.client == nil {
		return token, true, nil
	}
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		r.logger.Debug("lock held elsewhere", zap.String("key", key))
	}
	return token, ok, nil
}

// Release drops the lease. It returns ErrLockNotHeld when the lease expired
// or was taken over.
func (r *LockRepository) Release(ctx context.Context, key, token string) error {
	if r.client == nil {
		return nil
	}
	released, err := releaseLockScript.Run(ctx, r.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	if released == 0 {
		return appErrors.ErrLockNotHeld
	}
	return nil
}
