package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisTickLock is a SET NX PX lock with token-checked release.
type RedisTickLock struct {
	client redis.Cmdable
}

// NewRedisTickLock creates a lock on client.
func NewRedisTickLock(client redis.Cmdable) *RedisTickLock {
	return &RedisTickLock{client: client}
}

// Acquire takes key for ttl. ok is false when another holder has it.
func (l *RedisTickLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error) {
	if ttl <= 0 {
		return nil, false, errors.New("tick lock ttl must be positive")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) {
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
