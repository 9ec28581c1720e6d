package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RefreshLockImpl is a cross-process mutex guarding the fetch-diff-append sequence
// when several instances share one Redis backend.
type RefreshLockImpl struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRefreshLock creates a lock stored at prefix + ":refresh-lock" that expires after ttl.
func NewRefreshLock(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RefreshLockImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshLockImpl{client: client, key: prefix + ":refresh-lock", ttl: ttl, logger: logger}
}

// TryAcquire attempts to take the lock. It returns a release func when acquired.
func (l *RefreshLockImpl) TryAcquire(ctx context.Context) (func(), bool, error) {
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// Use a fresh context; the caller's may already be done.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int64()
		switch {
		case err != nil:
			l.logger.Warn("failed to release refresh lock, it stays held until its TTL expires",
				zap.String("key", l.key),
				zap.Duration("ttl", l.ttl),
				zap.Error(err),
			)
		case deleted == 0:
			l.logger.Warn("refresh lock expired before release", zap.String("key", l.key), zap.Duration("ttl", l.ttl))
		}
	}
	return release, true, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
