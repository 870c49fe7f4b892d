package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AnriTapel/logitrades/internal/domain"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ImportLock serializes imports of one user across server instances.
type ImportLock struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewImportLock(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ImportLock {
	return &ImportLock{client: client, ttl: ttl, logger: logger}
}

// Acquire takes the user's lock or fails with domain.ErrImportInProgress.
// The returned func releases it only if it is still held by this caller.
func (l *ImportLock) Acquire(ctx context.Context, userID uuid.UUID) (func(), error) {
	key := "import_lock:" + userID.String()
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis acquire import lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrImportInProgress
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(ctx, l.client, []string{key}, owner).Int64()
		switch {
		case err != nil:
			l.logger.Error("release import lock failed, held until ttl", "user_id", userID, "ttl", l.ttl, "err", err)
		case deleted == 0:
			l.logger.Warn("import lock expired before release", "user_id", userID, "ttl", l.ttl)
		}
	}, nil
}
