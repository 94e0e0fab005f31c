package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired-and-retaken lock is never released by the previous owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a gate shared by every process pointing at the same Redis.
// Capacity is always one. The TTL bounds how long a crashed holder can
// block its group.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis connects to redisURL and verifies the connection
func NewRedis(redisURL string, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisWithClient(client, ttl, logger), nil
}

// NewRedisWithClient creates a gate from an existing Redis client
func NewRedisWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client: client,
		prefix: "gate:",
		ttl:    ttl,
		logger: logger,
	}
}

func (g *Redis) key(key string) string {
	return g.prefix + key
}

// TryAcquire sets the lock key if absent or fails with ErrBusy
func (g *Redis) TryAcquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.key(key), token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire gate %s: %w", key, err)
	}
	if !ok {
		return nil, ErrBusy
	}

	return func() {
		// Release outlives the command's context.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, g.client, []string{g.key(key)}, token).Err(); err != nil {
			g.logger.Warn("release gate", "key", key, "error", err)
		}
	}, nil
}

// Close closes the Redis connection
func (g *Redis) Close() error {
	return g.client.Close()
}

// Ping checks if Redis is reachable
func (g *Redis) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}
