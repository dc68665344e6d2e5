package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/carpool/internal/client/models"
	"github.com/redis/go-redis/v9"
)

const (
	fieldAccess  = "access"
	fieldRefresh = "refresh"
)

// redisAPI is the subset of *redis.Client the repository uses.
type redisAPI interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisRepository keeps the pair in a hash at carpool:session:<profile>.
type RedisRepository struct {
	rdb redisAPI
	key string
	ttl time.Duration
}

// NewRedisClient parses url (redis://...) and checks the connection.
func NewRedisClient(ctx context.Context, url, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if password != "" {
		opts.Password = password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// NewRedisRepository stores the session of profile. A zero ttl keeps the
// key until Clear.
func NewRedisRepository(rdb redisAPI, profile string, ttl time.Duration) *RedisRepository {
	if profile == "" {
		profile = "default"
	}
	return &RedisRepository{rdb: rdb, key: "carpool:session:" + profile, ttl: ttl}
}

func (r *RedisRepository) Load(ctx context.Context) (models.Tokens, error) {
	m, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return models.Tokens{}, fmt.Errorf("session hgetall failed: %w", err)
	}
	return models.Tokens{AccessToken: m[fieldAccess], RefreshToken: m[fieldRefresh]}, nil
}

func (r *RedisRepository) Save(ctx context.Context, t models.Tokens) error {
	if err := r.rdb.HSet(ctx, r.key, fieldAccess, t.AccessToken, fieldRefresh, t.RefreshToken).Err(); err != nil {
		return fmt.Errorf("session hset failed: %w", err)
	}
	if r.ttl > 0 {
		if err := r.rdb.Expire(ctx, r.key, r.ttl).Err(); err != nil {
			return fmt.Errorf("session expire failed: %w", err)
		}
	}
	return nil
}

func (r *RedisRepository) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("session del failed: %w", err)
	}
	return nil
}
