package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/foodcourt/pkg/config"
	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"github.com/go-redis/redis/v8"
)

// RedisRepository is the local ephemeral store: session pointers and cart
// snapshots live here. It is never the source of truth for authorization;
// the Mongo record is re-validated on every privileged action.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// SetSessionPointer mirrors the admin's current session id for a device.
// TTL matches the session horizon so stale pointers age out on their own.
func (r *RedisRepository) SetSessionPointer(ctx context.Context, deviceID, sessionID string, ttl time.Duration) error {
	key := fmt.Sprintf("admin_session:%s", deviceID)
	return r.Set(ctx, key, sessionID, ttl)
}

func (r *RedisRepository) GetSessionPointer(ctx context.Context, deviceID string) (string, error) {
	key := fmt.Sprintf("admin_session:%s", deviceID)
	sessionID, err := r.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fault.NotFound("session pointer", deviceID)
		}
		return "", err
	}
	return sessionID, nil
}

func (r *RedisRepository) DelSessionPointer(ctx context.Context, deviceID string) error {
	return r.Del(ctx, fmt.Sprintf("admin_session:%s", deviceID))
}

// CacheCart stores a short-lived copy of the cart for fast reloads.
func (r *RedisRepository) CacheCart(ctx context.Context, cart *models.Cart) error {
	key := fmt.Sprintf("cart:%s", cart.UserID)
	return r.SetJSON(ctx, key, cart, 30*time.Minute)
}

func (r *RedisRepository) GetCachedCart(ctx context.Context, userID string) (*models.Cart, error) {
	key := fmt.Sprintf("cart:%s", userID)
	var cart models.Cart
	if err := r.GetJSON(ctx, key, &cart); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fault.NotFound("cached cart", userID)
		}
		return nil, err
	}
	return &cart, nil
}

func (r *RedisRepository) DropCachedCart(ctx context.Context, userID string) error {
	return r.Del(ctx, fmt.Sprintf("cart:%s", userID))
}
