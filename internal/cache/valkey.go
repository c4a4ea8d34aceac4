package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("cache: key not found")

// Cache is a byte-oriented key/value cache with per-key expiry
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type ValkeyConfig struct {
	// Client is go-redis (default) or rueidis
	Client    string
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// ValkeyClient talks to Valkey over the Redis protocol
type ValkeyClient struct {
	client *redis.Client
	prefix string
}

func NewValkeyClient(ctx context.Context, cfg ValkeyConfig) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{
		client: rdb,
		prefix: cfg.KeyPrefix,
	}, nil
}

func (v *ValkeyClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := v.client.Get(ctx, v.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return val, nil
}

func (v *ValkeyClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return v.client.Set(ctx, v.prefix+key, value, ttl).Err()
}

func (v *ValkeyClient) Delete(ctx context.Context, key string) error {
	return v.client.Del(ctx, v.prefix+key).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
