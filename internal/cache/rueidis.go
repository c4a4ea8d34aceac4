package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/rueidis"
)

// Valkey client libraries
const (
	ClientGoRedis = "go-redis"
	ClientRueidis = "rueidis"
)

// RueidisClient is the Cache over rueidis, which pipelines commands on a single connection
type RueidisClient struct {
	client rueidis.Client
	prefix string
}

func NewRueidisClient(ctx context.Context, cfg ValkeyConfig) (*RueidisClient, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      []string{cfg.Addr},
		Password:         cfg.Password,
		SelectDB:         cfg.DB,
		ConnWriteTimeout: 2 * time.Second,
		Dialer:           net.Dialer{Timeout: 5 * time.Second},
		// снимки аккаунтов инвалидируются явно, client-side кеш не нужен
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	return &RueidisClient{client: client, prefix: cfg.KeyPrefix}, nil
}

func (r *RueidisClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Do(ctx, r.client.B().Get().Key(r.prefix+key).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return val, nil
}

func (r *RueidisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := r.client.B().Set().Key(r.prefix + key).Value(rueidis.BinaryString(value))
	if ttl > 0 {
		return r.client.Do(ctx, cmd.PxMilliseconds(ttl.Milliseconds()).Build()).Error()
	}
	return r.client.Do(ctx, cmd.Build()).Error()
}

func (r *RueidisClient) Delete(ctx context.Context, key string) error {
	return r.client.Do(ctx, r.client.B().Del().Key(r.prefix+key).Build()).Error()
}

func (r *RueidisClient) Close() error {
	r.client.Close()
	return nil
}

// NewValkey opens the client library named by cfg.Client
func NewValkey(ctx context.Context, cfg ValkeyConfig) (Cache, error) {
	switch cfg.Client {
	case "", ClientGoRedis:
		c, err := NewValkeyClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ClientRueidis:
		c, err := NewRueidisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown valkey client %q", cfg.Client)
	}
}
