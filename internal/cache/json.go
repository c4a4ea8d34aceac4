package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

func GetJSON(ctx context.Context, c Cache, key string, dest interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}

// AccountKey is where a loyalty account snapshot is cached
func AccountKey(userID int64) string {
	return fmt.Sprintf("loyalty:account:%d", userID)
}
