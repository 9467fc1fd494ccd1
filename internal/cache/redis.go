// Package cache keeps recently queried stock rows in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"MarketLedger/internal/model"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ledger:row:"

// Redis is a JSON read-through cache for StockRows.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// Key returns the cache key for a row.
func Key(symbol string, date time.Time) string {
	return keyPrefix + model.RowKey(symbol, date)
}

// Get returns the cached row, or ok=false on a miss.
func (r *Redis) Get(ctx context.Context, symbol string, date time.Time) (*model.StockRow, bool, error) {
	val, err := r.client.Get(ctx, Key(symbol, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var row model.StockRow
	if err := json.Unmarshal(val, &row); err != nil {
		return nil, false, fmt.Errorf("decode cached row: %w", err)
	}
	return &row, true, nil
}

// Set stores row with the configured expiration.
func (r *Redis) Set(ctx context.Context, row *model.StockRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, Key(row.Symbol, row.Date), data, r.ttl).Err()
}

// Invalidate removes cached entries for the given rows.
func (r *Redis) Invalidate(ctx context.Context, rows []model.StockRow) error {
	if len(rows) == 0 {
		return nil
	}
	keys := make([]string, len(rows))
	for i := range rows {
		keys[i] = Key(rows[i].Symbol, rows[i].Date)
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
