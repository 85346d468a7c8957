package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	Key      string // list key holding the watchlist
}

// RedisStore keeps the watchlist in a Redis list.
type RedisStore struct {
	client *goredis.Client
	key    string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = "stochwatch:symbols"
	}
	log.Printf("[INFO] redis symbol store connected to %s (key %s)", cfg.Addr, key)
	return &RedisStore{client: client, key: key}, nil
}

// Load reads the list. Entries written by other clients are cleaned and deduplicated.
func (s *RedisStore) Load(ctx context.Context) ([]string, error) {
	symbols, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	return Dedupe(symbols), nil
}

// Save replaces the list atomically.
func (s *RedisStore) Save(ctx context.Context, symbols []string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(symbols) == 0 {
			return nil
		}
		vals := make([]interface{}, len(symbols))
		for i, sym := range symbols {
			vals[i] = strings.ToUpper(sym)
		}
		pipe.RPush(ctx, s.key, vals...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
