package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
)

// Config describes the redis (or Dragonfly) endpoint shared by cache, job
// queue and session storage.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func ConfigFromEnv() Config {
	return Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     env.GetEnv("CACHE_PORT", "6379"),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetInt("CACHE_DB", 0),
	}
}

// NewClient connects to the cache server. A failed ping is logged, not fatal:
// go-redis reconnects lazily once the server is reachable.
func NewClient(cfg Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if pong, err := client.Ping(ctx).Result(); err != nil {
		log.Warnf("[Cache] could not connect to %s: %v", client.Options().Addr, err)
	} else {
		log.Infof("[Cache] connected to %s: %s", client.Options().Addr, pong)
	}
	return client
}

// Cache is a small key/value facade over a redis client.
type Cache struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

// Client exposes the underlying connection for packages that need lists or hashes.
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Set stores a value in the cache with the given key and expiration time
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, expiration).Err()
}

// Get retrieves a value from the cache by key. A miss returns redis.Nil.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.key(key)).Result()
}

// Delete removes values from the cache
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// Remember returns the cached value for key or computes, stores and returns it.
// Cache read or write failures fall through to build.
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, build func() (string, error)) (string, error) {
	val, err := c.Get(ctx, key)
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, redis.Nil) {
		log.Warnf("[Cache] read %s failed: %v", key, err)
	}

	val, err = build()
	if err != nil {
		return "", err
	}
	if err := c.Set(ctx, key, val, ttl); err != nil {
		log.Warnf("[Cache] write %s failed: %v", key, err)
	}
	return val, nil
}
