package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"
)

// Redis databases: cache and queue use 0, app sessions 1, OAuth state 2.
const (
	AppSessionDB = 1
	OAuthStateDB = 2
)

// RedisStorage opens a fiber storage on database db of the server client points at.
func RedisStorage(client *redis.Client, db int) fiber.Storage {
	host, port := "127.0.0.1", 6379
	opts := client.Options()
	if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	} else if opts.Addr != "" {
		host = opts.Addr
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Username: opts.Username,
		Password: opts.Password,
		Database: db,
		Reset:    false,
	})
}

// Store wraps the fiber session store for the app login session.
type Store struct {
	*session.Store
}

// New builds the app session store. A nil storage keeps sessions in memory.
func New(storage fiber.Storage, secure bool) *Store {
	return &Store{Store: session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
		Expiration:     7 * 24 * time.Hour,
		KeyLookup:      "cookie:session_id",
	})}
}

// SetValues stores several key-value pairs in the user's session
func (s *Store) SetValues(c *fiber.Ctx, values map[string]interface{}) error {
	sess, err := s.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	for k, v := range values {
		sess.Set(k, v)
	}
	return sess.Save()
}

// GetString retrieves a string value by key from the user's session
func (s *Store) GetString(c *fiber.Ctx, key string) string {
	sess, err := s.Get(c)
	if err != nil {
		return ""
	}
	if v, ok := sess.Get(key).(string); ok {
		return v
	}
	return ""
}

// GetBool retrieves a bool value by key from the user's session
func (s *Store) GetBool(c *fiber.Ctx, key string) bool {
	sess, err := s.Get(c)
	if err != nil {
		return false
	}
	v, _ := sess.Get(key).(bool)
	return v
}

// Destroy drops the session of the current request.
func (s *Store) Destroy(c *fiber.Ctx) error {
	sess, err := s.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
