package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const blogViewsKey = "blog:counters:views"

// Counter buffers hot-path increments in redis hashes and applies them to
// the database in batches.
type Counter struct {
	rdb *redis.Client
	db  *gorm.DB
}

func New(rdb *redis.Client, db *gorm.DB) *Counter {
	return &Counter{rdb: rdb, db: db}
}

// AddBlogView increments the pending view counter for a blog post in Redis
func (c *Counter) AddBlogView(ctx context.Context, postID uint64) error {
	field := strconv.FormatUint(postID, 10)
	return c.rdb.HIncrBy(ctx, blogViewsKey, field, 1).Err()
}

// Pending returns the buffered, not yet flushed views for a post.
func (c *Counter) Pending(ctx context.Context, postID uint64) (int64, error) {
	n, err := c.rdb.HGet(ctx, blogViewsKey, strconv.FormatUint(postID, 10)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Flush drains all buffered counters into the database.
func (c *Counter) Flush(ctx context.Context) error {
	return c.flushHashToTable(ctx, blogViewsKey, "blog_posts", "view_count")
}

// flushHashToTable drains a Redis hash atomically and applies batched increments.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func (c *Counter) flushHashToTable(ctx context.Context, redisKey, table, column string) error {
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := c.rdb.Rename(ctx, redisKey, tmpKey).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	defer c.rdb.Del(context.Background(), tmpKey)

	data, err := c.rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}

	type pair struct {
		id  uint64
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		id, perr := strconv.ParseUint(k, 10, 64)
		if perr != nil {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{id: id, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE t SET col = col + CASE id WHEN ? THEN ? ... END WHERE id IN (...)
	var b strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	fmt.Fprintf(&b, "UPDATE %s SET %s = %s + CASE id", table, column, column)
	for _, p := range pairs {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	b.WriteString(" ELSE 0 END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, p.id)
	}
	b.WriteString(")")

	return c.db.WithContext(ctx).Exec(b.String(), args...).Error
}
