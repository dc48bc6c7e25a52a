// Package cache holds the Redis connection shared between server instances
// and the in-flight guards built on it.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 3 * time.Second
)

// Cache is a Redis client whose keys live under a fixed namespace.
type Cache struct {
	client    *redis.Client
	namespace string
}

// Options parses a redis:// or rediss:// URL and applies the connection
// timeouts used by New.
func Options(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = ioTimeout
	opts.WriteTimeout = ioTimeout
	return opts, nil
}

// New connects to Redis and verifies the connection. Keys are prefixed
// with namespace; an empty namespace leaves them bare.
func New(ctx context.Context, url, namespace string) (*Cache, error) {
	opts, err := Options(url)
	if err != nil {
		return nil, err
	}

	c := wrap(redis.NewClient(opts), namespace)
	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func wrap(client *redis.Client, namespace string) *Cache {
	return &Cache{client: client, namespace: strings.Trim(namespace, ":")}
}

// Key joins parts into a namespaced key.
func (c *Cache) Key(parts ...string) string {
	if c.namespace != "" {
		parts = append([]string{c.namespace}, parts...)
	}
	return strings.Join(parts, ":")
}

// Ping reports whether Redis answers.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging cache: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
