// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client 在 go-redis 之上封装了一个命名脚本注册表。
// 业务方在初始化时注册脚本，之后通过名字执行，底层走 EVALSHA 并自动回退 EVAL。
type Client struct {
	rdb *redis.Client

	mu      sync.RWMutex
	scripts map[string]*redis.Script
}

// NewClient 建立 Redis 连接并验证连通性。
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis at %s: %w", addr, err)
	}
	return newClient(rdb), nil
}

// NewClientFromRedis 复用一个已有的 go-redis 连接，主要供测试使用。
func NewClientFromRedis(rdb *redis.Client) *Client {
	return newClient(rdb)
}

func newClient(rdb *redis.Client) *Client {
	return &Client{
		rdb:     rdb,
		scripts: make(map[string]*redis.Script),
	}
}

// GetClient 暴露底层连接，供需要原生命令的调用方使用。
func (c *Client) GetClient() *redis.Client { return c.rdb }

// LoadScriptFromContent 以给定名字注册一段 Lua 脚本。
func (c *Client) LoadScriptFromContent(name, content string) error {
	if content == "" {
		return fmt.Errorf("script %q has empty content", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[name] = redis.NewScript(content)
	return nil
}

// RunScript 执行一段已注册的脚本。
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("script %q is not loaded", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

// Close 关闭底层连接。
func (c *Client) Close() error { return c.rdb.Close() }
