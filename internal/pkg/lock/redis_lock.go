// internal/pkg/lock/redis_lock.go
package lock

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/taibai0/dianping/internal/pkg/redis"
)

const keyPrefix = "lock:"

// 进程级随机前缀 + 进程内自增序列，保证持有者标识跨进程、跨 goroutine 唯一
var (
	idPrefix = uuid.New().String() + "-"
	tokenSeq atomic.Int64
)

// unlockScript 原子地比较持有者标识后再删除。
// 锁过期后被其他执行流抢到时，旧持有者的释放必须是空操作，
// 否则会误删新持有者的锁，放任同一用户的两次物化并发执行。
var unlockScript = goredis.NewScript(`
if (redis.call('get', KEYS[1]) == ARGV[1]) then
    return redis.call('del', KEYS[1])
end
return 0
`)

// SimpleRedisLock 是基于 SET NX EX 的带过期时间分布式锁。
// 不可重入，也不做续期：TTL 到期即自动失效。
type SimpleRedisLock struct {
	client *redis.Client
	name   string
	token  string
}

// NewSimpleRedisLock 创建一个名为 name 的锁实例。
func NewSimpleRedisLock(client *redis.Client, name string) *SimpleRedisLock {
	return &SimpleRedisLock{client: client, name: name}
}

// TryLock 单次尝试加锁，不阻塞等待。
func (l *SimpleRedisLock) TryLock(ctx context.Context, ttl time.Duration) (bool, error) {
	token := idPrefix + strconv.FormatInt(tokenSeq.Add(1), 10)
	ok, err := l.client.GetClient().SetNX(ctx, keyPrefix+l.name, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.name, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Unlock 释放锁。只有持有者标识匹配时才会真正删除。
func (l *SimpleRedisLock) Unlock(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	err := unlockScript.Run(ctx, l.client.GetClient(), []string{keyPrefix + l.name}, l.token).Err()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.name, err)
	}
	l.token = ""
	return nil
}
