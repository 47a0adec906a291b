// internal/service/order/domain/port/lock.go
package port

import (
	"context"
	"time"
)

// Lock 是一把命名分布式锁。
type Lock interface {
	// TryLock 单次尝试加锁，不阻塞等待。
	TryLock(ctx context.Context, ttl time.Duration) (bool, error)
	// Unlock 释放锁，只对自己持有的锁生效。
	Unlock(ctx context.Context) error
}

// LockFactory 按资源名创建锁实例。
type LockFactory func(name string) Lock

// IDGenerator 签发全局唯一订单号。
type IDGenerator interface {
	NextID(ctx context.Context, prefix string) (int64, error)
}
