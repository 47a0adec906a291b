// internal/service/order/domain/port/queue.go
package port

import (
	"context"
	"errors"
	"time"
)

// ErrMalformedIntent 表示队列条目无法解码成下单意向。
// 返回该错误时条目的 EntryID 仍然有效，调用方据此转移死信并 ack。
var ErrMalformedIntent = errors.New("malformed order intent entry")

// OrderIntent 是准入成功后写入队列的下单意向。
type OrderIntent struct {
	EntryID   string // 队列条目 ID，用于 ack / 死信
	OrderID   int64
	UserID    int64
	VoucherID int64
}

// OrderIntentQueue 是物化器消费的持久化工作队列。
// 未 ack 的条目保留在本消费者的 pending-list 中，可反复重放。
type OrderIntentQueue interface {
	// ReadNext 阻塞至多 block 时长等待一条新消息，没有新消息时返回 (nil, nil)。
	ReadNext(ctx context.Context, block time.Duration) (*OrderIntent, error)

	// ReadPending 从头读取本消费者 pending-list 中的下一条，清空时返回 (nil, nil)。
	ReadPending(ctx context.Context) (*OrderIntent, error)

	// Ack 确认一条消息，确认后不再出现在 pending-list。
	Ack(ctx context.Context, entryID string) error

	// DeadLetter 将无法处理的条目复制到死信流，供人工排查。
	DeadLetter(ctx context.Context, intent *OrderIntent, reason string) error
}
