// internal/pkg/redis/id_worker.go
package redis

import (
	"context"
	"fmt"
	"time"
)

const (
	// 固定起始时间戳（秒），新 ID 的时间戳位是相对它的偏移
	beginTimestamp int64 = 1741046400
	// 序列号占低 32 位
	countBits = 32
)

// IDWorker 基于 Redis 自增生成全局唯一、大致按时间递增的 64 位 ID。
// 高 32 位为相对时间戳，低 32 位为"前缀+日期"维度上的自增序列。
// 同一前缀单日调用超过 2^32 次会溢出进时间戳位，这是容量上界，不做处理。
type IDWorker struct {
	client *Client
}

// NewIDWorker 创建 ID 生成器。
func NewIDWorker(client *Client) *IDWorker {
	return &IDWorker{client: client}
}

// NextID 生成下一个 ID。Redis 不可用时返回错误。
func (w *IDWorker) NextID(ctx context.Context, keyPrefix string) (int64, error) {
	// 1. 生成时间戳
	now := time.Now().UTC()
	timestamp := now.Unix() - beginTimestamp

	// 2. 生成序列号：按天分 key，新的一天自动从 1 开始
	date := now.Format("20060102")
	count, err := w.client.GetClient().Incr(ctx, fmt.Sprintf("icr:%s:%s", keyPrefix, date)).Result()
	if err != nil {
		return 0, fmt.Errorf("id worker failed to increment sequence: %w", err)
	}

	// 3. 拼接并返回
	return timestamp<<countBits | count, nil
}
