// internal/service/order/infrastructure/stream_queue.go
package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/taibai0/dianping/internal/pkg/redis"
	"github.com/taibai0/dianping/internal/service/order/domain/port"
)

// StreamOrderQueue 基于 Redis Stream 消费组实现 port.OrderIntentQueue。
// 未 ack 的条目保留在消费者的 pending-list 中，进程重启后依然可以重放。
type StreamOrderQueue struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

// NewStreamOrderQueue 创建队列实例，消费组不存在时一并创建（连同流本身）。
func NewStreamOrderQueue(client *redis.Client, stream, group, consumer string) (*StreamOrderQueue, error) {
	err := client.GetClient().XGroupCreateMkStream(context.Background(), stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, pkgerrors.Wrapf(err, "failed to create consumer group %s on stream %s", group, stream)
	}
	return &StreamOrderQueue{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}, nil
}

// ReadNext 以 ">" 读取一条新消息，至多阻塞 block 时长。
func (q *StreamOrderQueue) ReadNext(ctx context.Context, block time.Duration) (*port.OrderIntent, error) {
	return q.readOne(ctx, ">", block)
}

// ReadPending 以 "0" 从头读取本消费者 pending-list 的下一条。
func (q *StreamOrderQueue) ReadPending(ctx context.Context) (*port.OrderIntent, error) {
	// 显式偏移量读取不会阻塞，传负值避免 go-redis 发送 BLOCK
	return q.readOne(ctx, "0", -1)
}

func (q *StreamOrderQueue) readOne(ctx context.Context, offset string, block time.Duration) (*port.OrderIntent, error) {
	streams, err := q.client.GetClient().XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, offset},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil // 阻塞超时，没有新消息
		}
		return nil, pkgerrors.Wrapf(err, "failed to read stream %s", q.stream)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return decodeIntent(streams[0].Messages[0])
}

// Ack 确认一条消息。
func (q *StreamOrderQueue) Ack(ctx context.Context, entryID string) error {
	if err := q.client.GetClient().XAck(ctx, q.stream, q.group, entryID).Err(); err != nil {
		return pkgerrors.Wrapf(err, "failed to ack entry %s", entryID)
	}
	return nil
}

// DeadLetter 将条目复制到死信流，原始条目 ID 和原因随消息一起保留。
func (q *StreamOrderQueue) DeadLetter(ctx context.Context, intent *port.OrderIntent, reason string) error {
	err := q.client.GetClient().XAdd(ctx, &goredis.XAddArgs{
		Stream: q.stream + ".dlq",
		Values: map[string]interface{}{
			"id":        strconv.FormatInt(intent.OrderID, 10),
			"userId":    strconv.FormatInt(intent.UserID, 10),
			"voucherId": strconv.FormatInt(intent.VoucherID, 10),
			"origin":    intent.EntryID,
			"reason":    reason,
		},
	}).Err()
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to write dead letter for entry %s", intent.EntryID)
	}
	return nil
}

// decodeIntent 把流条目解析成下单意向。
// 字段缺失或非法时返回 ErrMalformedIntent，但 EntryID 仍然可用于死信转移。
func decodeIntent(msg goredis.XMessage) (*port.OrderIntent, error) {
	intent := &port.OrderIntent{EntryID: msg.ID}

	var err error
	if intent.OrderID, err = fieldInt64(msg.Values, "id"); err != nil {
		return intent, fmt.Errorf("%w: %v", port.ErrMalformedIntent, err)
	}
	if intent.UserID, err = fieldInt64(msg.Values, "userId"); err != nil {
		return intent, fmt.Errorf("%w: %v", port.ErrMalformedIntent, err)
	}
	if intent.VoucherID, err = fieldInt64(msg.Values, "voucherId"); err != nil {
		return intent, fmt.Errorf("%w: %v", port.ErrMalformedIntent, err)
	}
	return intent, nil
}

func fieldInt64(values map[string]interface{}, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("field %q is not a string", key)
	}
	return strconv.ParseInt(s, 10, 64)
}
