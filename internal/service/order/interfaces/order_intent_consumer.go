// internal/service/order/interfaces/order_intent_consumer.go
package interfaces

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/taibai0/dianping/internal/pkg/logger"
	"github.com/taibai0/dianping/internal/service/order/domain/port"
)

var deadLetterTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "seckill_dead_letter_total",
	Help: "Order intents escalated to the dead letter stream.",
})

// OrderMaterializer 由应用服务实现：把一条下单意向物化为持久化订单。
type OrderMaterializer interface {
	CreateVoucherOrder(ctx context.Context, intent *port.OrderIntent) error
}

// OrderIntentConsumer 是唯一的后台物化工作者。
// 单消费者设计：同一消费组只应启动一个实例，顺序消费下单意向流。
//
// 状态机只有两个状态：实时消费（live-tail）和 pending 恢复。任意一条
// 消息处理失败都会进入恢复态，从头重放本消费者未 ack 的条目，清空后
// 才回到实时消费。
type OrderIntentConsumer struct {
	queue        port.OrderIntentQueue
	materializer OrderMaterializer

	blockTimeout      time.Duration
	retryBackoff      time.Duration
	maxHandleAttempts int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewOrderIntentConsumer 创建一个新的物化工作者。
// maxHandleAttempts 是同一条 pending 条目连续失败的上限，超过后转移死信；
// 传 0 表示不设上限，无限重试。
func NewOrderIntentConsumer(
	queue port.OrderIntentQueue,
	materializer OrderMaterializer,
	blockTimeout, retryBackoff time.Duration,
	maxHandleAttempts int,
) *OrderIntentConsumer {
	return &OrderIntentConsumer{
		queue:             queue,
		materializer:      materializer,
		blockTimeout:      blockTimeout,
		retryBackoff:      retryBackoff,
		maxHandleAttempts: maxHandleAttempts,
	}
}

// Start 启动消费循环。这是一个长期运行的后台 goroutine。
func (c *OrderIntentConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop 优雅地停止消费者，等待在途消息处理完。
func (c *OrderIntentConsumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	logger.Info().Msg("✅ Order intent consumer stopped.")
}

func (c *OrderIntentConsumer) run(ctx context.Context) {
	defer c.wg.Done()
	logger.Ctx(ctx).Info().Msg("✅ Order intent consumer started.")

	// 启动时先清一遍 pending-list：上一次进程崩溃时可能留下已投递未 ack 的条目
	c.recoverPending(ctx)

	for {
		if ctx.Err() != nil {
			logger.Ctx(ctx).Info().Msg("🛑 Order intent consumer shutting down.")
			return
		}

		intent, err := c.queue.ReadNext(ctx, c.blockTimeout)
		if err != nil {
			if errors.Is(err, port.ErrMalformedIntent) && intent != nil {
				// 解码失败是确定性错误，重试不可能成功，直接转移死信
				c.escalate(ctx, intent, err.Error())
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			logger.Ctx(ctx).Error().Err(err).Msg("failed to read order stream, retrying...")
			c.sleep(ctx, c.retryBackoff)
			continue
		}
		if intent == nil {
			continue // 阻塞超时，没有新消息
		}

		if err := c.materializer.CreateVoucherOrder(ctx, intent); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("entryId", intent.EntryID).
				Msg("failed to materialize order intent, entering recovery")
			c.recoverPending(ctx)
			continue
		}
		if err := c.queue.Ack(ctx, intent.EntryID); err != nil {
			// 未 ack 的条目会被下一轮恢复重放，落库侧的幂等校验兜底
			logger.Ctx(ctx).Error().Err(err).Str("entryId", intent.EntryID).Msg("failed to ack order intent")
		}
	}
}

// recoverPending 从头重放本消费者的 pending-list，直到清空后返回实时消费。
// 同一条目连续失败超过上限时转移死信，避免毒消息阻塞整个队列。
func (c *OrderIntentConsumer) recoverPending(ctx context.Context) {
	var (
		lastEntry string
		attempts  int
	)
	for {
		if ctx.Err() != nil {
			return
		}

		intent, err := c.queue.ReadPending(ctx)
		if err != nil {
			if errors.Is(err, port.ErrMalformedIntent) && intent != nil {
				c.escalate(ctx, intent, err.Error())
				continue
			}
			logger.Ctx(ctx).Error().Err(err).Msg("failed to read pending list, retrying...")
			c.sleep(ctx, c.retryBackoff)
			continue
		}
		if intent == nil {
			return // pending-list 已清空，回到实时消费
		}

		if intent.EntryID == lastEntry {
			attempts++
		} else {
			lastEntry, attempts = intent.EntryID, 1
		}
		if c.maxHandleAttempts > 0 && attempts > c.maxHandleAttempts {
			c.escalate(ctx, intent, "handle attempts exhausted")
			lastEntry, attempts = "", 0
			continue
		}

		if err := c.materializer.CreateVoucherOrder(ctx, intent); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("entryId", intent.EntryID).
				Int("attempts", attempts).
				Msg("failed to replay pending intent, backing off")
			c.sleep(ctx, c.retryBackoff)
			continue
		}
		if err := c.queue.Ack(ctx, intent.EntryID); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("entryId", intent.EntryID).Msg("failed to ack replayed intent")
			c.sleep(ctx, c.retryBackoff)
		}
	}
}

// escalate 将无法处理的条目复制到死信流并 ack。
func (c *OrderIntentConsumer) escalate(ctx context.Context, intent *port.OrderIntent, reason string) {
	deadLetterTotal.Inc()
	logger.Ctx(ctx).Error().
		Str("entryId", intent.EntryID).
		Str("reason", reason).
		Msg("moving order intent to dead letter stream")
	if err := c.queue.DeadLetter(ctx, intent, reason); err != nil {
		// 死信写入失败时保留在 pending，下一轮恢复再试
		logger.Ctx(ctx).Error().Err(err).Str("entryId", intent.EntryID).Msg("failed to write dead letter entry")
		return
	}
	if err := c.queue.Ack(ctx, intent.EntryID); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("entryId", intent.EntryID).Msg("failed to ack dead-lettered intent")
	}
}

func (c *OrderIntentConsumer) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
