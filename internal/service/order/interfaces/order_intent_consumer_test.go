// internal/service/order/interfaces/order_intent_consumer_test.go
package interfaces

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibai0/dianping/internal/service/order/domain/port"
)

// fakeQueue 在内存里模拟消费组语义：投递过但未 ack 的条目留在 pending。
type fakeQueue struct {
	mu        sync.Mutex
	entries   []*port.OrderIntent // 未投递
	pending   []*port.OrderIntent // 已投递未 ack
	acked     []string
	dead      []*port.OrderIntent
	malformed map[string]bool
}

func newFakeQueue(intents ...*port.OrderIntent) *fakeQueue {
	return &fakeQueue{entries: intents, malformed: make(map[string]bool)}
}

func (q *fakeQueue) ReadNext(ctx context.Context, block time.Duration) (*port.OrderIntent, error) {
	q.mu.Lock()
	if len(q.entries) == 0 {
		q.mu.Unlock()
		time.Sleep(time.Millisecond) // 模拟阻塞超时
		return nil, nil
	}
	intent := q.entries[0]
	q.entries = q.entries[1:]
	q.pending = append(q.pending, intent)
	q.mu.Unlock()

	if q.malformed[intent.EntryID] {
		return &port.OrderIntent{EntryID: intent.EntryID}, fmt.Errorf("%w: bad fields", port.ErrMalformedIntent)
	}
	return intent, nil
}

func (q *fakeQueue) ReadPending(ctx context.Context) (*port.OrderIntent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	intent := q.pending[0]
	if q.malformed[intent.EntryID] {
		return &port.OrderIntent{EntryID: intent.EntryID}, fmt.Errorf("%w: bad fields", port.ErrMalformedIntent)
	}
	return intent, nil
}

func (q *fakeQueue) Ack(ctx context.Context, entryID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, p := range q.pending {
		if p.EntryID == entryID {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	q.acked = append(q.acked, entryID)
	return nil
}

func (q *fakeQueue) DeadLetter(ctx context.Context, intent *port.OrderIntent, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, intent)
	return nil
}

func (q *fakeQueue) ackedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acked)
}

func (q *fakeQueue) deadCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dead)
}

// fakeMaterializer 按条目 ID 预设失败次数，之后成功。
type fakeMaterializer struct {
	mu        sync.Mutex
	failures  map[string]int // 每个条目还要失败几次；-1 表示永远失败
	processed map[string]int
}

func newFakeMaterializer() *fakeMaterializer {
	return &fakeMaterializer{failures: make(map[string]int), processed: make(map[string]int)}
}

func (m *fakeMaterializer) CreateVoucherOrder(ctx context.Context, intent *port.OrderIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.failures[intent.EntryID]; n != 0 {
		if n > 0 {
			m.failures[intent.EntryID] = n - 1
		}
		return errors.New("transient materialization failure")
	}
	m.processed[intent.EntryID]++
	return nil
}

func (m *fakeMaterializer) processedCount(entryID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[entryID]
}

func startConsumer(t *testing.T, q *fakeQueue, m *fakeMaterializer, maxAttempts int) *OrderIntentConsumer {
	t.Helper()
	c := NewOrderIntentConsumer(q, m, 5*time.Millisecond, time.Millisecond, maxAttempts)
	c.Start(context.Background())
	t.Cleanup(c.Stop)
	return c
}

func TestConsumerAcksAfterSuccess(t *testing.T) {
	q := newFakeQueue(&port.OrderIntent{EntryID: "1-1", OrderID: 1001, UserID: 7, VoucherID: 10})
	m := newFakeMaterializer()
	startConsumer(t, q, m, 16)

	require.Eventually(t, func() bool { return q.ackedCount() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, 1, m.processedCount("1-1"))
}

func TestConsumerReplaysPendingAfterFailure(t *testing.T) {
	q := newFakeQueue(&port.OrderIntent{EntryID: "1-1", OrderID: 1001, UserID: 7, VoucherID: 10})
	m := newFakeMaterializer()
	m.failures["1-1"] = 2 // 先失败两次，恢复流程重放后成功
	startConsumer(t, q, m, 16)

	require.Eventually(t, func() bool { return q.ackedCount() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, 1, m.processedCount("1-1"), "entry must be materialized exactly once after replay")
	require.Equal(t, 0, q.deadCount())
}

func TestConsumerPreservesOrderAcrossRecovery(t *testing.T) {
	q := newFakeQueue(
		&port.OrderIntent{EntryID: "1-1", OrderID: 1001, UserID: 7, VoucherID: 10},
		&port.OrderIntent{EntryID: "1-2", OrderID: 1002, UserID: 8, VoucherID: 10},
	)
	m := newFakeMaterializer()
	m.failures["1-1"] = 1
	startConsumer(t, q, m, 16)

	require.Eventually(t, func() bool { return q.ackedCount() == 2 }, time.Second, time.Millisecond)
	require.Equal(t, 1, m.processedCount("1-1"))
	require.Equal(t, 1, m.processedCount("1-2"))
}

func TestConsumerEscalatesPoisonEntry(t *testing.T) {
	q := newFakeQueue(
		&port.OrderIntent{EntryID: "1-1", OrderID: 1001, UserID: 7, VoucherID: 10},
		&port.OrderIntent{EntryID: "1-2", OrderID: 1002, UserID: 8, VoucherID: 10},
	)
	m := newFakeMaterializer()
	m.failures["1-1"] = -1 // 永远失败的毒消息
	startConsumer(t, q, m, 3)

	// 毒消息进入死信流并被 ack，后面的消息不被它卡住
	require.Eventually(t, func() bool { return q.deadCount() == 1 && q.ackedCount() == 2 }, time.Second, time.Millisecond)
	require.Equal(t, 0, m.processedCount("1-1"))
	require.Equal(t, 1, m.processedCount("1-2"))
}

func TestConsumerDeadLettersMalformedEntry(t *testing.T) {
	q := newFakeQueue(&port.OrderIntent{EntryID: "1-1"})
	q.malformed["1-1"] = true
	m := newFakeMaterializer()
	startConsumer(t, q, m, 16)

	require.Eventually(t, func() bool { return q.deadCount() == 1 && q.ackedCount() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, 0, m.processedCount("1-1"))
}

func TestConsumerStopTerminates(t *testing.T) {
	q := newFakeQueue()
	c := NewOrderIntentConsumer(q, newFakeMaterializer(), 5*time.Millisecond, time.Millisecond, 16)
	c.Start(context.Background())

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop in time")
	}
}
