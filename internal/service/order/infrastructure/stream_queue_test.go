// internal/service/order/infrastructure/stream_queue_test.go
package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taibai0/dianping/internal/pkg/redis"
	"github.com/taibai0/dianping/internal/service/order/domain/port"
)

const (
	testStream   = "stream.orders"
	testGroup    = "g1"
	testConsumer = "c1"
)

func newTestQueue(t *testing.T) (*StreamOrderQueue, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q, err := NewStreamOrderQueue(redis.NewClientFromRedis(rdb), testStream, testGroup, testConsumer)
	require.NoError(t, err)
	return q, rdb
}

func addIntent(t *testing.T, rdb *goredis.Client, orderID, userID, voucherID string) string {
	t.Helper()
	id, err := rdb.XAdd(context.Background(), &goredis.XAddArgs{
		Stream: testStream,
		Values: map[string]interface{}{"id": orderID, "userId": userID, "voucherId": voucherID},
	}).Result()
	require.NoError(t, err)
	return id
}

func TestReadNextDecodesAndAckClearsPending(t *testing.T) {
	q, rdb := newTestQueue(t)
	ctx := context.Background()

	entryID := addIntent(t, rdb, "1001", "7", "10")

	intent, err := q.ReadNext(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, intent)
	require.Equal(t, entryID, intent.EntryID)
	require.EqualValues(t, 1001, intent.OrderID)
	require.EqualValues(t, 7, intent.UserID)
	require.EqualValues(t, 10, intent.VoucherID)

	require.NoError(t, q.Ack(ctx, intent.EntryID))

	pending, err := q.ReadPending(ctx)
	require.NoError(t, err)
	require.Nil(t, pending, "acked entries must leave the pending list")
}

func TestUnackedEntrySurvivesRestart(t *testing.T) {
	q, rdb := newTestQueue(t)
	ctx := context.Background()

	addIntent(t, rdb, "1001", "7", "10")

	intent, err := q.ReadNext(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, intent)
	// 不 ack，模拟处理途中进程崩溃

	// 新实例（同组同消费者）重启后从 pending-list 里重放同一条
	q2, err := NewStreamOrderQueue(redis.NewClientFromRedis(rdb), testStream, testGroup, testConsumer)
	require.NoError(t, err)

	replayed, err := q2.ReadPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, replayed)
	require.Equal(t, intent.EntryID, replayed.EntryID)
	require.Equal(t, intent.OrderID, replayed.OrderID)

	require.NoError(t, q2.Ack(ctx, replayed.EntryID))
	empty, err := q2.ReadPending(ctx)
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestReadNextNoMessageReturnsNil(t *testing.T) {
	q, _ := newTestQueue(t)

	intent, err := q.ReadNext(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, intent)
}

func TestMalformedEntryKeepsEntryID(t *testing.T) {
	q, rdb := newTestQueue(t)
	ctx := context.Background()

	id, err := rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: testStream,
		Values: map[string]interface{}{"id": "not-a-number", "userId": "7"},
	}).Result()
	require.NoError(t, err)

	intent, err := q.ReadNext(ctx, 10*time.Millisecond)
	require.ErrorIs(t, err, port.ErrMalformedIntent)
	require.NotNil(t, intent)
	require.Equal(t, id, intent.EntryID, "entry id must survive decode failure for dead-lettering")
}

func TestDeadLetterCopiesEntry(t *testing.T) {
	q, rdb := newTestQueue(t)
	ctx := context.Background()

	intent := &port.OrderIntent{EntryID: "1-1", OrderID: 1001, UserID: 7, VoucherID: 10}
	require.NoError(t, q.DeadLetter(ctx, intent, "handle attempts exhausted"))

	msgs, err := rdb.XRange(ctx, testStream+".dlq", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "1001", msgs[0].Values["id"])
	require.Equal(t, "1-1", msgs[0].Values["origin"])
	require.Equal(t, "handle attempts exhausted", msgs[0].Values["reason"])
}
