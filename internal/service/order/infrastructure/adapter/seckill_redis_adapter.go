// internal/service/order/infrastructure/adapter/seckill_redis_adapter.go
package adapter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/taibai0/dianping/internal/pkg/redis"
	"github.com/taibai0/dianping/internal/service/order/domain/port"
)

const seckillScriptName = "seckill"

// SeckillRedisAdapter 是 port.AdmissionGate 接口的 Redis 实现。
// 库存校验、一人一单校验、乐观扣减与意向入队在一个 Lua 脚本里原子完成，
// 两个并发请求不可能同时通过库存校验或同时通过重复校验。
type SeckillRedisAdapter struct {
	redisClient *redis.Client
	streamKey   string
}

// NewSeckillRedisAdapter 创建一个新的秒杀准入适配器实例。
// 它在创建时会加载所需的 Lua 脚本。
func NewSeckillRedisAdapter(redisClient *redis.Client, streamKey string) (*SeckillRedisAdapter, error) {
	if err := redisClient.LoadScriptFromContent(seckillScriptName, seckillScript); err != nil {
		return nil, fmt.Errorf("failed to load critical seckill script: %w", err)
	}
	return &SeckillRedisAdapter{
		redisClient: redisClient,
		streamKey:   streamKey,
	}, nil
}

func stockKey(voucherID int64) string {
	return fmt.Sprintf("seckill:stock:%d", voucherID)
}

func orderUserKey(voucherID int64) string {
	return fmt.Sprintf("seckill:order:%d", voucherID)
}

// AttemptSeckill 执行准入判定。
func (a *SeckillRedisAdapter) AttemptSeckill(ctx context.Context, voucherID, userID, orderID int64) (port.AdmissionResult, error) {
	keys := []string{stockKey(voucherID), orderUserKey(voucherID), a.streamKey}
	args := []interface{}{
		strconv.FormatInt(userID, 10),
		strconv.FormatInt(orderID, 10),
		strconv.FormatInt(voucherID, 10),
	}

	result, err := a.redisClient.RunScript(ctx, seckillScriptName, keys, args...)
	if err != nil {
		return 0, fmt.Errorf("seckill adapter failed to run script: %w", err)
	}

	code, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from Lua script: %T", result)
	}

	switch code {
	case 0:
		return port.AdmissionAccepted, nil
	case 1:
		return port.AdmissionSoldOut, nil
	case 2:
		return port.AdmissionDuplicate, nil
	default:
		return 0, fmt.Errorf("unknown result code from seckill script: %d", code)
	}
}

// PrepareVoucher (测试和管理用) 初始化秒杀券的 Redis 库存。
func (a *SeckillRedisAdapter) PrepareVoucher(ctx context.Context, voucherID int64, stock int) error {
	// 使用 pipeline 提高效率
	pipe := a.redisClient.GetClient().Pipeline()
	pipe.Set(ctx, stockKey(voucherID), stock, 0)
	pipe.Del(ctx, orderUserKey(voucherID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to prepare seckill voucher: %w", err)
	}
	return nil
}

var seckillScript = `
-- KEYS[1]: 库存 Key, 例如: seckill:stock:10
-- KEYS[2]: 已购用户集合 Key, 例如: seckill:order:10
-- KEYS[3]: 订单消息流 Key, 例如: stream.orders
-- ARGV[1]: userId  ARGV[2]: orderId  ARGV[3]: voucherId

-- 1. 判断库存是否充足
local stock = tonumber(redis.call('get', KEYS[1]))
if (stock == nil or stock <= 0) then
    return 1 -- 库存不足
end

-- 2. 判断用户是否已下过单
if (redis.call('sismember', KEYS[2], ARGV[1]) == 1) then
    return 2 -- 重复下单
end

-- 3. 扣库存、记录用户、投递下单意向
redis.call('incrby', KEYS[1], -1)
redis.call('sadd', KEYS[2], ARGV[1])
redis.call('xadd', KEYS[3], '*', 'id', ARGV[2], 'userId', ARGV[1], 'voucherId', ARGV[3])
return 0 -- 准入成功
`
