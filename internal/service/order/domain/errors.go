// internal/service/order/domain/errors.go
package domain

import "errors"

// 同步准入阶段返回给调用方的业务性拒绝，不是系统故障。
var (
	ErrStockInsufficient = errors.New("insufficient voucher stock")
	ErrOrderExists       = errors.New("user already ordered this voucher")
	ErrSeckillNotStarted = errors.New("seckill has not started yet")
	ErrSeckillEnded      = errors.New("seckill has ended")
)

var (
	// ErrOrderInFlight 表示同一用户的另一次物化还持有锁。
	// 调用方不应 ack 对应条目，留给 pending 重放，而不是丢弃订单。
	ErrOrderInFlight = errors.New("order for this user is being processed")

	ErrVoucherNotFound = errors.New("seckill voucher not found")
	ErrOrderNotFound   = errors.New("voucher order not found")
)
