// internal/service/order/domain/order.go
package domain

import "time"

// VoucherOrder 是秒杀订单聚合根。
// ID 在准入阶段就已经由全局 ID 生成器签发，物化阶段只负责落库。
type VoucherOrder struct {
	ID         int64
	UserID     int64
	VoucherID  int64
	CreateTime time.Time
}

// SeckillVoucher 是一张秒杀券，Stock 为数据库中的权威库存。
// Redis 中的计数器只是准入层的乐观副本。
type SeckillVoucher struct {
	VoucherID int64
	Stock     int
	BeginTime time.Time
	EndTime   time.Time
}

// Started 判断秒杀是否已开始。未配置时间窗口的券视为随时可买。
func (v *SeckillVoucher) Started(now time.Time) bool {
	return v.BeginTime.IsZero() || !now.Before(v.BeginTime)
}

// Ended 判断秒杀是否已结束。
func (v *SeckillVoucher) Ended(now time.Time) bool {
	return !v.EndTime.IsZero() && now.After(v.EndTime)
}
