// internal/service/order/domain/port/seckill.go
package port

import "context"

// AdmissionResult 是准入脚本的业务状态码。
type AdmissionResult int

const (
	AdmissionAccepted  AdmissionResult = iota // 准入成功
	AdmissionSoldOut                          // 库存不足
	AdmissionDuplicate                        // 重复下单
)

// AdmissionGate 是秒杀准入的原子判定入口：
// 库存校验、一人一单校验、乐观扣减与意向入队必须在一次不可分割的操作里完成。
type AdmissionGate interface {
	AttemptSeckill(ctx context.Context, voucherID, userID, orderID int64) (AdmissionResult, error)

	// PrepareVoucher 预热某张券的 Redis 库存并清空已购名单（管理/测试用）。
	PrepareVoucher(ctx context.Context, voucherID int64, stock int) error
}
