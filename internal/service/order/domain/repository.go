// internal/service/order/domain/repository.go
package domain

import "context"

// OrderStore 定义订单与权威库存的持久化接口。
// 它位于领域层，由基础设施层实现。
type OrderStore interface {
	// Transaction 在一个数据库事务中执行 fn，fn 收到的 store 绑定在该事务上。
	Transaction(ctx context.Context, fn func(tx OrderStore) error) error

	// CountByUserAndVoucher 统计某用户在某券上的订单数，用于幂等校验。
	CountByUserAndVoucher(ctx context.Context, userID, voucherID int64) (int64, error)

	// Create 插入订单行。命中 (user_id, voucher_id) 唯一索引时返回 ErrOrderExists。
	Create(ctx context.Context, order *VoucherOrder) error

	// FindByUserAndVoucher 查询已物化的订单，不存在时返回 ErrOrderNotFound。
	FindByUserAndVoucher(ctx context.Context, userID, voucherID int64) (*VoucherOrder, error)

	// DecrementStock 带下限保护地扣减权威库存（stock > 0 才扣）。
	// 返回是否真的扣到了一行。
	DecrementStock(ctx context.Context, voucherID int64) (bool, error)

	// GetVoucher 读取秒杀券，不存在时返回 ErrVoucherNotFound。
	GetVoucher(ctx context.Context, voucherID int64) (*SeckillVoucher, error)

	// SaveVoucher 新建或整体覆盖一张秒杀券。
	SaveVoucher(ctx context.Context, voucher *SeckillVoucher) error
}
