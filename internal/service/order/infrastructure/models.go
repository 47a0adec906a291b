// internal/service/order/infrastructure/models.go
package infrastructure

import "time"

// VoucherOrderModel 对应 tb_voucher_order 表。
// (user_id, voucher_id) 上的唯一索引是重放场景下防止重复落库的最后一道防线。
type VoucherOrderModel struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	UserID     int64     `gorm:"column:user_id;not null;uniqueIndex:uq_user_voucher"`
	VoucherID  int64     `gorm:"column:voucher_id;not null;uniqueIndex:uq_user_voucher"`
	CreateTime time.Time `gorm:"column:create_time;not null"`
}

func (VoucherOrderModel) TableName() string { return "tb_voucher_order" }

// SeckillVoucherModel 对应 tb_seckill_voucher 表，stock 列是权威库存。
type SeckillVoucherModel struct {
	VoucherID int64     `gorm:"column:voucher_id;primaryKey"`
	Stock     int       `gorm:"column:stock;not null"`
	BeginTime time.Time `gorm:"column:begin_time"`
	EndTime   time.Time `gorm:"column:end_time"`
}

func (SeckillVoucherModel) TableName() string { return "tb_seckill_voucher" }
