// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	mysqldrv "github.com/go-sql-driver/mysql"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taibai0/dianping/internal/service/order/domain"
)

// GormOrderStore 是 domain.OrderStore 的 GORM 实现。
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore 创建一个新的 GORM 仓储实例。
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// Transaction 在数据库事务中执行 fn。fn 返回错误时整体回滚，不留半行数据。
func (s *GormOrderStore) Transaction(ctx context.Context, fn func(tx domain.OrderStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormOrderStore{db: tx})
	})
}

// CountByUserAndVoucher 统计某用户在某券上已存在的订单数。
func (s *GormOrderStore) CountByUserAndVoucher(ctx context.Context, userID, voucherID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&VoucherOrderModel{}).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to count voucher orders")
	}
	return count, nil
}

// Create 插入订单行，唯一索引冲突翻译成 domain.ErrOrderExists。
func (s *GormOrderStore) Create(ctx context.Context, order *domain.VoucherOrder) error {
	if err := s.db.WithContext(ctx).Create(toOrderModel(order)).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.ErrOrderExists
		}
		return pkgerrors.Wrap(err, "failed to insert voucher order")
	}
	return nil
}

// FindByUserAndVoucher 查询已物化的订单。
func (s *GormOrderStore) FindByUserAndVoucher(ctx context.Context, userID, voucherID int64) (*domain.VoucherOrder, error) {
	var model VoucherOrderModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(err, "failed to find voucher order")
	}
	return toDomainOrder(&model), nil
}

// DecrementStock 带下限保护地扣减权威库存：
// UPDATE tb_seckill_voucher SET stock = stock - 1 WHERE voucher_id = ? AND stock > 0
func (s *GormOrderStore) DecrementStock(ctx context.Context, voucherID int64) (bool, error) {
	result := s.db.WithContext(ctx).Model(&SeckillVoucherModel{}).
		Where("voucher_id = ? AND stock > 0", voucherID).
		UpdateColumn("stock", gorm.Expr("stock - 1"))
	if result.Error != nil {
		return false, pkgerrors.Wrap(result.Error, "failed to decrement voucher stock")
	}
	return result.RowsAffected > 0, nil
}

// GetVoucher 读取秒杀券。
func (s *GormOrderStore) GetVoucher(ctx context.Context, voucherID int64) (*domain.SeckillVoucher, error) {
	var model SeckillVoucherModel
	err := s.db.WithContext(ctx).Where("voucher_id = ?", voucherID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrVoucherNotFound
		}
		return nil, pkgerrors.Wrap(err, "failed to find seckill voucher")
	}
	return toDomainVoucher(&model), nil
}

// SaveVoucher 新建或整体覆盖一张秒杀券。
func (s *GormOrderStore) SaveVoucher(ctx context.Context, voucher *domain.SeckillVoucher) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(toVoucherModel(voucher)).Error
	if err != nil {
		return pkgerrors.Wrap(err, "failed to save seckill voucher")
	}
	return nil
}

// isDuplicateKey 识别唯一索引冲突（MySQL 错误码 1062）。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldrv.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
