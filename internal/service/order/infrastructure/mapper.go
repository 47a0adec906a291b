// internal/service/order/infrastructure/mapper.go
package infrastructure

import "github.com/taibai0/dianping/internal/service/order/domain"

func toDomainOrder(m *VoucherOrderModel) *domain.VoucherOrder {
	return &domain.VoucherOrder{
		ID:         m.ID,
		UserID:     m.UserID,
		VoucherID:  m.VoucherID,
		CreateTime: m.CreateTime,
	}
}

func toOrderModel(o *domain.VoucherOrder) *VoucherOrderModel {
	return &VoucherOrderModel{
		ID:         o.ID,
		UserID:     o.UserID,
		VoucherID:  o.VoucherID,
		CreateTime: o.CreateTime,
	}
}

func toDomainVoucher(m *SeckillVoucherModel) *domain.SeckillVoucher {
	return &domain.SeckillVoucher{
		VoucherID: m.VoucherID,
		Stock:     m.Stock,
		BeginTime: m.BeginTime,
		EndTime:   m.EndTime,
	}
}

func toVoucherModel(v *domain.SeckillVoucher) *SeckillVoucherModel {
	return &SeckillVoucherModel{
		VoucherID: v.VoucherID,
		Stock:     v.Stock,
		BeginTime: v.BeginTime,
		EndTime:   v.EndTime,
	}
}
