// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taibai0/dianping/internal/pkg/logger"
	"github.com/taibai0/dianping/internal/service/order/domain"
	"github.com/taibai0/dianping/internal/service/order/domain/port"
)

// OrderApplicationService 定义了秒杀下单的所有业务用例：
// 同步准入（SeckillVoucher）与异步物化（CreateVoucherOrder）。
type OrderApplicationService struct {
	store   domain.OrderStore
	gate    port.AdmissionGate
	ids     port.IDGenerator
	newLock port.LockFactory
	lockTTL time.Duration
	tracer  trace.Tracer
}

// NewOrderApplicationService 创建应用服务实例。
func NewOrderApplicationService(
	store domain.OrderStore,
	gate port.AdmissionGate,
	ids port.IDGenerator,
	newLock port.LockFactory,
	lockTTL time.Duration,
	tracer trace.Tracer,
) *OrderApplicationService {
	return &OrderApplicationService{
		store:   store,
		gate:    gate,
		ids:     ids,
		newLock: newLock,
		lockTTL: lockTTL,
		tracer:  tracer,
	}
}

// SeckillVoucher 是同步准入入口：签发订单号，原子执行准入脚本。
// 准入成功返回订单号；业务性拒绝返回 domain.ErrStockInsufficient /
// domain.ErrOrderExists 等哨兵错误；Redis 不可用则原样上抛。
func (s *OrderApplicationService) SeckillVoucher(ctx context.Context, voucherID, userID int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "service.SeckillVoucher")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("voucher.id", voucherID),
		attribute.Int64("user.id", userID),
	)

	// 1. 秒杀时间窗口校验；库里没有这张券的记录时直接放行，交给库存校验兜底
	voucher, err := s.store.GetVoucher(ctx, voucherID)
	if err != nil && !errors.Is(err, domain.ErrVoucherNotFound) {
		return 0, err
	}
	if voucher != nil {
		now := time.Now()
		if !voucher.Started(now) {
			rejectedTotal.WithLabelValues("not_started").Inc()
			return 0, domain.ErrSeckillNotStarted
		}
		if voucher.Ended(now) {
			rejectedTotal.WithLabelValues("ended").Inc()
			return 0, domain.ErrSeckillEnded
		}
	}

	// 2. 先签发订单号，准入脚本需要把它一并写进消息流
	orderID, err := s.ids.NextID(ctx, "order")
	if err != nil {
		return 0, fmt.Errorf("failed to generate order id: %w", err)
	}

	// 3. 原子准入
	result, err := s.gate.AttemptSeckill(ctx, voucherID, userID, orderID)
	if err != nil {
		return 0, err
	}
	switch result {
	case port.AdmissionAccepted:
		admittedTotal.Inc()
		span.AddEvent("admission accepted")
		return orderID, nil
	case port.AdmissionSoldOut:
		rejectedTotal.WithLabelValues("sold_out").Inc()
		return 0, domain.ErrStockInsufficient
	case port.AdmissionDuplicate:
		rejectedTotal.WithLabelValues("duplicate").Inc()
		return 0, domain.ErrOrderExists
	default:
		return 0, fmt.Errorf("unexpected admission result: %d", result)
	}
}

// CreateVoucherOrder 物化一条下单意向：按用户加锁、幂等校验、权威扣减、落库。
// 返回 domain.ErrOrderInFlight 时调用方不应 ack，条目留给 pending 重放。
// 返回 nil 表示条目已处理完毕（包括"订单已存在"这类重投递场景），可以 ack。
func (s *OrderApplicationService) CreateVoucherOrder(ctx context.Context, intent *port.OrderIntent) error {
	ctx, span := s.tracer.Start(ctx, "service.CreateVoucherOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", intent.OrderID),
		attribute.Int64("user.id", intent.UserID),
		attribute.Int64("voucher.id", intent.VoucherID),
	)

	// 1. 按用户加锁，单次尝试不等待
	l := s.newLock(fmt.Sprintf("order:%d", intent.UserID))
	ok, err := l.TryLock(ctx, s.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire order lock: %w", err)
	}
	if !ok {
		// 同一用户的另一次物化还在进行中。不丢单，交给 pending 重放
		logger.Ctx(ctx).Warn().
			Int64("userId", intent.UserID).
			Int64("orderId", intent.OrderID).
			Msg("order lock contention, intent left pending")
		return domain.ErrOrderInFlight
	}
	// 2. 无论成败都释放锁
	defer func() {
		if err := l.Unlock(ctx); err != nil {
			logger.Ctx(ctx).Error().Err(err).Int64("userId", intent.UserID).Msg("failed to release order lock")
		}
	}()

	// 3. 锁内走一个数据库事务：幂等校验 → 权威扣减 → 落库
	created := false
	err = s.store.Transaction(ctx, func(tx domain.OrderStore) error {
		count, err := tx.CountByUserAndVoucher(ctx, intent.UserID, intent.VoucherID)
		if err != nil {
			return err
		}
		if count > 0 {
			// 重投递：订单已经物化过，按成功处理
			logger.Ctx(ctx).Info().Int64("orderId", intent.OrderID).Msg("order already materialized, skipping")
			return nil
		}

		affected, err := tx.DecrementStock(ctx, intent.VoucherID)
		if err != nil {
			return err
		}
		if !affected {
			// 权威库存和准入层出现分歧。重试不可能成功，放弃落库并告警
			stockDivergenceTotal.Inc()
			logger.Ctx(ctx).Error().
				Int64("voucherId", intent.VoucherID).
				Int64("orderId", intent.OrderID).
				Msg("authoritative stock exhausted for admitted intent")
			return nil
		}

		if err := tx.Create(ctx, &domain.VoucherOrder{
			ID:         intent.OrderID,
			UserID:     intent.UserID,
			VoucherID:  intent.VoucherID,
			CreateTime: time.Now(),
		}); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderExists) {
			// 唯一索引兜底：并发重放插入了同一订单，按成功处理
			logger.Ctx(ctx).Info().Int64("orderId", intent.OrderID).Msg("duplicate order insert blocked by unique index")
			return nil
		}
		materializeFailures.Inc()
		return err
	}
	if created {
		materializedTotal.Inc()
	}
	return nil
}

// PrepareSeckillVoucher 预置一张秒杀券：写入权威库存并预热 Redis 侧的
// 库存计数与已购名单（管理/测试用）。
func (s *OrderApplicationService) PrepareSeckillVoucher(ctx context.Context, voucher *domain.SeckillVoucher) error {
	if err := s.store.SaveVoucher(ctx, voucher); err != nil {
		return err
	}
	return s.gate.PrepareVoucher(ctx, voucher.VoucherID, voucher.Stock)
}

// GetOrder 查询已物化的订单，供调用方轮询异步建单结果。
func (s *OrderApplicationService) GetOrder(ctx context.Context, userID, voucherID int64) (*domain.VoucherOrder, error) {
	return s.store.FindByUserAndVoucher(ctx, userID, voucherID)
}
