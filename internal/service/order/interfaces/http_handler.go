// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/taibai0/dianping/internal/pkg/logger"
	"github.com/taibai0/dianping/internal/service/order/application"
	"github.com/taibai0/dianping/internal/service/order/domain"
)

const serviceName = "seckill-service"

// SeckillHandler 封装了秒杀服务的 HTTP 处理器。
// 认证、会话等横切关注点由上游网关完成，这里直接信任 userId 参数。
type SeckillHandler struct {
	service *application.OrderApplicationService
}

// NewSeckillHandler 创建一个新的 HTTP 处理器实例。
func NewSeckillHandler(service *application.OrderApplicationService) *SeckillHandler {
	return &SeckillHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *SeckillHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("POST /voucher/seckill", h.seckillHandler)
	mux.HandleFunc("POST /voucher/seckill/prepare", h.prepareHandler)
	mux.HandleFunc("GET /voucher/order", h.getOrderHandler)
}

func (h *SeckillHandler) seckillHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "api.SeckillVoucher")
	defer span.End()
	ctx = logger.WithContext(ctx)

	voucherID, err1 := strconv.ParseInt(r.URL.Query().Get("voucherId"), 10, 64)
	userID, err2 := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "voucherId and userId are required")
		return
	}
	span.SetAttributes(
		attribute.Int64("voucher.id", voucherID),
		attribute.Int64("user.id", userID),
	)

	orderID, err := h.service.SeckillVoucher(ctx, voucherID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStockInsufficient),
			errors.Is(err, domain.ErrOrderExists):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrSeckillNotStarted),
			errors.Is(err, domain.ErrSeckillEnded):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			logger.Ctx(ctx).Error().Err(err).Msg("seckill admission failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	// 订单号同步返回，订单行由后台工作者异步落库
	writeJSON(w, http.StatusOK, map[string]interface{}{"orderId": orderID})
}

func (h *SeckillHandler) prepareHandler(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithContext(r.Context())

	voucherID, err1 := strconv.ParseInt(r.URL.Query().Get("voucherId"), 10, 64)
	stock, err2 := strconv.Atoi(r.URL.Query().Get("stock"))
	if err1 != nil || err2 != nil || stock < 0 {
		writeError(w, http.StatusBadRequest, "voucherId and a non-negative stock are required")
		return
	}

	voucher := &domain.SeckillVoucher{VoucherID: voucherID, Stock: stock}
	if v := r.URL.Query().Get("beginTime"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "beginTime must be RFC3339")
			return
		}
		voucher.BeginTime = t
	}
	if v := r.URL.Query().Get("endTime"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "endTime must be RFC3339")
			return
		}
		voucher.EndTime = t
	}

	if err := h.service.PrepareSeckillVoucher(ctx, voucher); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to prepare seckill voucher")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"voucherId": voucherID, "stock": stock})
}

func (h *SeckillHandler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithContext(r.Context())

	voucherID, err1 := strconv.ParseInt(r.URL.Query().Get("voucherId"), 10, 64)
	userID, err2 := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "voucherId and userId are required")
		return
	}

	order, err := h.service.GetOrder(ctx, userID, voucherID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			// 准入成功但尚未物化时也会走到这里，调用方可稍后重试
			writeError(w, http.StatusNotFound, "order not materialized yet")
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("failed to query voucher order")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orderId":    order.ID,
		"userId":     order.UserID,
		"voucherId":  order.VoucherID,
		"createTime": order.CreateTime,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
