// internal/service/order/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_admitted_total",
		Help: "Number of seckill requests admitted by the atomic gate.",
	})
	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seckill_rejected_total",
		Help: "Number of seckill requests rejected, by reason.",
	}, []string{"reason"})
	materializedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_orders_materialized_total",
		Help: "Number of voucher orders durably persisted by the worker.",
	})
	materializeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_materialize_failures_total",
		Help: "Number of materialization attempts that failed and will be replayed.",
	})
	stockDivergenceTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_stock_divergence_total",
		Help: "Admitted intents that found the authoritative stock already exhausted.",
	})
)
