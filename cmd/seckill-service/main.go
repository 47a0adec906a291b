// cmd/seckill-service/main.go
package main

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"

	"github.com/taibai0/dianping/internal/pkg/bootstrap"
	"github.com/taibai0/dianping/internal/pkg/config"
	"github.com/taibai0/dianping/internal/pkg/lock"
	"github.com/taibai0/dianping/internal/pkg/logger"
	redispkg "github.com/taibai0/dianping/internal/pkg/redis"
	"github.com/taibai0/dianping/internal/pkg/tracing"
	"github.com/taibai0/dianping/internal/service/order/application"
	"github.com/taibai0/dianping/internal/service/order/domain/port"
	"github.com/taibai0/dianping/internal/service/order/infrastructure"
	"github.com/taibai0/dianping/internal/service/order/infrastructure/adapter"
	"github.com/taibai0/dianping/internal/service/order/interfaces"
)

const serviceName = "seckill-service"

// main 函数是应用的"组装根" (Composition Root)。
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	logger.Init(serviceName)

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// 1. 初始化核心技术组件
	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	defer tp.Shutdown(context.Background())
	tracer := otel.Tracer(serviceName)

	redisClient, err := redispkg.NewClient(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize redis client")
	}
	defer redisClient.Close()

	db, err := infrastructure.NewDB(cfg.Infra.Mysql.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize mysql")
	}

	// 2. 组装业务组件
	store := infrastructure.NewGormOrderStore(db)

	gate, err := adapter.NewSeckillRedisAdapter(redisClient, cfg.Seckill.Stream)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize seckill admission gate")
	}

	queue, err := infrastructure.NewStreamOrderQueue(redisClient, cfg.Seckill.Stream, cfg.Seckill.Group, cfg.Seckill.Consumer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize order intent queue")
	}

	idWorker := redispkg.NewIDWorker(redisClient)
	lockFactory := port.LockFactory(func(name string) port.Lock {
		return lock.NewSimpleRedisLock(redisClient, name)
	})

	appSvc := application.NewOrderApplicationService(
		store, gate, idWorker, lockFactory, cfg.Seckill.LockTTL.Std(), tracer,
	)

	consumer := interfaces.NewOrderIntentConsumer(
		queue, appSvc,
		cfg.Seckill.BlockTimeout.Std(),
		cfg.Seckill.RetryBackoff.Std(),
		cfg.Seckill.MaxHandleAttempts,
	)
	handler := interfaces.NewSeckillHandler(appSvc)

	// 3. 启动服务（HTTP 边界 + 后台物化工作者）
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnStart: consumer.Start,
		OnStop:  consumer.Stop,
	})
}
