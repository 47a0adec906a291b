// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibai0/dianping/internal/pkg/logger"
)

type AppCtx struct {
	Mux *http.ServeMux
}

// AppInfo 包含了启动一个服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx)       // 一个函数，允许每个服务注册自己独特的 HTTP 路由
	OnStart          func(ctx context.Context) // 可选：随服务一起启动的后台组件
	OnStop           func()                    // 可选：优雅关停时清理后台组件
}

// StartService 封装了服务的通用启动和优雅关停逻辑。
// 收到 SIGINT/SIGTERM 后先停后台组件，再在限定时间内关闭 HTTP 服务器。
func StartService(info AppInfo) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 创建并注册 HTTP 路由
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux})
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}

	// 2. 启动后台组件
	if info.OnStart != nil {
		info.OnStart(ctx)
	}

	// 3. 启动 HTTP Server，并等待退出信号
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("service", info.ServiceName).Int("port", info.Port).Msg("✅ HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str("service", info.ServiceName).Msg("Shutting down service...")

		// 先停后台消费者，避免关停期间还在拉取新消息
		if info.OnStop != nil {
			info.OnStop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Str("service", info.ServiceName).Msg("service exited with error")
		return
	}
	logger.Info().Str("service", info.ServiceName).Msg("Service gracefully shut down.")
}
