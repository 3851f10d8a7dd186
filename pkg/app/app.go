// Package app 提供应用程序的初始化和配置功能.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/torrentvault/pkg/cache"
	"github.com/yeisme/torrentvault/pkg/configs"
	"github.com/yeisme/torrentvault/pkg/internal/handle"
	"github.com/yeisme/torrentvault/pkg/internal/jobs"
	"github.com/yeisme/torrentvault/pkg/internal/router"
	"github.com/yeisme/torrentvault/pkg/log"
	"github.com/yeisme/torrentvault/pkg/metrics"
	"github.com/yeisme/torrentvault/pkg/middleware"
	"github.com/yeisme/torrentvault/pkg/scheduler"
)

const shutdownTimeout = 10 * time.Second

// FeedCacheNamespace RSS 响应缓存在 KV 中的命名空间.
const FeedCacheNamespace = configs.AppName + ".feed"

type App struct {
	Engine    *gin.Engine
	core      *Core
	scheduler *scheduler.Scheduler
	config    *configs.AppConfig
	log       zerolog.Logger
}

// NewApp 组装业务组件、定时任务与 gin 中间件链.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	core, err := NewCore(ctx, configPath)
	if err != nil {
		return nil, err
	}

	config := core.Config

	sched, err := scheduler.NewScheduler()
	if err != nil {
		_ = core.Close(ctx)
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if config.Jobs.Enabled {
		err = jobs.RegisterCronJobs(ctx, sched, config.Jobs, jobs.Deps{
			Syncer:     core.Syncer,
			Categories: core.Categories,
		})
		if err != nil {
			_ = core.Close(ctx)
			return nil, fmt.Errorf("register jobs: %w", err)
		}
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.SessionMiddleware(config.Auth, core.Services.Users),
	)

	if err := metrics.StartMetricsServer(config.Metrics, engine); err != nil {
		_ = core.Close(ctx)
		return nil, err
	}

	// 索引未启用时保持 nil 接口，健康检查据此返回 disabled
	var indexPinger handle.Pinger
	if core.Index != nil {
		indexPinger = core.Index
	}

	h := handle.New(core.Engine, core.Categories, core.Storage.GetDBClient(), indexPinger, sched)

	feedCache := cache.NewCache(core.Storage.GetKVClient(), FeedCacheNamespace)
	router.Register(engine, h, router.Options{
		FeedCache: middleware.FeedCacheMiddleware(feedCache),
		Breaker:   middleware.CircuitBreakerMiddleware("search", config.CircuitBreaker),
	})

	return &App{
		Engine:    engine,
		core:      core,
		scheduler: sched,
		config:    config,
		log:       log.Component("app"),
	}, nil
}

// Run 启动调度器与 HTTP 服务，ctx 取消后优雅退出.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.config.Server.GetTimeoutDuration(),
	}

	if a.config.Jobs.Enabled {
		a.scheduler.Start()
	}

	errCh := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var runErr error

	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	a.log.Info().Msg("shutting down")

	errs := []error{runErr, srv.Shutdown(shutdownCtx), a.scheduler.Shutdown(), a.core.Close(shutdownCtx)}

	return errors.Join(errs...)
}
