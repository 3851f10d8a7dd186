package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/torrentvault/pkg/cache"
	"github.com/yeisme/torrentvault/pkg/configs"
	"github.com/yeisme/torrentvault/pkg/internal/category"
	"github.com/yeisme/torrentvault/pkg/internal/index"
	"github.com/yeisme/torrentvault/pkg/internal/jobs"
	"github.com/yeisme/torrentvault/pkg/internal/model"
	"github.com/yeisme/torrentvault/pkg/internal/search"
	"github.com/yeisme/torrentvault/pkg/internal/service"
	"github.com/yeisme/torrentvault/pkg/internal/storage"
	"github.com/yeisme/torrentvault/pkg/log"
	"github.com/yeisme/torrentvault/pkg/metrics"
	"github.com/yeisme/torrentvault/pkg/tracing"
)

// Core 不含 HTTP 的业务组件，serve 与命令行子命令共用.
type Core struct {
	Config     *configs.AppConfig
	Storage    *storage.Manager
	Services   *service.Services
	Categories *category.Cache
	// Index 未启用全文索引或打开失败时为 nil.
	Index  index.Index
	Engine *search.Engine
	// Syncer 仅在 Index 可用时存在.
	Syncer *jobs.Syncer
}

// NewCore 加载配置并初始化日志、追踪、监控、存储、索引与检索引擎.
func NewCore(ctx context.Context, configPath string) (*Core, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	cfg := configs.GetConfig()
	l := log.Logger()

	if err := tracing.InitTracer(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.DB.AutoMigrate {
		if err := model.AutoMigrate(manager.GetDBClient().GetDB().WithContext(ctx)); err != nil {
			_ = manager.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	c := &Core{
		Config:   cfg,
		Storage:  manager,
		Services: service.New(manager.GetDBClient()),
	}
	c.Categories = category.NewCache(c.Services.Categories, *l)

	deps := search.Deps{
		Users:      c.Services.Users,
		Content:    c.Services.Torrents,
		Store:      c.Services.Torrents,
		Categories: c.Categories,
		Logger:     l,
	}

	if cfg.Search.UseFullTextIndex {
		idx, err := index.New(ctx, cfg.Index)
		if err != nil {
			l.Warn().Err(err).Str("type", string(cfg.Index.Type)).Msg("full-text index unavailable, searching the relational store only")
		} else {
			c.Index = idx
			deps.Index = idx

			state := cache.NewCache(manager.GetKVClient(), configs.AppName+".sync")
			overlap := time.Duration(cfg.Jobs.IndexSyncOverlapSeconds) * time.Second
			c.Syncer = jobs.NewSyncer(c.Services.Torrents, idx, state, cfg.Jobs.IndexSyncBatch, *l).WithOverlap(overlap)
		}
	}

	c.Engine = search.NewEngine(search.FromSettings(cfg.Search), deps)

	return c, nil
}

// Close 释放索引与存储连接并刷新追踪数据.
func (c *Core) Close(ctx context.Context) error {
	var errs []error

	if c.Index != nil {
		errs = append(errs, c.Index.Close())
	}

	if c.Storage != nil {
		errs = append(errs, c.Storage.Close())
	}

	errs = append(errs, tracing.ShutdownTracer(ctx))

	return errors.Join(errs...)
}
