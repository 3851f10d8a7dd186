// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"fmt"

	"github.com/yeisme/torrentvault/pkg/configs"
	"github.com/yeisme/torrentvault/pkg/internal/category"
	"github.com/yeisme/torrentvault/pkg/log"
	"github.com/yeisme/torrentvault/pkg/scheduler"
)

// Deps 定时任务依赖，Syncer 为 nil 时不注册索引同步.
type Deps struct {
	Syncer     *Syncer
	Categories *category.Cache
}

// RegisterCronJobs 配置业务定时任务：
//   - 按 index_sync_cron 将关系库变更同步到全文索引
//   - 按 category_refresh_cron 使分类名缓存失效并预热
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, cfg configs.JobsConfig, deps Deps) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if deps.Syncer != nil {
		err := sched.AddCron(ctx, JobIndexSync, cfg.IndexSyncCron, func(ctx context.Context) error {
			_, err := deps.Syncer.Sync(ctx)
			return err
		})
		if err != nil {
			return err
		}
	}

	if deps.Categories != nil {
		err := sched.AddCron(ctx, JobCategoryRefresh, cfg.CategoryRefreshCron, func(ctx context.Context) error {
			return RefreshCategories(ctx, deps.Categories)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// RefreshCategories 使分类缓存失效并立即重新加载.
func RefreshCategories(ctx context.Context, c *category.Cache) error {
	c.Invalidate()

	entries, err := c.Entries(ctx)
	if err != nil {
		return err
	}

	log.Logger().Debug().Str("job", JobCategoryRefresh).Int("categories", len(entries)).Msg("category cache refreshed")

	return nil
}
