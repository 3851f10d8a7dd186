package configs

import "github.com/spf13/viper"

// JobsConfig 后台定时任务配置.
type JobsConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	IndexSyncCron       string `mapstructure:"index_sync_cron"`       // 关系库增量同步到全文索引
	CategoryRefreshCron string `mapstructure:"category_refresh_cron"` // 刷新分类名缓存
	IndexSyncBatch      int    `mapstructure:"index_sync_batch"`
	// IndexSyncOverlapSeconds 增量同步回看的秒数，覆盖晚提交的事务.
	IndexSyncOverlapSeconds int `mapstructure:"index_sync_overlap_seconds"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.index_sync_cron", "*/5 * * * *")
	v.SetDefault("jobs.category_refresh_cron", "0 * * * *")
	v.SetDefault("jobs.index_sync_batch", 500)
	v.SetDefault("jobs.index_sync_overlap_seconds", 5)
}
