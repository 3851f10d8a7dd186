package configs

import "github.com/spf13/viper"

const (
	DefaultResultsPerPage    = 75                      // 每页结果数
	DefaultMaxSearchResults  = 1000                    // 全文索引最多可翻阅的结果数
	DefaultFeedCacheSeconds  = 300                     // RSS 缓存秒数
	DefaultSiteURL           = "http://localhost:8080" // 站点根地址
	DefaultMaxMagnetTrackers = 5                       // 磁力链接附带的最大 tracker 数
)

// SearchConfig 搜索引擎配置.
type SearchConfig struct {
	ResultsPerPage    int      `mapstructure:"results_per_page"    rule:"min=1,max=500"`
	UseFullTextIndex  bool     `mapstructure:"use_full_text_index"`
	MaxSearchResults  int      `mapstructure:"max_search_results"  rule:"min=0"`
	FeedCacheSeconds  int      `mapstructure:"feed_cache_seconds"  rule:"min=0"`
	SiteURL           string   `mapstructure:"site_url"            rule:"url"`
	Trackers          []string `mapstructure:"trackers"            rule:"dive,tracker_url"`
	MaxMagnetTrackers int      `mapstructure:"max_magnet_trackers" rule:"min=0"`
}

func (c *SearchConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("search.results_per_page", DefaultResultsPerPage)
	v.SetDefault("search.use_full_text_index", false)
	v.SetDefault("search.max_search_results", DefaultMaxSearchResults)
	v.SetDefault("search.feed_cache_seconds", DefaultFeedCacheSeconds)
	v.SetDefault("search.site_url", DefaultSiteURL)
	v.SetDefault("search.trackers", []string{
		"udp://open.stealth.si:80/announce",
		"udp://tracker.opentrackr.org:1337/announce",
		"udp://exodus.desync.com:6969/announce",
	})
	v.SetDefault("search.max_magnet_trackers", DefaultMaxMagnetTrackers)
}
