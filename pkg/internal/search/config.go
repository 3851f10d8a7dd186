package search

import "github.com/yeisme/torrentvault/pkg/configs"

// Config 引擎运行参数.
type Config struct {
	PerPage           int
	UseFullTextIndex  bool
	MaxResultBudget   int
	FeedCacheSeconds  int
	SiteURL           string
	Trackers          []string
	MaxMagnetTrackers int
}

// DefaultConfig 与配置文件默认值一致.
func DefaultConfig() Config {
	return Config{
		PerPage:           configs.DefaultResultsPerPage,
		MaxResultBudget:   configs.DefaultMaxSearchResults,
		FeedCacheSeconds:  configs.DefaultFeedCacheSeconds,
		SiteURL:           configs.DefaultSiteURL,
		MaxMagnetTrackers: configs.DefaultMaxMagnetTrackers,
	}
}

// FromSettings 由配置节构造引擎参数，非法值回退到默认.
func FromSettings(s configs.SearchConfig) Config {
	cfg := DefaultConfig()

	if s.ResultsPerPage > 0 {
		cfg.PerPage = s.ResultsPerPage
	}

	if s.MaxSearchResults >= 0 {
		cfg.MaxResultBudget = s.MaxSearchResults
	}

	if s.FeedCacheSeconds >= 0 {
		cfg.FeedCacheSeconds = s.FeedCacheSeconds
	}

	if s.SiteURL != "" {
		cfg.SiteURL = s.SiteURL
	}

	if s.MaxMagnetTrackers >= 0 {
		cfg.MaxMagnetTrackers = s.MaxMagnetTrackers
	}

	cfg.UseFullTextIndex = s.UseFullTextIndex
	cfg.Trackers = append([]string(nil), s.Trackers...)

	return cfg
}
