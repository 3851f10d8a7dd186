// Package configs 管理应用程序配置，包括数据库、全文索引、缓存和搜索的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "path/to/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing Search config:
//
//	config := configs.GetConfig()
//	searchConfig := config.Search
//	fmt.Println("per page:", searchConfig.ResultsPerPage)
//
// Example accessing Index config:
//
//	config := configs.GetConfig()
//	indexConfig := config.Index
//	fmt.Println("index type:", indexConfig.Type)
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/torrentvault/pkg/rule"
)

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器配置，端口、调试模式等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 关系型数据库配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 响应缓存使用的 KV 存储
		Search         SearchConfig         `mapstructure:"search"`          // SearchConfig 搜索引擎配置
		Index          IndexConfig          `mapstructure:"index"`           // IndexConfig 全文索引配置
		Jobs           JobsConfig           `mapstructure:"jobs"`            // JobsConfig 定时任务配置
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 追踪配置
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流配置
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断配置
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 会话身份配置
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
	// mu 保护热重载时的 globalConfig.
	mu sync.RWMutex
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// path 为空时只使用默认值与环境变量.
func InitConfig(path string) error {
	v := viper.New()
	setAllDefaults(v)

	v.SetEnvPrefix("TORRENTVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	hasFile := false

	if path != "" {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			// 是文件，使用SetConfigFile，Viper会自动检测类型
			v.SetConfigFile(path)

			hasFile = true
		} else {
			exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

			for _, dir := range []string{path, filepath.Join(path, "configs")} {
				for _, ext := range exts {
					cfg := filepath.Join(dir, "config."+ext)
					if _, err := os.Stat(cfg); err == nil {
						v.SetConfigFile(cfg)

						hasFile = true

						break
					}
				}

				if hasFile {
					break
				}
			}
		}
	}

	if hasFile {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	mu.Lock()
	globalConfig = cfg
	appViper = v
	mu.Unlock()

	if hasFile {
		reloadConfigs(v, cfg.Server.ReloadConfig)
	}

	return nil
}

// Validate 校验数据库、缓存、搜索、索引、限流与熔断配置，其余部分依赖默认值.
func (c *AppConfig) Validate() error {
	if err := rule.ValidateStruct(c.DB); err != nil {
		return fmt.Errorf("invalid db config: %w", err)
	}

	if err := rule.ValidateVar(c.KV.Type, rule.AliasKVType); err != nil {
		return fmt.Errorf("invalid kv type %q: %w", c.KV.Type, err)
	}

	if err := rule.ValidateStruct(c.Search); err != nil {
		return fmt.Errorf("invalid search config: %w", err)
	}

	if c.Search.UseFullTextIndex {
		if err := rule.ValidateStruct(c.Index); err != nil {
			return fmt.Errorf("invalid index config: %w", err)
		}
	}

	if err := rule.ValidateStruct(c.RateLimit); err != nil {
		return fmt.Errorf("invalid rate_limit config: %w", err)
	}

	if err := rule.ValidateStruct(c.CircuitBreaker); err != nil {
		return fmt.Errorf("invalid circuit_breaker config: %w", err)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig   ServerConfig
		logConfig      LogConfig
		dbConfig       DBConfig
		kvConfig       KVConfig
		searchConfig   SearchConfig
		indexConfig    IndexConfig
		jobsConfig     JobsConfig
		metricsConfig  MetricsConfig
		tracingConfig  TracingConfig
		rateLimit      RateLimitConfig
		circuitBreaker CircuitBreakerConfig
		authConfig     AuthConfig
	)

	serverConfig.setDefaults(v)
	logConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	kvConfig.setDefaults(v)
	searchConfig.setDefaults(v)
	indexConfig.setDefaults(v)
	jobsConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	rateLimit.setDefaults(v)
	circuitBreaker.setDefaults(v)
	authConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		var cfg AppConfig
		if err := v.Unmarshal(&cfg); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}

		if err := cfg.Validate(); err != nil {
			fmt.Printf("Rejected reloaded config: %v\n", err)
			return
		}

		mu.Lock()
		globalConfig = cfg
		mu.Unlock()
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例的副本.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()

	cfg := globalConfig

	return &cfg
}

// GetViper 返回全局 Viper 实例.
func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()

	return appViper
}
