package configs

import "github.com/spf13/viper"

// AuthConfig 控制会话身份识别（信任反向代理如 oauth2-proxy 注入的请求头）.
// 未识别身份的请求按匿名访客处理，不会被拒绝.
type AuthConfig struct {
	Enabled       bool     `mapstructure:"enabled"`         // 是否从请求头识别用户
	UserHeaders   []string `mapstructure:"user_headers"`    // 按顺序检查的用户名请求头
	SkipPaths     []string `mapstructure:"skip_paths"`      // 不做身份识别的路径前缀
	DevAllowQuery bool     `mapstructure:"dev_allow_query"` // 开发模式允许用 ?as_user= 模拟登录
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.dev_allow_query", false)
	v.SetDefault("auth.user_headers", []string{
		"X-Auth-Request-User",
		"X-Forwarded-User",
	})
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/api/v1/health",
	})
}
