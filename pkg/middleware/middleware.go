// Package middleware 提供 gin 中间件：会话身份、请求 ID、日志、监控、追踪、限流、熔断与 RSS 响应缓存.
package middleware
