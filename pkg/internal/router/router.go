// Package router 把检索、订阅与管理接口绑定到 gin 引擎.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/torrentvault/pkg/internal/handle"
)

// Options 由应用层注入的路由级中间件，均可为 nil.
type Options struct {
	// FeedCache 挂在 /rss 上的订阅响应缓存.
	FeedCache gin.HandlerFunc
	// Breaker 保护检索后端的熔断器.
	Breaker gin.HandlerFunc
}

// Register 绑定全部路由：
//
//	GET  /                       -> 交互式检索（JSON）
//	GET  /rss                    -> RSS 订阅
//	GET  /api/v1/search          -> 同 /
//	GET  /api/v1/categories      -> 分类列表
//	GET  /api/v1/health/{db,index}
//	GET  /api/v1/jobs            -> 版主可见
//	POST /api/v1/jobs/:name/run  -> 版主触发
func Register(r *gin.Engine, h *handle.Handler, opts Options) {
	searchChain := chain(opts.Breaker, h.SearchPage)
	feedChain := chain(opts.FeedCache, opts.Breaker, h.Feed)

	r.GET("/", searchChain...)
	r.GET("/rss", feedChain...)

	api := r.Group("/api/v1")
	{
		api.GET("/search", searchChain...)
		api.GET("/categories", h.ListCategories)
	}

	RegisterHealthCheckRoute(api, h)
	RegisterJobRoutes(api, h)

	r.NoRoute(handle.NotFound)
}

// chain 跳过 nil 中间件.
func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))

	for _, fn := range handlers {
		if fn != nil {
			out = append(out, fn)
		}
	}

	return out
}
