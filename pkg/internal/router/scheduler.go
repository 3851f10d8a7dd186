package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/torrentvault/pkg/internal/handle"
	"github.com/yeisme/torrentvault/pkg/middleware"
)

// RegisterJobRoutes 注册定时任务路由，仅版主可访问.
func RegisterJobRoutes(g *gin.RouterGroup, h *handle.Handler) {
	jobs := g.Group("/jobs", middleware.RequireModerator())
	{
		jobs.GET("", h.ListJobs)
		jobs.POST("/:name/run", h.RunJob)
	}
}
