package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// HealthDB 关系库健康检查.
//
//	@Summary	数据库健康检查
//	@Tags		健康
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/db [get]
func (h *Handler) HealthDB(c *gin.Context) {
	h.health(c, "db", h.DB)
}

// HealthIndex 全文索引健康检查，未启用索引时返回 disabled.
//
//	@Summary	全文索引健康检查
//	@Tags		健康
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/index [get]
func (h *Handler) HealthIndex(c *gin.Context) {
	if h.Index == nil {
		c.JSON(http.StatusOK, gin.H{"component": "index", "status": "disabled"})
		return
	}

	h.health(c, "index", h.Index)
}

func (h *Handler) health(c *gin.Context, component string, p Pinger) {
	if p == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": component + " client not initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": component, "status": "ok"})
}
