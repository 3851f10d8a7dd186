// Package handle 提供 HTTP 请求处理器，把检索引擎的结果映射为 JSON、RSS 或跳转.
package handle

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	ctxPkg "github.com/yeisme/torrentvault/pkg/context"
	"github.com/yeisme/torrentvault/pkg/internal/category"
	"github.com/yeisme/torrentvault/pkg/internal/search"
	"github.com/yeisme/torrentvault/pkg/log"
	"github.com/yeisme/torrentvault/pkg/scheduler"
)

// Searcher 检索入口.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Outcome, error)
}

// CategoryLister 列出分类.
type CategoryLister interface {
	Entries(ctx context.Context) ([]category.Entry, error)
}

// Pinger 依赖组件的连通性检查.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobRunner 定时任务的查询与手动触发.
type JobRunner interface {
	GetJobInfos() []scheduler.JobInfo
	RunNow(name string) error
}

// Handler 聚合处理器依赖，Index 与 Jobs 可为 nil.
type Handler struct {
	Search     Searcher
	Categories CategoryLister
	DB         Pinger
	Index      Pinger
	Jobs       JobRunner
	log        zerolog.Logger
}

// New 创建处理器.
func New(s Searcher, categories CategoryLister, db, index Pinger, jobs JobRunner) *Handler {
	return &Handler{
		Search:     s,
		Categories: categories,
		DB:         db,
		Index:      index,
		Jobs:       jobs,
		log:        log.Component("handle"),
	}
}

// NotFound 未匹配路由.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// abortWithError 按错误类型返回状态码，5xx 同时记录日志.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, search.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, search.ErrBackendUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		// 客户端已断开
		c.Abort()
		return
	}

	if status >= http.StatusInternalServerError {
		l := ctxPkg.WithTraceContext(c.Request.Context(), h.log)
		l.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
}
