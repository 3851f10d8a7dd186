package handle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/torrentvault/pkg/internal/search"
	"github.com/yeisme/torrentvault/pkg/middleware"
)

// SearchPage 交互式检索，page=rss 时按订阅渲染.
//
//	@Summary	检索种子
//	@Tags		检索
//	@Produce	json,xml
//	@Param		q	query		string	false	"检索词"
//	@Param		c	query		string	false	"分类，如 1_2"
//	@Param		f	query		string	false	"质量过滤 0/1/2"
//	@Param		u	query		string	false	"限定上传者"
//	@Param		s	query		string	false	"排序字段"
//	@Param		o	query		string	false	"asc 或 desc"
//	@Param		p	query		int		false	"页码"
//	@Success	200	{object}	search.ViewModel
//	@Success	302
//	@Failure	404	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/ [get]
func (h *Handler) SearchPage(c *gin.Context) {
	params := c.Request.URL.Query()
	h.serve(c, search.IsFeedRequest(params))
}

// Feed 订阅入口，始终渲染为 RSS.
//
//	@Summary	RSS 订阅
//	@Tags		检索
//	@Produce	xml
//	@Success	200
//	@Router		/rss [get]
func (h *Handler) Feed(c *gin.Context) {
	h.serve(c, true)
}

func (h *Handler) serve(c *gin.Context, feed bool) {
	out, err := h.Search.Search(c.Request.Context(), search.Request{
		Params:  c.Request.URL.Query(),
		Session: middleware.SessionUser(c),
		Feed:    feed,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	switch {
	case out.Redirect != nil:
		c.Header(middleware.RedirectReasonHeader, out.Redirect.Reason)
		c.Redirect(http.StatusFound, "/view/"+strconv.FormatUint(uint64(out.Redirect.ContentID), 10))
	case out.Feed != nil:
		body, err := RenderFeed(out.Feed)
		if err != nil {
			h.abortWithError(c, err)
			return
		}

		c.Header("Cache-Control", out.Feed.CacheControl)
		c.Data(http.StatusOK, feedContentType, body)
	case out.View != nil:
		c.JSON(http.StatusOK, out.View)
	default:
		c.Status(http.StatusNoContent)
	}
}
