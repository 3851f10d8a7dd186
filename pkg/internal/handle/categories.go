package handle

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/torrentvault/pkg/internal/search"
)

// ListCategories 返回按键排序的全部分类.
//
//	@Summary	分类列表
//	@Tags		分类
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	entries, err := h.Categories.Entries(c.Request.Context())
	if err != nil {
		h.abortWithError(c, fmt.Errorf("%w: categories: %v", search.ErrBackendUnavailable, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": entries})
}
