package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/torrentvault/pkg/scheduler"
)

// ListJobs 返回定时任务状态.
//
//	@Summary	定时任务列表
//	@Tags		任务
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/v1/jobs [get]
func (h *Handler) ListJobs(c *gin.Context) {
	if h.Jobs == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []scheduler.JobInfo{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": h.Jobs.GetJobInfos()})
}

// RunJob 立即触发指定任务.
//
//	@Summary	手动触发任务
//	@Tags		任务
//	@Produce	json
//	@Param		name	path		string	true	"任务名"
//	@Success	202		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/jobs/{name}/run [post]
func (h *Handler) RunJob(c *gin.Context) {
	name := c.Param("name")

	if h.Jobs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scheduler disabled"})
		return
	}

	if err := h.Jobs.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		h.abortWithError(c, err)

		return
	}

	h.log.Info().Str("job", name).Msg("job triggered manually")
	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered", "job": name})
}
