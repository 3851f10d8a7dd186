package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/torrentvault/pkg/configs"
)

// CORSMiddleware CORS中间件，只读接口允许任意来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "HEAD", "OPTIONS"}
	config.ExposeHeaders = []string{RequestIDHeader, RedirectReasonHeader, "X-Cache"}

	if cfg.Debug {
		config.AllowMethods = append(config.AllowMethods, "POST")
	}

	return cors.New(config)
}
