package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/torrentvault/pkg/configs"
	"github.com/yeisme/torrentvault/pkg/internal/search"
	"github.com/yeisme/torrentvault/pkg/log"
)

const sessionUserKey = "session_user"

type sessionKey struct{}

// SessionMiddleware 信任反向代理（如 oauth2-proxy）注入的用户名请求头，
// 解析为站点用户后注入到 gin.Context 与 request.Context.
// 未携带请求头、用户不存在或目录不可用时按匿名访客处理，不拒绝请求.
func SessionMiddleware(conf configs.AuthConfig, users search.UserDirectory) gin.HandlerFunc {
	logger := log.Component("session")

	return func(c *gin.Context) {
		if !conf.Enabled || users == nil || isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		name := ""

		for _, h := range conf.UserHeaders {
			if name = strings.TrimSpace(c.GetHeader(h)); name != "" {
				break
			}
		}

		if name == "" && conf.DevAllowQuery {
			name = strings.TrimSpace(c.Query("as_user"))
		}

		if name == "" {
			c.Next()
			return
		}

		user, err := users.ByUsername(c.Request.Context(), name)
		if err != nil {
			logger.Warn().Err(err).Str("user", name).Msg("session lookup failed, serving as anonymous")
		}

		if user != nil {
			c.Set(sessionUserKey, user)
			c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), sessionKey{}, user))
		}

		c.Next()
	}
}

// SessionUser 返回当前请求的登录用户，匿名访客返回 nil.
func SessionUser(c *gin.Context) *search.User {
	if v, ok := c.Get(sessionUserKey); ok {
		if u, ok := v.(*search.User); ok {
			return u
		}
	}

	if u, ok := c.Request.Context().Value(sessionKey{}).(*search.User); ok {
		return u
	}

	return nil
}

// RequireModerator 要求版主及以上，匿名返回 401，普通用户返回 403.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := SessionUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !u.Moderator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: moderator only"})
			return
		}

		c.Next()
	}
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
