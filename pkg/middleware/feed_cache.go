package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/torrentvault/pkg/cache"
	"github.com/yeisme/torrentvault/pkg/log"
)

const (
	// DefaultMaxBodyBytes 超过该大小的响应不缓存.
	DefaultMaxBodyBytes = 1 << 20
	// BypassHeader 请求携带该头时跳过缓存.
	BypassHeader = "X-Cache-Bypass"
	// RedirectReasonHeader 精确哈希跳转时附带的原因.
	RedirectReasonHeader = "X-Redirect-Reason"

	storeTimeout = 2 * time.Second
)

// feedCacheEntry 序列化存储结构.
type feedCacheEntry struct {
	Status       int    `json:"s"`
	ContentType  string `json:"ct"`
	CacheControl string `json:"cc"`
	Body         []byte `json:"b,omitempty"`
	ETag         string `json:"e"`
	StoredAt     int64  `json:"t"`
}

// FeedCacheMiddleware 缓存匿名访客的订阅响应.
// 只缓存 200 响应，存活时间取响应的 Cache-Control max-age；
// private、no-store、no-cache 或没有 max-age 的响应不缓存.
// 登录用户的订阅可能包含自己的隐藏记录，始终跳过缓存.
func FeedCacheMiddleware(c *appcache.Cache) gin.HandlerFunc {
	logger := log.Component("feed-cache")

	return func(ctx *gin.Context) {
		method := ctx.Request.Method
		if (method != http.MethodGet && method != http.MethodHead) ||
			ctx.GetHeader(BypassHeader) != "" || SessionUser(ctx) != nil {
			ctx.Next()
			return
		}

		key := c.Key(ctx.Request.URL.Path, canonicalQuery(ctx.Request.URL.Query()))

		if entry, err := appcache.Get[feedCacheEntry](ctx.Request.Context(), c, key); err == nil {
			serveEntry(ctx, entry)
			return
		} else if !appcache.IsMiss(err) {
			logger.Warn().Err(err).Msg("feed cache read failed")
		}

		bw := &bodyCaptureWriter{ResponseWriter: ctx.Writer, max: DefaultMaxBodyBytes}
		ctx.Writer = bw
		ctx.Next()

		entry, ttl, ok := buildEntry(bw)
		if !ok {
			return
		}

		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Request.Context()), storeTimeout)
		defer cancel()

		if err := appcache.Set(storeCtx, c, key, entry, ttl); err != nil {
			logger.Warn().Err(err).Msg("feed cache write failed")
		}
	}
}

// canonicalQuery 参数排序后编码，使参数顺序不同的请求共享缓存.
func canonicalQuery(q url.Values) string {
	return q.Encode()
}

func serveEntry(ctx *gin.Context, entry feedCacheEntry) {
	h := ctx.Writer.Header()
	h.Set("Content-Type", entry.ContentType)
	h.Set("Cache-Control", entry.CacheControl)
	h.Set("ETag", entry.ETag)
	h.Set("Age", strconv.FormatInt(int64(time.Since(time.Unix(0, entry.StoredAt)).Seconds()), 10))
	h.Set("X-Cache", "HIT")

	if inm := ctx.GetHeader("If-None-Match"); inm != "" && inm == entry.ETag {
		ctx.AbortWithStatus(http.StatusNotModified)
		return
	}

	ctx.Status(entry.Status)

	if ctx.Request.Method != http.MethodHead {
		_, _ = ctx.Writer.Write(entry.Body)
	}

	ctx.Abort()
}

// buildEntry 根据响应构造缓存条目，返回存活时间与是否可缓存.
func buildEntry(bw *bodyCaptureWriter) (feedCacheEntry, time.Duration, bool) {
	if bw.Status() != http.StatusOK || bw.truncated {
		return feedCacheEntry{}, 0, false
	}

	cc := bw.Header().Get("Cache-Control")

	ttl := maxAge(cc)
	if ttl <= 0 {
		return feedCacheEntry{}, 0, false
	}

	body := bytes.Clone(bw.buf.Bytes())

	return feedCacheEntry{
		Status:       http.StatusOK,
		ContentType:  bw.Header().Get("Content-Type"),
		CacheControl: cc,
		Body:         body,
		ETag:         fmt.Sprintf("%q", strconv.FormatUint(xxhash.Sum64(body), 16)),
		StoredAt:     time.Now().UnixNano(),
	}, ttl, true
}

// maxAge 解析 Cache-Control 的 max-age，不可缓存时返回 0.
func maxAge(cc string) time.Duration {
	var ttl time.Duration

	for _, part := range strings.Split(strings.ToLower(cc), ",") {
		part = strings.TrimSpace(part)

		switch {
		case part == "no-store", part == "no-cache", part == "private":
			return 0
		case strings.HasPrefix(part, "max-age="):
			n, err := strconv.Atoi(strings.TrimPrefix(part, "max-age="))
			if err != nil || n <= 0 {
				return 0
			}

			ttl = time.Duration(n) * time.Second
		}
	}

	return ttl
}

// bodyCaptureWriter 包装响应写入用于捕获 body.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf       bytes.Buffer
	max       int
	truncated bool
}

// Write 捕获响应体, 超过上限后只透传不再捕获.
func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.max > 0 && w.buf.Len()+len(b) > w.max {
			w.truncated = true
		} else {
			w.buf.Write(b)
		}
	}

	return w.ResponseWriter.Write(b)
}

// WriteString 与 Write 保持一致.
func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}
