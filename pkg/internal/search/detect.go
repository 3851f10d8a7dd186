package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	firstWordPattern = regexp.MustCompile(`(?s)^([a-zA-Z0-9_-]+) *(.*)$`)
	infoHashPattern  = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
)

// IsInfoHash 判断整个检索词是否为 40 位十六进制哈希.
func IsInfoHash(term string) bool {
	return infoHashPattern.MatchString(term)
}

// Detector 识别用户名前缀与精确哈希两种快捷结果.
type Detector struct {
	users   UserDirectory
	content ContentDirectory
}

// NewDetector 创建快捷结果识别器.
func NewDetector(users UserDirectory, content ContentDirectory) *Detector {
	return &Detector{users: users, content: content}
}

// Detect 计算提示. 订阅请求、限定用户的请求或空检索词直接返回空提示，不做任何查询.
func (d *Detector) Detect(ctx context.Context, term string, isFeed, hasScopedUser bool) (Hints, error) {
	var hints Hints

	if isFeed || hasScopedUser || term == "" {
		return hints, nil
	}

	if m := firstWordPattern.FindStringSubmatch(term); m != nil {
		user, err := d.users.ByUsername(ctx, m[1])
		if err != nil {
			return Hints{}, fmt.Errorf("%w: resolve first word %q: %w", ErrBackendUnavailable, m[1], err)
		}

		if user != nil {
			hints.MatchedUserFromFirstWord = user
			hints.RemainingTermAfterUser = strings.TrimSpace(m[2])
		}
	}

	if IsInfoHash(term) {
		rec, err := d.content.ByExactHash(ctx, strings.ToLower(term))
		if err != nil {
			return Hints{}, fmt.Errorf("%w: lookup info hash: %w", ErrBackendUnavailable, err)
		}

		hints.ExactHashMatch = rec
	}

	return hints, nil
}
