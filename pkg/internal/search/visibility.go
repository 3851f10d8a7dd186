package search

import (
	"strings"
	"unicode"
)

// Visibility 非管理员检索时的可见性约束，各后端据此构造过滤条件.
// 除 All 外，已删除的记录总是被排除.
type Visibility struct {
	All bool
	// PublicOnly 排除隐藏与匿名记录.
	PublicOnly bool
	// ExcludeHidden 排除隐藏记录.
	ExcludeHidden bool
	// HiddenOwner 非 0 时仅允许该用户看到自己的隐藏记录.
	HiddenOwner uint
}

// VisibilityFor 计算查询的可见性.
// 浏览用户页时，只有本人且非订阅才能看到隐藏与匿名记录；
// 其余情况登录用户（非订阅）可见自己隐藏的记录.
func VisibilityFor(q Query) Visibility {
	if q.Admin {
		return Visibility{All: true}
	}

	if q.HasScopedUser() {
		return Visibility{PublicOnly: !q.OwnedBy() || q.RenderAsFeed}
	}

	if q.RequestingUser != nil && !q.RenderAsFeed {
		return Visibility{HiddenOwner: q.RequestingUser.ID}
	}

	return Visibility{ExcludeHidden: true}
}

// ForViewer 匿名上传仅对管理员与上传者本人显示上传者.
func (r Row) ForViewer(q Query) Row {
	if !r.Anonymous || r.UploaderID == nil || q.Admin {
		return r
	}

	if q.RequestingUser != nil && q.RequestingUser.ID == *r.UploaderID {
		return r
	}

	r.UploaderID = nil
	r.UploaderName = ""

	return r
}

// Tokens 按空白切分检索词，双引号内的短语保留为一个词.
func Tokens(term string) []string {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
	)

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			tokens = append(tokens, s)
		}

		cur.Reset()
	}

	for _, r := range term {
		switch {
		case r == '"':
			flush()

			inQuote = !inQuote
		case !inQuote && unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}

	flush()

	return tokens
}
