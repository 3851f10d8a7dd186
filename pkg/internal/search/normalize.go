package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// field 规范查询中的逻辑字段.
type field int

const (
	fieldTerm field = iota
	fieldCategory
	fieldQuality
	fieldUser
	fieldPage
	fieldSort
	fieldOrder
	fieldCount
)

// aliasTable 每个逻辑字段按顺序接受的参数名，先出现者优先.
var aliasTable = []struct {
	field   field
	aliases []string
}{
	{fieldTerm, []string{"q", "term"}},
	{fieldCategory, []string{"c", "cats"}},
	{fieldQuality, []string{"f", "filter"}},
	{fieldUser, []string{"u", "user"}},
	{fieldPage, []string{"p", "page", "offset"}},
	{fieldSort, []string{"s"}},
	{fieldOrder, []string{"o"}},
}

// magnetFlags 出现任一键即启用磁力链接，取值无关.
var magnetFlags = []string{"magnets", "m"}

// resolved 按字段下标保存解析出的原始字符串.
type resolved [fieldCount]string

// resolveAliases 对每个字段取第一个非空别名的值.
func resolveAliases(raw url.Values) resolved {
	var out resolved

	for _, entry := range aliasTable {
		for _, name := range entry.aliases {
			if v := strings.TrimSpace(raw.Get(name)); v != "" {
				out[entry.field] = v
				break
			}
		}
	}

	return out
}

// ParsePage 解析页码，非数字或小于 1 时返回 1.
func ParsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}

	return n
}

// IsFeedRequest 判断参数是否要求以订阅形式输出.
func IsFeedRequest(raw url.Values) bool {
	return raw.Get("page") == "rss"
}

// Normalizer 把原始参数规整为 Query.
type Normalizer struct {
	users UserDirectory
	cfg   Config
}

// NewNormalizer 创建规整器.
func NewNormalizer(users UserDirectory, cfg Config) *Normalizer {
	return &Normalizer{users: users, cfg: cfg}
}

// Normalize 生成规范查询. 仅当指定的用户不存在时返回 ErrNotFound，
// 其余非法输入都会回退到默认值.
func (n *Normalizer) Normalize(ctx context.Context, raw url.Values, session *User, feed bool) (Query, error) {
	vals := resolveAliases(raw)

	q := Query{
		Term:            vals[fieldTerm],
		SortKey:         normalizeSortKey(vals[fieldSort]),
		SortOrder:       normalizeSortOrder(vals[fieldOrder]),
		Category:        normalizeCategory(vals[fieldCategory]),
		QualityFilter:   normalizeQuality(vals[fieldQuality]),
		Page:            ParsePage(vals[fieldPage]),
		PerPage:         n.cfg.PerPage,
		RenderAsFeed:    feed || IsFeedRequest(raw),
		MagnetLinks:     hasAnyKey(raw, magnetFlags),
		MaxResultBudget: n.cfg.MaxResultBudget,
	}

	if q.PerPage <= 0 {
		q.PerPage = DefaultConfig().PerPage
	}

	if name := vals[fieldUser]; name != "" {
		user, err := n.users.ByUsername(ctx, name)
		if err != nil {
			return Query{}, fmt.Errorf("%w: resolve user %q: %w", ErrBackendUnavailable, name, err)
		}

		if user == nil {
			return Query{}, fmt.Errorf("%w: user %q", ErrNotFound, name)
		}

		id := user.ID
		q.ScopedUserID = &id
		q.ScopedUserName = user.Name
	}

	if session != nil {
		u := *session
		q.RequestingUser = &u
		q.Admin = u.Moderator
	}

	return q, nil
}

func normalizeSortKey(s string) SortKey {
	k := SortKey(strings.ToLower(s))
	if k.Valid() {
		return k
	}

	return SortByID
}

func normalizeSortOrder(s string) SortOrder {
	if SortOrder(strings.ToLower(s)) == Ascending {
		return Ascending
	}

	return Descending
}

func normalizeCategory(s string) string {
	if _, _, ok := ParseCategory(s); ok {
		return s
	}

	return AnyCategory
}

func normalizeQuality(s string) QualityFilter {
	f := QualityFilter(s)
	if f.Valid() {
		return f
	}

	return QualityAny
}

func hasAnyKey(raw url.Values, keys []string) bool {
	for _, k := range keys {
		if _, ok := raw[k]; ok {
			return true
		}
	}

	return false
}
