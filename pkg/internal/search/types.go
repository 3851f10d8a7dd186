// Package search 将松散的请求参数规整为规范查询，识别快捷结果，
// 在关系库与全文索引两种后端之间分发，并输出分页视图或 RSS 订阅.
package search

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// SortKey 排序字段.
type SortKey string

const (
	SortByID        SortKey = "id"
	SortBySize      SortKey = "size"
	SortBySeeders   SortKey = "seeders"
	SortByLeechers  SortKey = "leechers"
	SortByDownloads SortKey = "downloads"
	SortByComments  SortKey = "comments"
)

var sortKeys = map[SortKey]struct{}{
	SortByID: {}, SortBySize: {}, SortBySeeders: {},
	SortByLeechers: {}, SortByDownloads: {}, SortByComments: {},
}

// Valid 判断排序字段是否受支持.
func (k SortKey) Valid() bool {
	_, ok := sortKeys[k]

	return ok
}

// SortOrder 排序方向.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// QualityFilter 质量过滤.
type QualityFilter string

const (
	QualityAny       QualityFilter = "0" // 不过滤
	QualityNoRemakes QualityFilter = "1" // 排除 remake
	QualityTrusted   QualityFilter = "2" // 仅 trusted
)

// Valid 判断质量过滤值是否受支持.
func (f QualityFilter) Valid() bool {
	return f == QualityAny || f == QualityNoRemakes || f == QualityTrusted
}

// AnyCategory 表示不限分类的哨兵值.
const AnyCategory = "0_0"

var categoryPattern = regexp.MustCompile(`^(\d{1,9})_(\d{1,9})$`)

// ParseCategory 解析 "<main>_<sub>" 形式的分类键.
func ParseCategory(key string) (main, sub int, ok bool) {
	m := categoryPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, 0, false
	}

	main, _ = strconv.Atoi(m[1])
	sub, _ = strconv.Atoi(m[2])

	return main, sub, true
}

// CategoryKey 组装分类键.
func CategoryKey(main, sub int) string {
	return fmt.Sprintf("%d_%d", main, sub)
}

// User 请求方或被检索用户的身份.
type User struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Moderator bool   `json:"moderator"`
	Trusted   bool   `json:"trusted"`
}

// ContentRecord 精确哈希命中的资源.
type ContentRecord struct {
	ID          uint   `json:"id"`
	InfoHash    string `json:"info_hash"`
	DisplayName string `json:"display_name"`
}

// Row 结果集中的一条记录，两种后端返回相同结构.
type Row struct {
	ID          uint      `json:"id"`
	DisplayName string    `json:"display_name"`
	InfoHash    string    `json:"info_hash"`
	Size        int64     `json:"size"`
	Seeders     int       `json:"seeders"`
	Leechers    int       `json:"leechers"`
	Downloads   int       `json:"downloads"`
	Comments    int       `json:"comments"`
	CreatedAt   time.Time `json:"created_at"`
	// UpdatedAt 仅关系库返回，供索引同步判断新旧.
	UpdatedAt      time.Time `json:"-"`
	MainCategoryID int       `json:"main_category_id"`
	SubCategoryID  int       `json:"sub_category_id"`
	UploaderID     *uint     `json:"uploader_id,omitempty"`
	UploaderName   string    `json:"uploader_name,omitempty"`
	Hidden         bool      `json:"hidden"`
	Deleted        bool      `json:"deleted"`
	Anonymous      bool      `json:"anonymous"`
	Trusted        bool      `json:"trusted"`
	Remake         bool      `json:"remake"`
}

// CategoryKey 返回记录所属的分类键.
func (r Row) CategoryKey() string {
	return CategoryKey(r.MainCategoryID, r.SubCategoryID)
}

// Query 规范化后的搜索查询，构造后不再修改，变更通过 With* 返回副本.
type Query struct {
	Term           string        `json:"term"`
	SortKey        SortKey       `json:"sort"`
	SortOrder      SortOrder     `json:"order"`
	Category       string        `json:"category"`
	QualityFilter  QualityFilter `json:"quality_filter"`
	ScopedUserID   *uint         `json:"scoped_user_id,omitempty"`
	ScopedUserName string        `json:"scoped_user_name,omitempty"`
	Page           int           `json:"page"`
	PerPage        int           `json:"per_page"`
	RenderAsFeed   bool          `json:"rss"`
	MagnetLinks    bool          `json:"magnet_links"`
	RequestingUser *User         `json:"-"`
	Admin          bool          `json:"-"`
	// MaxResultBudget 仅对全文索引后端有意义.
	MaxResultBudget int `json:"max_result_budget"`
}

// HasScopedUser 是否在浏览单个用户的上传.
func (q Query) HasScopedUser() bool {
	return q.ScopedUserID != nil
}

// CategoryIDs 返回主/子分类 ID，0 表示不限.
func (q Query) CategoryIDs() (main, sub int) {
	m, s, ok := ParseCategory(q.Category)
	if !ok {
		return 0, 0
	}

	return m, s
}

// Offset 当前页的起始偏移.
func (q Query) Offset() int {
	return PageOffset(q.Page, q.PerPage)
}

// PageOffset 第 page 页的起始偏移，乘积溢出时返回 math.MaxInt，必然超出范围.
func PageOffset(page, perPage int) int {
	if page <= 1 || perPage <= 0 {
		return 0
	}

	if page-1 > math.MaxInt/perPage {
		return math.MaxInt
	}

	return (page - 1) * perPage
}

// WithPage 返回替换页码后的副本.
func (q Query) WithPage(page int) Query {
	q.Page = page

	return q
}

// WithTerm 返回替换检索词后的副本.
func (q Query) WithTerm(term string) Query {
	q.Term = term

	return q
}

// OwnedBy 判断请求方是否为被检索用户本人.
func (q Query) OwnedBy() bool {
	return q.RequestingUser != nil && q.ScopedUserID != nil && q.RequestingUser.ID == *q.ScopedUserID
}

// Hints 单次请求的快捷结果提示，仅在交互式自由文本搜索时计算.
type Hints struct {
	MatchedUserFromFirstWord *User          `json:"first_word_user,omitempty"`
	RemainingTermAfterUser   string         `json:"query_sans_user,omitempty"`
	ExactHashMatch           *ContentRecord `json:"infohash_torrent,omitempty"`
}

// Empty 是否没有任何提示.
func (h Hints) Empty() bool {
	return h.MatchedUserFromFirstWord == nil && h.RemainingTermAfterUser == "" && h.ExactHashMatch == nil
}

// BackendChoice 选中的检索后端.
type BackendChoice int

const (
	RelationalStore BackendChoice = iota
	FullTextIndex
)

func (b BackendChoice) String() string {
	switch b {
	case FullTextIndex:
		return "fulltext"
	default:
		return "relational"
	}
}
