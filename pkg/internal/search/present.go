package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	homeLabel      = "Home"
	refineHint     = "Please refine your search results if you can't find what you were looking for."
	privateNoStore = "private, no-store"
)

// ResultSet 后端结果加上已截断的页码与总数，视图与订阅共用.
type ResultSet struct {
	Rows          []Row
	Total         int
	Page          int
	RequestedPage int
	TotalCapped   bool
	Backend       BackendChoice
}

// PageItem 分页控件中的一项.
type PageItem struct {
	Type    string `json:"type"` // page 或 ellipsis
	Number  int    `json:"number,omitempty"`
	Current bool   `json:"current,omitempty"`
}

// Pagination 分页描述.
type Pagination struct {
	Page          int        `json:"page"`
	RequestedPage int        `json:"requested_page"`
	PerPage       int        `json:"per_page"`
	Total         int        `json:"total"`
	Pages         int        `json:"pages"`
	Start         int        `json:"start"`
	End           int        `json:"end"`
	PageCapped    bool       `json:"page_capped"`
	TotalCapped   bool       `json:"total_capped"`
	Message       string     `json:"message"`
	Items         []PageItem `json:"items"`
}

// ViewRow 展示用的结果行.
type ViewRow struct {
	Row
	CategoryName string `json:"category_name"`
	HumanSize    string `json:"human_size"`
	MagnetURI    string `json:"magnet_uri"`
	ViewURL      string `json:"view_url"`
}

// ViewModel 交互式结果页.
type ViewModel struct {
	Query      Query      `json:"query"`
	Backend    string     `json:"backend"`
	Rows       []ViewRow  `json:"rows"`
	Pagination Pagination `json:"pagination"`
	FeedQuery  string     `json:"rss_filter"`
	FeedURL    string     `json:"rss_url"`
	Hints      Hints      `json:"special_results"`
}

// FeedEntry 订阅中的一项.
type FeedEntry struct {
	Title        string    `json:"title"`
	Link         string    `json:"link"`
	GUID         string    `json:"guid"`
	PubDate      time.Time `json:"pub_date"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category"`
	SizeBytes    int64     `json:"size_bytes"`
	Size         string    `json:"size"`
	Seeders      int       `json:"seeders"`
	Leechers     int       `json:"leechers"`
	Downloads    int       `json:"downloads"`
	Comments     int       `json:"comments"`
	InfoHash     string    `json:"info_hash"`
	Trusted      bool      `json:"trusted"`
	Remake       bool      `json:"remake"`
}

// FeedDocument 订阅文档.
type FeedDocument struct {
	Label        string      `json:"label"`
	SiteURL      string      `json:"site_url"`
	Magnet       bool        `json:"magnet"`
	Entries      []FeedEntry `json:"entries"`
	Pagination   Pagination  `json:"pagination"`
	CacheControl string      `json:"cache_control"`
}

// Presenter 将查询与结果渲染为视图或订阅.
type Presenter struct {
	cfg        Config
	categories CategoryNamer
}

// NewPresenter 创建渲染器，categories 可为 nil.
func NewPresenter(cfg Config, categories CategoryNamer) *Presenter {
	return &Presenter{cfg: cfg, categories: categories}
}

// Paginate 计算分页描述，页码与总数均为已截断的值.
func Paginate(rs ResultSet, perPage int) Pagination {
	p := Pagination{
		Page:          rs.Page,
		RequestedPage: rs.RequestedPage,
		PerPage:       perPage,
		Total:         rs.Total,
		PageCapped:    rs.RequestedPage > rs.Page,
		TotalCapped:   rs.TotalCapped,
	}

	if p.RequestedPage == 0 {
		p.RequestedPage = p.Page
	}

	p.Pages = max(1, (rs.Total+perPage-1)/perPage)

	offset := PageOffset(rs.Page, perPage)
	if rs.Total > 0 && offset < rs.Total {
		p.Start = offset + 1
		p.End = min(offset+perPage, rs.Total)
	}

	over := "out of"
	if rs.TotalCapped {
		over = "out of more than"
	}

	p.Message = fmt.Sprintf("Displaying results %d-%d %s %d results.", p.Start, p.End, over, p.Total)
	if rs.Backend == FullTextIndex {
		p.Message += "\n" + refineHint
	}

	p.Items = pageItems(p.Page, p.Pages)

	return p
}

// pageItems 生成首页、省略号、相邻页和末页. 只列出不超过 total 的页码，
// 当前页越界时以最后一页为锚点，末尾单独附上当前页.
func pageItems(current, total int) []PageItem {
	anchor := min(current, total)
	page := func(n int) PageItem {
		return PageItem{Type: "page", Number: n, Current: n == current}
	}

	var items []PageItem

	if anchor > 3 {
		items = append(items, page(1))
		if anchor > 4 {
			items = append(items, PageItem{Type: "ellipsis"})
		}
	}

	if anchor > 1 {
		items = append(items, page(anchor-1))
	}

	items = append(items, page(anchor))

	if anchor < total {
		items = append(items, page(anchor+1))
	}

	if anchor < total-2 {
		if anchor < total-3 {
			items = append(items, PageItem{Type: "ellipsis"})
		}

		items = append(items, page(total))
	}

	if current > total {
		items = append(items, page(current))
	}

	return items
}

// FeedQuery 生成与当前检索等价的订阅查询串.
func FeedQuery(q Query) string {
	v := url.Values{}

	if q.Term != "" {
		v.Set("q", q.Term)
	}

	if q.Category != AnyCategory {
		v.Set("c", q.Category)
	}

	if q.QualityFilter != QualityAny {
		v.Set("f", string(q.QualityFilter))
	}

	if q.ScopedUserName != "" {
		v.Set("u", q.ScopedUserName)
	}

	return v.Encode()
}

// View 渲染交互式结果页.
func (p *Presenter) View(ctx context.Context, q Query, rs ResultSet, hints Hints) *ViewModel {
	fq := FeedQuery(q)

	feedURL := p.siteURL() + "/rss"
	if fq != "" {
		feedURL += "?" + fq
	}

	vm := &ViewModel{
		Query:      q,
		Backend:    rs.Backend.String(),
		Rows:       make([]ViewRow, 0, len(rs.Rows)),
		Pagination: Paginate(rs, q.PerPage),
		FeedQuery:  fq,
		FeedURL:    feedURL,
		Hints:      hints,
	}

	for _, r := range rs.Rows {
		vm.Rows = append(vm.Rows, ViewRow{
			Row:          r,
			CategoryName: p.categoryName(ctx, r.CategoryKey()),
			HumanSize:    humanize.IBytes(uint64(max(r.Size, 0))),
			MagnetURI:    MagnetURI(r.InfoHash, r.DisplayName, p.trackers()),
			ViewURL:      p.viewURL(r.ID),
		})
	}

	return vm
}

// Feed 渲染订阅文档.
func (p *Presenter) Feed(ctx context.Context, q Query, rs ResultSet) *FeedDocument {
	doc := &FeedDocument{
		Label:        FeedLabel(q.Term, rs.Backend),
		SiteURL:      p.siteURL(),
		Magnet:       q.MagnetLinks,
		Entries:      make([]FeedEntry, 0, len(rs.Rows)),
		Pagination:   Paginate(rs, q.PerPage),
		CacheControl: p.CacheControl(q),
	}

	for _, r := range rs.Rows {
		link := p.siteURL() + "/download/" + strconv.FormatUint(uint64(r.ID), 10) + ".torrent"
		if q.MagnetLinks {
			link = MagnetURI(r.InfoHash, r.DisplayName, p.trackers())
		}

		doc.Entries = append(doc.Entries, FeedEntry{
			Title:        r.DisplayName,
			Link:         link,
			GUID:         p.viewURL(r.ID),
			PubDate:      r.CreatedAt,
			CategoryID:   r.CategoryKey(),
			CategoryName: p.categoryName(ctx, r.CategoryKey()),
			SizeBytes:    r.Size,
			Size:         humanize.IBytes(uint64(max(r.Size, 0))),
			Seeders:      r.Seeders,
			Leechers:     r.Leechers,
			Downloads:    r.Downloads,
			Comments:     r.Comments,
			InfoHash:     r.InfoHash,
			Trusted:      r.Trusted,
			Remake:       r.Remake,
		})
	}

	return doc
}

// FeedLabel 索引检索时为加引号的检索词，无检索词时为 Home.
func FeedLabel(term string, backend BackendChoice) string {
	switch {
	case term == "":
		return homeLabel
	case backend == FullTextIndex:
		return strconv.Quote(term)
	default:
		return term
	}
}

// CacheControl 管理员查询或本人的上传列表不可缓存，其余订阅短期缓存.
func (p *Presenter) CacheControl(q Query) string {
	if q.Admin || q.OwnedBy() {
		return privateNoStore
	}

	if p.cfg.FeedCacheSeconds <= 0 {
		return "no-cache"
	}

	return "max-age=" + strconv.Itoa(p.cfg.FeedCacheSeconds)
}

func (p *Presenter) categoryName(ctx context.Context, key string) string {
	if p.categories == nil {
		return key
	}

	return p.categories.Name(ctx, key)
}

func (p *Presenter) siteURL() string {
	return strings.TrimRight(p.cfg.SiteURL, "/")
}

func (p *Presenter) viewURL(id uint) string {
	return p.siteURL() + "/view/" + strconv.FormatUint(uint64(id), 10)
}

func (p *Presenter) trackers() []string {
	n := min(len(p.cfg.Trackers), max(p.cfg.MaxMagnetTrackers, 0))

	return p.cfg.Trackers[:n]
}
