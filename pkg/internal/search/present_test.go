package search_test

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/torrentvault/pkg/internal/search"
)

func TestPaginateMessages(t *testing.T) {
	p := search.Paginate(search.ResultSet{Total: 120, Page: 2, RequestedPage: 2}, 50)
	if p.Start != 51 || p.End != 100 || p.Pages != 3 {
		t.Errorf("start=%d end=%d pages=%d", p.Start, p.End, p.Pages)
	}

	if p.Message != "Displaying results 51-100 out of 120 results." {
		t.Errorf("message = %q", p.Message)
	}

	p = search.Paginate(search.ResultSet{Total: 1000, Page: 20, RequestedPage: 100, TotalCapped: true, Backend: search.FullTextIndex}, 50)
	if !p.PageCapped || !p.TotalCapped || p.RequestedPage != 100 {
		t.Errorf("capping not visible: %+v", p)
	}

	if !strings.HasPrefix(p.Message, "Displaying results 951-1000 out of more than 1000 results.") {
		t.Errorf("capped message = %q", p.Message)
	}

	if !strings.Contains(p.Message, "Please refine your search results") {
		t.Errorf("index message must ask to refine: %q", p.Message)
	}
}

func TestPaginateOutOfRangePageIsEmptyButValid(t *testing.T) {
	p := search.Paginate(search.ResultSet{Total: 10, Page: 9, RequestedPage: 9}, 50)
	if p.Page != 9 || p.Start != 0 || p.End != 0 || p.PageCapped {
		t.Errorf("unexpected pagination: %+v", p)
	}

	p = search.Paginate(search.ResultSet{Total: 0, Page: 1, RequestedPage: 1}, 50)
	if p.Pages != 1 || p.Message != "Displaying results 0-0 out of 0 results." {
		t.Errorf("empty result pagination: %+v", p)
	}
}

func TestPaginateItems(t *testing.T) {
	p := search.Paginate(search.ResultSet{Total: 1000, Page: 10, RequestedPage: 10}, 50)

	var numbers []int

	ellipses := 0

	for _, it := range p.Items {
		if it.Type == "ellipsis" {
			ellipses++
			continue
		}

		numbers = append(numbers, it.Number)
	}

	want := []int{1, 9, 10, 11, 20}
	if len(numbers) != len(want) || ellipses != 2 {
		t.Fatalf("items = %+v", p.Items)
	}

	for i := range want {
		if numbers[i] != want[i] {
			t.Errorf("item %d = %d, want %d", i, numbers[i], want[i])
		}
	}
}

func TestPaginateItemsStayWithinPages(t *testing.T) {
	cases := []struct {
		name  string
		rs    search.ResultSet
		pages int
		want  []int
	}{
		{"capped page beyond reported total", search.ResultSet{Total: 15, Page: 20, RequestedPage: 100, Backend: search.FullTextIndex}, 1, []int{1, 20}},
		{"out of range store page", search.ResultSet{Total: 500, Page: 20, RequestedPage: 20}, 10, []int{1, 9, 10, 20}},
		{"next to last page", search.ResultSet{Total: 500, Page: 11, RequestedPage: 11}, 10, []int{1, 9, 10, 11}},
		{"in range", search.ResultSet{Total: 1000, Page: 10, RequestedPage: 10}, 20, []int{1, 9, 10, 11, 20}},
		{"overflowing page", search.ResultSet{Total: 5, Page: math.MaxInt, RequestedPage: math.MaxInt}, 1, []int{1, math.MaxInt}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := search.Paginate(tc.rs, 50)
			if p.Pages != tc.pages {
				t.Fatalf("pages = %d, want %d", p.Pages, tc.pages)
			}

			var numbers []int

			for _, it := range p.Items {
				if it.Type != "page" {
					continue
				}

				if it.Number > p.Pages && !it.Current {
					t.Errorf("unreachable page %d listed: %+v", it.Number, p.Items)
				}

				if it.Current != (it.Number == tc.rs.Page) {
					t.Errorf("current flag wrong on %d", it.Number)
				}

				numbers = append(numbers, it.Number)
			}

			if len(numbers) != len(tc.want) {
				t.Fatalf("numbers = %v, want %v", numbers, tc.want)
			}

			for i := range tc.want {
				if numbers[i] != tc.want[i] {
					t.Errorf("item %d = %d, want %d", i, numbers[i], tc.want[i])
				}
			}

			if tc.rs.Page > p.Pages && (p.Start != 0 || p.End != 0) {
				t.Errorf("out of range page must be empty, start=%d end=%d", p.Start, p.End)
			}
		})
	}
}

func TestPageOffset(t *testing.T) {
	cases := []struct {
		page, perPage, want int
	}{
		{1, 50, 0},
		{0, 50, 0},
		{3, 50, 100},
		{2, 0, 0},
		{math.MaxInt / 50, 50, (math.MaxInt/50 - 1) * 50},
		{math.MaxInt/50 + 2, 50, math.MaxInt},
		{math.MaxInt, 75, math.MaxInt},
	}

	for _, tc := range cases {
		if got := search.PageOffset(tc.page, tc.perPage); got != tc.want {
			t.Errorf("PageOffset(%d, %d) = %d, want %d", tc.page, tc.perPage, got, tc.want)
		}
	}
}

func TestFeedQuery(t *testing.T) {
	q := search.Query{Term: "cool subs", Category: "1_2", QualityFilter: search.QualityTrusted, ScopedUserName: "alice"}
	if got := search.FeedQuery(q); got != "c=1_2&f=2&q=cool+subs&u=alice" {
		t.Errorf("FeedQuery = %q", got)
	}

	q = search.Query{Category: search.AnyCategory, QualityFilter: search.QualityAny}
	if got := search.FeedQuery(q); got != "" {
		t.Errorf("default query must be empty, got %q", got)
	}
}

func TestFeedLabel(t *testing.T) {
	if got := search.FeedLabel("", search.RelationalStore); got != "Home" {
		t.Errorf("browse label = %q", got)
	}

	if got := search.FeedLabel("foo", search.FullTextIndex); got != `"foo"` {
		t.Errorf("index label = %q", got)
	}

	if got := search.FeedLabel("foo", search.RelationalStore); got != "foo" {
		t.Errorf("store label = %q", got)
	}
}

func TestCacheControl(t *testing.T) {
	cfg := search.DefaultConfig()
	p := search.NewPresenter(cfg, nil)

	if got := p.CacheControl(search.Query{}); got != "max-age=300" {
		t.Errorf("anonymous feed = %q", got)
	}

	if got := p.CacheControl(search.Query{Admin: true}); got != "private, no-store" {
		t.Errorf("admin feed = %q", got)
	}

	owner := uint(5)
	q := search.Query{ScopedUserID: &owner, RequestingUser: &search.User{ID: 5}}

	if got := p.CacheControl(q); got != "private, no-store" {
		t.Errorf("owner feed = %q", got)
	}

	q.RequestingUser = &search.User{ID: 6}
	if got := p.CacheControl(q); got != "max-age=300" {
		t.Errorf("other user's feed = %q", got)
	}
}

func TestMagnetURI(t *testing.T) {
	got := search.MagnetURI(strings.ToUpper(knownHash), "My Show 01", []string{"udp://t.example:80/announce"})
	want := "magnet:?xt=urn:btih:" + knownHash + "&dn=My+Show+01&tr=udp%3A%2F%2Ft.example%3A80%2Fannounce"

	if got != want {
		t.Errorf("MagnetURI = %q, want %q", got, want)
	}
}

func TestPresenterFeedEntries(t *testing.T) {
	cfg := search.DefaultConfig()
	cfg.SiteURL = "https://tv.example/"
	cfg.Trackers = []string{"udp://a", "udp://b", "udp://c"}
	cfg.MaxMagnetTrackers = 2

	p := search.NewPresenter(cfg, staticNames{"1_2": "Anime - English-translated"})
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []search.Row{{
		ID: 9, DisplayName: "Show", InfoHash: knownHash, Size: 1 << 30,
		MainCategoryID: 1, SubCategoryID: 2, CreatedAt: created, Seeders: 3,
	}}

	q := search.Query{Term: "show", Page: 1, PerPage: 75, MagnetLinks: true}
	doc := p.Feed(context.Background(), q, search.ResultSet{Rows: rows, Total: 1, Page: 1, RequestedPage: 1, Backend: search.FullTextIndex})

	if doc.Label != `"show"` || len(doc.Entries) != 1 {
		t.Fatalf("doc = %+v", doc)
	}

	e := doc.Entries[0]
	if e.GUID != "https://tv.example/view/9" || e.CategoryName != "Anime - English-translated" || e.Size != "1.0 GiB" {
		t.Errorf("entry = %+v", e)
	}

	if !strings.HasPrefix(e.Link, "magnet:?xt=urn:btih:") || strings.Count(e.Link, "&tr=") != 2 {
		t.Errorf("magnet link = %q", e.Link)
	}

	q.MagnetLinks = false
	doc = p.Feed(context.Background(), q, search.ResultSet{Rows: rows, Total: 1, Page: 1, Backend: search.FullTextIndex})

	if doc.Entries[0].Link != "https://tv.example/download/9.torrent" {
		t.Errorf("download link = %q", doc.Entries[0].Link)
	}
}
