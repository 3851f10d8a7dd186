package handle

import (
	"encoding/xml"
	"fmt"

	"github.com/yeisme/torrentvault/pkg/internal/search"
)

const (
	feedContentType = "application/xml"
	feedSiteName    = "TorrentVault"
	feedNamespace   = "https://nyaa.si/xmlns/nyaa"
	feedTimeLayout  = "Mon, 02 Jan 2006 15:04:05 -0000"
)

type rssDocument struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	NyaaXMLNS string     `xml:"xmlns:nyaa,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Link        string    `xml:"link"`
	Items       []rssItem `xml:"item"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssItem struct {
	Title      string  `xml:"title"`
	Link       string  `xml:"link"`
	GUID       rssGUID `xml:"guid"`
	PubDate    string  `xml:"pubDate"`
	Seeders    int     `xml:"nyaa:seeders"`
	Leechers   int     `xml:"nyaa:leechers"`
	Downloads  int     `xml:"nyaa:downloads"`
	InfoHash   string  `xml:"nyaa:infoHash"`
	CategoryID string  `xml:"nyaa:categoryId"`
	Category   string  `xml:"nyaa:category"`
	Size       string  `xml:"nyaa:size"`
	Comments   int     `xml:"nyaa:comments"`
	Trusted    string  `xml:"nyaa:trusted"`
	Remake     string  `xml:"nyaa:remake"`
}

// RenderFeed 把订阅文档编码为带 nyaa 命名空间扩展字段的 RSS 2.0.
func RenderFeed(doc *search.FeedDocument) ([]byte, error) {
	kind := "Torrent File"
	if doc.Magnet {
		kind = "Magnet URI"
	}

	out := rssDocument{
		Version:   "2.0",
		NyaaXMLNS: feedNamespace,
		Channel: rssChannel{
			Title:       fmt.Sprintf("%s - %s - %s RSS", feedSiteName, doc.Label, kind),
			Description: "RSS Feed for " + doc.Label,
			Link:        doc.SiteURL + "/",
			Items:       make([]rssItem, 0, len(doc.Entries)),
		},
	}

	for _, e := range doc.Entries {
		out.Channel.Items = append(out.Channel.Items, rssItem{
			Title:      e.Title,
			Link:       e.Link,
			GUID:       rssGUID{IsPermaLink: true, Value: e.GUID},
			PubDate:    e.PubDate.UTC().Format(feedTimeLayout),
			Seeders:    e.Seeders,
			Leechers:   e.Leechers,
			Downloads:  e.Downloads,
			InfoHash:   e.InfoHash,
			CategoryID: e.CategoryID,
			Category:   e.CategoryName,
			Size:       e.Size,
			Comments:   e.Comments,
			Trusted:    yesNo(e.Trusted),
			Remake:     yesNo(e.Remake),
		})
	}

	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}

	return append([]byte(xml.Header), body...), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}

	return "No"
}
