package search

import (
	"net/url"
	"strings"
)

// MagnetURI 构造磁力链接，哈希统一为小写十六进制.
func MagnetURI(infoHash, name string, trackers []string) string {
	var b strings.Builder

	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(strings.ToLower(infoHash))

	if name != "" {
		b.WriteString("&dn=")
		b.WriteString(url.QueryEscape(name))
	}

	for _, tr := range trackers {
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tr))
	}

	return b.String()
}
