package feed

import (
	"bytes"
	"strings"
)

const sniffLimit = 500

var feedMarkers = [][]byte{
	[]byte("<?xml"),
	[]byte("<rss"),
	[]byte("<feed"),
}

// LooksLikeFeed reports whether a response plausibly carries an XML feed.
// The declared content type wins; otherwise the first 500 bytes are
// inspected for feed markers. This classifies, it never rejects: the
// proxy serves whatever the origin returned.
func LooksLikeFeed(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "xml") || strings.Contains(ct, "rss") {
		return true
	}

	head := body
	if len(head) > sniffLimit {
		head = head[:sniffLimit]
	}
	for _, marker := range feedMarkers {
		if bytes.Contains(head, marker) {
			return true
		}
	}
	return false
}
