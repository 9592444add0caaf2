package feed

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"
)

func TestLooksLikeFeed(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        bool
	}{
		{"rss content type", "application/rss+xml", "", true},
		{"atom content type", "application/atom+xml", "", true},
		{"plain xml content type", "text/xml; charset=utf-8", "", true},
		{"xml declaration in body", "text/plain", `<?xml version="1.0"?><rss></rss>`, true},
		{"rss tag in body", "application/octet-stream", `<rss version="2.0">`, true},
		{"atom tag in body", "text/plain", `<feed xmlns="http://www.w3.org/2005/Atom">`, true},
		{"html page", "text/html", "<!DOCTYPE html><html></html>", false},
		{"json payload", "application/json", `{"items":[]}`, false},
		{"marker past sniff limit", "text/plain", strings.Repeat("x", 600) + "<rss", false},
	}

	for _, tt := range tests {
		if got := LooksLikeFeed(tt.contentType, []byte(tt.body)); got != tt.want {
			t.Errorf("%s: LooksLikeFeed = %v, want %v", tt.name, got, tt.want)
		}
	}
}

type rssDoc struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel struct {
		Title string `xml:"title"`
		Link  string `xml:"link"`
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			PubDate     string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

func TestUnavailablePlaceholderIsValidRSS(t *testing.T) {
	g := NewGenerator()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	body := g.Unavailable("https://example.com/feed.xml", "connection refused", now)

	var doc rssDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		t.Fatalf("placeholder does not parse as XML: %v", err)
	}
	if doc.Version != "2.0" {
		t.Errorf("rss version = %q, want 2.0", doc.Version)
	}
	if doc.Channel.Title != "RSSJumper - Feed Unavailable" {
		t.Errorf("channel title = %q", doc.Channel.Title)
	}
	if doc.Channel.Link != "https://example.com/feed.xml" {
		t.Errorf("channel link = %q", doc.Channel.Link)
	}
	if len(doc.Channel.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(doc.Channel.Items))
	}

	item := doc.Channel.Items[0]
	if !strings.Contains(item.Description, "connection refused") {
		t.Errorf("item description %q should carry the failure reason", item.Description)
	}
	if _, err := time.Parse(time.RFC1123, item.PubDate); err != nil {
		t.Errorf("pubDate %q not RFC1123: %v", item.PubDate, err)
	}
	if !LooksLikeFeed("text/plain", body) {
		t.Error("placeholder should classify as a feed")
	}
}

func TestBlacklistedPlaceholder(t *testing.T) {
	g := NewGenerator()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	body := g.Blacklisted("https://example.com/feed.xml", now)

	var doc rssDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		t.Fatalf("placeholder does not parse as XML: %v", err)
	}
	if doc.Channel.Title != "RSSJumper - Feed Disabled" {
		t.Errorf("channel title = %q", doc.Channel.Title)
	}
	if len(doc.Channel.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(doc.Channel.Items))
	}
	if doc.Channel.Items[0].Title != "This feed has been disabled" {
		t.Errorf("item title = %q", doc.Channel.Items[0].Title)
	}
}

func TestPlaceholderEscapesContent(t *testing.T) {
	g := NewGenerator()
	now := time.Now()

	body := g.Unavailable("https://example.com/feed?a=1&b=2", `bad <tag> & "quote"`, now)

	if bytes.Contains(body, []byte("a=1&b=2</link>")) {
		t.Error("ampersand in link not escaped")
	}
	var doc rssDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		t.Fatalf("placeholder with special characters does not parse: %v", err)
	}
	if doc.Channel.Link != "https://example.com/feed?a=1&b=2" {
		t.Errorf("link roundtrip = %q", doc.Channel.Link)
	}
	if !strings.Contains(doc.Channel.Items[0].Description, `bad <tag> & "quote"`) {
		t.Errorf("description roundtrip = %q", doc.Channel.Items[0].Description)
	}
}
