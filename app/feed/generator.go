package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"
)

// Generator synthesizes feed-formatted placeholder documents. Callers are
// RSS readers that handle HTTP errors poorly, so unavailable and
// blacklisted sources still get a parseable RSS body.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Unavailable builds the placeholder served when a source cannot be
// fetched and no cache exists.
func (g *Generator) Unavailable(feedURL, reason string, now time.Time) []byte {
	description := "The feed source is currently unavailable."
	if reason != "" {
		description = fmt.Sprintf("The feed source is currently unavailable. Error: %s", reason)
	}
	return g.placeholder(feedURL, "RSSJumper - Feed Unavailable", "Failed to fetch feed", description, now)
}

// Blacklisted builds the placeholder served for disabled feed URLs.
func (g *Generator) Blacklisted(feedURL string, now time.Time) []byte {
	return g.placeholder(feedURL, "RSSJumper - Feed Disabled",
		"This feed has been disabled",
		"The requested feed URL has been disabled by the administrator.", now)
}

func (g *Generator) placeholder(feedURL, title, itemTitle, description string, now time.Time) []byte {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", feedURL, 4)
	g.writeElement(&buf, "description", "RSS proxy service", 4)

	buf.WriteString("    <item>\n")
	g.writeElement(&buf, "title", itemTitle, 6)
	g.writeElement(&buf, "link", feedURL, 6)
	g.writeElement(&buf, "description", description, 6)
	g.writeElement(&buf, "pubDate", now.UTC().Format(time.RFC1123), 6)
	buf.WriteString("    </item>\n")

	buf.WriteString("  </channel>\n</rss>")

	return buf.Bytes()
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
