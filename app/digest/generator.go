package digest

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"
)

type ChannelInfo struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run renders a digest as an RSS 2.0 document.
func (g *Generator) Run(channel ChannelInfo, result AggregationResult) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", cmp.Or(channel.Title, "News Digest"), 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	description := channel.Description
	if description == "" {
		description = fmt.Sprintf("Items from the last %g hours across %d sources", result.Meta.WindowHours, result.Meta.SourcesSucceeded)
	}
	g.writeElement(&buf, "description", description, 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := result.Meta.GeneratedAt
	if len(result.Items) > 0 {
		lastBuildDate = result.Items[0].PublishedAt
	}
	if !lastBuildDate.IsZero() {
		g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	}
	g.writeElement(&buf, "generator", "news-digest", 4)

	for _, item := range result.Items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String()
}

func (g *Generator) writeItem(buf *bytes.Buffer, item NormalizedItem) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(item.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.URL, 6)
	g.writeElement(buf, "description", cmp.Or(item.Excerpt, "No description available"), 6)
	g.writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)

	if item.SourceName != "" && g.isURL(item.URL) {
		buf.WriteString("      <source url=\"")
		buf.WriteString(html.EscapeString(item.URL))
		buf.WriteString("\">")
		xml.EscapeText(buf, []byte(item.SourceName))
		buf.WriteString("</source>\n")
	}

	for _, topic := range item.Topics {
		if topic != "" {
			g.writeElement(buf, "category", topic, 6)
		}
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
