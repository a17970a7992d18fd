package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"
)

// Generator renders emitted alerts as an RSS 2.0 document so alerts can be
// followed from any feed reader.
type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

func (g *Generator) Run(title, selfLink string, alerts []Alert) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", selfLink, 4)
	g.writeElement(&buf, "description", "Filing alerts emitted by Filing Comb", 4)

	if selfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(selfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(alerts) > 0 {
		lastBuildDate = alerts[0].ScrapedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Filing-Comb/%s", g.version), 4)

	for _, alert := range alerts {
		g.writeItem(&buf, alert)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, alert Alert) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(alert.FilingID)))
	xml.EscapeText(buf, []byte(alert.FilingID))
	buf.WriteString("</guid>\n")

	title := alert.Title
	if alert.FilingType != nil && !strings.Contains(title, *alert.FilingType) {
		title = fmt.Sprintf("[%s] %s", *alert.FilingType, title)
	}
	g.writeElement(buf, "title", title, 6)
	g.writeElement(buf, "link", alert.Link, 6)
	g.writeElement(buf, "description", alert.Summary, 6)

	published := alert.ScrapedAt
	if alert.PublishedAt != nil {
		published = *alert.PublishedAt
	}
	g.writeElement(buf, "pubDate", published.Format(time.RFC1123Z), 6)

	if alert.FilingType != nil {
		g.writeElement(buf, "category", *alert.FilingType, 6)
	}

	buf.WriteString("    </item>\n")
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

func (g *Generator) isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
