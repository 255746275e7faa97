// Package sitemap renders the crawler-facing documents (robots.txt and the
// sitemap-protocol XML files) from the route catalog.
package sitemap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/suntyn/sitegen/internal/catalog"
)

// Artifact names, relative to the output directory.
const (
	RobotsFile       = "robots.txt"
	MainSitemapFile  = "sitemap.xml"
	ToolsSitemapFile = "sitemap-tools.xml"
	IndexFile        = "sitemap-index.xml"
)

// Content types the artifacts are served with.
const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeXML  = "application/xml; charset=utf-8"
)

// Namespace is the sitemap protocol 0.9 namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Names lists every artifact in publish order.
var Names = []string{RobotsFile, MainSitemapFile, ToolsSitemapFile, IndexFile}

// ContentType returns the serving content type for an artifact name.
func ContentType(name string) string {
	if strings.HasSuffix(name, ".xml") {
		return ContentTypeXML
	}
	return ContentTypeText
}

// IsArtifact reports whether name is one of the generated files.
func IsArtifact(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Document is one generated artifact.
type Document struct {
	Name        string
	ContentType string
	Content     []byte
}

// Builder renders documents for one site.
type Builder struct {
	BaseURL string
	Catalog *catalog.Catalog
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewBuilder returns a builder using the wall clock.
func NewBuilder(baseURL string, c *catalog.Catalog) *Builder {
	return &Builder{BaseURL: strings.TrimRight(baseURL, "/"), Catalog: c}
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

// Documents renders all four artifacts from a single clock reading.
func (b *Builder) Documents() []Document {
	fixed := b.now()
	snap := &Builder{BaseURL: b.BaseURL, Catalog: b.Catalog, Now: func() time.Time { return fixed }}

	return []Document{
		{Name: RobotsFile, ContentType: ContentTypeText, Content: []byte(snap.RobotsText())},
		{Name: MainSitemapFile, ContentType: ContentTypeXML, Content: []byte(snap.URLSetXML(b.Catalog.Static()))},
		{Name: ToolsSitemapFile, ContentType: ContentTypeXML, Content: []byte(snap.URLSetXML(b.Catalog.Tools()))},
		{Name: IndexFile, ContentType: ContentTypeXML, Content: []byte(snap.SitemapIndexXML())},
	}
}

// RobotsText renders robots.txt. The only non-deterministic part is the
// generation date in the header comment.
func (b *Builder) RobotsText() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Robots.txt for Suntyn AI - Neural Intelligence Platform\n")
	fmt.Fprintf(&sb, "# Generated automatically on %s\n", b.now().Format(dateLayout))
	fmt.Fprintf(&sb, "# Visit: %s\n\n", b.BaseURL)

	sb.WriteString("User-agent: *\n")
	sb.WriteString("Allow: /\n\n")

	sb.WriteString("# Important pages\n")
	sb.WriteString("Allow: /all-tools\n")
	sb.WriteString("Allow: /toolkit/\n")
	sb.WriteString("Allow: " + catalog.ToolPrefix + "\n\n")

	sb.WriteString("# API endpoints - restricted for crawlers\n")
	sb.WriteString("Disallow: /api/\n")
	sb.WriteString("Disallow: /auth/\n")
	sb.WriteString("Disallow: /uploads/\n\n")

	sb.WriteString("# Allow specific tool endpoints for better SEO\n")
	for _, slug := range b.Catalog.ToolSlugs() {
		sb.WriteString("Allow: " + catalog.ToolPrefix + slug + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("# Sitemaps\n")
	fmt.Fprintf(&sb, "Sitemap: %s/%s\n", b.BaseURL, MainSitemapFile)
	fmt.Fprintf(&sb, "Sitemap: %s/%s\n\n", b.BaseURL, ToolsSitemapFile)

	sb.WriteString("# Crawl-delay for respectful crawling\n")
	sb.WriteString("Crawl-delay: 1\n\n")

	sb.WriteString("# Contact info\n")
	sb.WriteString("# Contact: support@suntynai.com\n")
	fmt.Fprintf(&sb, "# For more info: %s/contact\n", b.BaseURL)

	return sb.String()
}

// URLSetXML renders a <urlset> with one <url> per entry.
//
// Values are interpolated verbatim: paths containing & or < produce
// malformed XML.
func (b *Builder) URLSetXML(entries []catalog.RouteEntry) string {
	now := b.now()
	lastmod := now.Format(dateLayout)

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&sb, "<!-- Sitemap for Suntyn AI - Generated automatically on %s -->\n", FormatTimestamp(now))
	sb.WriteString(`<urlset xmlns="` + Namespace + `"` + "\n")
	sb.WriteString(`        xmlns:news="http://www.google.com/schemas/sitemap-news/0.9"` + "\n")
	sb.WriteString(`        xmlns:xhtml="http://www.w3.org/1999/xhtml"` + "\n")
	sb.WriteString(`        xmlns:mobile="http://www.google.com/schemas/sitemap-mobile/1.0"` + "\n")
	sb.WriteString(`        xmlns:image="http://www.google.com/schemas/sitemap-image/1.1"` + "\n")
	sb.WriteString(`        xmlns:video="http://www.google.com/schemas/sitemap-video/1.1">` + "\n")

	for _, e := range entries {
		sb.WriteString("  <url>\n")
		fmt.Fprintf(&sb, "    <loc>%s%s</loc>\n", b.BaseURL, e.Path)
		fmt.Fprintf(&sb, "    <lastmod>%s</lastmod>\n", lastmod)
		fmt.Fprintf(&sb, "    <changefreq>%s</changefreq>\n", e.ChangeFreq)
		fmt.Fprintf(&sb, "    <priority>%s</priority>\n", FormatPriority(e.Priority))
		sb.WriteString("  </url>\n")
	}
	sb.WriteString("</urlset>")

	return sb.String()
}

// SitemapIndexXML renders the index pointing at the main and tools sitemaps.
func (b *Builder) SitemapIndexXML() string {
	ts := FormatTimestamp(b.now())

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<sitemapindex xmlns="` + Namespace + `">` + "\n")
	for _, name := range []string{MainSitemapFile, ToolsSitemapFile} {
		sb.WriteString("  <sitemap>\n")
		fmt.Fprintf(&sb, "    <loc>%s/%s</loc>\n", b.BaseURL, name)
		fmt.Fprintf(&sb, "    <lastmod>%s</lastmod>\n", ts)
		sb.WriteString("  </sitemap>\n")
	}
	sb.WriteString("</sitemapindex>")

	return sb.String()
}

// FormatPriority renders a priority with one decimal place ("1.0", "0.7").
func FormatPriority(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}

// FormatTimestamp renders t in UTC with exactly three fractional digits,
// e.g. 2025-01-15T10:30:53.500Z.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
