// Package catalog holds the Route Catalog: the fixed list of site pages and
// tool slugs that the crawler-facing documents are generated from.
package catalog

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Kind distinguishes plain site pages from tool pages.
type Kind string

// Route kinds.
const (
	KindStatic Kind = "static"
	KindTool   Kind = "tool"
)

// ChangeFreq is a sitemap-protocol change frequency.
type ChangeFreq string

// Change frequencies defined by the sitemap protocol.
const (
	Always  ChangeFreq = "always"
	Hourly  ChangeFreq = "hourly"
	Daily   ChangeFreq = "daily"
	Weekly  ChangeFreq = "weekly"
	Monthly ChangeFreq = "monthly"
	Yearly  ChangeFreq = "yearly"
	Never   ChangeFreq = "never"
)

// ToolPrefix is the URL prefix under which every tool page lives.
const ToolPrefix = "/tool/"

// RouteEntry is one URL in the catalog.
type RouteEntry struct {
	Path       string     `json:"path"`
	Kind       Kind       `json:"kind"`
	ChangeFreq ChangeFreq `json:"changefreq"`
	Priority   float64    `json:"priority"`
}

// Validate validates a single entry.
func (e RouteEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Path, validation.Required, validation.By(absolutePath)),
		validation.Field(&e.Kind, validation.Required, validation.In(KindStatic, KindTool)),
		validation.Field(&e.ChangeFreq, validation.Required,
			validation.In(Always, Hourly, Daily, Weekly, Monthly, Yearly, Never)),
		validation.Field(&e.Priority, validation.Min(0.0), validation.Max(1.0)),
	)
}

func absolutePath(v any) error {
	s, _ := v.(string)
	if !strings.HasPrefix(s, "/") {
		return fmt.Errorf("must start with /")
	}
	return nil
}

// Catalog is an immutable, ordered set of routes.
type Catalog struct {
	static []RouteEntry
	tools  []RouteEntry
	slugs  []string
}

// New builds a catalog from static page paths and tool slugs. Priorities and
// change frequencies follow the site rules: the home page is daily/1.0, other
// pages weekly/0.8, tools weekly/0.7.
func New(pages, slugs []string) *Catalog {
	c := &Catalog{
		static: make([]RouteEntry, 0, len(pages)),
		tools:  make([]RouteEntry, 0, len(slugs)),
		slugs:  append([]string(nil), slugs...),
	}
	for _, p := range pages {
		e := RouteEntry{Path: p, Kind: KindStatic, ChangeFreq: Weekly, Priority: 0.8}
		if p == "/" {
			e.ChangeFreq = Daily
			e.Priority = 1.0
		}
		c.static = append(c.static, e)
	}
	for _, s := range slugs {
		c.tools = append(c.tools, RouteEntry{
			Path:       ToolPrefix + s,
			Kind:       KindTool,
			ChangeFreq: Weekly,
			Priority:   0.7,
		})
	}
	return c
}

// Default returns the catalog of the live site.
func Default() *Catalog {
	return New(staticPages, toolSlugs)
}

// Static returns the static page entries in catalog order.
func (c *Catalog) Static() []RouteEntry {
	return append([]RouteEntry(nil), c.static...)
}

// Tools returns the tool page entries in catalog order.
func (c *Catalog) Tools() []RouteEntry {
	return append([]RouteEntry(nil), c.tools...)
}

// ToolSlugs returns the bare tool identifiers.
func (c *Catalog) ToolSlugs() []string {
	return append([]string(nil), c.slugs...)
}

// Entries returns static entries followed by tool entries.
func (c *Catalog) Entries() []RouteEntry {
	out := make([]RouteEntry, 0, c.Len())
	out = append(out, c.static...)
	return append(out, c.tools...)
}

// Filter returns the entries of the given kind; an empty kind returns all.
func (c *Catalog) Filter(kind Kind) []RouteEntry {
	switch kind {
	case KindStatic:
		return c.Static()
	case KindTool:
		return c.Tools()
	default:
		return c.Entries()
	}
}

// Len returns the number of routes.
func (c *Catalog) Len() int {
	return len(c.static) + len(c.tools)
}

// Validate checks every entry and rejects duplicate paths.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, c.Len())
	for _, e := range c.Entries() {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("catalog: route %q: %w", e.Path, err)
		}
		if _, dup := seen[e.Path]; dup {
			return fmt.Errorf("catalog: duplicate route %q", e.Path)
		}
		seen[e.Path] = struct{}{}
	}
	return nil
}
