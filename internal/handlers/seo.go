package handlers

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"launchpad/internal/forum"
	"launchpad/internal/store"
	"launchpad/internal/utils"
)

const sitemapCacheKey = "sitemap.xml"

type SEOHandler struct {
	board   *forum.Board
	siteURL string
	cache   *utils.TTLCache[string]
}

func NewSEOHandler(board *forum.Board, siteURL string) (*SEOHandler, error) {
	cache, err := utils.NewTTLCache[string](8)
	if err != nil {
		return nil, err
	}
	return &SEOHandler{board: board, siteURL: siteURL, cache: cache}, nil
}

// RobotsTxt serves robots.txt.
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

# Forms and actions
Disallow: /submit
Disallow: /bookmark/
Disallow: /bookmarks
Disallow: /like/
Disallow: /preferences
Disallow: /post/*/edit
Disallow: /post/*/unlock

# Data API
Disallow: /api/

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML builds sitemap.xml, cached for a few minutes.
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	if cached, ok := h.cache.Get(sitemapCacheKey); ok {
		c.Header("Content-Type", "application/xml; charset=utf-8")
		c.String(http.StatusOK, cached)
		return
	}

	if err := h.board.Refresh(c.Request.Context(), store.OrderCreatedAt); err != nil {
		// Previous posts are still good enough for crawlers.
		c.Header("X-Launchpad-Stale", "1")
	}
	now := time.Now().Format("2006-01-02")

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)
	writeURL := func(path, lastmod, changefreq string, priority float64) {
		fmt.Fprintf(&b, `  <url>
    <loc>%s%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>%s</changefreq>
    <priority>%.1f</priority>
  </url>
`, h.siteURL, html.EscapeString(path), lastmod, changefreq, priority)
	}

	writeURL("/", now, "daily", 1.0)
	writeURL("/forum", now, "hourly", 0.9)
	writeURL("/categories", now, "daily", 0.8)
	for _, cat := range h.board.Categories() {
		writeURL("/forum?category="+url.QueryEscape(cat.Name), now, "daily", 0.7)
	}

	for _, post := range h.board.Filter(forum.Query{Sort: store.OrderCreatedAt}) {
		daysSinceCreated := time.Since(post.CreatedAt).Hours() / 24
		priority, changefreq := 0.6, "weekly"
		if daysSinceCreated < 7 {
			priority, changefreq = 0.8, "daily"
		} else if daysSinceCreated < 30 {
			priority = 0.7
		}
		writeURL("/post/"+post.Ref(), post.CreatedAt.Format("2006-01-02"), changefreq, priority)
	}
	b.WriteString(`</urlset>`)

	out := b.String()
	h.cache.Set(sitemapCacheKey, out, 5*time.Minute)
	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, out)
}

const (
	feedDefaultItems = 20
	feedMaxItems     = 50
)

// RSSFeed serves an RSS 2.0 feed of the newest posts, ?limit=N items.
func (h *SEOHandler) RSSFeed(c *gin.Context) {
	limit := utils.IntParam(c.Query("limit"), feedDefaultItems, 1, feedMaxItems)
	if err := h.board.Freshen(c.Request.Context(), time.Minute); err != nil {
		c.Header("X-Launchpad-Stale", "1")
	}
	posts := h.board.Filter(forum.Query{Sort: store.OrderCreatedAt})
	if len(posts) > limit {
		posts = posts[:limit]
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>Launchpad</title>
    <link>` + h.siteURL + `</link>
    <description>Startup pitches and discussions from the Launchpad community</description>
    <language>en-US</language>
    <lastBuildDate>` + time.Now().Format(time.RFC1123Z) + `</lastBuildDate>
    <atom:link href="` + h.siteURL + `/feed.xml" rel="self" type="application/rss+xml"/>
`)
	for _, post := range posts {
		link := h.siteURL + "/post/" + post.Ref()
		content := string(utils.RenderPost(post.Ref(), post.Content, post.VideoURL))
		content += `<p><a href="` + link + `">Join the discussion →</a></p>`

		b.WriteString(`    <item>
      <title>` + escapeXML(post.Title) + `</title>
      <link>` + link + `</link>
      <description><![CDATA[` + strings.ReplaceAll(content, "]]>", "]]]]><![CDATA[>") + `]]></description>
      <author>` + escapeXML(post.Author) + `</author>
      <category>` + escapeXML(post.Category) + `</category>
      <pubDate>` + post.CreatedAt.Format(time.RFC1123Z) + `</pubDate>
      <guid isPermaLink="true">` + link + `</guid>
    </item>
`)
	}
	b.WriteString(`  </channel>
</rss>`)

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

func escapeXML(s string) string {
	return html.EscapeString(s)
}
