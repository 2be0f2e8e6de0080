package utils

import (
	"html/template"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const iframeAttrs = `frameborder="0" allowfullscreen allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"`

// EnhanceHTMLContent adds loading hints to images and turns paragraphs that
// hold nothing but a video link into an embedded player.
func EnhanceHTMLContent(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
		s.SetAttr("onerror", "this.onerror=null; this.src='/static/img/placeholder.svg'")
	})

	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if !strings.HasPrefix(text, "http") || strings.ContainsAny(text, " \n") {
			return
		}
		if embed := VideoEmbed(text); embed != "" {
			s.ReplaceWithHtml(string(embed))
		}
	})

	// goquery wraps fragments in a full document, keep the body only.
	out, _ := doc.Find("body").Html()
	if out == "" {
		out, _ = doc.Html()
	}
	return template.HTML(out)
}

// VideoEmbed returns a player for YouTube, Vimeo and Loom links, or "" for
// anything else.
func VideoEmbed(raw string) template.HTML {
	src := embedURL(strings.TrimSpace(raw))
	if src == "" {
		return ""
	}
	return template.HTML(`<div class="video-container"><iframe src="` + template.HTMLEscapeString(src) + `" ` + iframeAttrs + `></iframe></div>`)
}

func embedURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtube.com", "m.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return "https://www.youtube.com/embed/" + id
		}
		if len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "embed") {
			return "https://www.youtube.com/embed/" + segments[1]
		}
	case "youtu.be":
		if segments[0] != "" {
			return "https://www.youtube.com/embed/" + segments[0]
		}
	case "vimeo.com":
		if len(segments) == 1 && isDigits(segments[0]) {
			return "https://player.vimeo.com/video/" + segments[0]
		}
	case "loom.com":
		if len(segments) == 2 && segments[0] == "share" {
			return "https://www.loom.com/embed/" + segments[1]
		}
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Excerpt renders Markdown and returns at most n runes of its plain text,
// for cards and meta descriptions.
func Excerpt(markdown string, n int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(RenderMarkdown(markdown))))
	text := markdown
	if err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return strings.TrimSpace(string([]rune(text)[:n])) + "…"
}
