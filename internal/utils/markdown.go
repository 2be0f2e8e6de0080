package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

const renderTTL = 10 * time.Minute

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy = bluemonday.UGCPolicy()

	renderCache *TTLCache[template.HTML]
)

func init() {
	policy.AllowImages()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)

	var err error
	if renderCache, err = NewTTLCache[template.HTML](1024); err != nil {
		panic(err)
	}
}

// RenderMarkdown turns post Markdown into sanitized HTML.
func RenderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	sanitized := policy.SanitizeBytes(buf.Bytes())
	return EnhanceHTMLContent(string(sanitized))
}

// RenderPost renders a post body with its video embed on top. Results are
// cached per ref and content, so an edit is picked up immediately.
func RenderPost(ref, content, videoURL string) template.HTML {
	sum := sha256.Sum256([]byte(content + "\x00" + videoURL))
	key := ref + ":" + hex.EncodeToString(sum[:8])
	if out, ok := renderCache.Get(key); ok {
		return out
	}
	out := RenderMarkdown(content)
	if embed := VideoEmbed(videoURL); embed != "" {
		out = embed + out
	}
	renderCache.Set(key, out, renderTTL)
	return out
}
