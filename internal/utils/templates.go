package utils

import (
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"github.com/gin-contrib/multitemplate"

	"launchpad/internal/models"
)

// Views rendered inside the base layout.
var layoutViews = []string{
	"landing.html",
	"error.html",
	"forum/list.html",
	"forum/detail.html",
	"forum/create.html",
	"forum/edit.html",
	"forum/unlock.html",
	"forum/categories.html",
}

// Fragments returned to HTMX requests, rendered without the layout.
var fragmentViews = []string{
	"fragments/upvote.html",
	"fragments/comment.html",
	"fragments/bookmark.html",
	"fragments/like.html",
}

// TemplateFuncs is shared by every view.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"gt": func(a, b int) bool {
			return a > b
		},
		"timeAgo": func(t time.Time) string {
			return TimeAgo(t)
		},
		"compact": CompactCount,
		"excerpt": Excerpt,
		"renderPost": func(p models.Post) template.HTML {
			return RenderPost(p.Ref(), p.Content, p.VideoURL)
		},
		"year": func() int {
			return time.Now().Year()
		},
	}
}

// LoadTemplates assembles every view with the shared layout, includes and
// components.
func LoadTemplates(templatesDir string) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	var shared []string
	for _, dir := range []string{"layouts", "includes", "components"} {
		files, err := filepath.Glob(filepath.Join(templatesDir, dir, "*.html"))
		if err != nil {
			return nil, err
		}
		shared = append(shared, files...)
	}

	funcs := TemplateFuncs()
	for _, name := range layoutViews {
		files := append(append([]string{}, shared...), filepath.Join(templatesDir, "views", name))
		r.AddFromFilesFuncs(name, funcs, files...)
	}
	for _, name := range fragmentViews {
		files := []string{filepath.Join(templatesDir, "views", name)}
		files = append(files, filepath.Join(templatesDir, "components", "post_card.html"))
		r.AddFromFilesFuncs(name, funcs, files...)
	}
	return r, nil
}
