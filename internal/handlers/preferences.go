package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"launchpad/internal/middleware"
)

type PreferencesHandler struct{}

func NewPreferencesHandler() *PreferencesHandler {
	return &PreferencesHandler{}
}

// Save stores theme, color scheme and the full-posts toggle in the session.
func (h *PreferencesHandler) Save(c *gin.Context) {
	current := middleware.GetPreferences(c)
	prefs := middleware.Preferences{
		Theme:         c.DefaultPostForm("theme", current.Theme),
		ColorScheme:   c.DefaultPostForm("color_scheme", current.ColorScheme),
		ShowFullPosts: current.ShowFullPosts,
	}
	if v, ok := c.GetPostForm("show_full_posts"); ok {
		on, err := strconv.ParseBool(v)
		prefs.ShowFullPosts = on || (err != nil && v == "on")
	}

	if err := middleware.SavePreferences(c, prefs); err != nil {
		c.String(http.StatusInternalServerError, "Could not save preferences")
		return
	}
	redirect(c, backTo(c, "/"))
}
