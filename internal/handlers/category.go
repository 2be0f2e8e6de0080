package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"launchpad/internal/forum"
	"launchpad/internal/logger"
)

type CategoryHandler struct {
	board   *forum.Board
	siteURL string
	maxAge  time.Duration
}

func NewCategoryHandler(board *forum.Board, siteURL string, maxAge time.Duration) *CategoryHandler {
	return &CategoryHandler{board: board, siteURL: siteURL, maxAge: maxAge}
}

// ListCategories shows every category in use with its post count
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	stale := false
	if err := h.board.Freshen(c.Request.Context(), h.maxAge); err != nil {
		logger.Component("web").WithError(err).Warn("showing previous categories")
		stale = true
	}

	Render(c, http.StatusOK, "forum/categories.html", gin.H{
		"Title":       "Categories",
		"Description": "Browse Launchpad startups by category.",
		"FullURL":     h.siteURL + "/categories",
		"Categories":  h.board.Categories(),
		"Stale":       stale,
		"Active":      "categories",
	})
}
