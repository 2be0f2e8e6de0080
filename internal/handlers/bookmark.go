package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/internal/forum"
	"launchpad/internal/middleware"
)

type BookmarkHandler struct {
	board *forum.Board
}

func NewBookmarkHandler(board *forum.Board) *BookmarkHandler {
	return &BookmarkHandler{board: board}
}

// Toggle flips a bookmark. Bookmarks live in the session, not in the store.
func (h *BookmarkHandler) Toggle(c *gin.Context) {
	ref := c.Param("ref")
	if _, ok := h.board.Get(ref); !ok {
		c.Status(http.StatusNotFound)
		return
	}

	bookmarked, err := middleware.ToggleBookmark(c, ref)
	if err != nil {
		c.String(http.StatusInternalServerError, "Could not save bookmark")
		return
	}

	if isHTMX(c) {
		c.HTML(http.StatusOK, "fragments/bookmark.html", gin.H{"Ref": ref, "IsBookmarked": bookmarked})
		return
	}
	c.Redirect(http.StatusFound, backTo(c, "/post/"+ref))
}
