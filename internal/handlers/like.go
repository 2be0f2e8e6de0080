package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/internal/forum"
	"launchpad/internal/middleware"
)

type LikeHandler struct {
	board *forum.Board
}

func NewLikeHandler(board *forum.Board) *LikeHandler {
	return &LikeHandler{board: board}
}

// Toggle flips the heart on a post for this browser. Unlike upvotes it is
// kept in the session only and works on featured posts too.
func (h *LikeHandler) Toggle(c *gin.Context) {
	ref := c.Param("ref")
	if _, ok := h.board.Get(ref); !ok {
		c.Status(http.StatusNotFound)
		return
	}

	liked, err := middleware.ToggleLike(c, ref)
	if err != nil {
		c.String(http.StatusInternalServerError, "Could not save like")
		return
	}

	if isHTMX(c) {
		c.HTML(http.StatusOK, "fragments/like.html", gin.H{"Ref": ref, "IsLiked": liked})
		return
	}
	c.Redirect(http.StatusFound, backTo(c, "/post/"+ref))
}
