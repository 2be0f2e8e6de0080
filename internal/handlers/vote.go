package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"launchpad/internal/forum"
)

type VoteHandler struct {
	board *forum.Board
}

func NewVoteHandler(board *forum.Board) *VoteHandler {
	return &VoteHandler{board: board}
}

// Upvote handles upvote logic. Votes are unlimited and applied optimistically,
// the response carries the new count before the store has it.
func (h *VoteHandler) Upvote(c *gin.Context) {
	ref := c.Param("ref")
	n, err := h.board.Upvote(ref)
	if err != nil {
		c.String(statusFor(err), msg(err))
		return
	}

	if isHTMX(c) {
		c.HTML(http.StatusOK, "fragments/upvote.html", gin.H{"Ref": ref, "Upvotes": n})
		return
	}
	c.String(http.StatusOK, strconv.Itoa(n))
}
