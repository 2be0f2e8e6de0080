package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"launchpad/internal/logger"
	"launchpad/internal/metrics"
	"launchpad/internal/models"
	"launchpad/internal/store"
)

// APIHandler serves the posts and comments relations as JSON under /api.
// It is the remote end of store.HTTPStore and performs no authorization.
type APIHandler struct {
	store store.Store
	log   *logrus.Entry
}

func NewAPIHandler(st store.Store) *APIHandler {
	return &APIHandler{store: st, log: logger.Component("api")}
}

func apiFail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

func (h *APIHandler) storeFail(c *gin.Context, op store.Op, err error) {
	if errors.Is(err, store.ErrNotFound) {
		apiFail(c, http.StatusNotFound, "not found")
		return
	}
	metrics.StoreErrors.WithLabelValues(string(op)).Inc()
	h.log.WithError(err).WithField("op", op).Error("store call failed")
	apiFail(c, http.StatusInternalServerError, "internal error")
}

func postID(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || n == 0 {
		apiFail(c, http.StatusBadRequest, "invalid post id")
		return 0, false
	}
	return uint(n), true
}

// ListPosts GET /api/posts?order=&category=&flag=
func (h *APIHandler) ListPosts(c *gin.Context) {
	opts := store.ListOptions{
		OrderBy:  store.ParseOrder(c.Query("order")),
		Category: c.Query("category"),
		Flag:     models.Flag(c.Query("flag")),
	}
	if !opts.Flag.Valid() {
		apiFail(c, http.StatusBadRequest, "unknown flag")
		return
	}
	posts, err := h.store.ListPosts(c.Request.Context(), opts)
	if err != nil {
		h.storeFail(c, store.OpListPosts, err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	c.JSON(http.StatusOK, posts)
}

// GetPost GET /api/posts/:id
func (h *APIHandler) GetPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	post, err := h.store.GetPost(c.Request.Context(), id)
	if err != nil {
		h.storeFail(c, store.OpGetPost, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// CreatePost POST /api/posts
func (h *APIHandler) CreatePost(c *gin.Context) {
	var post models.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		apiFail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	post.ID = 0
	post.CreatedAt = time.Time{}
	post.IsReal = false

	switch {
	case strings.TrimSpace(post.Title) == "":
		apiFail(c, http.StatusBadRequest, "title is required")
		return
	case strings.TrimSpace(post.Content) == "":
		apiFail(c, http.StatusBadRequest, "content is required")
		return
	case strings.TrimSpace(post.Author) == "":
		apiFail(c, http.StatusBadRequest, "author is required")
		return
	case strings.TrimSpace(post.Category) == "":
		apiFail(c, http.StatusBadRequest, "category is required")
		return
	case !post.Flag.Valid():
		apiFail(c, http.StatusBadRequest, "unknown flag")
		return
	}

	if err := h.store.CreatePost(c.Request.Context(), &post); err != nil {
		h.storeFail(c, store.OpCreatePost, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdatePost PATCH /api/posts/:id
func (h *APIHandler) UpdatePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var patch models.PostPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		apiFail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if patch.Empty() {
		apiFail(c, http.StatusBadRequest, "empty patch")
		return
	}
	if patch.Flag != nil && !patch.Flag.Valid() {
		apiFail(c, http.StatusBadRequest, "unknown flag")
		return
	}
	if err := h.store.UpdatePost(c.Request.Context(), id, patch); err != nil {
		h.storeFail(c, store.OpUpdatePost, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeletePost DELETE /api/posts/:id
func (h *APIHandler) DeletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	if err := h.store.DeletePost(c.Request.Context(), id); err != nil {
		h.storeFail(c, store.OpDeletePost, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListComments GET /api/posts/:id/comments, newest first
func (h *APIHandler) ListComments(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	comments, err := h.store.ListComments(c.Request.Context(), id)
	if err != nil {
		h.storeFail(c, store.OpListComments, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	c.JSON(http.StatusOK, comments)
}

// CreateComment POST /api/posts/:id/comments
func (h *APIHandler) CreateComment(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var comment models.Comment
	if err := c.ShouldBindJSON(&comment); err != nil {
		apiFail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	comment.ID = 0
	comment.PostID = id
	comment.CreatedAt = time.Time{}
	comment.Content = strings.TrimSpace(comment.Content)
	if comment.Content == "" {
		apiFail(c, http.StatusBadRequest, "content is required")
		return
	}
	if utf8.RuneCountInString(comment.Content) > models.MaxCommentLength {
		apiFail(c, http.StatusBadRequest, "comment is too long")
		return
	}
	if strings.TrimSpace(comment.Author) == "" {
		comment.Author = "Anonymous"
	}

	if err := h.store.CreateComment(c.Request.Context(), &comment); err != nil {
		h.storeFail(c, store.OpCreateComment, err)
		return
	}
	comment.Post = nil
	c.JSON(http.StatusCreated, comment)
}

// Healthz reports liveness. It does not touch the store.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
