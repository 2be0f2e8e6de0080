package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"launchpad/internal/forum"
	"launchpad/internal/logger"
	"launchpad/internal/middleware"
	"launchpad/internal/models"
	"launchpad/internal/store"
	"launchpad/internal/utils"
)

type PostHandler struct {
	board   *forum.Board
	siteURL string
	maxAge  time.Duration
	log     *logrus.Entry
}

func NewPostHandler(board *forum.Board, siteURL string, maxAge time.Duration) *PostHandler {
	return &PostHandler{
		board:   board,
		siteURL: siteURL,
		maxAge:  maxAge,
		log:     logger.Component("web"),
	}
}

type feature struct {
	Icon  string
	Title string
	Text  string
}

var landingFeatures = []feature{
	{"🚀", "Showcase your startup", "Pitch your product with funding stage, traction and a demo video in one card."},
	{"💬", "Get real feedback", "Founders and operators upvote, comment and repost the ideas worth discussing."},
	{"🔎", "Find your niche", "Filter by category and discussion type to see what is moving in your market."},
}

// refresh brings the board up to date and reports whether the list shown
// is possibly stale.
func (h *PostHandler) refresh(c *gin.Context) bool {
	if err := h.board.Freshen(c.Request.Context(), h.maxAge); err != nil {
		h.log.WithError(err).Warn("showing previous posts")
		return true
	}
	return false
}

func refIndex(refs []string) map[string]bool {
	set := make(map[string]bool, len(refs))
	for _, ref := range refs {
		set[ref] = true
	}
	return set
}

// Landing renders the marketing page with a forum preview.
func (h *PostHandler) Landing(c *gin.Context) {
	stale := h.refresh(c)

	trending := h.board.Filter(forum.Query{Sort: store.OrderUpvotes})
	if len(trending) > 3 {
		trending = trending[:3]
	}

	Render(c, http.StatusOK, "landing.html", gin.H{
		"Title":       siteName + " - where startups launch",
		"Description": "Showcase your startup, get feedback from founders and discuss what to build next.",
		"FullURL":     h.siteURL + "/",
		"Features":    landingFeatures,
		"Trending":    trending,
		"PostCount":   len(h.board.Posts()),
		"Categories":  h.board.Categories(),
		"Bookmarks":   refIndex(middleware.Bookmarks(c)),
		"Likes":       refIndex(middleware.Likes(c)),
		"Stale":       stale,
		"Active":      "home",
	})
}

// List renders the forum with search, flag, category and sort filters.
func (h *PostHandler) List(c *gin.Context) {
	order := store.ParseOrder(c.Query("sort"))
	query := forum.Query{
		Search:   strings.TrimSpace(c.Query("q")),
		Flag:     models.Flag(c.Query("flag")),
		Category: c.Query("category"),
		Sort:     order,
	}
	if !query.Flag.Valid() {
		query.Flag = models.FlagNone
	}
	stale := h.refresh(c)
	posts := h.board.Filter(query)

	title := "Forum"
	if query.Category != "" {
		title = query.Category + " - Forum"
	}

	Render(c, http.StatusOK, "forum/list.html", gin.H{
		"Title":       title,
		"Description": "Startup pitches, questions and discussions from the Launchpad community.",
		"FullURL":     h.siteURL + "/forum",
		"Posts":       posts,
		"Count":       len(posts),
		"Query":       query,
		"Flags":       models.Flags,
		"Categories":  h.board.Categories(),
		"Bookmarks":   refIndex(middleware.Bookmarks(c)),
		"Likes":       refIndex(middleware.Likes(c)),
		"Stale":       stale,
		"Active":      "forum",
	})
}

// Bookmarked lists the posts bookmarked in this session.
func (h *PostHandler) Bookmarked(c *gin.Context) {
	h.refresh(c)
	var posts []models.Post
	for _, ref := range middleware.Bookmarks(c) {
		if p, ok := h.board.Get(ref); ok {
			posts = append(posts, p)
		}
	}

	Render(c, http.StatusOK, "forum/list.html", gin.H{
		"Title":       "Bookmarks",
		"Posts":       posts,
		"Count":       len(posts),
		"Query":       forum.Query{},
		"Flags":       models.Flags,
		"Categories":  h.board.Categories(),
		"Bookmarks":   refIndex(middleware.Bookmarks(c)),
		"Likes":       refIndex(middleware.Likes(c)),
		"BookmarkTab": true,
		"Active":      "bookmarks",
	})
}

func (h *PostHandler) Detail(c *gin.Context) {
	th, err := h.board.Open(c.Request.Context(), c.Param("ref"))
	if err != nil {
		renderFailure(c, err)
		return
	}
	h.renderDetail(c, th, http.StatusOK, nil)
}

func (h *PostHandler) renderDetail(c *gin.Context, th *forum.Thread, code int, extra gin.H) {
	post := th.Post()
	who := middleware.CurrentIdentity(c)
	canManage := post.IsReal && h.board.Authorize(post.Ref(), who, middleware.GrantedKey(c, post.Ref())) == nil

	data := gin.H{
		"Title":        post.Title,
		"Description":  utils.Excerpt(post.Content, 150),
		"FullURL":      h.siteURL + "/post/" + post.Ref(),
		"Post":         post,
		"Comments":     th.Comments(),
		"CanManage":    canManage,
		"IsOwner":      forum.IsOwner(post, who),
		"IsBookmarked": middleware.IsBookmarked(c, post.Ref()),
		"IsLiked":      middleware.IsLiked(c, post.Ref()),
		"MaxComment":   models.MaxCommentLength,
		"Active":       "forum",
	}
	for k, v := range extra {
		data[k] = v
	}
	Render(c, code, "forum/detail.html", data)
}

// Comment adds a comment. HTMX requests get the rendered comment back.
func (h *PostHandler) Comment(c *gin.Context) {
	ctx := c.Request.Context()
	th, err := h.board.Load(ctx, c.Param("ref"))
	if err != nil {
		renderFailure(c, err)
		return
	}

	author := c.PostForm("author")
	if strings.TrimSpace(author) == "" {
		author = middleware.CurrentIdentity(c).Name
	}
	content := c.PostForm("content")

	comment, err := th.Comment(ctx, author, content)
	if err != nil {
		if isHTMX(c) {
			c.String(statusFor(err), msg(err))
			return
		}
		h.renderDetail(c, th, statusFor(err), gin.H{"CommentError": msg(err), "Draft": content})
		return
	}

	if isHTMX(c) {
		c.HTML(http.StatusOK, "fragments/comment.html", gin.H{"Comment": comment})
		return
	}
	c.Redirect(http.StatusFound, "/post/"+th.Ref()+"#comments")
}

func (h *PostHandler) formData(extra gin.H) gin.H {
	data := gin.H{
		"Categories":    models.Categories,
		"FundingStages": models.FundingStages,
		"Flags":         models.Flags,
		"Active":        "submit",
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func (h *PostHandler) ShowCreate(c *gin.Context) {
	who := middleware.CurrentIdentity(c)
	Render(c, http.StatusOK, "forum/create.html", h.formData(gin.H{
		"Title": "Share your startup",
		"Input": forum.PostInput{Author: who.Name},
	}))
}

func (h *PostHandler) Create(c *gin.Context) {
	var in forum.PostInput
	if err := c.ShouldBind(&in); err != nil {
		RenderError(c, http.StatusBadRequest, "Invalid form")
		return
	}

	post, err := h.board.Create(c.Request.Context(), middleware.CurrentIdentity(c), in)
	if err != nil {
		Render(c, statusFor(err), "forum/create.html", h.formData(gin.H{
			"Title": "Share your startup",
			"Input": in,
			"Error": msg(err),
			"Field": errorField(err),
		}))
		return
	}
	redirect(c, "/post/"+post.Ref())
}

func errorField(err error) string {
	var verr *forum.ValidationError
	if errors.As(err, &verr) {
		return verr.Field
	}
	return ""
}

// renderUnlock asks for the secret key of ref before continuing to next.
func (h *PostHandler) renderUnlock(c *gin.Context, code int, post models.Post, next string, err error) {
	Render(c, code, "forum/unlock.html", gin.H{
		"Title": "Unlock " + post.Title,
		"Post":  post,
		"Next":  next,
		"Error": msg(err),
	})
}

func (h *PostHandler) ShowEdit(c *gin.Context) {
	th, err := h.board.Load(c.Request.Context(), c.Param("ref"))
	if err != nil {
		renderFailure(c, err)
		return
	}
	post := th.Post()
	if !post.IsReal {
		renderFailure(c, forum.ErrFixtureReadOnly)
		return
	}

	ref := post.Ref()
	if err := h.board.Authorize(ref, middleware.CurrentIdentity(c), middleware.GrantedKey(c, ref)); err != nil {
		h.renderUnlock(c, http.StatusOK, post, "edit", nil)
		return
	}
	Render(c, http.StatusOK, "forum/edit.html", h.formData(gin.H{
		"Title": "Edit " + post.Title,
		"Post":  post,
		"Input": forum.InputFromPost(post),
	}))
}

func (h *PostHandler) Update(c *gin.Context) {
	ref := c.Param("ref")
	var in forum.PostInput
	if err := c.ShouldBind(&in); err != nil {
		RenderError(c, http.StatusBadRequest, "Invalid form")
		return
	}

	who := middleware.CurrentIdentity(c)
	post, err := h.board.Update(c.Request.Context(), ref, who, middleware.GrantedKey(c, ref), in)
	switch {
	case err == nil:
		redirect(c, "/post/"+post.Ref())
	case forum.IsAuthError(err):
		current, _ := h.board.Get(ref)
		h.renderUnlock(c, http.StatusForbidden, current, "edit", err)
	case errors.Is(err, forum.ErrNotFound), errors.Is(err, forum.ErrFixtureReadOnly):
		renderFailure(c, err)
	default:
		current, _ := h.board.Get(ref)
		Render(c, statusFor(err), "forum/edit.html", h.formData(gin.H{
			"Title": "Edit " + current.Title,
			"Post":  current,
			"Input": in,
			"Error": msg(err),
			"Field": errorField(err),
		}))
	}
}

func (h *PostHandler) ShowUnlock(c *gin.Context) {
	th, err := h.board.Load(c.Request.Context(), c.Param("ref"))
	if err != nil {
		renderFailure(c, err)
		return
	}
	h.renderUnlock(c, http.StatusOK, th.Post(), c.DefaultQuery("next", "edit"), nil)
}

// Unlock checks the secret key and remembers it for this session.
func (h *PostHandler) Unlock(c *gin.Context) {
	ref := c.Param("ref")
	key := c.PostForm("secret_key")
	next := c.PostForm("next")

	th, err := h.board.Load(c.Request.Context(), ref)
	if err != nil {
		renderFailure(c, err)
		return
	}
	post := th.Post()
	if err := h.board.Authorize(ref, middleware.CurrentIdentity(c), key); err != nil {
		if errors.Is(err, forum.ErrFixtureReadOnly) {
			renderFailure(c, err)
			return
		}
		h.renderUnlock(c, http.StatusForbidden, post, next, err)
		return
	}
	if err := middleware.Grant(c, ref, key); err != nil {
		h.log.WithError(err).Warn("saving unlock grant failed")
	}

	if next == "edit" {
		redirect(c, "/post/"+ref+"/edit")
		return
	}
	redirect(c, "/post/"+ref)
}

// Delete removes a post. The item disappears only once the store confirms.
func (h *PostHandler) Delete(c *gin.Context) {
	ref := c.Param("ref")
	key := c.PostForm("secret_key")
	if key == "" {
		key = middleware.GrantedKey(c, ref)
	}

	err := h.board.Delete(c.Request.Context(), ref, middleware.CurrentIdentity(c), key)
	if forum.IsAuthError(err) && !isHTMX(c) {
		post, _ := h.board.Get(ref)
		h.renderUnlock(c, http.StatusForbidden, post, "delete", err)
		return
	}
	if err != nil {
		renderFailure(c, err)
		return
	}

	if err := middleware.RevokeGrant(c, ref); err != nil {
		h.log.WithError(err).Warn("dropping unlock grant failed")
	}
	redirect(c, "/forum")
}

// Repost starts a discussion quoting an existing post.
func (h *PostHandler) Repost(c *gin.Context) {
	post, err := h.board.Repost(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("ref"))
	if err != nil {
		renderFailure(c, err)
		return
	}
	redirect(c, "/post/"+post.Ref())
}
