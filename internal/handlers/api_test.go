package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/models"
	"launchpad/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAPIRouter(st store.Store) *gin.Engine {
	r := gin.New()
	h := NewAPIHandler(st)
	api := r.Group("/api")
	api.GET("/posts", h.ListPosts)
	api.POST("/posts", h.CreatePost)
	api.GET("/posts/:id", h.GetPost)
	api.PATCH("/posts/:id", h.UpdatePost)
	api.DELETE("/posts/:id", h.DeletePost)
	api.GET("/posts/:id/comments", h.ListComments)
	api.POST("/posts/:id/comments", h.CreateComment)
	r.GET("/healthz", Healthz)
	return r
}

func newAPIClient(t *testing.T) (*store.HTTPStore, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	srv := httptest.NewServer(setupAPIRouter(ms))
	t.Cleanup(srv.Close)
	return store.NewHTTPStore(srv.URL, srv.Client()), ms
}

func apiRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHTTPStoreRoundTrip(t *testing.T) {
	client, _ := newAPIClient(t)
	ctx := context.Background()

	post := models.Post{
		ID:        99,
		Title:     "Solar roofs for renters",
		Content:   "Shared solar for apartment blocks.",
		Author:    "Maya",
		Category:  "Climate",
		Flag:      models.FlagQuestion,
		UserID:    "user_alice0001",
		SecretKey: "open-sesame",
	}
	require.NoError(t, client.CreatePost(ctx, &post))
	assert.Equal(t, uint(1), post.ID, "the server assigns ids")
	assert.True(t, post.IsReal)
	assert.False(t, post.CreatedAt.IsZero())

	other := models.Post{Title: "Payroll API", Content: "Pay 40 countries.", Author: "Leo", Category: "FinTech"}
	require.NoError(t, client.CreatePost(ctx, &other))

	upvotes := 12
	require.NoError(t, client.UpdatePost(ctx, other.ID, models.PostPatch{Upvotes: &upvotes}))

	got, err := client.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Solar roofs for renters", got.Title)
	assert.Equal(t, "open-sesame", got.SecretKey)

	byVotes, err := client.ListPosts(ctx, store.ListOptions{OrderBy: store.OrderUpvotes})
	require.NoError(t, err)
	require.Len(t, byVotes, 2)
	assert.Equal(t, "Payroll API", byVotes[0].Title)
	assert.Equal(t, 12, byVotes[0].Upvotes)

	climate, err := client.ListPosts(ctx, store.ListOptions{Category: "Climate", Flag: models.FlagQuestion})
	require.NoError(t, err)
	require.Len(t, climate, 1)
	assert.Equal(t, post.ID, climate[0].ID)

	first := models.Comment{PostID: post.ID, Author: "Leo", Content: "Count me in."}
	require.NoError(t, client.CreateComment(ctx, &first))
	assert.NotZero(t, first.ID)
	second := models.Comment{PostID: post.ID, Content: "  Pilot in Lisbon?  "}
	require.NoError(t, client.CreateComment(ctx, &second))
	assert.Equal(t, "Anonymous", second.Author)
	assert.Equal(t, "Pilot in Lisbon?", second.Content)

	comments, err := client.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second.ID, comments[0].ID, "newest first")

	require.NoError(t, client.DeletePost(ctx, post.ID))
	_, err = client.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var serr *store.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, store.OpGetPost, serr.Op)
}

func TestHTTPStoreSurfacesServerErrors(t *testing.T) {
	client, ms := newAPIClient(t)
	ctx := context.Background()

	ms.SetHook(func(ctx context.Context, op store.Op) error {
		if op == store.OpListPosts {
			return errors.New("connection reset")
		}
		return nil
	})
	_, err := client.ListPosts(ctx, store.ListOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error")
	assert.NotErrorIs(t, err, store.ErrNotFound)

	err = client.CreatePost(ctx, &models.Post{Title: "No author", Content: "x", Category: "SaaS"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "author is required")

	err = client.UpdatePost(ctx, 5, models.PostPatch{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty patch")
}

func TestAPIValidation(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Seed(models.Post{ID: 1, Title: "T", Content: "C", Author: "A", Category: "SaaS"})
	r := setupAPIRouter(ms)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
		msg    string
	}{
		{"bad id", http.MethodGet, "/api/posts/abc", "", http.StatusBadRequest, "invalid post id"},
		{"zero id", http.MethodDelete, "/api/posts/0", "", http.StatusBadRequest, "invalid post id"},
		{"missing post", http.MethodGet, "/api/posts/42", "", http.StatusNotFound, "not found"},
		{"unknown flag filter", http.MethodGet, "/api/posts?flag=Rant", "", http.StatusBadRequest, "unknown flag"},
		{"broken json", http.MethodPost, "/api/posts", "{", http.StatusBadRequest, "invalid JSON body"},
		{"missing title", http.MethodPost, "/api/posts", `{"content":"c","author":"a","category":"x"}`, http.StatusBadRequest, "title is required"},
		{"missing category", http.MethodPost, "/api/posts", `{"title":"t","content":"c","author":"a"}`, http.StatusBadRequest, "category is required"},
		{"unknown flag", http.MethodPost, "/api/posts", `{"title":"t","content":"c","author":"a","category":"x","flag":"Rant"}`, http.StatusBadRequest, "unknown flag"},
		{"empty patch", http.MethodPatch, "/api/posts/1", `{}`, http.StatusBadRequest, "empty patch"},
		{"patch missing post", http.MethodPatch, "/api/posts/42", `{"title":"x"}`, http.StatusNotFound, "not found"},
		{"empty comment", http.MethodPost, "/api/posts/1/comments", `{"content":"   "}`, http.StatusBadRequest, "content is required"},
		{"long comment", http.MethodPost, "/api/posts/1/comments", `{"content":"` + strings.Repeat("ü", 281) + `"}`, http.StatusBadRequest, "comment is too long"},
		{"comment on missing post", http.MethodPost, "/api/posts/42/comments", `{"content":"hi"}`, http.StatusNotFound, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.msg, errorBody(t, w))
		})
	}
}

func TestAPIWrites(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Seed(models.Post{ID: 1, Title: "T", Content: "C", Author: "A", Category: "SaaS", Upvotes: 3})
	r := setupAPIRouter(ms)
	ctx := context.Background()

	w := apiRequest(r, http.MethodPatch, "/api/posts/1", `{"upvotes":4,"title":"New"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	p, err := ms.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Upvotes)
	assert.Equal(t, "New", p.Title)

	w = apiRequest(r, http.MethodPost, "/api/posts", `{"id":7,"title":"t","content":"c","author":"a","category":"x","upvotes":5}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, uint(2), created.ID)

	w = apiRequest(r, http.MethodDelete, "/api/posts/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = apiRequest(r, http.MethodDelete, "/api/posts/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = apiRequest(r, http.MethodGet, "/api/posts/2/comments", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	w := apiRequest(setupAPIRouter(store.NewMemoryStore()), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
