package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"launchpad/internal/models"
)

// HTTPStore is a client for the /api data endpoints served by cmd/server.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore returns a client rooted at baseURL, e.g. "http://localhost:8080".
// A nil client gets a 15 second timeout.
func NewHTTPStore(baseURL string, client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPStore{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/api",
		client:  client,
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (s *HTTPStore) do(ctx context.Context, op Op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return wrap(op, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return wrap(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return wrap(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return wrap(op, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return wrap(op, fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error))
		}
		return wrap(op, fmt.Errorf("status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrap(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (s *HTTPStore) ListPosts(ctx context.Context, opts ListOptions) ([]models.Post, error) {
	q := url.Values{}
	if opts.OrderBy != "" {
		q.Set("order", string(opts.OrderBy))
	}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if opts.Flag != models.FlagNone {
		q.Set("flag", string(opts.Flag))
	}
	path := "/posts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var posts []models.Post
	if err := s.do(ctx, OpListPosts, http.MethodGet, path, nil, &posts); err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].IsReal = true
	}
	return posts, nil
}

func (s *HTTPStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.do(ctx, OpGetPost, http.MethodGet, fmt.Sprintf("/posts/%d", id), nil, &post); err != nil {
		return nil, err
	}
	post.IsReal = true
	return &post, nil
}

func (s *HTTPStore) CreatePost(ctx context.Context, post *models.Post) error {
	var created models.Post
	if err := s.do(ctx, OpCreatePost, http.MethodPost, "/posts", post, &created); err != nil {
		return err
	}
	created.IsReal = true
	*post = created
	return nil
}

func (s *HTTPStore) UpdatePost(ctx context.Context, id uint, patch models.PostPatch) error {
	return s.do(ctx, OpUpdatePost, http.MethodPatch, fmt.Sprintf("/posts/%d", id), patch, nil)
}

func (s *HTTPStore) DeletePost(ctx context.Context, id uint) error {
	return s.do(ctx, OpDeletePost, http.MethodDelete, fmt.Sprintf("/posts/%d", id), nil, nil)
}

func (s *HTTPStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	var created models.Comment
	path := fmt.Sprintf("/posts/%d/comments", comment.PostID)
	if err := s.do(ctx, OpCreateComment, http.MethodPost, path, comment, &created); err != nil {
		return err
	}
	*comment = created
	return nil
}

func (s *HTTPStore) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := s.do(ctx, OpListComments, http.MethodGet, fmt.Sprintf("/posts/%d/comments", postID), nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}
