package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"launchpad/internal/models"
)

// Hook runs before every MemoryStore operation. A non-nil error fails the
// operation; a hook may also block to simulate latency.
type Hook func(ctx context.Context, op Op) error

// MemoryStore keeps both relations in process. It backs tests and
// DATABASE_URL=memory.
type MemoryStore struct {
	mu       sync.Mutex
	posts    map[uint]models.Post
	comments []models.Comment
	nextPost uint
	nextCmt  uint
	hook     Hook
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:    make(map[uint]models.Post),
		nextPost: 1,
		nextCmt:  1,
		now:      time.Now,
	}
}

// SetHook installs h; nil removes it.
func (s *MemoryStore) SetHook(h Hook) {
	s.mu.Lock()
	s.hook = h
	s.mu.Unlock()
}

func (s *MemoryStore) before(ctx context.Context, op Op) error {
	s.mu.Lock()
	h := s.hook
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return wrap(op, err)
	}
	if h == nil {
		return nil
	}
	return wrap(op, h(ctx, op))
}

// Seed inserts posts as-is, honouring preset ids and timestamps.
func (s *MemoryStore) Seed(posts ...models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range posts {
		if p.ID == 0 {
			p.ID = s.nextPost
		}
		if p.ID >= s.nextPost {
			s.nextPost = p.ID + 1
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = s.now()
		}
		p.IsReal = true
		s.posts[p.ID] = p
	}
}

func (s *MemoryStore) ListPosts(ctx context.Context, opts ListOptions) ([]models.Post, error) {
	if err := s.before(ctx, OpListPosts); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		if opts.Flag != models.FlagNone && p.Flag != opts.Flag {
			continue
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if opts.OrderBy == OrderUpvotes {
			if a.Upvotes != b.Upvotes {
				return a.Upvotes > b.Upvotes
			}
		} else if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return posts, nil
}

func (s *MemoryStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	if err := s.before(ctx, OpGetPost); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, wrap(OpGetPost, ErrNotFound)
	}
	return &p, nil
}

func (s *MemoryStore) CreatePost(ctx context.Context, post *models.Post) error {
	if err := s.before(ctx, OpCreatePost); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	post.ID = s.nextPost
	s.nextPost++
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	post.IsReal = true
	s.posts[post.ID] = *post
	return nil
}

func (s *MemoryStore) UpdatePost(ctx context.Context, id uint, patch models.PostPatch) error {
	if err := s.before(ctx, OpUpdatePost); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return wrap(OpUpdatePost, ErrNotFound)
	}
	patch.Apply(&p)
	s.posts[id] = p
	return nil
}

func (s *MemoryStore) DeletePost(ctx context.Context, id uint) error {
	if err := s.before(ctx, OpDeletePost); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return wrap(OpDeletePost, ErrNotFound)
	}
	delete(s.posts, id)
	kept := s.comments[:0]
	for _, c := range s.comments {
		if c.PostID != id {
			kept = append(kept, c)
		}
	}
	s.comments = kept
	return nil
}

func (s *MemoryStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := s.before(ctx, OpCreateComment); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[comment.PostID]; !ok {
		return wrap(OpCreateComment, ErrNotFound)
	}
	comment.ID = s.nextCmt
	s.nextCmt++
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	s.comments = append(s.comments, *comment)
	return nil
}

func (s *MemoryStore) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	if err := s.before(ctx, OpListComments); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var comments []models.Comment
	for i := len(s.comments) - 1; i >= 0; i-- {
		if s.comments[i].PostID == postID {
			comments = append(comments, s.comments[i])
		}
	}
	return comments, nil
}
