package forum

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"launchpad/internal/fixtures"
	"launchpad/internal/models"
	"launchpad/internal/store"
)

const (
	maxCommentRunes = models.MaxCommentLength
	anonymousAuthor = "Anonymous"
)

// Thread is the detail view of one post: the post itself, whose counters
// live on the board, and its comments, newest first.
type Thread struct {
	board *Board
	ref   string
	last  models.Post

	mu       sync.Mutex
	comments []models.Comment
}

// Open loads ref with its comments. Opening a stored post counts a view.
func (b *Board) Open(ctx context.Context, ref string) (*Thread, error) {
	t, err := b.Load(ctx, ref)
	if err != nil || !t.last.IsReal {
		return t, err
	}
	if n, err := b.bump(ref, CounterViews); err == nil {
		t.last.Views = n
	}
	return t, nil
}

// Load is Open without counting a view.
func (b *Board) Load(ctx context.Context, ref string) (*Thread, error) {
	id, fixture, err := models.ParseRef(ref)
	if err != nil {
		return nil, ErrNotFound
	}

	t := &Thread{board: b, ref: ref}
	seeded := fixtures.Comments(b.now())

	if fixture {
		p, ok := b.Get(ref)
		if !ok {
			return nil, ErrNotFound
		}
		t.last = p
		b.mu.RLock()
		local := append([]models.Comment(nil), b.localComments[ref]...)
		b.mu.RUnlock()
		t.comments = mergeComments(local, seeded)
		return t, nil
	}

	p, err := b.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	t.last = p

	stored, err := b.store.ListComments(ctx, id)
	if err != nil {
		recordStoreError(err)
		b.log.WithError(err).WithField("ref", ref).Warn("loading comments failed")
	}
	for i := range stored {
		stored[i].Post = nil
	}
	t.comments = mergeComments(stored, seeded)
	return t, nil
}

// mergeComments orders both lists newest first. Equal timestamps keep
// stored comments ahead of the seeded ones.
func mergeComments(stored, seeded []models.Comment) []models.Comment {
	out := make([]models.Comment, 0, len(stored)+len(seeded))
	out = append(out, stored...)
	out = append(out, seeded...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (t *Thread) Ref() string {
	return t.ref
}

// Post returns the board's current copy, or the last known one when the
// post has left the board.
func (t *Thread) Post() models.Post {
	if p, ok := t.board.Get(t.ref); ok {
		return p
	}
	return t.last
}

func (t *Thread) Comments() []models.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Comment(nil), t.comments...)
}

func (t *Thread) Upvote() (int, error) {
	return t.board.Upvote(t.ref)
}

// Comment appends a comment. For stored posts the comment is inserted
// first and the post's comments_count is written afterwards as a separate
// update; a failure of that second write is only logged.
func (t *Thread) Comment(ctx context.Context, author, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, ErrEmptyComment
	}
	if utf8.RuneCountInString(content) > maxCommentRunes {
		return models.Comment{}, ErrCommentTooLong
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = anonymousAuthor
	}

	b := t.board
	p := t.Post()
	c := models.Comment{PostID: p.ID, Author: author, Content: content}

	if !p.IsReal {
		c.CreatedAt = b.now()
		b.mu.Lock()
		c.ID = uint(len(b.localComments[t.ref]) + 1)
		b.localComments[t.ref] = append([]models.Comment{c}, b.localComments[t.ref]...)
		b.mu.Unlock()
		t.prepend(c)
		return c, nil
	}

	if err := b.store.CreateComment(ctx, &c); err != nil {
		recordStoreError(err)
		b.log.WithError(err).WithField("ref", t.ref).Warn("comment insert failed")
		return models.Comment{}, fmt.Errorf("add comment to %s: %w", t.ref, err)
	}
	c.Post = nil
	t.prepend(c)

	n, ok := b.bumpComments(p.ID)
	if !ok {
		n = p.CommentsCount + 1
	}
	if err := b.store.UpdatePost(ctx, p.ID, models.PostPatch{CommentsCount: &n}); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			recordStoreError(err)
		}
		b.log.WithError(err).WithField("ref", t.ref).Warn("comment saved but comments_count update failed")
	}
	return c, nil
}

func (t *Thread) prepend(c models.Comment) {
	t.mu.Lock()
	t.comments = append([]models.Comment{c}, t.comments...)
	t.mu.Unlock()
}

// bumpComments increments the local comments_count of a stored post. A
// refresh already in flight predates the new comment and is discarded.
func (b *Board) bumpComments(id uint) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(id)
	if i < 0 {
		return 0, false
	}
	b.remote[i].CommentsCount++
	b.invalidateLocked()
	return b.remote[i].CommentsCount, true
}
