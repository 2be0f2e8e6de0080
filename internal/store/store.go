// Package store is the data client of the forum. Every call returns data or
// an error; there are no transactions and no batching.
package store

import (
	"context"
	"errors"
	"fmt"

	"launchpad/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Order is a descending sort key of the posts relation.
type Order string

const (
	OrderCreatedAt Order = "created_at"
	OrderUpvotes   Order = "upvotes"
)

// ParseOrder maps a query value to an Order, defaulting to creation time.
func ParseOrder(s string) Order {
	if Order(s) == OrderUpvotes {
		return OrderUpvotes
	}
	return OrderCreatedAt
}

// ListOptions narrows ListPosts. Empty fields do not filter.
type ListOptions struct {
	OrderBy  Order
	Category string
	Flag     models.Flag
}

// Store is the capability set the controllers consume.
type Store interface {
	ListPosts(ctx context.Context, opts ListOptions) ([]models.Post, error)
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, id uint, patch models.PostPatch) error
	DeletePost(ctx context.Context, id uint) error
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, postID uint) ([]models.Comment, error)
}

// Op names a store operation, used for logging, metrics and fault injection.
type Op string

const (
	OpListPosts     Op = "list_posts"
	OpGetPost       Op = "get_post"
	OpCreatePost    Op = "create_post"
	OpUpdatePost    Op = "update_post"
	OpDeletePost    Op = "delete_post"
	OpCreateComment Op = "create_comment"
	OpListComments  Op = "list_comments"
)

// Error wraps a failed store call with the operation that failed.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
