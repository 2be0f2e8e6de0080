package store

import (
	"context"
	"errors"

	"launchpad/internal/models"

	"gorm.io/gorm"
)

// GormStore talks to PostgreSQL through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListPosts(ctx context.Context, opts ListOptions) ([]models.Post, error) {
	order := opts.OrderBy
	if order == "" {
		order = OrderCreatedAt
	}

	query := s.db.WithContext(ctx).Model(&models.Post{})
	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}
	if opts.Flag != models.FlagNone {
		query = query.Where("flag = ?", string(opts.Flag))
	}

	var posts []models.Post
	if err := query.Order(string(order) + " DESC").Order("id DESC").Find(&posts).Error; err != nil {
		return nil, wrap(OpListPosts, err)
	}
	for i := range posts {
		posts[i].IsReal = true
	}
	return posts, nil
}

func (s *GormStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrap(OpGetPost, ErrNotFound)
		}
		return nil, wrap(OpGetPost, err)
	}
	post.IsReal = true
	return &post, nil
}

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = 0
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return wrap(OpCreatePost, err)
	}
	post.IsReal = true
	return nil
}

func (s *GormStore) UpdatePost(ctx context.Context, id uint, patch models.PostPatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return wrap(OpUpdatePost, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrap(OpUpdatePost, ErrNotFound)
	}
	return nil
}

// DeletePost hard deletes; comments go with it through the foreign key cascade.
func (s *GormStore) DeletePost(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		return wrap(OpDeletePost, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrap(OpDeletePost, ErrNotFound)
	}
	return nil
}

func (s *GormStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	comment.ID = 0
	if err := s.db.WithContext(ctx).Omit("Post").Create(comment).Error; err != nil {
		return wrap(OpCreateComment, err)
	}
	return nil
}

func (s *GormStore) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Find(&comments).Error; err != nil {
		return nil, wrap(OpListComments, err)
	}
	return comments, nil
}
