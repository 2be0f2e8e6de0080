package models

import (
	"time"
)

// MaxCommentLength is the longest comment accepted, in runes.
const MaxCommentLength = 280

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Post      *Post     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Author    string    `gorm:"not null" json:"author"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Upvotes   int       `gorm:"default:0;not null" json:"upvotes"`
	CreatedAt time.Time `json:"created_at"`
	// Comments are append-only, there is no UpdatedAt.
}
