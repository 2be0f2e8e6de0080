package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Flag is the discussion type a post is tagged with.
type Flag string

const (
	FlagNone       Flag = ""
	FlagQuestion   Flag = "Question"
	FlagOpinion    Flag = "Opinion"
	FlagDiscussion Flag = "Discussion"
	FlagNews       Flag = "News"
)

// Flags lists the selectable flags in display order.
var Flags = []Flag{FlagQuestion, FlagOpinion, FlagDiscussion, FlagNews}

// Valid reports whether f is empty or one of the known flags.
func (f Flag) Valid() bool {
	if f == FlagNone {
		return true
	}
	for _, known := range Flags {
		if f == known {
			return true
		}
	}
	return false
}

// FundingStages are the stages offered by the submit and edit forms.
var FundingStages = []string{"Idea", "Pre-Seed", "Seed", "Series A", "Series B", "Series C+", "IPO", "Acquired"}

// Categories are the suggested categories of the submit form. The column is free text.
var Categories = []string{"AI/ML", "FinTech", "HealthTech", "EdTech", "E-commerce", "SaaS", "Climate", "Other"}

type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	Title         string    `gorm:"not null" json:"title"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	Author        string    `gorm:"not null" json:"author"`
	Category      string    `gorm:"not null;index" json:"category"`
	ImageURL      string    `json:"image_url"`
	Upvotes       int       `gorm:"default:0;not null" json:"upvotes"`
	CommentsCount int       `gorm:"default:0;not null" json:"comments_count"`
	Views         int       `gorm:"default:0;not null" json:"views"`
	Tags          string    `json:"tags"`
	FundingStage  string    `json:"funding_stage"`
	Location      string    `json:"location"`
	Website       string    `json:"website"`
	Revenue       string    `json:"revenue"`
	UserID        string    `gorm:"index;size:64" json:"user_id,omitempty"`
	SecretKey     string    `gorm:"size:200" json:"secret_key,omitempty"` // UX gate only, stored and compared in plain text
	VideoURL      string    `json:"video_url,omitempty"`
	Flag          Flag      `gorm:"size:20;index" json:"flag,omitempty"`
	RepostID      *uint     `gorm:"index" json:"repost_id,omitempty"`

	// Not a column; false for bundled fixture posts.
	IsReal bool `gorm:"-" json:"is_real"`
}

// Ref is the external address of a post: "42" for stored posts, "f3" for fixtures.
func (p Post) Ref() string {
	if p.IsReal {
		return strconv.FormatUint(uint64(p.ID), 10)
	}
	return "f" + strconv.FormatUint(uint64(p.ID), 10)
}

// TagList splits the comma-joined tag string.
func (p Post) TagList() []string {
	if p.Tags == "" {
		return nil
	}
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, t := range parts {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Counters holds the user-adjusted counters of a post.
type Counters struct {
	Upvotes       int `json:"upvotes"`
	CommentsCount int `json:"comments_count"`
	Views         int `json:"views"`
}

func (p Post) Counters() Counters {
	return Counters{Upvotes: p.Upvotes, CommentsCount: p.CommentsCount, Views: p.Views}
}

// ParseRef splits a ref into its id and provenance.
func ParseRef(ref string) (id uint, fixture bool, err error) {
	s := ref
	if strings.HasPrefix(s, "f") {
		fixture = true
		s = s[1:]
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, false, fmt.Errorf("invalid post ref %q", ref)
	}
	return uint(n), fixture, nil
}

// PostPatch is a partial update of a post; nil fields are left untouched.
type PostPatch struct {
	Title         *string `json:"title,omitempty"`
	Content       *string `json:"content,omitempty"`
	Category      *string `json:"category,omitempty"`
	ImageURL      *string `json:"image_url,omitempty"`
	Tags          *string `json:"tags,omitempty"`
	FundingStage  *string `json:"funding_stage,omitempty"`
	Location      *string `json:"location,omitempty"`
	Website       *string `json:"website,omitempty"`
	Revenue       *string `json:"revenue,omitempty"`
	VideoURL      *string `json:"video_url,omitempty"`
	Flag          *Flag   `json:"flag,omitempty"`
	Upvotes       *int    `json:"upvotes,omitempty"`
	CommentsCount *int    `json:"comments_count,omitempty"`
	Views         *int    `json:"views,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (pp PostPatch) Empty() bool {
	return len(pp.Columns()) == 0
}

// Columns maps the set fields to their column names.
func (pp PostPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	str := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	num := func(name string, v *int) {
		if v != nil {
			cols[name] = *v
		}
	}
	str("title", pp.Title)
	str("content", pp.Content)
	str("category", pp.Category)
	str("image_url", pp.ImageURL)
	str("tags", pp.Tags)
	str("funding_stage", pp.FundingStage)
	str("location", pp.Location)
	str("website", pp.Website)
	str("revenue", pp.Revenue)
	str("video_url", pp.VideoURL)
	if pp.Flag != nil {
		cols["flag"] = string(*pp.Flag)
	}
	num("upvotes", pp.Upvotes)
	num("comments_count", pp.CommentsCount)
	num("views", pp.Views)
	return cols
}

// Apply copies the set fields onto p.
func (pp PostPatch) Apply(p *Post) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.Title, pp.Title)
	set(&p.Content, pp.Content)
	set(&p.Category, pp.Category)
	set(&p.ImageURL, pp.ImageURL)
	set(&p.Tags, pp.Tags)
	set(&p.FundingStage, pp.FundingStage)
	set(&p.Location, pp.Location)
	set(&p.Website, pp.Website)
	set(&p.Revenue, pp.Revenue)
	set(&p.VideoURL, pp.VideoURL)
	if pp.Flag != nil {
		p.Flag = *pp.Flag
	}
	if pp.Upvotes != nil {
		p.Upvotes = *pp.Upvotes
	}
	if pp.CommentsCount != nil {
		p.CommentsCount = *pp.CommentsCount
	}
	if pp.Views != nil {
		p.Views = *pp.Views
	}
}
