package forum

import (
	"strings"
	"unicode/utf8"

	"launchpad/internal/models"
)

const (
	maxTitleRunes   = 200
	defaultCategory = "Other"
)

// PostInput is the submit and edit form. It binds from HTML forms and JSON.
type PostInput struct {
	Title        string      `form:"title" json:"title"`
	Content      string      `form:"content" json:"content"`
	Author       string      `form:"author" json:"author"`
	Category     string      `form:"category" json:"category"`
	Tags         string      `form:"tags" json:"tags"`
	FundingStage string      `form:"funding_stage" json:"funding_stage"`
	Location     string      `form:"location" json:"location"`
	Website      string      `form:"website" json:"website"`
	Revenue      string      `form:"revenue" json:"revenue"`
	ImageURL     string      `form:"image_url" json:"image_url"`
	VideoURL     string      `form:"video_url" json:"video_url"`
	Flag         models.Flag `form:"flag" json:"flag"`
	SecretKey    string      `form:"secret_key" json:"secret_key"`
}

// InputFromPost prefills the edit form.
func InputFromPost(p models.Post) PostInput {
	return PostInput{
		Title:        p.Title,
		Content:      p.Content,
		Author:       p.Author,
		Category:     p.Category,
		Tags:         p.Tags,
		FundingStage: p.FundingStage,
		Location:     p.Location,
		Website:      p.Website,
		Revenue:      p.Revenue,
		ImageURL:     p.ImageURL,
		VideoURL:     p.VideoURL,
		Flag:         p.Flag,
	}
}

func (in PostInput) trimmed() PostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Author = strings.TrimSpace(in.Author)
	in.Category = strings.TrimSpace(in.Category)
	in.Tags = strings.TrimSpace(in.Tags)
	in.FundingStage = strings.TrimSpace(in.FundingStage)
	in.Location = strings.TrimSpace(in.Location)
	in.Website = strings.TrimSpace(in.Website)
	in.Revenue = strings.TrimSpace(in.Revenue)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.VideoURL = strings.TrimSpace(in.VideoURL)
	in.Flag = models.Flag(strings.TrimSpace(string(in.Flag)))
	return in
}

// validateCreate expects a trimmed input.
func (in PostInput) validateCreate() error {
	if err := in.validateCommon(); err != nil {
		return err
	}
	if in.Author == "" {
		return invalid("author", "author is required")
	}
	if in.Category == "" {
		return invalid("category", "category is required")
	}
	return nil
}

func (in PostInput) validateCommon() error {
	if in.Title == "" {
		return invalid("title", "title is required")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleRunes {
		return invalid("title", "title is too long")
	}
	if in.Content == "" {
		return invalid("content", "content is required")
	}
	if !in.Flag.Valid() {
		return invalid("flag", "unknown flag "+string(in.Flag))
	}
	return nil
}

func (in PostInput) post() models.Post {
	return models.Post{
		Title:        in.Title,
		Content:      in.Content,
		Author:       in.Author,
		Category:     in.Category,
		Tags:         in.Tags,
		FundingStage: in.FundingStage,
		Location:     in.Location,
		Website:      in.Website,
		Revenue:      in.Revenue,
		ImageURL:     in.ImageURL,
		VideoURL:     in.VideoURL,
		Flag:         in.Flag,
		SecretKey:    in.SecretKey,
	}
}

// patch covers every editable field; optional fields left empty are cleared.
func (in PostInput) patch() models.PostPatch {
	if in.Category == "" {
		in.Category = defaultCategory
	}
	flag := in.Flag
	return models.PostPatch{
		Title:        &in.Title,
		Content:      &in.Content,
		Category:     &in.Category,
		Tags:         &in.Tags,
		FundingStage: &in.FundingStage,
		Location:     &in.Location,
		Website:      &in.Website,
		Revenue:      &in.Revenue,
		ImageURL:     &in.ImageURL,
		VideoURL:     &in.VideoURL,
		Flag:         &flag,
	}
}
