package meme

import (
	"errors"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
)

var (
	ErrNotFound    = errors.New("meme: not found")
	ErrNotAllowed  = errors.New("meme: permission denied")
	ErrBadState    = errors.New("meme: state transition not allowed")
	errEmptyUpload = errors.New("meme: empty upload")
)

type UpdateDTO struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	IsPrivate   *bool     `json:"isPrivate"`
	Tags        *[]string `json:"tags"`
}

type ListQuery struct {
	Tag      string
	AuthorID string
	State    *models.MemeState
	Search   string
}

type memeResponse struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	FileName     string           `json:"fileName"`
	MimeType     string           `json:"mimeType"`
	Width        int              `json:"width"`
	Height       int              `json:"height"`
	IsPrivate    bool             `json:"isPrivate"`
	State        models.MemeState `json:"state"`
	LikeCount    int              `json:"likeCount"`
	DislikeCount int              `json:"dislikeCount"`
	ViewCount    int              `json:"viewCount"`
	Tags         []string         `json:"tags"`
	Author       *authorResponse  `json:"author,omitempty"`
	MyReaction   int              `json:"myReaction"`
	Created      time.Time        `json:"created"`
	Modified     *time.Time       `json:"modified,omitempty"`
}

type authorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

func toResponse(m *models.MemeModel, myReaction int) *memeResponse {
	tags := make([]string, len(m.Tags))
	for i, tag := range m.Tags {
		tags[i] = tag.Name
	}

	out := &memeResponse{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		FileName:     m.FileName,
		MimeType:     m.MimeType,
		Width:        m.Width,
		Height:       m.Height,
		IsPrivate:    m.IsPrivate,
		State:        m.State,
		LikeCount:    m.LikeCount,
		DislikeCount: m.DislikeCount,
		ViewCount:    m.ViewCount,
		Tags:         tags,
		MyReaction:   myReaction,
		Created:      m.CreatedAt,
	}
	if !m.UpdatedAt.IsZero() {
		out.Modified = &m.UpdatedAt
	}
	if m.Author != nil {
		out.Author = &authorResponse{
			ID:       m.Author.ID,
			Username: m.Author.Username,
			Name:     m.Author.Name,
			Avatar:   m.Author.Avatar,
		}
	}
	return out
}
