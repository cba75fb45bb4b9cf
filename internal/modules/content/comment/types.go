package comment

import (
	"errors"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
)

// Replies deeper than this are rejected; the UI flattens long threads anyway.
const nestedReplyMax = 10

var (
	errParentNotFound = errors.New("comment: parent not found")
	errTooDeep        = errors.New("comment: reply nesting too deep")
	errNotAllowed     = errors.New("comment: permission denied")
)

type CreateDTO struct {
	Text string `json:"text" binding:"required,max=4000"`
}

type commentResponse struct {
	ID       string              `json:"id"`
	Key      string              `json:"key"`
	Text     string              `json:"text"`
	State    models.CommentState `json:"state"`
	Author   *commentAuthor      `json:"author,omitempty"`
	Children []*commentResponse  `json:"children,omitempty"`
	Created  time.Time           `json:"created"`
}

type commentAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

func toResponse(c *models.CommentModel) *commentResponse {
	out := &commentResponse{
		ID:      c.ID,
		Key:     c.Key,
		Text:    c.Text,
		State:   c.State,
		Created: c.CreatedAt,
	}
	if c.Author != nil {
		out.Author = &commentAuthor{
			ID:       c.Author.ID,
			Username: c.Author.Username,
			Name:     c.Author.Name,
			Avatar:   c.Author.Avatar,
		}
	}
	for i := range c.Children {
		out.Children = append(out.Children, toResponse(&c.Children[i]))
	}
	return out
}
