package models

// CommentState represents the moderation state of a comment.
type CommentState int

const (
	CommentUnread CommentState = 0
	CommentRead   CommentState = 1
	CommentJunk   CommentState = 2
)

// CommentModel is a comment on a meme. Key encodes the reply chain position
// ("#1", "#1#3", ...) and bounds the nesting depth.
type CommentModel struct {
	Base
	MemeID        string         `json:"meme_id"        gorm:"not null;index"`
	AuthorID      string         `json:"author_id"      gorm:"index;not null"`
	Author        *UserModel     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Text          string         `json:"text"           gorm:"type:text;not null"`
	State         CommentState   `json:"state"          gorm:"default:0;index"`
	ParentID      *string        `json:"parent_id"      gorm:"index"`
	Children      []CommentModel `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	CommentsIndex int            `json:"comments_index" gorm:"default:0"`
	Key           string         `json:"key"`
	IP            string         `json:"ip"`
	Agent         string         `json:"agent"          gorm:"type:varchar(512)"`
}

func (CommentModel) TableName() string { return "comments" }
