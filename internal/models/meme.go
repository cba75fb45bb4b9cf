package models

// MemeState represents the moderation state of a meme.
type MemeState int

const (
	MemePending   MemeState = 0
	MemePublished MemeState = 1
	MemeRejected  MemeState = 2
)

// MemeModel is an uploaded image with metadata. The image bytes live in the
// static dir under FileName; the row only carries the reference.
type MemeModel struct {
	Base
	Title        string     `json:"title"        gorm:"not null"`
	Description  string     `json:"description"  gorm:"type:text"`
	FileName     string     `json:"file_name"    gorm:"uniqueIndex;not null"`
	MimeType     string     `json:"mime_type"`
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
	AuthorID     string     `json:"author_id"    gorm:"index;not null"`
	Author       *UserModel `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	IsPrivate    bool       `json:"is_private"   gorm:"default:false;index"`
	State        MemeState  `json:"state"        gorm:"default:0;index"`
	LikeCount    int        `json:"likes"        gorm:"column:like_count;default:0"`
	DislikeCount int        `json:"dislikes"     gorm:"column:dislike_count;default:0"`
	ViewCount    int        `json:"views"        gorm:"column:view_count;default:0"`

	Tags []TagModel `json:"tags,omitempty" gorm:"many2many:meme_tags;"`
}

func (MemeModel) TableName() string { return "memes" }

// ReactionKind is a like or dislike.
type ReactionKind int

const (
	ReactionLike    ReactionKind = 1
	ReactionDislike ReactionKind = -1
)

// ReactionModel records a single user's reaction to a meme. One row per
// (meme, user); switching a like to a dislike updates the row in place.
type ReactionModel struct {
	Base
	MemeID string       `json:"meme_id" gorm:"uniqueIndex:idx_reactions_meme_user;not null"`
	UserID string       `json:"user_id" gorm:"uniqueIndex:idx_reactions_meme_user;not null"`
	Kind   ReactionKind `json:"kind"    gorm:"not null"`
}

func (ReactionModel) TableName() string { return "reactions" }
