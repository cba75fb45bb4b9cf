package models

// TagModel is a meme tag.
type TagModel struct {
	Base
	Name string `json:"name" gorm:"uniqueIndex;not null"`

	Memes []MemeModel `json:"memes,omitempty" gorm:"many2many:meme_tags;"`
}

func (TagModel) TableName() string { return "tags" }
