package comment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/modules/content/meme"
	"github.com/gagikpog/meme-navigator/internal/pkg/pagination"
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	memes *meme.Service
}

func NewService(db *gorm.DB, memes *meme.Service) *Service {
	return &Service{db: db, memes: memes}
}

// Create adds a top-level comment on a meme the viewer can see. The key is
// the position among top-level comments ("#1", "#2", ...).
func (s *Service) Create(memeID string, viewer meme.Viewer, dto *CreateDTO, ip, agent string) (*models.CommentModel, error) {
	if _, err := s.memes.Get(memeID, viewer); err != nil {
		return nil, err
	}

	var c *models.CommentModel
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var index int64
		if err := tx.Model(&models.CommentModel{}).
			Where("meme_id = ? AND parent_id IS NULL", memeID).
			Count(&index).Error; err != nil {
			return err
		}
		c = &models.CommentModel{
			MemeID:   memeID,
			AuthorID: viewer.UserID,
			Text:     strings.TrimSpace(dto.Text),
			State:    models.CommentUnread,
			Key:      fmt.Sprintf("#%d", index+1),
			IP:       ip,
			Agent:    agent,
		}
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, err
	}
	return s.load(c.ID)
}

// Reply nests a comment under parent, deriving the key from the parent's
// chain and bounding the depth.
func (s *Service) Reply(parentID string, viewer meme.Viewer, dto *CreateDTO, ip, agent string) (*models.CommentModel, error) {
	var c *models.CommentModel
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var parent models.CommentModel
		if err := tx.First(&parent, "id = ?", parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errParentNotFound
			}
			return err
		}
		if _, err := s.memes.Get(parent.MemeID, viewer); err != nil {
			return err
		}

		parentKey := strings.TrimSpace(parent.Key)
		if parentKey == "" {
			parentKey = "#1"
		}
		if len(strings.Split(parentKey, "#")) >= nestedReplyMax {
			return errTooDeep
		}

		c = &models.CommentModel{
			MemeID:   parent.MemeID,
			AuthorID: viewer.UserID,
			Text:     strings.TrimSpace(dto.Text),
			State:    models.CommentUnread,
			ParentID: &parent.ID,
			Key:      fmt.Sprintf("%s#%d", parentKey, parent.CommentsIndex+1),
			IP:       ip,
			Agent:    agent,
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Model(&models.CommentModel{}).
			Where("id = ?", parentID).
			UpdateColumn("comments_index", gorm.Expr("comments_index + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return s.load(c.ID)
}

// ListByMeme returns the top-level comments of a meme with one reply level
// preloaded, newest thread first. Junk comments are hidden from non-staff.
func (s *Service) ListByMeme(memeID string, viewer meme.Viewer, q pagination.Query) ([]models.CommentModel, response.Pagination, error) {
	if _, err := s.memes.Get(memeID, viewer); err != nil {
		return nil, response.Pagination{}, err
	}

	tx := s.db.Model(&models.CommentModel{}).
		Where("meme_id = ? AND parent_id IS NULL", memeID).
		Preload("Author").
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Preload("Author")
		}).
		Order("created_at DESC")
	if !viewer.CanModerate {
		tx = tx.Where("state <> ?", models.CommentJunk)
	}

	var comments []models.CommentModel
	meta, err := pagination.Paginate(tx, q, &comments)
	return comments, meta, err
}

// UpdateState is the moderation surface: read / junk marking.
func (s *Service) UpdateState(id string, state models.CommentState) (*models.CommentModel, error) {
	c, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(c).Update("state", state).Error; err != nil {
		return nil, err
	}
	c.State = state
	return c, nil
}

// Delete removes a comment and its direct replies. Authors may delete their
// own comments; moderators any.
func (s *Service) Delete(id string, viewer meme.Viewer) error {
	c, err := s.load(id)
	if err != nil {
		return err
	}
	if c.AuthorID != viewer.UserID && !viewer.CanModerate {
		return errNotAllowed
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&models.CommentModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.CommentModel{}, "id = ?", id).Error
	})
}

func (s *Service) load(id string) (*models.CommentModel, error) {
	var c models.CommentModel
	if err := s.db.Preload("Author").First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
