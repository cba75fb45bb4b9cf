package meme

import (
	"errors"
	"strings"

	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/pkg/pagination"
	"github.com/gagikpog/meme-navigator/internal/pkg/response"
	"gorm.io/gorm"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Viewer is the subset of the caller's identity the meme module needs for
// visibility decisions. A zero Viewer is an anonymous reader.
type Viewer struct {
	UserID      string
	CanModerate bool
}

type CreateInput struct {
	Title       string
	Description string
	FileName    string
	MimeType    string
	Width       int
	Height      int
	IsPrivate   bool
	Tags        []string
	AuthorID    string
	// Moderators' own uploads skip the review queue.
	AutoPublish bool
}

func (s *Service) Create(in *CreateInput) (*models.MemeModel, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.FileName
	}

	state := models.MemePending
	if in.AutoPublish {
		state = models.MemePublished
	}

	m := &models.MemeModel{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		FileName:    in.FileName,
		MimeType:    in.MimeType,
		Width:       in.Width,
		Height:      in.Height,
		AuthorID:    in.AuthorID,
		IsPrivate:   in.IsPrivate,
		State:       state,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		tags, err := ensureTags(tx, in.Tags)
		if err != nil {
			return err
		}
		m.Tags = tags
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(m.ID, Viewer{UserID: in.AuthorID, CanModerate: true})
}

// visibleScope narrows a meme query to what the viewer may see: published
// public memes for everyone, plus the viewer's own uploads, plus everything
// for moderators.
func visibleScope(viewer Viewer) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewer.CanModerate {
			return db
		}
		if viewer.UserID != "" {
			return db.Where(
				"(state = ? AND is_private = ?) OR author_id = ?",
				models.MemePublished, false, viewer.UserID,
			)
		}
		return db.Where("state = ? AND is_private = ?", models.MemePublished, false)
	}
}

func (s *Service) List(q ListQuery, page pagination.Query, viewer Viewer) ([]models.MemeModel, response.Pagination, error) {
	query := s.db.Model(&models.MemeModel{}).
		Scopes(visibleScope(viewer)).
		Preload("Author").
		Preload("Tags").
		Order("memes.created_at DESC")

	if q.Tag != "" {
		query = query.
			Joins("JOIN meme_tags ON meme_tags.meme_model_id = memes.id").
			Joins("JOIN tags ON tags.id = meme_tags.tag_model_id").
			Where("tags.name = ?", q.Tag)
	}
	if q.AuthorID != "" {
		query = query.Where("memes.author_id = ?", q.AuthorID)
	}
	if q.State != nil {
		query = query.Where("memes.state = ?", *q.State)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("memes.title LIKE ? OR memes.description LIKE ?", like, like)
	}

	var memes []models.MemeModel
	meta, err := pagination.Paginate(query, page, &memes)
	return memes, meta, err
}

func (s *Service) Get(id string, viewer Viewer) (*models.MemeModel, error) {
	var m models.MemeModel
	err := s.db.Scopes(visibleScope(viewer)).
		Preload("Author").
		Preload("Tags").
		First(&m, "memes.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// RegisterView bumps the view counter. Advisory, errors are dropped.
func (s *Service) RegisterView(id string) {
	_ = s.db.Model(&models.MemeModel{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (s *Service) Update(id string, viewer Viewer, dto *UpdateDTO) (*models.MemeModel, error) {
	m, err := s.Get(id, viewer)
	if err != nil {
		return nil, err
	}
	if m.AuthorID != viewer.UserID && !viewer.CanModerate {
		return nil, ErrNotAllowed
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if dto.Title != nil {
			updates["title"] = strings.TrimSpace(*dto.Title)
		}
		if dto.Description != nil {
			updates["description"] = strings.TrimSpace(*dto.Description)
		}
		if dto.IsPrivate != nil {
			updates["is_private"] = *dto.IsPrivate
		}
		if len(updates) > 0 {
			if err := tx.Model(m).Updates(updates).Error; err != nil {
				return err
			}
		}
		if dto.Tags != nil {
			tags, err := ensureTags(tx, *dto.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(m).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id, viewer)
}

// Delete removes the meme row and returns the stored file name so the
// caller can drop the bytes from disk.
func (s *Service) Delete(id string, viewer Viewer) (string, error) {
	m, err := s.Get(id, viewer)
	if err != nil {
		return "", err
	}
	if m.AuthorID != viewer.UserID && !viewer.CanModerate {
		return "", ErrNotAllowed
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meme_id = ?", id).Delete(&models.ReactionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Model(m).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(m).Error
	})
	if err != nil {
		return "", err
	}
	return m.FileName, nil
}

// SetState moves a meme through moderation. Only pending memes can be
// published or rejected; a rejected meme can be re-reviewed.
func (s *Service) SetState(id string, state models.MemeState) (*models.MemeModel, error) {
	m, err := s.Get(id, Viewer{CanModerate: true})
	if err != nil {
		return nil, err
	}
	if m.State == state {
		return m, nil
	}
	if m.State == models.MemePublished && state == models.MemePending {
		return nil, ErrBadState
	}
	if err := s.db.Model(m).Update("state", state).Error; err != nil {
		return nil, err
	}
	m.State = state
	return m, nil
}

// React records or switches the user's reaction; reacting with the current
// kind again removes it (toggle). Counters are kept denormalized on the meme
// row inside the same transaction.
func (s *Service) React(memeID, userID string, kind models.ReactionKind) (*models.MemeModel, error) {
	viewer := Viewer{UserID: userID}
	if _, err := s.Get(memeID, viewer); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.ReactionModel
		err := tx.Where("meme_id = ? AND user_id = ?", memeID, userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.ReactionModel{
				MemeID: memeID, UserID: userID, Kind: kind,
			}).Error; err != nil {
				return err
			}
			return bumpCounter(tx, memeID, kind, +1)
		case err != nil:
			return err
		case existing.Kind == kind:
			if err := tx.Unscoped().Delete(&existing).Error; err != nil {
				return err
			}
			return bumpCounter(tx, memeID, kind, -1)
		default:
			if err := tx.Model(&existing).Update("kind", kind).Error; err != nil {
				return err
			}
			if err := bumpCounter(tx, memeID, existing.Kind, -1); err != nil {
				return err
			}
			return bumpCounter(tx, memeID, kind, +1)
		}
	})
	if err != nil {
		return nil, err
	}
	return s.Get(memeID, viewer)
}

// RemoveReaction drops the user's reaction if any.
func (s *Service) RemoveReaction(memeID, userID string) (*models.MemeModel, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.ReactionModel
		err := tx.Where("meme_id = ? AND user_id = ?", memeID, userID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&existing).Error; err != nil {
			return err
		}
		return bumpCounter(tx, memeID, existing.Kind, -1)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(memeID, Viewer{UserID: userID})
}

// MyReaction returns the viewer's reaction kind or 0.
func (s *Service) MyReaction(memeID, userID string) int {
	if userID == "" {
		return 0
	}
	var r models.ReactionModel
	if err := s.db.Where("meme_id = ? AND user_id = ?", memeID, userID).
		First(&r).Error; err != nil {
		return 0
	}
	return int(r.Kind)
}

func bumpCounter(tx *gorm.DB, memeID string, kind models.ReactionKind, delta int) error {
	column := "like_count"
	if kind == models.ReactionDislike {
		column = "dislike_count"
	}
	return tx.Model(&models.MemeModel{}).Where("id = ?", memeID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

// ensureTags resolves tag names to rows, creating missing ones. Names are
// trimmed and lower-cased; empties are dropped.
func ensureTags(tx *gorm.DB, names []string) ([]models.TagModel, error) {
	seen := map[string]struct{}{}
	out := make([]models.TagModel, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		var tag models.TagModel
		err := tx.Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.TagModel{Name: name}
			err = tx.Create(&tag).Error
		}
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, nil
}
