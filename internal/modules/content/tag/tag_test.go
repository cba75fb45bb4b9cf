package tag

import (
	"fmt"
	"testing"

	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.MemeModel{}, &models.TagModel{}))
	return NewService(db)
}

var memeSeq int

func seedMeme(t *testing.T, db *gorm.DB, state models.MemeState, private bool, tags ...string) *models.MemeModel {
	t.Helper()
	memeSeq++
	m := &models.MemeModel{
		Title:     "m",
		FileName:  fmt.Sprintf("m-%d.png", memeSeq),
		MimeType:  "image/png",
		State:     state,
		IsPrivate: private,
	}
	for _, name := range tags {
		var tag models.TagModel
		require.NoError(t, db.Where("name = ?", name).FirstOrCreate(&tag, models.TagModel{Name: name}).Error)
		m.Tags = append(m.Tags, tag)
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func TestCreateNormalizesAndDedupes(t *testing.T) {
	svc := newService(t)

	first, err := svc.Create("  Котики ")
	require.NoError(t, err)
	assert.Equal(t, "котики", first.Name)

	again, err := svc.Create("КОТИКИ")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = svc.Create("   ")
	assert.ErrorIs(t, err, errEmptyName)
}

func TestListCountsOnlyVisibleMemes(t *testing.T) {
	svc := newService(t)

	seedMeme(t, svc.db, models.MemePublished, false, "cats")
	seedMeme(t, svc.db, models.MemePublished, false, "cats", "dogs")
	seedMeme(t, svc.db, models.MemePublished, true, "dogs")  // private, not counted
	seedMeme(t, svc.db, models.MemePending, false, "birds")  // unpublished, not counted

	tags, err := svc.List()
	require.NoError(t, err)

	counts := map[string]int64{}
	for _, tag := range tags {
		counts[tag.Name] = tag.Count
	}
	assert.Equal(t, int64(2), counts["cats"])
	assert.Equal(t, int64(1), counts["dogs"])
	assert.Equal(t, int64(0), counts["birds"])

	// Ordered by count descending.
	assert.Equal(t, "cats", tags[0].Name)
}

func TestRenameAndDelete(t *testing.T) {
	svc := newService(t)
	m := seedMeme(t, svc.db, models.MemePublished, false, "old")

	var tag models.TagModel
	require.NoError(t, svc.db.Where("name = ?", "old").First(&tag).Error)

	renamed, err := svc.Rename(tag.ID, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", renamed.Name)

	require.NoError(t, svc.Delete(tag.ID))

	var count int64
	require.NoError(t, svc.db.Model(&models.TagModel{}).Count(&count).Error)
	assert.Zero(t, count)

	// The meme itself survives the tag deletion.
	require.NoError(t, svc.db.First(&models.MemeModel{}, "id = ?", m.ID).Error)

	_, err = svc.Rename(tag.ID, "x")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
