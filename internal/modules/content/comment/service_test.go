package comment

import (
	"testing"

	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/modules/content/meme"
	"github.com/gagikpog/meme-navigator/internal/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	svc    *Service
	author *models.UserModel
	meme   *models.MemeModel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.UserModel{}, &models.MemeModel{}, &models.TagModel{},
		&models.ReactionModel{}, &models.CommentModel{},
	))

	author := &models.UserModel{Username: "author", Name: "author", Password: "x", Role: models.RoleWriter}
	require.NoError(t, db.Create(author).Error)

	memeSvc := meme.NewService(db)
	m, err := memeSvc.Create(&meme.CreateInput{
		Title:       "тестовый мем",
		FileName:    "test.png",
		AuthorID:    author.ID,
		AutoPublish: true,
	})
	require.NoError(t, err)

	return &fixture{svc: NewService(db, memeSvc), author: author, meme: m}
}

func (f *fixture) viewer() meme.Viewer { return meme.Viewer{UserID: f.author.ID} }

func TestCreateAssignsSequentialKeys(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(f.meme.ID, f.viewer(), &CreateDTO{Text: "первый"}, "", "")
	require.NoError(t, err)
	second, err := f.svc.Create(f.meme.ID, f.viewer(), &CreateDTO{Text: "второй"}, "", "")
	require.NoError(t, err)

	assert.Equal(t, "#1", first.Key)
	assert.Equal(t, "#2", second.Key)
}

func TestReplyDerivesKeyFromParent(t *testing.T) {
	f := newFixture(t)

	parent, err := f.svc.Create(f.meme.ID, f.viewer(), &CreateDTO{Text: "корень"}, "", "")
	require.NoError(t, err)

	reply, err := f.svc.Reply(parent.ID, f.viewer(), &CreateDTO{Text: "ответ"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "#1#1", reply.Key)
	assert.Equal(t, parent.ID, *reply.ParentID)

	reply2, err := f.svc.Reply(parent.ID, f.viewer(), &CreateDTO{Text: "ещё ответ"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "#1#2", reply2.Key)
}

func TestReplyToMissingParent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reply("no-such-id", f.viewer(), &CreateDTO{Text: "ответ"}, "", "")
	assert.ErrorIs(t, err, errParentNotFound)
}

func TestReplyDepthLimit(t *testing.T) {
	f := newFixture(t)

	current, err := f.svc.Create(f.meme.ID, f.viewer(), &CreateDTO{Text: "корень"}, "", "")
	require.NoError(t, err)

	for i := 0; i < nestedReplyMax-2; i++ {
		current, err = f.svc.Reply(current.ID, f.viewer(), &CreateDTO{Text: "глубже"}, "", "")
		require.NoError(t, err)
	}

	_, err = f.svc.Reply(current.ID, f.viewer(), &CreateDTO{Text: "слишком глубоко"}, "", "")
	assert.ErrorIs(t, err, errTooDeep)
}

func TestCommentOnInvisibleMeme(t *testing.T) {
	f := newFixture(t)
	stranger := &models.UserModel{Username: "stranger", Name: "stranger", Password: "x", Role: models.RoleUser}
	require.NoError(t, f.svc.db.Create(stranger).Error)
	require.NoError(t, f.svc.db.Model(&models.MemeModel{}).
		Where("id = ?", f.meme.ID).Update("is_private", true).Error)

	_, err := f.svc.Create(f.meme.ID, meme.Viewer{UserID: stranger.ID}, &CreateDTO{Text: "эй"}, "", "")
	assert.ErrorIs(t, err, meme.ErrNotFound)
}

func TestJunkHiddenFromRegularViewers(t *testing.T) {
	f := newFixture(t)

	ok, err := f.svc.Create(f.meme.ID, f.viewer(), &CreateDTO{Text: "норм"}, "", "")
	require.NoError(t, err)
	junk, err := f.svc.Create(f.meme.ID, f.viewer(), &CreateDTO{Text: "спам"}, "", "")
	require.NoError(t, err)
	_, err = f.svc.UpdateState(junk.ID, models.CommentJunk)
	require.NoError(t, err)

	page := pagination.Query{Page: 1, Size: 10}

	visible, _, err := f.svc.ListByMeme(f.meme.ID, f.viewer(), page)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, ok.ID, visible[0].ID)

	all, _, err := f.svc.ListByMeme(f.meme.ID, meme.Viewer{CanModerate: true}, page)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteScopedToAuthorOrModerator(t *testing.T) {
	f := newFixture(t)
	stranger := &models.UserModel{Username: "stranger", Name: "stranger", Password: "x", Role: models.RoleUser}
	require.NoError(t, f.svc.db.Create(stranger).Error)

	c, err := f.svc.Create(f.meme.ID, f.viewer(), &CreateDTO{Text: "моё"}, "", "")
	require.NoError(t, err)

	err = f.svc.Delete(c.ID, meme.Viewer{UserID: stranger.ID})
	assert.ErrorIs(t, err, errNotAllowed)

	require.NoError(t, f.svc.Delete(c.ID, f.viewer()))
}

func TestDeleteRemovesReplies(t *testing.T) {
	f := newFixture(t)
	parent, err := f.svc.Create(f.meme.ID, f.viewer(), &CreateDTO{Text: "корень"}, "", "")
	require.NoError(t, err)
	_, err = f.svc.Reply(parent.ID, f.viewer(), &CreateDTO{Text: "ответ"}, "", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(parent.ID, f.viewer()))

	var count int64
	require.NoError(t, f.svc.db.Model(&models.CommentModel{}).
		Where("meme_id = ?", f.meme.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}
