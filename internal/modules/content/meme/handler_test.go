package meme

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gagikpog/meme-navigator/internal/middleware"
	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/modules/storage/file"
	"github.com/gagikpog/meme-navigator/internal/pkg/jwt"
	sessionpkg "github.com/gagikpog/meme-navigator/internal/pkg/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newUploadRouter(t *testing.T) (*gin.Engine, *Service, string) {
	t.Helper()
	jwt.SetSecret("meme-upload-test")

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.UserModel{}, &models.UserSession{},
		&models.MemeModel{}, &models.TagModel{}, &models.ReactionModel{},
	))

	author := &models.UserModel{Username: "uploader", Name: "uploader", Password: "x", Role: models.RoleWriter}
	require.NoError(t, db.Create(author).Error)
	sess, err := sessionpkg.Upsert(db, author.ID, "laptop", sessionpkg.Meta{}, time.Hour)
	require.NoError(t, err)
	token, err := jwt.Sign(jwt.Identity{
		UserID:    author.ID,
		SessionID: sess.ID,
		Username:  author.Username,
		Role:      author.Role,
		DeviceID:  "laptop",
	}, time.Hour)
	require.NoError(t, err)

	store, err := file.NewStore(t.TempDir())
	require.NoError(t, err)
	svc := NewService(db)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc, store, nil, zap.NewNop()).RegisterRoutes(r.Group(""), middleware.Auth(db))
	return r, svc, token
}

func doUpload(t *testing.T, r *gin.Engine, token string, partHeader textproto.MIMEHeader, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("title", "Кот"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/memes", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("device-id", "laptop")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUploadSniffsMissingContentType(t *testing.T) {
	r, svc, token := newUploadRouter(t)

	// A file part without a Content-Type header, the way scripted clients
	// often send uploads. The stored mime type must come from sniffing.
	rec := doUpload(t, r, token, textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="cat.png"`},
	}, []byte("payload-without-declared-type"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var m models.MemeModel
	require.NoError(t, svc.db.First(&m).Error)
	assert.Equal(t, "image/png", m.MimeType)
}

func TestUploadKeepsDeclaredContentType(t *testing.T) {
	r, svc, token := newUploadRouter(t)

	rec := doUpload(t, r, token, textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="cat.png"`},
		"Content-Type":        {"image/webp"},
	}, []byte("payload"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var m models.MemeModel
	require.NoError(t, svc.db.First(&m).Error)
	assert.Equal(t, "image/webp", m.MimeType)
}
