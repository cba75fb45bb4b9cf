package push

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
	sessionpkg "github.com/gagikpog/meme-navigator/internal/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeTransport records deliveries and answers with a per-endpoint status.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []string
	statuses map[string]int
}

func (f *fakeTransport) Send(_ context.Context, sub *models.SubscriptionModel, _ []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sub.Endpoint)
	if status, ok := f.statuses[sub.Endpoint]; ok {
		return status, errPushRejected
	}
	return http.StatusCreated, nil
}

func (f *fakeTransport) endpoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.sent...)
}

type fixture struct {
	db  *gorm.DB
	svc *Service
	tr  *fakeTransport
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.UserModel{}, &models.UserSession{}, &models.SubscriptionModel{},
	))
	tr := &fakeTransport{statuses: map[string]int{}}
	return &fixture{db: db, svc: NewService(db, tr, zap.NewNop()), tr: tr}
}

// subscribe creates a user with the given role, a live session and a push
// subscription, returning the user and subscription.
func (f *fixture) subscribe(t *testing.T, username string, role models.Role, endpoint string) (*models.UserModel, *models.SubscriptionModel) {
	t.Helper()
	u := &models.UserModel{Username: username, Name: username, Password: "x", Role: role}
	require.NoError(t, f.db.Create(u).Error)
	sess, err := sessionpkg.Upsert(f.db, u.ID, "device-"+username, sessionpkg.Meta{}, time.Hour)
	require.NoError(t, err)
	sub := &models.SubscriptionModel{
		Endpoint:  endpoint,
		P256DH:    "p256dh-key",
		Auth:      "auth-key",
		UserID:    &u.ID,
		SessionID: &sess.ID,
	}
	require.NoError(t, f.db.Create(sub).Error)
	return u, sub
}

func endpointsOf(subs []models.SubscriptionModel) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.Endpoint
	}
	return out
}

func TestResolveEveryone(t *testing.T) {
	f := newFixture(t)
	f.subscribe(t, "anya", models.RoleUser, "https://push/anya")
	f.subscribe(t, "borya", models.RoleWriter, "https://push/borya")

	subs, err := f.svc.ResolveTargets(Everyone())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://push/anya", "https://push/borya"}, endpointsOf(subs))
}

func TestResolveByRoles(t *testing.T) {
	f := newFixture(t)
	f.subscribe(t, "anya", models.RoleUser, "https://push/anya")
	f.subscribe(t, "borya", models.RoleWriter, "https://push/borya")
	f.subscribe(t, "vera", models.RoleModerator, "https://push/vera")

	subs, err := f.svc.ResolveTargets(ForRoles(models.StaffRoles()...))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://push/borya", "https://push/vera"}, endpointsOf(subs))
}

func TestResolveRolesModeWithoutRolesIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.subscribe(t, "anya", models.RoleUser, "https://push/anya")

	subs, err := f.svc.ResolveTargets(Filter{Mode: TargetRoles})
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestExcludeWinsOverAllow(t *testing.T) {
	f := newFixture(t)
	anya, _ := f.subscribe(t, "anya", models.RoleUser, "https://push/anya")
	f.subscribe(t, "borya", models.RoleUser, "https://push/borya")

	filter := Filter{
		Mode:           TargetEveryone,
		UserIDs:        []string{anya.ID},
		ExcludeUserIDs: []string{anya.ID},
	}
	subs, err := f.svc.ResolveTargets(filter)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestExcludingActor(t *testing.T) {
	f := newFixture(t)
	anya, _ := f.subscribe(t, "anya", models.RoleUser, "https://push/anya")
	f.subscribe(t, "borya", models.RoleUser, "https://push/borya")

	subs, err := f.svc.ResolveTargets(Everyone().ExcludingUser(anya.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://push/borya"}, endpointsOf(subs))
}

func TestExcludeBySession(t *testing.T) {
	f := newFixture(t)
	_, sub := f.subscribe(t, "anya", models.RoleUser, "https://push/anya")
	f.subscribe(t, "borya", models.RoleUser, "https://push/borya")

	subs, err := f.svc.ResolveTargets(Filter{ExcludeSessionIDs: []string{*sub.SessionID}})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://push/borya"}, endpointsOf(subs))
}

func TestRevokedSessionSilencesSubscription(t *testing.T) {
	f := newFixture(t)
	anya, _ := f.subscribe(t, "anya", models.RoleUser, "https://push/anya")
	f.subscribe(t, "borya", models.RoleUser, "https://push/borya")

	require.NoError(t, sessionpkg.Deactivate(f.db, anya.ID, "device-anya"))

	subs, err := f.svc.ResolveTargets(Everyone())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://push/borya"}, endpointsOf(subs))
}

func TestBlockedUserSilenced(t *testing.T) {
	f := newFixture(t)
	anya, _ := f.subscribe(t, "anya", models.RoleUser, "https://push/anya")
	f.subscribe(t, "borya", models.RoleUser, "https://push/borya")

	require.NoError(t, f.db.Model(anya).Update("blocked", true).Error)

	subs, err := f.svc.ResolveTargets(Everyone())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://push/borya"}, endpointsOf(subs))
}

func TestResolveDeduplicatesEndpoints(t *testing.T) {
	f := newFixture(t)
	anya, _ := f.subscribe(t, "anya", models.RoleUser, "https://push/anya")

	// Endpoint uniqueness is also a schema constraint; resolution must hold
	// single delivery per endpoint on its own, so lift the index and seed a
	// second live row with the same endpoint.
	require.NoError(t, f.db.Exec("DROP INDEX idx_subscriptions_endpoint").Error)
	sess, err := sessionpkg.Upsert(f.db, anya.ID, "tablet", sessionpkg.Meta{}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.SubscriptionModel{
		Endpoint:  "https://push/anya",
		P256DH:    "p256dh-key",
		Auth:      "auth-key",
		UserID:    &anya.ID,
		SessionID: &sess.ID,
	}).Error)

	subs, err := f.svc.ResolveTargets(Everyone())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://push/anya"}, endpointsOf(subs))
}

func TestDispatchSendsAndPrunesDeadEndpoints(t *testing.T) {
	f := newFixture(t)
	f.subscribe(t, "anya", models.RoleUser, "https://push/anya")
	f.subscribe(t, "borya", models.RoleUser, "https://push/borya")
	f.tr.statuses["https://push/borya"] = http.StatusGone

	stats, err := f.svc.Dispatch(context.Background(), Message{Title: "Новый мем"}, Everyone())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Targets)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Pruned)
	assert.ElementsMatch(t, []string{"https://push/anya", "https://push/borya"}, f.tr.endpoints())

	var count int64
	require.NoError(t, f.db.Model(&models.SubscriptionModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPruneOrphans(t *testing.T) {
	f := newFixture(t)
	anya, _ := f.subscribe(t, "anya", models.RoleUser, "https://push/anya")
	f.subscribe(t, "borya", models.RoleUser, "https://push/borya")

	require.NoError(t, sessionpkg.Deactivate(f.db, anya.ID, "device-anya"))

	pruned, err := f.svc.PruneOrphans(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)
}
