package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/repository"
	"github.com/sefazor/keepevents-backend/internal/testutil"
	jwtPkg "github.com/sefazor/keepevents-backend/pkg/jwt"
	"github.com/sefazor/keepevents-backend/pkg/qrcode"
	"github.com/sefazor/keepevents-backend/pkg/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu      sync.Mutex
	otps    map[string][]string
	invites []string
	err     error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{otps: map[string][]string{}}
}

func (m *fakeMailer) SendOTP(ctx context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps[to] = append(m.otps[to], code)
	return m.err
}

func (m *fakeMailer) SendInvite(ctx context.Context, to, eventName, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites = append(m.invites, to+" "+link)
	return m.err
}

func (m *fakeMailer) lastOTP(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := m.otps[to]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

func (m *fakeMailer) otpCount(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.otps[to])
}

type fakeTagger struct {
	tags  []string
	err   error
	calls int
}

func (f *fakeTagger) Tags(ctx context.Context, filename string, data []byte) ([]string, error) {
	f.calls++
	return f.tags, f.err
}

type fakeImages struct {
	mu      sync.Mutex
	next    int
	deleted []string
	err     error
}

func (f *fakeImages) UploadImage(ctx context.Context, filename string, data []byte) (string, map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", nil, f.err
	}
	f.next++
	id := fmt.Sprintf("img-%d", f.next)
	return id, map[string]string{
		storage.VariantPublic:    "https://images.local/" + id + "/public",
		storage.VariantThumbnail: "https://images.local/" + id + "/thumbnail",
	}, nil
}

func (f *fakeImages) DeleteImage(ctx context.Context, imageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, imageID)
	return nil
}

func (f *fakeImages) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeProvider struct {
	profile *models.ProviderProfile
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/oauth/authorise/?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*models.ProviderProfile, error) {
	if code != "good" {
		return nil, errors.New("invalid_grant")
	}
	return p.profile, nil
}

type testEnv struct {
	db         *gorm.DB
	mailer     *fakeMailer
	tagger     *fakeTagger
	provider   *fakeProvider
	store      *storage.MemoryStore
	images     *fakeImages
	tokens     *jwtPkg.Manager
	access     *AccessService
	auth       *AuthService
	events     *EventService
	invites    *InviteService
	photos     *PhotoService
	engagement *EngagementService
	users      *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop()

	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	eventRepo := repository.NewEventRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)

	env := &testEnv{
		db:       db,
		mailer:   newFakeMailer(),
		tagger:   &fakeTagger{},
		provider: &fakeProvider{},
		store:    storage.NewMemoryStore("http://files.local"),
		images:   &fakeImages{},
		tokens: jwtPkg.NewManager(jwtPkg.Config{
			Secret:     "test-secret",
			Issuer:     "keepevents-test",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		}),
	}
	env.access = NewAccessService(grantRepo, eventRepo)
	env.auth = NewAuthService(tx, userRepo, otpRepo, sessionRepo, env.tokens, env.mailer, env.provider, log)
	env.events = NewEventService(tx, eventRepo, grantRepo, userRepo, env.access, env.store, env.images, log)
	env.invites = NewInviteService(tx, inviteRepo, grantRepo, env.access, qrcode.NewQRService("https://keepevents.example"), env.mailer, log)
	env.photos = NewPhotoService(photoRepo, env.access, env.store, env.images, env.tagger, log)
	env.engagement = NewEngagementService(engagementRepo, photoRepo, env.access, log)
	env.users = NewUserService(userRepo, sessionRepo, log)
	return env
}

// reload fetches the user with roles, as the auth middleware does.
func (e *testEnv) reload(t *testing.T, u *models.User) *models.User {
	t.Helper()
	got, err := e.users.GetUserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return got
}

// pngBytes is a minimal PNG header, enough for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
