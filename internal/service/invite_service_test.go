package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/testutil"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInviteRequiresInviteCapability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	viewer := testutil.CreateUser(t, env.db, "viewer", models.RolePublic)
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Open Day"})
	require.NoError(t, err)

	_, err = env.invites.CreateInvite(ctx, viewer, event.ID, models.CreateInviteRequest{Role: models.InviteViewer})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.invites.CreateInvite(ctx, owner, event.ID, models.CreateInviteRequest{Role: "owner"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	past := time.Now().Add(-time.Hour)
	_, err = env.invites.CreateInvite(ctx, owner, event.ID, models.CreateInviteRequest{Role: models.InviteViewer, ExpiresAt: &past})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.invites.CreateInvite(ctx, owner, 9999, models.CreateInviteRequest{Role: models.InviteViewer})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	inv, err := env.invites.CreateInvite(ctx, owner, event.ID, models.CreateInviteRequest{
		Role:  models.InviteEditor,
		Email: "guest@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://keepevents.example/invite/"+inv.Token, inv.Link)
	assert.Equal(t, []string{"guest@example.com " + inv.Link}, env.mailer.invites)
}

func TestRedeemEditorInvite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	guest := testutil.CreateUser(t, env.db, "guest")
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Hackathon", Visibility: models.VisibilityPrivate})
	require.NoError(t, err)

	inv, err := env.invites.CreateInvite(ctx, owner, event.ID, models.CreateInviteRequest{Role: models.InviteEditor})
	require.NoError(t, err)

	resp, err := env.invites.Redeem(ctx, guest, inv.Token)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Capability{models.CapView, models.CapChange, models.CapInvite}, resp.Capabilities)

	for _, c := range resp.Capabilities {
		ok, err := env.access.Can(ctx, guest, c, event)
		require.NoError(t, err)
		assert.True(t, ok, string(c))
	}
	ok, err := env.access.Can(ctx, guest, models.CapDelete, event)
	require.NoError(t, err)
	assert.False(t, ok)

	// an editor can pass the event on
	_, err = env.invites.CreateInvite(ctx, guest, event.ID, models.CreateInviteRequest{Role: models.InviteViewer})
	assert.NoError(t, err)
}

func TestRedeemFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	guest := testutil.CreateUser(t, env.db, "guest")
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Hackathon"})
	require.NoError(t, err)

	_, err = env.invites.Redeem(ctx, guest, "no-such-token")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	expiry := time.Now().Add(time.Hour)
	inv, err := env.invites.CreateInvite(ctx, owner, event.ID, models.CreateInviteRequest{Role: models.InviteViewer, ExpiresAt: &expiry})
	require.NoError(t, err)

	env.invites.now = func() time.Time { return expiry }
	_, err = env.invites.Redeem(ctx, guest, inv.Token)
	assert.ErrorIs(t, err, apperrors.ErrExpired)

	env.invites.now = time.Now
	_, err = env.invites.Redeem(ctx, guest, inv.Token)
	require.NoError(t, err)

	// used beats expired
	env.invites.now = func() time.Time { return expiry.Add(time.Hour) }
	_, err = env.invites.Redeem(ctx, guest, inv.Token)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyUsed)
}

func TestConcurrentRedeemGrantsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Hackathon", Visibility: models.VisibilityPrivate})
	require.NoError(t, err)
	inv, err := env.invites.CreateInvite(ctx, owner, event.ID, models.CreateInviteRequest{Role: models.InviteViewer})
	require.NoError(t, err)

	const n = 5
	guests := make([]*models.User, n)
	for i := range guests {
		guests[i] = testutil.CreateUser(t, env.db, "guest"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range guests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.invites.Redeem(ctx, guests[i], inv.Token)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrAlreadyUsed)
	}
	assert.Equal(t, 1, wins)

	viewers, err := env.events.Viewers(ctx, owner, event.ID)
	require.NoError(t, err)
	assert.Len(t, viewers, 1)
}

func TestInviteQRCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	stranger := testutil.CreateUser(t, env.db, "stranger")
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Hackathon"})
	require.NoError(t, err)
	inv, err := env.invites.CreateInvite(ctx, owner, event.ID, models.CreateInviteRequest{Role: models.InviteViewer})
	require.NoError(t, err)

	png, err := env.invites.InviteQRCode(ctx, owner, inv.Token, 128)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	_, err = env.invites.InviteQRCode(ctx, stranger, inv.Token, 128)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestListInvitesHidesRedeemed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	guest := testutil.CreateUser(t, env.db, "guest")
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Hackathon"})
	require.NoError(t, err)

	used, err := env.invites.CreateInvite(ctx, owner, event.ID, models.CreateInviteRequest{Role: models.InviteViewer})
	require.NoError(t, err)
	pending, err := env.invites.CreateInvite(ctx, owner, event.ID, models.CreateInviteRequest{Role: models.InviteEditor})
	require.NoError(t, err)
	_, err = env.invites.Redeem(ctx, guest, used.Token)
	require.NoError(t, err)

	invites, err := env.invites.ListInvites(ctx, owner, event.ID)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, pending.Token, invites[0].Token)

	_, err = env.invites.ListInvites(ctx, guest, event.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
