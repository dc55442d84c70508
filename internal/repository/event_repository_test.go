package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventIDs(events []models.Event) []uint {
	ids := make([]uint, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestListVisibleScopesByTierGrantAndOwner(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	img := testutil.CreateUser(t, db, "imguser", models.RoleIMGMember)
	admin := testutil.CreateUser(t, db, "adminuser", models.RoleAdmin)
	public := testutil.CreateUser(t, db, "publicuser", models.RolePublic)
	staff := testutil.CreateStaff(t, db, "staffer")

	pub := testutil.CreateEvent(t, db, img, models.VisibilityPublic)
	imgEvent := testutil.CreateEvent(t, db, img, models.VisibilityIMG)
	adminEvent := testutil.CreateEvent(t, db, nil, models.VisibilityAdmin)
	private := testutil.CreateEvent(t, db, img, models.VisibilityPrivate)
	granted := testutil.CreateEvent(t, db, admin, models.VisibilityPrivate)

	grants := NewGrantRepository(db)
	require.NoError(t, grants.GrantUser(ctx, granted.ID, public.ID, models.CapView))

	repo := NewEventRepository(db)

	list := func(u *models.User) []uint {
		events, total, err := repo.ListVisible(ctx, u, models.EventFilter{Ordering: "name"})
		require.NoError(t, err)
		assert.EqualValues(t, len(events), total)
		return eventIDs(events)
	}

	assert.ElementsMatch(t, []uint{pub.ID, imgEvent.ID, private.ID}, list(img))
	assert.ElementsMatch(t, []uint{pub.ID, adminEvent.ID, granted.ID}, list(admin))
	assert.ElementsMatch(t, []uint{pub.ID, granted.ID}, list(public))
	assert.ElementsMatch(t, []uint{pub.ID, imgEvent.ID, adminEvent.ID, private.ID, granted.ID}, list(staff))
	assert.Empty(t, list(nil))
}

func TestListVisibleGroupGrant(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner")
	member := testutil.CreateUser(t, db, "member", models.RolePublic)
	e := testutil.CreateEvent(t, db, owner, models.VisibilityPrivate)

	require.NoError(t, NewGrantRepository(db).GrantGroup(ctx, e.ID, models.RolePublic, models.CapView))

	events, _, err := NewEventRepository(db).ListVisible(ctx, member, models.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{e.ID}, eventIDs(events))
}

func TestListVisibleFilters(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "u")
	repo := NewEventRepository(db)

	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	a := &models.Event{Name: "Cultural Night", Location: "SAC", Date: &d1, Visibility: models.VisibilityPublic, CreatorID: &u.ID}
	b := &models.Event{Name: "Hackathon", Description: "cultural coding", Location: "LHC", Date: &d2, Visibility: models.VisibilityPublic, CreatorID: &u.ID}
	c := &models.Event{Name: "Convocation", Location: "MAC", Date: &d2, Visibility: models.VisibilityPublic, CreatorID: &u.ID}
	for _, e := range []*models.Event{a, b, c} {
		require.NoError(t, repo.Create(ctx, e))
	}

	events, _, err := repo.ListVisible(ctx, u, models.EventFilter{Search: "CULTURAL", Ordering: "date"})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, eventIDs(events))

	events, _, err = repo.ListVisible(ctx, u, models.EventFilter{Locations: []string{"LHC", "MAC"}, Ordering: "name"})
	require.NoError(t, err)
	assert.Equal(t, []uint{c.ID, b.ID}, eventIDs(events))

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	events, total, err := repo.ListVisible(ctx, u, models.EventFilter{DateFrom: &from, Limit: 1, Ordering: "-name"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, []uint{b.ID}, eventIDs(events))
}
