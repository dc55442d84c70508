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

func TestUserLookupsAreCaseInsensitive(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "Asha", models.RoleIMGMember)
	repo := NewUserRepository(db)

	got, err := repo.GetByIdentifier(ctx, "asha")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.HasRole(models.RoleIMGMember))

	got, err = repo.GetByIdentifier(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = repo.GetByEmail(ctx, "Asha@Example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	conflicts, err := repo.FindConflicts(ctx, "someone", "asha@example.com")
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
}

func TestSetRolesReplacesSet(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "roles", models.RolePublic)
	repo := NewUserRepository(db)

	require.NoError(t, repo.SetRoles(ctx, u.ID, []models.Role{models.RoleAdmin, models.RoleIMGMember, models.RoleAdmin}))
	require.NoError(t, repo.AddRole(ctx, u.ID, models.RoleAdmin))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Role{models.RoleAdmin, models.RoleIMGMember}, got.RoleNames())
}

func TestOTPInvalidateAndMarkUsed(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "otp")
	repo := NewOTPRepository(db)
	now := time.Now()

	first := &models.EmailOTP{UserID: u.ID, Code: "111111", CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, repo.Create(ctx, first))

	n, err := repo.InvalidateUnused(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	second := &models.EmailOTP{UserID: u.ID, Code: "222222", CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, repo.Create(ctx, second))

	old, err := repo.FindLatest(ctx, u.ID, "111111")
	require.NoError(t, err)
	assert.True(t, old.Used)

	ok, err := repo.MarkUsed(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.MarkUsed(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionRevoke(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "sess")
	repo := NewSessionRepository(db)

	s := &models.Session{ID: "7c1f3b1e-1111-4c1e-9d1a-000000000001", UserID: u.ID, RefreshTokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByRefreshHash(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, got.Active(time.Now()))

	ok, err := repo.Revoke(ctx, s.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Revoke(ctx, s.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.Active(time.Now()))
}
