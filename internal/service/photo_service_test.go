package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/testutil"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/sefazor/keepevents-backend/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadPhotoRequiresChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	viewer := testutil.CreateUser(t, env.db, "viewer", models.RolePublic)
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Sports Day"})
	require.NoError(t, err)

	_, err = env.photos.UploadPhoto(ctx, viewer, event.ID, models.UploadPhotoInput{FileName: "a.png", Data: pngBytes})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	photo, err := env.photos.UploadPhoto(ctx, owner, event.ID, models.UploadPhotoInput{
		FileName:    "Finish.PNG",
		Data:        pngBytes,
		Description: "finish line",
		Tags:        []string{" Track", "track", "Relay"},
		Meta:        map[string]interface{}{"camera": "X100"},
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", photo.MimeType)
	assert.Equal(t, []string{"relay", "track"}, []string(photo.Tags))
	assert.Regexp(t, `^events/\d+/[0-9a-f-]{36}\.png$`, photo.FileKey)
	assert.JSONEq(t, `{"camera":"X100"}`, string(photo.Meta))
	assert.Zero(t, env.tagger.calls)

	stored, ok := env.store.Get(photo.FileKey)
	require.True(t, ok)
	assert.Equal(t, pngBytes, stored)
}

func TestUploadPhotoAutoTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Sports Day"})
	require.NoError(t, err)

	env.tagger.tags = []string{"crowd", "stadium"}
	photo, err := env.photos.UploadPhoto(ctx, owner, event.ID, models.UploadPhotoInput{FileName: "a.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, []string{"crowd", "stadium"}, []string(photo.Tags))

	env.tagger.err = errors.New("tagger down")
	photo, err = env.photos.UploadPhoto(ctx, owner, event.ID, models.UploadPhotoInput{FileName: "b.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Empty(t, photo.Tags)
	assert.Equal(t, 2, env.tagger.calls)
}

func TestUploadPhotoStoresVariants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Open"})
	require.NoError(t, err)

	photo, err := env.photos.UploadPhoto(ctx, owner, event.ID, models.UploadPhotoInput{FileName: "a.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "img-1", photo.ImageID)
	assert.Equal(t, "https://images.local/img-1/thumbnail", photo.Variants[storage.VariantThumbnail])
	assert.True(t, photo.HasVariant(storage.VariantPublic))
	assert.True(t, photo.HasVariant(models.VariantOriginal))

	env.images.err = errors.New("images api down")
	photo, err = env.photos.UploadPhoto(ctx, owner, event.ID, models.UploadPhotoInput{FileName: "b.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Empty(t, photo.ImageID)
	assert.Empty(t, photo.Variants)
	assert.False(t, photo.HasVariant(storage.VariantThumbnail))
	assert.True(t, photo.HasVariant(models.VariantOriginal))
}

func TestBulkUploadReportsPerItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Sports Day"})
	require.NoError(t, err)

	results, err := env.photos.BulkUpload(ctx, owner, event.ID, []models.UploadPhotoInput{
		{FileName: "ok.png", Data: pngBytes},
		{FileName: "notes.txt", Data: []byte("plain text")},
		{FileName: "empty.png"},
		{FileName: "ok2.png", Data: pngBytes},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.NotNil(t, results[0].Photo)
	assert.NotEmpty(t, results[1].Error)
	assert.NotEmpty(t, results[2].Error)
	assert.NotNil(t, results[3].Photo)

	_, total, err := env.photos.ListPhotos(ctx, owner, models.PhotoFilter{EventID: event.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, err = env.photos.BulkUpload(ctx, owner, event.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestListPhotosScopedAndLikedFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	viewer := testutil.CreateUser(t, env.db, "viewer", models.RolePublic)
	open, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Open"})
	require.NoError(t, err)
	closed, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Closed", Visibility: models.VisibilityPrivate})
	require.NoError(t, err)

	visible, err := env.photos.UploadPhoto(ctx, owner, open.ID, models.UploadPhotoInput{FileName: "a.png", Data: pngBytes, Tags: []string{"sunset"}})
	require.NoError(t, err)
	_, err = env.photos.UploadPhoto(ctx, owner, closed.ID, models.UploadPhotoInput{FileName: "b.png", Data: pngBytes, Tags: []string{"sunset"}})
	require.NoError(t, err)

	_, err = env.engagement.ToggleLike(ctx, viewer, visible.ID)
	require.NoError(t, err)

	photos, total, err := env.photos.ListPhotos(ctx, viewer, models.PhotoFilter{Tag: "Sunset"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, photos, 1)
	assert.Equal(t, visible.ID, photos[0].ID)
	assert.True(t, photos[0].IsLikedByCurrentUser)

	got, err := env.photos.GetPhoto(ctx, viewer, visible.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLikedByCurrentUser)
	assert.EqualValues(t, 1, got.LikeCount)

	_, total, err = env.photos.ListPhotos(ctx, owner, models.PhotoFilter{Tag: "sunset"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestUpdateAndDeletePhoto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner")
	guest := testutil.CreateUser(t, env.db, "guest")
	viewer := testutil.CreateUser(t, env.db, "viewer", models.RolePublic)
	event, err := env.events.CreateEvent(ctx, owner, models.EventRequest{Name: "Open"})
	require.NoError(t, err)

	inv, err := env.invites.CreateInvite(ctx, owner, event.ID, models.CreateInviteRequest{Role: models.InviteEditor})
	require.NoError(t, err)
	_, err = env.invites.Redeem(ctx, guest, inv.Token)
	require.NoError(t, err)

	photo, err := env.photos.UploadPhoto(ctx, guest, event.ID, models.UploadPhotoInput{FileName: "a.png", Data: pngBytes})
	require.NoError(t, err)

	desc := "group photo"
	updated, err := env.photos.UpdatePhoto(ctx, owner, photo.ID, models.UpdatePhotoRequest{Description: &desc, Tags: []string{"Group"}})
	require.NoError(t, err)
	assert.Equal(t, "group photo", updated.Description)
	assert.Equal(t, []string{"group"}, []string(updated.Tags))

	_, err = env.photos.UpdatePhoto(ctx, viewer, photo.ID, models.UpdatePhotoRequest{Description: &desc})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// editors hold no delete, but the uploader may always remove their photo
	require.NoError(t, env.photos.DeletePhoto(ctx, guest, photo.ID))
	_, ok := env.store.Get(photo.FileKey)
	assert.False(t, ok)
	assert.Equal(t, []string{photo.ImageID}, env.images.deletedIDs())

	_, err = env.photos.GetPhoto(ctx, owner, photo.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
