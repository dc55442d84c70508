package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func likeCount(t *testing.T, db *gorm.DB, photoID uint) (counter, rows int64) {
	t.Helper()
	var p models.Photo
	require.NoError(t, db.First(&p, photoID).Error)
	require.NoError(t, db.Model(&models.Like{}).Where("photo_id = ?", photoID).Count(&rows).Error)
	return p.LikeCount, rows
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	event := testutil.CreateEvent(t, db, owner, models.VisibilityPublic)
	photo := testutil.CreatePhoto(t, db, event, owner)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	liked, n, err := repo.ToggleLike(ctx, photo.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, n)

	liked, n, err = repo.ToggleLike(ctx, photo.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 0, n)

	counter, rows := likeCount(t, db, photo.ID)
	assert.EqualValues(t, 0, counter)
	assert.EqualValues(t, 0, rows)
}

func TestToggleLikeConcurrentKeepsCounterConsistent(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	event := testutil.CreateEvent(t, db, owner, models.VisibilityPublic)
	photo := testutil.CreatePhoto(t, db, event, owner)

	users := make([]*models.User, 5)
	for i := range users {
		users[i] = testutil.CreateUser(t, db, fmt.Sprintf("fan%d", i))
	}

	repo := NewEngagementRepository(db)
	var wg sync.WaitGroup
	for _, u := range users {
		for j := 0; j < 3; j++ {
			wg.Add(1)
			go func(userID uint) {
				defer wg.Done()
				_, _, err := repo.ToggleLike(context.Background(), photo.ID, userID)
				assert.NoError(t, err)
			}(u.ID)
		}
	}
	wg.Wait()

	counter, rows := likeCount(t, db, photo.ID)
	assert.Equal(t, rows, counter)
	// three toggles each: every user ends up liking
	assert.EqualValues(t, len(users), rows)
}

func TestRecordViewAndDownloadAreIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "viewer")
	event := testutil.CreateEvent(t, db, u, models.VisibilityPublic)
	photo := testutil.CreatePhoto(t, db, event, u)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	created, err := repo.RecordView(ctx, photo.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.RecordView(ctx, photo.ID, u.ID)
	require.NoError(t, err)
	assert.False(t, created)

	for _, label := range []string{"original", "original", "thumb"} {
		_, err := repo.RecordDownload(ctx, photo.ID, u.ID, label)
		require.NoError(t, err)
	}

	c, err := repo.Counters(ctx, photo.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.ViewCount)
	assert.EqualValues(t, 2, c.DownloadCount)
}

func TestAddCommentAndReconcile(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "talker")
	event := testutil.CreateEvent(t, db, u, models.VisibilityPublic)
	photo := testutil.CreatePhoto(t, db, event, u)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.AddComment(ctx, &models.Comment{PhotoID: photo.ID, UserID: u.ID, Body: "nice"}))
	require.NoError(t, repo.AddComment(ctx, &models.Comment{PhotoID: photo.ID, UserID: u.ID, Body: "again"}))
	_, _, err := repo.ToggleLike(ctx, photo.ID, u.ID)
	require.NoError(t, err)

	comments, err := repo.ListComments(ctx, photo.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "nice", comments[0].Body)
	require.NotNil(t, comments[0].User)
	assert.Equal(t, "talker", comments[0].User.Username)

	// drift the stored counters, then repair them
	require.NoError(t, db.Model(&models.Photo{}).Where("id = ?", photo.ID).
		UpdateColumns(map[string]interface{}{"commentcount": 9, "likecount": 0, "viewcount": 4}).Error)

	c, err := repo.ReconcileCounters(ctx, photo.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.CommentCount)
	assert.EqualValues(t, 1, c.LikeCount)
	assert.EqualValues(t, 0, c.ViewCount)
	assert.EqualValues(t, 0, c.DownloadCount)

	_, err = repo.ReconcileCounters(ctx, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDecrementClampsAtZero(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "clamp")
	event := testutil.CreateEvent(t, db, u, models.VisibilityPublic)
	photo := testutil.CreatePhoto(t, db, event, u)

	require.NoError(t, decrement(db, photo.ID, models.KindLike))
	var p models.Photo
	require.NoError(t, db.First(&p, photo.ID).Error)
	assert.EqualValues(t, 0, p.LikeCount)
}
