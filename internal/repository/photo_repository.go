package repository

import (
	"context"
	"strings"

	"github.com/sefazor/keepevents-backend/internal/models"
	"gorm.io/gorm"
)

type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{
		db: db,
	}
}

func (r *PhotoRepository) WithTx(tx *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: tx}
}

func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *PhotoRepository) GetByID(ctx context.Context, id uint) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).First(&photo, id).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *PhotoRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Photo{}, id).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListVisible returns photos whose parent event the user may view, plus the user's own uploads.
func (r *PhotoRepository) ListVisible(ctx context.Context, user *models.User, f models.PhotoFilter) ([]models.Photo, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Photo{})
	if user == nil {
		q = q.Where("photos.event_id IN (?)", VisibleEventIDs(r.db, user))
	} else {
		q = q.Where("(photos.event_id IN (?) OR photos.uploader_id = ?)", VisibleEventIDs(r.db, user), user.ID)
	}

	if f.EventID != 0 {
		q = q.Where("photos.event_id = ?", f.EventID)
	}
	if f.UploaderID != 0 {
		q = q.Where("photos.uploader_id = ?", f.UploaderID)
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		q = q.Where(`CAST(photos.tags AS TEXT) LIKE ? ESCAPE '\'`, `%"`+likeEscaper.Replace(tag)+`"%`)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var photos []models.Photo
	err := q.Order("photos.uploaded_at DESC, photos.id DESC").
		Scopes(paginate(f.Limit, f.Offset)).
		Find(&photos).Error
	return photos, total, err
}

// LikedBy returns the subset of photoIDs the user has liked.
func (r *PhotoRepository) LikedBy(ctx context.Context, userID uint, photoIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(photoIDs))
	if len(photoIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND photo_id IN ?", userID, photoIDs).
		Pluck("photo_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *PhotoRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", id).Updates(fields).Error
}
