package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/pkg/dberrors"
	"gorm.io/gorm"
)

// EngagementRepository writes likes, comments, views and downloads and keeps the
// matching photo counter in step inside the same transaction.
type EngagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// ToggleLike unlikes when a like exists and likes otherwise. A concurrent insert
// that loses the unique race is turned into an unlike.
func (r *EngagementRepository) ToggleLike(ctx context.Context, photoID, userID uint) (liked bool, count int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, err := deleteRecord(tx, &models.Like{}, models.KindLike, photoID,
			"photo_id = ? AND user_id = ?", photoID, userID)
		if err != nil {
			return err
		}
		if removed {
			liked = false
			return nil
		}

		// Savepoint so a unique violation does not abort the outer transaction on PostgreSQL.
		insertErr := tx.Transaction(func(sp *gorm.DB) error {
			return createRecord(sp, &models.Like{PhotoID: photoID, UserID: userID})
		})
		switch {
		case insertErr == nil:
			liked = true
			return nil
		case dberrors.IsUniqueViolation(insertErr):
			if _, err := deleteRecord(tx, &models.Like{}, models.KindLike, photoID,
				"photo_id = ? AND user_id = ?", photoID, userID); err != nil {
				return err
			}
			liked = false
			return nil
		default:
			return insertErr
		}
	})
	if err != nil {
		return false, 0, err
	}
	count, err = r.counter(ctx, photoID, models.KindLike)
	return liked, count, err
}

func (r *EngagementRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createRecord(tx, comment)
	})
}

// RecordView stores one view per (photo, user). A repeat view changes nothing and reports false.
func (r *EngagementRepository) RecordView(ctx context.Context, photoID, userID uint) (bool, error) {
	return r.createOnce(ctx, &models.View{PhotoID: photoID, UserID: userID})
}

// RecordDownload stores one download per (photo, user, version label).
func (r *EngagementRepository) RecordDownload(ctx context.Context, photoID, userID uint, versionLabel string) (bool, error) {
	return r.createOnce(ctx, &models.Download{PhotoID: photoID, UserID: userID, VersionLabel: versionLabel})
}

func (r *EngagementRepository) createOnce(ctx context.Context, rec models.EngagementRecord) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Transaction(func(sp *gorm.DB) error {
			return createRecord(sp, rec)
		})
		if dberrors.IsUniqueViolation(err) {
			return nil
		}
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (r *EngagementRepository) ListLikes(ctx context.Context, photoID uint) ([]models.Like, error) {
	var likes []models.Like
	err := r.db.WithContext(ctx).Preload("User").
		Where("photo_id = ?", photoID).
		Order("created_at DESC, id DESC").
		Find(&likes).Error
	return likes, err
}

func (r *EngagementRepository) ListComments(ctx context.Context, photoID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Preload("User").
		Where("photo_id = ?", photoID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *EngagementRepository) Counters(ctx context.Context, photoID uint) (*models.PhotoCounters, error) {
	var c models.PhotoCounters
	err := r.db.WithContext(ctx).Model(&models.Photo{}).
		Select("likecount AS like_count, viewcount AS view_count, downloadcount AS download_count, commentcount AS comment_count").
		Where("id = ?", photoID).
		Take(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ReconcileCounters recomputes all four counters from the child tables.
func (r *EngagementRepository) ReconcileCounters(ctx context.Context, photoID uint) (*models.PhotoCounters, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := func(model interface{}) *gorm.DB {
			return tx.Session(&gorm.Session{NewDB: true}).Model(model).Select("COUNT(*)").Where("photo_id = ?", photoID)
		}
		res := tx.Model(&models.Photo{}).Where("id = ?", photoID).UpdateColumns(map[string]interface{}{
			"likecount":     sub(&models.Like{}),
			"viewcount":     sub(&models.View{}),
			"downloadcount": sub(&models.Download{}),
			"commentcount":  sub(&models.Comment{}),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Counters(ctx, photoID)
}

func (r *EngagementRepository) counter(ctx context.Context, photoID uint, kind models.EngagementKind) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Photo{}).
		Select(kind.CounterColumn()).
		Where("id = ?", photoID).
		Row().Scan(&n)
	return n, err
}

// createRecord inserts rec and bumps its counter by one.
func createRecord(tx *gorm.DB, rec models.EngagementRecord) error {
	if err := tx.Create(rec).Error; err != nil {
		return err
	}
	return increment(tx, rec.TargetPhotoID(), rec.Kind())
}

// deleteRecord removes the matching rows of model and decrements the counter once per row removed.
func deleteRecord(tx *gorm.DB, model interface{}, kind models.EngagementKind, photoID uint, query string, args ...interface{}) (bool, error) {
	res := tx.Where(query, args...).Delete(model)
	if res.Error != nil {
		return false, res.Error
	}
	for i := int64(0); i < res.RowsAffected; i++ {
		if err := decrement(tx, photoID, kind); err != nil {
			return false, err
		}
	}
	return res.RowsAffected > 0, nil
}

func increment(tx *gorm.DB, photoID uint, kind models.EngagementKind) error {
	col := kind.CounterColumn()
	if col == "" {
		return fmt.Errorf("unknown engagement kind %q", kind)
	}
	res := tx.Model(&models.Photo{}).Where("id = ?", photoID).
		UpdateColumn(col, gorm.Expr(col+" + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// decrement never takes a counter below zero.
func decrement(tx *gorm.DB, photoID uint, kind models.EngagementKind) error {
	col := kind.CounterColumn()
	if col == "" {
		return errors.New("unknown engagement kind")
	}
	return tx.Model(&models.Photo{}).
		Where("id = ? AND "+col+" >= 1", photoID).
		UpdateColumn(col, gorm.Expr(col+" - 1")).Error
}
