package repository

import (
	"context"
	"time"

	"github.com/sefazor/keepevents-backend/internal/models"
	"gorm.io/gorm"
)

type InviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

func (r *InviteRepository) WithTx(tx *gorm.DB) *InviteRepository {
	return &InviteRepository{db: tx}
}

func (r *InviteRepository) Create(ctx context.Context, invite *models.EventInvite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *InviteRepository) GetByToken(ctx context.Context, token string) (*models.EventInvite, error) {
	var invite models.EventInvite
	err := r.db.WithContext(ctx).Preload("Event").Where("token = ?", token).First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// Redeem flips is_active true->false for the invite. It reports false when
// another redemption got there first.
func (r *InviteRepository) Redeem(ctx context.Context, id, userID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.EventInvite{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":      false,
			"redeemed_by_id": userID,
			"redeemed_at":    at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *InviteRepository) ListActive(ctx context.Context, eventID uint) ([]models.EventInvite, error) {
	var invites []models.EventInvite
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND is_active = ?", eventID, true).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}
