package repository

import (
	"context"

	"github.com/sefazor/keepevents-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GrantRepository is the persisted permission grant store.
type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

func (r *GrantRepository) WithTx(tx *gorm.DB) *GrantRepository {
	return &GrantRepository{db: tx}
}

// GrantUser gives caps on eventID to userID. Existing grants are left untouched.
func (r *GrantRepository) GrantUser(ctx context.Context, eventID, userID uint, caps ...models.Capability) error {
	grants := make([]models.PermissionGrant, 0, len(caps))
	for _, c := range caps {
		grants = append(grants, models.PermissionGrant{
			EventID:       eventID,
			Capability:    c,
			PrincipalType: models.PrincipalUser,
			UserID:        userID,
		})
	}
	return r.insert(ctx, grants)
}

// GrantGroup gives caps on eventID to every member of group.
func (r *GrantRepository) GrantGroup(ctx context.Context, eventID uint, group models.Role, caps ...models.Capability) error {
	grants := make([]models.PermissionGrant, 0, len(caps))
	for _, c := range caps {
		grants = append(grants, models.PermissionGrant{
			EventID:       eventID,
			Capability:    c,
			PrincipalType: models.PrincipalGroup,
			GroupName:     group,
		})
	}
	return r.insert(ctx, grants)
}

func (r *GrantRepository) insert(ctx context.Context, grants []models.PermissionGrant) error {
	if len(grants) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&grants).Error
}

func (r *GrantRepository) HasUserGrant(ctx context.Context, eventID, userID uint, c models.Capability) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PermissionGrant{}).
		Where("event_id = ? AND capability = ? AND principal_type = ? AND user_id = ?",
			eventID, c, models.PrincipalUser, userID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *GrantRepository) HasGroupGrant(ctx context.Context, eventID uint, groups []models.Role, c models.Capability) (bool, error) {
	if len(groups) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PermissionGrant{}).
		Where("event_id = ? AND capability = ? AND principal_type = ? AND group_name IN ?",
			eventID, c, models.PrincipalGroup, groups).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// RevokeUser removes the listed per-user grants and returns how many existed.
func (r *GrantRepository) RevokeUser(ctx context.Context, eventID, userID uint, caps ...models.Capability) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("event_id = ? AND principal_type = ? AND user_id = ? AND capability IN ?",
			eventID, models.PrincipalUser, userID, caps).
		Delete(&models.PermissionGrant{})
	return res.RowsAffected, res.Error
}

// ReplaceGroupGrants drops every group grant on the event and writes grants in its place.
func (r *GrantRepository) ReplaceGroupGrants(ctx context.Context, eventID uint, grants map[models.Role][]models.Capability) error {
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND principal_type = ?", eventID, models.PrincipalGroup).
		Delete(&models.PermissionGrant{}).Error; err != nil {
		return err
	}
	for _, group := range models.AllRoles {
		if err := r.GrantGroup(ctx, eventID, group, grants[group]...); err != nil {
			return err
		}
	}
	return nil
}

// UsersWithCapability lists users holding a per-user grant of c on the event.
func (r *GrantRepository) UsersWithCapability(ctx context.Context, eventID uint, c models.Capability) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Preload("Roles").
		Where("id IN (?)", r.db.Model(&models.PermissionGrant{}).
			Select("user_id").
			Where("event_id = ? AND capability = ? AND principal_type = ?", eventID, c, models.PrincipalUser)).
		Order("id").
		Find(&users).Error
	return users, err
}

func (r *GrantRepository) ListForEvent(ctx context.Context, eventID uint) ([]models.PermissionGrant, error) {
	var grants []models.PermissionGrant
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Order("id").Find(&grants).Error
	return grants, err
}
