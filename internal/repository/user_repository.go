package repository

import (
	"context"
	"strings"
	"time"

	"github.com/sefazor/keepevents-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Create inserts the user together with any roles already attached.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Roles").
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIdentifier matches a username or an email, case-insensitively.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	id := strings.ToLower(strings.TrimSpace(identifier))
	var user models.User
	err := r.db.WithContext(ctx).Preload("Roles").
		Where("LOWER(username) = ? OR LOWER(email) = ?", id, id).
		Order("id").
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindConflicts returns every account holding username or email.
func (r *UserRepository) FindConflicts(ctx context.Context, username, email string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ? OR LOWER(email) = ?", strings.ToLower(username), strings.ToLower(email)).
		Order("id").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Preload("Roles").Where("id IN ?", ids).Order("id").Find(&users).Error
	return users, err
}

// UpdateFields writes only the given columns.
func (r *UserRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepository) SetPassword(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash).Error
}

func (r *UserRepository) Activate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", true).Error
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login", at).Error
}

// AddRole is idempotent.
func (r *UserRepository) AddRole(ctx context.Context, userID uint, role models.Role) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, Role: role}).Error
}

// SetRoles replaces the user's role set.
func (r *UserRepository) SetRoles(ctx context.Context, userID uint, roles []models.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		seen := make(map[models.Role]bool, len(roles))
		for _, role := range roles {
			if seen[role] {
				continue
			}
			seen[role] = true
			if err := tx.Create(&models.UserRole{UserID: userID, Role: role}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// OTPRepository stores email verification codes.
type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

func (r *OTPRepository) WithTx(tx *gorm.DB) *OTPRepository {
	return &OTPRepository{db: tx}
}

// InvalidateUnused marks every unused code of the user as used.
func (r *OTPRepository) InvalidateUnused(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.EmailOTP{}).
		Where("user_id = ? AND used = ?", userID, false).
		Update("used", true)
	return res.RowsAffected, res.Error
}

func (r *OTPRepository) Create(ctx context.Context, otp *models.EmailOTP) error {
	return r.db.WithContext(ctx).Create(otp).Error
}

// FindLatest returns the newest code row for (user, code), used or not.
func (r *OTPRepository) FindLatest(ctx context.Context, userID uint, code string) (*models.EmailOTP, error) {
	var otp models.EmailOTP
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND code = ?", userID, code).
		Order("created_at DESC, id DESC").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// MarkUsed flips used false->true and reports whether this call won.
func (r *OTPRepository) MarkUsed(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.EmailOTP{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	return res.RowsAffected == 1, res.Error
}

// SessionRepository stores refresh sessions.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) GetByRefreshHash(ctx context.Context, hash string) (*models.Session, error) {
	var s models.Session
	if err := r.db.WithContext(ctx).Where("refresh_token_hash = ?", hash).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Revoke marks the session revoked once; a second call reports false.
func (r *SessionRepository) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	return res.RowsAffected == 1, res.Error
}

func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}
