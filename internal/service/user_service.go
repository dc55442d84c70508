package service

import (
	"context"
	"errors"
	"time"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/repository"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/sefazor/keepevents-backend/pkg/bcrypt"
	"go.uber.org/zap"
)

type UserService struct {
	userRepo *repository.UserRepository
	sessions *repository.SessionRepository
	logger   *zap.Logger
}

func NewUserService(userRepo *repository.UserRepository, sessions *repository.SessionRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		sessions: sessions,
		logger:   logger.Named("users"),
	}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return user, nil
}

// ChangePassword replaces the password and signs the user out everywhere.
func (s *UserService) ChangePassword(ctx context.Context, user *models.User, req models.ChangePasswordRequest) error {
	if err := bcrypt.ComparePassword(user.Password, req.CurrentPassword); err != nil {
		if errors.Is(err, bcrypt.ErrMismatch) {
			return apperrors.NewInvalidCredential("current password is incorrect")
		}
		return err
	}

	hashedPassword, err := bcrypt.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.SetPassword(ctx, user.ID, hashedPassword); err != nil {
		return err
	}
	return s.sessions.RevokeAllForUser(ctx, user.ID, time.Now())
}

func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, req models.UpdateProfileRequest) (*models.User, error) {
	fields := map[string]interface{}{}
	if req.FullName != nil {
		fields["full_name"] = *req.FullName
	}
	if req.Bio != nil {
		fields["bio"] = *req.Bio
	}
	if req.Dept != nil {
		fields["dept"] = *req.Dept
	}
	if req.Batch != nil {
		fields["batch"] = *req.Batch
	}
	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetUserByID(ctx, user.ID)
}

// SetRoles replaces target's group memberships. Admins only.
func (s *UserService) SetRoles(ctx context.Context, actor *models.User, targetID uint, roles []models.Role) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin only")
	}
	for _, r := range roles {
		if !r.Valid() {
			return nil, apperrors.NewValidation("unknown group " + string(r))
		}
	}
	if _, err := s.GetUserByID(ctx, targetID); err != nil {
		return nil, err
	}
	if err := s.userRepo.SetRoles(ctx, targetID, roles); err != nil {
		return nil, err
	}
	s.logger.Info("roles updated", zap.Uint("actor_id", actor.ID), zap.Uint("user_id", targetID))
	return s.GetUserByID(ctx, targetID)
}
