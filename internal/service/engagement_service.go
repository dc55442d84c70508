package service

import (
	"context"
	"strings"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/repository"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"go.uber.org/zap"
)

// EngagementService gates likes, comments, views and downloads behind view on the photo.
type EngagementService struct {
	engagement *repository.EngagementRepository
	photos     *repository.PhotoRepository
	access     *AccessService
	logger     *zap.Logger
}

func NewEngagementService(
	engagement *repository.EngagementRepository,
	photos *repository.PhotoRepository,
	access *AccessService,
	logger *zap.Logger,
) *EngagementService {
	return &EngagementService{
		engagement: engagement,
		photos:     photos,
		access:     access,
		logger:     logger.Named("engagement"),
	}
}

func (s *EngagementService) ToggleLike(ctx context.Context, user *models.User, photoID uint) (*models.ToggleLikeResponse, error) {
	if err := s.authorizeView(ctx, user, photoID); err != nil {
		return nil, err
	}
	liked, count, err := s.engagement.ToggleLike(ctx, photoID, user.ID)
	if err != nil {
		return nil, err
	}
	return &models.ToggleLikeResponse{Liked: liked, LikeCount: count}, nil
}

func (s *EngagementService) ListLikes(ctx context.Context, user *models.User, photoID uint) ([]models.Like, error) {
	if err := s.authorizeView(ctx, user, photoID); err != nil {
		return nil, err
	}
	return s.engagement.ListLikes(ctx, photoID)
}

func (s *EngagementService) AddComment(ctx context.Context, user *models.User, photoID uint, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidation("comment cannot be empty")
	}
	if err := s.authorizeView(ctx, user, photoID); err != nil {
		return nil, err
	}
	comment := &models.Comment{PhotoID: photoID, UserID: user.ID, Body: body}
	if err := s.engagement.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	comment.User = user
	return comment, nil
}

func (s *EngagementService) ListComments(ctx context.Context, user *models.User, photoID uint) ([]models.Comment, error) {
	if err := s.authorizeView(ctx, user, photoID); err != nil {
		return nil, err
	}
	return s.engagement.ListComments(ctx, photoID)
}

// RecordView counts the first view per user only.
func (s *EngagementService) RecordView(ctx context.Context, user *models.User, photoID uint) (*models.PhotoCounters, error) {
	if err := s.authorizeView(ctx, user, photoID); err != nil {
		return nil, err
	}
	if _, err := s.engagement.RecordView(ctx, photoID, user.ID); err != nil {
		return nil, err
	}
	return s.engagement.Counters(ctx, photoID)
}

// RecordDownload counts the first download per user and variant. The label must
// be one of the photo's variants; empty means the original.
func (s *EngagementService) RecordDownload(ctx context.Context, user *models.User, photoID uint, versionLabel string) (*models.PhotoCounters, error) {
	photo, err := s.viewablePhoto(ctx, user, photoID)
	if err != nil {
		return nil, err
	}
	versionLabel = strings.TrimSpace(versionLabel)
	if versionLabel == "" {
		versionLabel = models.VariantOriginal
	}
	if !photo.HasVariant(versionLabel) {
		return nil, apperrors.NewValidation("unknown version label").WithDetails(map[string]interface{}{
			"version_label": []string{"Not a variant of this photo."},
		})
	}
	if _, err := s.engagement.RecordDownload(ctx, photoID, user.ID, versionLabel); err != nil {
		return nil, err
	}
	return s.engagement.Counters(ctx, photoID)
}

// ReconcileCounters rebuilds a photo's counters from its child rows. Admins only.
func (s *EngagementService) ReconcileCounters(ctx context.Context, user *models.User, photoID uint) (*models.PhotoCounters, error) {
	if !user.IsAdmin() {
		return nil, apperrors.NewForbidden("admin only")
	}
	counters, err := s.engagement.ReconcileCounters(ctx, photoID)
	if err != nil {
		return nil, notFound(err, "photo not found")
	}
	s.logger.Info("counters reconciled", zap.Uint("photo_id", photoID))
	return counters, nil
}

func (s *EngagementService) authorizeView(ctx context.Context, user *models.User, photoID uint) error {
	_, err := s.viewablePhoto(ctx, user, photoID)
	return err
}

func (s *EngagementService) viewablePhoto(ctx context.Context, user *models.User, photoID uint) (*models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, notFound(err, "photo not found")
	}
	if err := s.access.AuthorizePhoto(ctx, user, models.CapView, photo); err != nil {
		return nil, err
	}
	return photo, nil
}
