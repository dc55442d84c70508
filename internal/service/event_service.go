package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/repository"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/sefazor/keepevents-backend/pkg/storage"
	"github.com/sefazor/keepevents-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EventService struct {
	tx     *repository.Transactor
	events *repository.EventRepository
	grants *repository.GrantRepository
	users  *repository.UserRepository
	access *AccessService
	store  storage.FileStore
	images storage.ImageVariants
	logger *zap.Logger
}

func NewEventService(
	tx *repository.Transactor,
	events *repository.EventRepository,
	grants *repository.GrantRepository,
	users *repository.UserRepository,
	access *AccessService,
	store storage.FileStore,
	images storage.ImageVariants,
	logger *zap.Logger,
) *EventService {
	return &EventService{
		tx:     tx,
		events: events,
		grants: grants,
		users:  users,
		access: access,
		store:  store,
		images: images,
		logger: logger.Named("events"),
	}
}

// CreateEvent stores the event owned by user and writes its tier grants plus
// per-user view grants for req.ViewerIDs. Unknown viewer ids are skipped.
func (s *EventService) CreateEvent(ctx context.Context, user *models.User, req models.EventRequest) (*models.Event, error) {
	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, apperrors.NewValidation("invalid visibility")
	}

	event := &models.Event{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Location:    req.Location,
		Visibility:  visibility,
		CreatorID:   &user.ID,
	}

	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		if err := s.events.WithTx(tx).Create(ctx, event); err != nil {
			return err
		}
		grants := s.grants.WithTx(tx)
		if err := grants.ReplaceGroupGrants(ctx, event.ID, TierGrants(visibility)); err != nil {
			return err
		}
		viewers, err := s.users.WithTx(tx).GetByIDs(ctx, req.ViewerIDs)
		if err != nil {
			return err
		}
		for _, v := range viewers {
			if err := grants.GrantUser(ctx, event.ID, v.ID, models.CapView); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event.Creator = user
	s.logger.Info("event created", zap.Uint("event_id", event.ID), zap.String("visibility", string(visibility)))
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, user *models.User, eventID uint) (*models.Event, error) {
	event, err := s.access.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, user, models.CapView, event); err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns only events the user may view.
func (s *EventService) ListEvents(ctx context.Context, user *models.User, f models.EventFilter) ([]models.Event, int64, error) {
	return s.events.ListVisible(ctx, user, f)
}

// UpdateEvent requires change. A visibility change rebuilds the tier grants.
func (s *EventService) UpdateEvent(ctx context.Context, user *models.User, eventID uint, req models.UpdateEventRequest) (*models.Event, error) {
	event, err := s.access.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, user, models.CapChange, event); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apperrors.NewValidation("event name cannot be empty")
		}
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Date != nil {
		fields["date"] = *req.Date
	}
	if req.Time != nil {
		fields["time"] = *req.Time
	}
	if req.Location != nil {
		fields["location"] = *req.Location
	}
	visibilityChanged := false
	if req.Visibility != nil && *req.Visibility != event.Visibility {
		if !req.Visibility.Valid() {
			return nil, apperrors.NewValidation("invalid visibility")
		}
		fields["visibility"] = *req.Visibility
		visibilityChanged = true
	}

	if len(fields) > 0 {
		err = s.tx.Do(ctx, func(tx *gorm.DB) error {
			if err := s.events.WithTx(tx).UpdateFields(ctx, eventID, fields); err != nil {
				return err
			}
			if visibilityChanged {
				return s.grants.WithTx(tx).ReplaceGroupGrants(ctx, eventID, TierGrants(*req.Visibility))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return s.access.LoadEvent(ctx, eventID)
}

// SetCover uploads a cover image for the event. Requires change.
func (s *EventService) SetCover(ctx context.Context, user *models.User, eventID uint, in models.UploadPhotoInput) (*models.Event, error) {
	event, err := s.access.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, user, models.CapChange, event); err != nil {
		return nil, err
	}
	contentType, err := imageContentType(in)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("events/%d/cover/%s%s", eventID, uuid.NewString(), strings.ToLower(path.Ext(in.FileName)))
	if err := s.store.Upload(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), contentType); err != nil {
		return nil, err
	}
	if err := s.events.UpdateFields(ctx, eventID, map[string]interface{}{
		"cover_key": key,
		"cover_url": s.store.PublicURL(key),
	}); err != nil {
		s.removeFiles(ctx, key)
		return nil, err
	}
	s.removeFiles(ctx, event.CoverKey)
	return s.access.LoadEvent(ctx, eventID)
}

// DeleteEvent requires delete. Photos cascade; stored files are removed best effort.
func (s *EventService) DeleteEvent(ctx context.Context, user *models.User, eventID uint) error {
	event, err := s.access.LoadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.access.Authorize(ctx, user, models.CapDelete, event); err != nil {
		return err
	}

	photos, err := s.events.PhotoFiles(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return err
	}
	keys := []string{event.CoverKey}
	for _, p := range photos {
		keys = append(keys, p.FileKey)
		s.removeImage(ctx, p.ImageID)
	}
	s.removeFiles(ctx, keys...)
	s.logger.Info("event deleted", zap.Uint("event_id", eventID), zap.Int("photos", len(photos)))
	return nil
}

// Viewers lists users holding a per-user view grant. Requires view.
func (s *EventService) Viewers(ctx context.Context, user *models.User, eventID uint) ([]models.User, error) {
	return s.usersWith(ctx, user, eventID, models.CapView)
}

// Editors lists users holding a per-user change grant. Requires view.
func (s *EventService) Editors(ctx context.Context, user *models.User, eventID uint) ([]models.User, error) {
	return s.usersWith(ctx, user, eventID, models.CapChange)
}

func (s *EventService) usersWith(ctx context.Context, user *models.User, eventID uint, c models.Capability) ([]models.User, error) {
	if _, err := s.GetEvent(ctx, user, eventID); err != nil {
		return nil, err
	}
	return s.grants.UsersWithCapability(ctx, eventID, c)
}

// RemoveViewer revokes target's per-user view grant. Requires change.
func (s *EventService) RemoveViewer(ctx context.Context, user *models.User, eventID, targetID uint) error {
	return s.revoke(ctx, user, eventID, targetID, "viewer", models.CapView)
}

// RemoveEditor revokes target's per-user change and invite grants. Requires change.
func (s *EventService) RemoveEditor(ctx context.Context, user *models.User, eventID, targetID uint) error {
	return s.revoke(ctx, user, eventID, targetID, "editor", models.CapChange, models.CapInvite)
}

func (s *EventService) revoke(ctx context.Context, user *models.User, eventID, targetID uint, label string, caps ...models.Capability) error {
	event, err := s.access.LoadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.access.Authorize(ctx, user, models.CapChange, event); err != nil {
		return err
	}
	n, err := s.grants.RevokeUser(ctx, eventID, targetID, caps...)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFound("user is not a " + label + " of this event")
	}
	return nil
}

func (s *EventService) removeImage(ctx context.Context, imageID string) {
	if s.images == nil || imageID == "" {
		return
	}
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.images.DeleteImage(delCtx, imageID); err != nil {
		s.logger.Warn("failed to delete image variants", zap.String("image_id", imageID), zap.Error(err))
	}
}

func (s *EventService) removeFiles(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		if err := s.store.Delete(delCtx, key); err != nil {
			s.logger.Warn("failed to delete stored file", zap.String("key", key), zap.Error(err))
		}
		cancel()
	}
}

// imageContentType trusts a declared supported type and otherwise sniffs the bytes.
func imageContentType(in models.UploadPhotoInput) (string, error) {
	if len(in.Data) == 0 {
		return "", apperrors.NewValidation("file is empty")
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(in.ContentType, ";", 2)[0]))
	if !utils.IsSupportedImage(ct) {
		ct = utils.DetectContentType(in.Data)
	}
	if !utils.IsSupportedImage(ct) {
		return "", apperrors.NewValidation("unsupported file type").
			WithDetails(map[string]interface{}{"file": in.FileName, "content_type": ct})
	}
	return ct, nil
}
