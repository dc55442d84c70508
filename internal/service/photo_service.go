package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/repository"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/sefazor/keepevents-backend/pkg/storage"
	"github.com/sefazor/keepevents-backend/pkg/tagging"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// MaxPhotoSize is the largest accepted upload.
const MaxPhotoSize = 20 << 20

type PhotoService struct {
	photos *repository.PhotoRepository
	access *AccessService
	store  storage.FileStore
	images storage.ImageVariants
	tagger tagging.Tagger
	logger *zap.Logger
	now    func() time.Time
}

// NewPhotoService accepts a nil tagger; photos then keep only the tags they were uploaded with.
// A nil images backend leaves photos with just the original variant.
func NewPhotoService(
	photos *repository.PhotoRepository,
	access *AccessService,
	store storage.FileStore,
	images storage.ImageVariants,
	tagger tagging.Tagger,
	logger *zap.Logger,
) *PhotoService {
	return &PhotoService{
		photos: photos,
		access: access,
		store:  store,
		images: images,
		tagger: tagger,
		logger: logger.Named("photos"),
		now:    time.Now,
	}
}

// UploadPhoto stores one photo in the event. The uploader needs change on the event.
func (s *PhotoService) UploadPhoto(ctx context.Context, user *models.User, eventID uint, in models.UploadPhotoInput) (*models.PhotoResponse, error) {
	event, err := s.access.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, user, models.CapChange, event); err != nil {
		return nil, err
	}
	photo, err := s.storePhoto(ctx, user, event, in)
	if err != nil {
		return nil, err
	}
	return &models.PhotoResponse{Photo: *photo}, nil
}

// BulkUpload authorizes once, then stores every item independently. Item
// failures are reported in the result and never roll back other items.
func (s *PhotoService) BulkUpload(ctx context.Context, user *models.User, eventID uint, items []models.UploadPhotoInput) ([]models.PhotoUploadResult, error) {
	if len(items) == 0 {
		return nil, apperrors.NewValidation("no files uploaded")
	}
	event, err := s.access.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, user, models.CapChange, event); err != nil {
		return nil, err
	}

	results := make([]models.PhotoUploadResult, len(items))
	for i, in := range items {
		results[i] = models.PhotoUploadResult{Index: i, FileName: in.FileName}
		photo, err := s.storePhoto(ctx, user, event, in)
		if err != nil {
			results[i].Error = err.Error()
			s.logger.Warn("bulk item failed", zap.Uint("event_id", eventID), zap.Int("index", i), zap.Error(err))
			continue
		}
		results[i].Photo = &models.PhotoResponse{Photo: *photo}
	}
	return results, nil
}

func (s *PhotoService) storePhoto(ctx context.Context, user *models.User, event *models.Event, in models.UploadPhotoInput) (*models.Photo, error) {
	if in.ReadErr != nil {
		return nil, in.ReadErr
	}
	if len(in.Data) > MaxPhotoSize {
		return nil, apperrors.NewValidation(fmt.Sprintf("file exceeds %d MB", MaxPhotoSize>>20))
	}
	contentType, err := imageContentType(in)
	if err != nil {
		return nil, err
	}

	var meta datatypes.JSON
	if len(in.Meta) > 0 {
		b, err := json.Marshal(in.Meta)
		if err != nil {
			return nil, apperrors.NewValidation("photo metadata must be a JSON object")
		}
		meta = b
	}

	tags := NormalizeTags(in.Tags)
	if len(tags) == 0 {
		tags = s.autoTags(ctx, in)
	}

	key := fmt.Sprintf("events/%d/%s%s", event.ID, uuid.NewString(), strings.ToLower(path.Ext(in.FileName)))
	if err := s.store.Upload(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), contentType); err != nil {
		return nil, err
	}

	imageID, variants := s.uploadVariants(ctx, in)

	photo := &models.Photo{
		EventID:     event.ID,
		UploaderID:  &user.ID,
		Description: in.Description,
		FileKey:     key,
		FileURL:     s.store.PublicURL(key),
		ImageID:     imageID,
		Variants:    variants,
		FileName:    in.FileName,
		FileSize:    int64(len(in.Data)),
		MimeType:    contentType,
		Tags:        datatypes.JSONSlice[string](tags),
		Meta:        meta,
		UploadedAt:  s.now(),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Warn("failed to clean up orphaned file", zap.String("key", key), zap.Error(delErr))
		}
		s.deleteImage(context.WithoutCancel(ctx), imageID)
		return nil, err
	}
	return photo, nil
}

// uploadVariants is best effort: on failure the photo is served from the original only.
func (s *PhotoService) uploadVariants(ctx context.Context, in models.UploadPhotoInput) (string, datatypes.JSONMap) {
	if s.images == nil {
		return "", nil
	}
	id, urls, err := s.images.UploadImage(ctx, in.FileName, in.Data)
	if err != nil {
		s.logger.Warn("image variants failed", zap.String("file", in.FileName), zap.Error(err))
		return "", nil
	}
	variants := make(datatypes.JSONMap, len(urls))
	for name, url := range urls {
		variants[name] = url
	}
	return id, variants
}

func (s *PhotoService) deleteImage(ctx context.Context, imageID string) {
	if s.images == nil || imageID == "" {
		return
	}
	if err := s.images.DeleteImage(ctx, imageID); err != nil {
		s.logger.Warn("failed to delete image variants", zap.String("image_id", imageID), zap.Error(err))
	}
}

// autoTags asks the tagging service; any failure just leaves the photo untagged.
func (s *PhotoService) autoTags(ctx context.Context, in models.UploadPhotoInput) []string {
	if s.tagger == nil {
		return []string{}
	}
	tags, err := s.tagger.Tags(ctx, in.FileName, in.Data)
	if err != nil {
		s.logger.Warn("auto tagging failed", zap.String("file", in.FileName), zap.Error(err))
		return []string{}
	}
	return tags
}

// GetPhoto requires view on the photo. It records nothing.
func (s *PhotoService) GetPhoto(ctx context.Context, user *models.User, photoID uint) (*models.PhotoResponse, error) {
	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizePhoto(ctx, user, models.CapView, photo); err != nil {
		return nil, err
	}
	liked, err := s.photos.LikedBy(ctx, user.ID, []uint{photo.ID})
	if err != nil {
		return nil, err
	}
	return &models.PhotoResponse{Photo: *photo, IsLikedByCurrentUser: liked[photo.ID]}, nil
}

// ListPhotos returns photos from events the user may view.
func (s *PhotoService) ListPhotos(ctx context.Context, user *models.User, f models.PhotoFilter) ([]models.PhotoResponse, int64, error) {
	photos, total, err := s.photos.ListVisible(ctx, user, f)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
	}
	liked, err := s.photos.LikedBy(ctx, user.ID, ids)
	if err != nil {
		return nil, 0, err
	}
	out := make([]models.PhotoResponse, 0, len(photos))
	for _, p := range photos {
		out = append(out, models.PhotoResponse{Photo: p, IsLikedByCurrentUser: liked[p.ID]})
	}
	return out, total, nil
}

// UpdatePhoto edits description and tags. Requires change on the photo.
func (s *PhotoService) UpdatePhoto(ctx context.Context, user *models.User, photoID uint, req models.UpdatePhotoRequest) (*models.PhotoResponse, error) {
	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizePhoto(ctx, user, models.CapChange, photo); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Tags != nil {
		fields["tags"] = datatypes.JSONSlice[string](NormalizeTags(req.Tags))
	}
	if len(fields) > 0 {
		if err := s.photos.UpdateFields(ctx, photoID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetPhoto(ctx, user, photoID)
}

// DeletePhoto is open to the uploader and to anyone holding delete on the event.
func (s *PhotoService) DeletePhoto(ctx context.Context, user *models.User, photoID uint) error {
	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return err
	}
	if err := s.access.AuthorizePhoto(ctx, user, models.CapDelete, photo); err != nil {
		return err
	}
	if err := s.photos.Delete(ctx, photoID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, photo.FileKey); err != nil {
		s.logger.Warn("failed to delete stored file", zap.String("key", photo.FileKey), zap.Error(err))
	}
	s.deleteImage(ctx, photo.ImageID)
	return nil
}

func (s *PhotoService) loadPhoto(ctx context.Context, photoID uint) (*models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, notFound(err, "photo not found")
	}
	return photo, nil
}

// NormalizeTags lowercases, trims, dedupes and sorts user supplied tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
