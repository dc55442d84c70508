package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/keepevents-backend/internal/middleware"
	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/service"
	"github.com/sefazor/keepevents-backend/pkg/utils"
	"go.uber.org/zap"
)

type PhotoHandler struct {
	photoService *service.PhotoService
	validator    *utils.Validator
	logger       *zap.Logger
}

func NewPhotoHandler(photoService *service.PhotoService, validator *utils.Validator, logger *zap.Logger) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
		validator:    validator,
		logger:       logger,
	}
}

// UploadEventPhotos accepts one or more "photo" files. A single file returns the
// photo; several return per-item results.
func (h *PhotoHandler) UploadEventPhotos(c *fiber.Ctx) error {
	eventID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	inputs, err := readUploads(c, "photo")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	user := middleware.CurrentUser(c)

	if len(inputs) == 1 {
		photo, err := h.photoService.UploadPhoto(c.UserContext(), user, eventID, inputs[0])
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(models.SuccessResponse(photo, "Photo uploaded successfully"))
	}

	results, err := h.photoService.BulkUpload(c.UserContext(), user, eventID, inputs)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	status := fiber.StatusCreated
	if failed > 0 {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(models.SuccessResponse(results, "Photos processed"))
}

// ListPhotos supports event, uploader, tag, limit and offset.
func (h *PhotoHandler) ListPhotos(c *fiber.Ctx) error {
	var f models.PhotoFilter
	var err error
	if f.EventID, err = queryID(c, "event"); err != nil {
		return respondError(c, h.logger, err)
	}
	if f.UploaderID, err = queryID(c, "uploader"); err != nil {
		return respondError(c, h.logger, err)
	}
	f.Tag = c.Query("tag")
	f.Limit, f.Offset = pageParams(c)

	photos, total, err := h.photoService.ListPhotos(c.UserContext(), middleware.CurrentUser(c), f)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(page(photos, total, f.Limit, f.Offset), ""))
}

func (h *PhotoHandler) GetPhoto(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	photo, err := h.photoService.GetPhoto(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(photo, ""))
}

func (h *PhotoHandler) UpdatePhoto(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req models.UpdatePhotoRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	photo, err := h.photoService.UpdatePhoto(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(photo, "Photo updated successfully"))
}

func (h *PhotoHandler) DeletePhoto(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.photoService.DeletePhoto(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(nil, "Photo deleted successfully"))
}
