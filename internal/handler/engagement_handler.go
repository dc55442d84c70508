package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/keepevents-backend/internal/middleware"
	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/service"
	"github.com/sefazor/keepevents-backend/pkg/utils"
	"go.uber.org/zap"
)

type EngagementHandler struct {
	engagementService *service.EngagementService
	validator         *utils.Validator
	logger            *zap.Logger
}

func NewEngagementHandler(engagementService *service.EngagementService, validator *utils.Validator, logger *zap.Logger) *EngagementHandler {
	return &EngagementHandler{
		engagementService: engagementService,
		validator:         validator,
		logger:            logger,
	}
}

func (h *EngagementHandler) ToggleLike(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	resp, err := h.engagementService.ToggleLike(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(resp, ""))
}

func (h *EngagementHandler) ListLikes(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	likes, err := h.engagementService.ListLikes(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(likes, ""))
}

func (h *EngagementHandler) AddComment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req models.CommentRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	comment, err := h.engagementService.AddComment(c.UserContext(), middleware.CurrentUser(c), id, req.Comment)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.SuccessResponse(comment, "Comment added"))
}

func (h *EngagementHandler) ListComments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	comments, err := h.engagementService.ListComments(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(comments, ""))
}

func (h *EngagementHandler) RecordView(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	counters, err := h.engagementService.RecordView(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(counters, ""))
}

func (h *EngagementHandler) RecordDownload(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req models.DownloadRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, h.validator, &req); err != nil {
			return respondError(c, h.logger, err)
		}
	}
	counters, err := h.engagementService.RecordDownload(c.UserContext(), middleware.CurrentUser(c), id, req.VersionLabel)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(counters, ""))
}

func (h *EngagementHandler) ReconcileCounters(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	counters, err := h.engagementService.ReconcileCounters(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(counters, "Counters reconciled"))
}
