package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/keepevents-backend/internal/middleware"
	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/service"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/sefazor/keepevents-backend/pkg/utils"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type EventHandler struct {
	eventService  *service.EventService
	inviteService *service.InviteService
	validator     *utils.Validator
	logger        *zap.Logger
}

func NewEventHandler(
	eventService *service.EventService,
	inviteService *service.InviteService,
	validator *utils.Validator,
	logger *zap.Logger,
) *EventHandler {
	return &EventHandler{
		eventService:  eventService,
		inviteService: inviteService,
		validator:     validator,
		logger:        logger,
	}
}

func (h *EventHandler) CreateEvent(c *fiber.Ctx) error {
	var req models.EventRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	event, err := h.eventService.CreateEvent(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.SuccessResponse(event.ToResponse(), "Event created successfully"))
}

// ListEvents supports search, location (comma separated), date_from, date_to,
// ordering, limit and offset.
func (h *EventHandler) ListEvents(c *fiber.Ctx) error {
	f := models.EventFilter{
		Search:    c.Query("search"),
		Locations: splitList(c.Query("location")),
		Ordering:  c.Query("ordering"),
	}
	f.Limit, f.Offset = pageParams(c)

	var err error
	if f.DateFrom, err = queryDate(c, "date_from"); err != nil {
		return respondError(c, h.logger, err)
	}
	if f.DateTo, err = queryDate(c, "date_to"); err != nil {
		return respondError(c, h.logger, err)
	}
	if f.DateTo != nil {
		// inclusive of the whole day
		end := f.DateTo.Add(24*time.Hour - time.Nanosecond)
		f.DateTo = &end
	}

	events, total, err := h.eventService.ListEvents(c.UserContext(), middleware.CurrentUser(c), f)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	out := make([]models.EventResponse, 0, len(events))
	for i := range events {
		out = append(out, events[i].ToResponse())
	}
	return c.JSON(models.SuccessResponse(page(out, total, f.Limit, f.Offset), ""))
}

func (h *EventHandler) GetEvent(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	event, err := h.eventService.GetEvent(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(event.ToResponse(), ""))
}

func (h *EventHandler) UpdateEvent(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req models.UpdateEventRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	event, err := h.eventService.UpdateEvent(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(event.ToResponse(), "Event updated successfully"))
}

func (h *EventHandler) DeleteEvent(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.eventService.DeleteEvent(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(nil, "Event successfully deleted"))
}

func (h *EventHandler) SetCover(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	inputs, err := readUploads(c, "cover")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	event, err := h.eventService.SetCover(c.UserContext(), middleware.CurrentUser(c), id, inputs[0])
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(event.ToResponse(), "Cover updated"))
}

func (h *EventHandler) Viewers(c *fiber.Ctx) error {
	return h.listMembers(c, h.eventService.Viewers)
}

func (h *EventHandler) Editors(c *fiber.Ctx) error {
	return h.listMembers(c, h.eventService.Editors)
}

func (h *EventHandler) listMembers(c *fiber.Ctx, list func(ctx context.Context, user *models.User, eventID uint) ([]models.User, error)) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	users, err := list(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	out := make([]models.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return c.JSON(models.SuccessResponse(out, ""))
}

func (h *EventHandler) RemoveViewer(c *fiber.Ctx) error {
	return h.removeMember(c, h.eventService.RemoveViewer, "Viewer removed")
}

func (h *EventHandler) RemoveEditor(c *fiber.Ctx) error {
	return h.removeMember(c, h.eventService.RemoveEditor, "Editor removed")
}

func (h *EventHandler) removeMember(c *fiber.Ctx, remove func(ctx context.Context, user *models.User, eventID, targetID uint) error, msg string) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := remove(c.UserContext(), middleware.CurrentUser(c), id, userID); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(nil, msg))
}

func (h *EventHandler) CreateInvite(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req models.CreateInviteRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	invite, err := h.inviteService.CreateInvite(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.SuccessResponse(invite, "Invite created"))
}

func (h *EventHandler) ListInvites(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	invites, err := h.inviteService.ListInvites(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(invites, ""))
}

// InviteQRCode streams the invite link as a PNG. ?size= sets the edge in pixels.
func (h *EventHandler) InviteQRCode(c *fiber.Ctx) error {
	png, err := h.inviteService.InviteQRCode(c.UserContext(), middleware.CurrentUser(c), c.Params("token"), c.QueryInt("size", 0))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

func (h *EventHandler) RedeemInvite(c *fiber.Ctx) error {
	resp, err := h.inviteService.Redeem(c.UserContext(), middleware.CurrentUser(c), c.Params("token"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(resp, "Invite accepted"))
}

func queryDate(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, apperrors.NewValidation(name + " must be YYYY-MM-DD")
	}
	return &t, nil
}
