package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/repository"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/sefazor/keepevents-backend/pkg/utils"
	"go.uber.org/zap"
)

// errorStatuses maps service error kinds to HTTP statuses, checked in order.
var errorStatuses = []struct {
	kind   error
	status int
}{
	{apperrors.ErrValidation, fiber.StatusBadRequest},
	{apperrors.ErrConflict, fiber.StatusConflict},
	{apperrors.ErrAlreadyUsed, fiber.StatusConflict},
	{apperrors.ErrNotFound, fiber.StatusNotFound},
	{apperrors.ErrInvalidCredential, fiber.StatusUnauthorized},
	{apperrors.ErrUnverified, fiber.StatusForbidden},
	{apperrors.ErrForbidden, fiber.StatusForbidden},
	{apperrors.ErrExpired, fiber.StatusGone},
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.kind) {
			return e.status
		}
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(status).JSON(models.ErrorResponse("Internal server error"))
	}
	if details := apperrors.DetailsOf(err); details != nil {
		return c.Status(status).JSON(models.ErrorResponseWithDetails(err.Error(), details))
	}
	return c.Status(status).JSON(models.ErrorResponse(err.Error()))
}

// parseBody decodes the request body into req and runs struct validation.
func parseBody(c *fiber.Ctx, v *utils.Validator, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidation("Invalid request body")
	}
	if err := v.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidation(err.Error())
	}
	details := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		details[field] = []string{"failed on " + fe.Tag()}
	}
	return apperrors.NewValidation("Invalid request").WithDetails(details)
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidation("Invalid " + name)
	}
	return uint(id), nil
}

func queryID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, apperrors.NewValidation("Invalid " + name)
	}
	return uint(id), nil
}

func pageParams(c *fiber.Ctx) (limit, offset int) {
	return c.QueryInt("limit", 0), c.QueryInt("offset", 0)
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func page(results interface{}, total int64, limit, offset int) models.Page {
	limit, offset = repository.PageBounds(limit, offset)
	return models.Page{Count: total, Limit: limit, Offset: offset, Results: results}
}
