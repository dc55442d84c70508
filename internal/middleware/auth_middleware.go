package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	jwtPkg "github.com/sefazor/keepevents-backend/pkg/jwt"
	"go.uber.org/zap"
)

const (
	AccessCookie  = "access"
	RefreshCookie = "refresh"

	localUser   = "user"
	localClaims = "claims"
)

// TokenResolver turns an access token into its user and claims.
type TokenResolver interface {
	ResolveAccessToken(ctx context.Context, token string) (*models.User, *jwtPkg.Claims, error)
}

// AuthMiddleware accepts "Authorization: Bearer <token>" or the access cookie.
func AuthMiddleware(resolver TokenResolver, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("Authentication credentials were not provided"))
		}

		user, claims, err := resolver.ResolveAccessToken(c.UserContext(), token)
		if err != nil {
			switch {
			case apperrors.Is(err, apperrors.ErrInvalidCredential, apperrors.ErrExpired):
				return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
			case apperrors.Is(err, apperrors.ErrUnverified):
				return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse(err.Error()))
			}
			logger.Error("failed to resolve access token", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse("Internal server error"))
		}

		c.Locals(localUser, user)
		c.Locals(localClaims, claims)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		return ""
	}
	return c.Cookies(AccessCookie)
}

// CurrentUser returns the authenticated user. Only valid behind AuthMiddleware.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}

func CurrentClaims(c *fiber.Ctx) *jwtPkg.Claims {
	claims, _ := c.Locals(localClaims).(*jwtPkg.Claims)
	return claims
}
