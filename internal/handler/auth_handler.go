package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/keepevents-backend/internal/middleware"
	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/service"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/sefazor/keepevents-backend/pkg/captcha"
	"github.com/sefazor/keepevents-backend/pkg/utils"
	"go.uber.org/zap"
)

// CookieConfig controls the session cookies set on sign-in.
type CookieConfig struct {
	Domain string
	Secure bool
}

type AuthHandler struct {
	authService *service.AuthService
	captcha     captcha.Verifier
	validator   *utils.Validator
	cookies     CookieConfig
	frontendURL string
	logger      *zap.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	verifier captcha.Verifier,
	validator *utils.Validator,
	cookies CookieConfig,
	frontendURL string,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		captcha:     verifier,
		validator:   validator,
		cookies:     cookies,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.verifyCaptcha(c, req.CaptchaToken); err != nil {
		return respondError(c, h.logger, err)
	}

	user, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.SuccessResponse(user.ToResponse(), "User registered, check your email for the OTP"))
}

func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req models.RequestOTPRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.verifyCaptcha(c, req.CaptchaToken); err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.authService.RequestOTP(c.UserContext(), req.Email); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(models.SuccessResponse(nil, "OTP sent"))
}

func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req models.VerifyOTPRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	resp, err := h.authService.VerifyOTP(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.setSessionCookies(c, resp.Tokens)
	return c.JSON(models.SuccessResponse(resp, "Email verified"))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	resp, err := h.authService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.setSessionCookies(c, resp.Tokens)
	return c.JSON(models.SuccessResponse(resp, "Login successful"))
}

// Refresh takes the refresh token from the body or, failing that, the refresh cookie.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req models.RefreshRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, h.logger, apperrors.NewValidation("Invalid request body"))
		}
	}
	if req.RefreshToken == "" {
		req.RefreshToken = c.Cookies(middleware.RefreshCookie)
	}
	if req.RefreshToken == "" {
		return respondError(c, h.logger, apperrors.NewValidation("refresh_token is required"))
	}

	resp, err := h.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.setSessionCookies(c, resp.Tokens)
	return c.JSON(models.SuccessResponse(resp, "Token refreshed"))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims := middleware.CurrentClaims(c)
	if err := h.authService.Logout(c.UserContext(), claims.SessionID); err != nil {
		return respondError(c, h.logger, err)
	}
	h.clearSessionCookies(c)
	return c.JSON(models.SuccessResponse(nil, "Logged out"))
}

func (h *AuthHandler) OAuthLogin(c *fiber.Ctx) error {
	loginURL, err := h.authService.OAuthLoginURL()
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Redirect(loginURL, fiber.StatusFound)
}

// OAuthCallback completes the provider login, sets session cookies and sends the
// browser back to the frontend.
func (h *AuthHandler) OAuthCallback(c *fiber.Ctx) error {
	resp, err := h.authService.OAuthCallback(c.UserContext(), c.Query("code"), c.Query("state"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.setSessionCookies(c, resp.Tokens)
	if h.frontendURL == "" {
		return c.JSON(models.SuccessResponse(resp, "Login successful"))
	}
	return c.Redirect(h.frontendURL, fiber.StatusFound)
}

func (h *AuthHandler) verifyCaptcha(c *fiber.Ctx, token string) error {
	if err := h.captcha.Verify(c.UserContext(), token, c.IP()); err != nil {
		h.logger.Info("captcha rejected", zap.String("ip", c.IP()), zap.Error(err))
		return apperrors.NewValidation("captcha verification failed")
	}
	return nil
}

func (h *AuthHandler) setSessionCookies(c *fiber.Ctx, tokens models.TokenPair) {
	c.Cookie(h.cookie(middleware.AccessCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	c.Cookie(h.cookie(middleware.RefreshCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h *AuthHandler) clearSessionCookies(c *fiber.Ctx) {
	past := time.Unix(0, 0)
	c.Cookie(h.cookie(middleware.AccessCookie, "", past))
	c.Cookie(h.cookie(middleware.RefreshCookie, "", past))
}

func (h *AuthHandler) cookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		Expires:  expires,
		Secure:   h.cookies.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
