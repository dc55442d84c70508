package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/repository"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/sefazor/keepevents-backend/pkg/bcrypt"
	"github.com/sefazor/keepevents-backend/pkg/dberrors"
	"github.com/sefazor/keepevents-backend/pkg/email"
	jwtPkg "github.com/sefazor/keepevents-backend/pkg/jwt"
	"github.com/sefazor/keepevents-backend/pkg/oauth"
	"github.com/sefazor/keepevents-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	OTPLength   = 6
	OTPValidity = 5 * time.Minute
	stateTTL    = 10 * time.Minute
)

type AuthService struct {
	tx       *repository.Transactor
	users    *repository.UserRepository
	otps     *repository.OTPRepository
	sessions *repository.SessionRepository
	tokens   *jwtPkg.Manager
	mailer   email.Sender
	provider oauth.Provider
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(
	tx *repository.Transactor,
	users *repository.UserRepository,
	otps *repository.OTPRepository,
	sessions *repository.SessionRepository,
	tokens *jwtPkg.Manager,
	mailer email.Sender,
	provider oauth.Provider,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		tx:       tx,
		users:    users,
		otps:     otps,
		sessions: sessions,
		tokens:   tokens,
		mailer:   mailer,
		provider: provider,
		logger:   logger.Named("auth"),
		now:      time.Now,
	}
}

// Register creates an inactive account and mails an OTP.
//
// If the username or email belongs to any active account the call fails with a
// conflict. If every clashing account is inactive, the email holder's password is
// replaced and a new OTP is issued, yet the caller still gets a validation error
// carrying the clashing fields and is_active=false.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := bcrypt.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.FindConflicts(ctx, username, emailAddr)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, s.registrationConflict(ctx, existing, username, emailAddr, hash)
	}

	user := &models.User{
		Username: username,
		Email:    emailAddr,
		Password: hash,
		FullName: req.FullName,
		IsActive: false,
		Roles:    []models.UserRole{{Role: models.RolePublic}},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("username or email already taken")
		}
		return nil, err
	}

	if err := s.issueOTP(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.Uint("user_id", user.ID))
	return user, nil
}

func (s *AuthService) registrationConflict(ctx context.Context, existing []models.User, username, emailAddr, hash string) error {
	details := map[string]interface{}{}
	active := false
	target := &existing[0]
	for i := range existing {
		u := &existing[i]
		if strings.EqualFold(u.Username, username) {
			details["username"] = []string{"User with this username already exists."}
		}
		if strings.EqualFold(u.Email, emailAddr) {
			details["email"] = []string{"User with this email already exists."}
			// OTPs are verified by email, so the email holder is the one to re-arm.
			target = u
		}
		active = active || u.IsActive
	}
	details["is_active"] = active

	if active {
		return apperrors.NewConflict("username or email already taken").WithDetails(details)
	}

	if err := s.users.SetPassword(ctx, target.ID, hash); err != nil {
		return err
	}
	if err := s.issueOTP(ctx, target); err != nil {
		return err
	}
	s.logger.Info("inactive account re-registered", zap.Uint("user_id", target.ID))
	return apperrors.NewValidation("account exists but is not verified").WithDetails(details)
}

// RequestOTP issues a fresh code for the account registered under emailAddr.
func (s *AuthService) RequestOTP(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(emailAddr))
	if err != nil {
		return notFound(err, "user not found")
	}
	return s.issueOTP(ctx, user)
}

// issueOTP invalidates every unused code of the user, stores a new one and mails it.
// Mail delivery failures are logged and swallowed.
func (s *AuthService) issueOTP(ctx context.Context, user *models.User) error {
	code, err := utils.GenerateNumericCode(OTPLength)
	if err != nil {
		return err
	}
	now := s.now()
	err = s.tx.Do(ctx, func(tx *gorm.DB) error {
		otps := s.otps.WithTx(tx)
		if _, err := otps.InvalidateUnused(ctx, user.ID); err != nil {
			return err
		}
		return otps.Create(ctx, &models.EmailOTP{
			UserID:    user.ID,
			Code:      code,
			CreatedAt: now,
			ExpiresAt: now.Add(OTPValidity),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, user.Email, code); err != nil {
		s.logger.Warn("otp email not delivered", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// VerifyOTP redeems a code, activates the account and signs the user in.
func (s *AuthService) VerifyOTP(ctx context.Context, emailAddr, code string) (*models.AuthResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.NewValidation("otp code is required")
	}
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(emailAddr))
	if err != nil {
		return nil, notFound(err, "user not found")
	}

	otp, err := s.otps.FindLatest(ctx, user.ID, code)
	if err != nil {
		if dberrors.IsNotFound(err) {
			return nil, apperrors.NewValidation("invalid otp")
		}
		return nil, err
	}
	if otp.Used {
		return nil, apperrors.NewAlreadyUsed("otp already used")
	}
	if !s.now().Before(otp.ExpiresAt) {
		return nil, apperrors.NewExpired("otp expired")
	}

	err = s.tx.Do(ctx, func(tx *gorm.DB) error {
		won, err := s.otps.WithTx(tx).MarkUsed(ctx, otp.ID)
		if err != nil {
			return err
		}
		if !won {
			return apperrors.NewAlreadyUsed("otp already used")
		}
		return s.users.WithTx(tx).Activate(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}
	user.IsActive = true

	return s.signIn(ctx, user)
}

// Authenticate checks a username or email plus password.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*models.AuthResponse, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	if err := bcrypt.ComparePassword(user.Password, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatch) {
			return nil, apperrors.NewInvalidCredential("invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.NewUnverified("email not verified")
	}
	return s.signIn(ctx, user)
}

// Refresh rotates a refresh token: the old session is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	session, err := s.sessions.GetByRefreshHash(ctx, jwtPkg.HashRefreshToken(refreshToken))
	if err != nil {
		if dberrors.IsNotFound(err) {
			return nil, apperrors.NewInvalidCredential("invalid refresh token")
		}
		return nil, err
	}
	now := s.now()
	if session.RevokedAt != nil {
		return nil, apperrors.NewAlreadyUsed("refresh token already used")
	}
	if !now.Before(session.ExpiresAt) {
		return nil, apperrors.NewExpired("refresh token expired")
	}

	won, err := s.sessions.Revoke(ctx, session.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperrors.NewAlreadyUsed("refresh token already used")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	if !user.IsActive {
		return nil, apperrors.NewUnverified("email not verified")
	}
	return s.signIn(ctx, user)
}

// Logout revokes the session behind the caller's tokens.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	_, err := s.sessions.Revoke(ctx, sessionID, s.now())
	return err
}

// ResolveAccessToken validates an access token and loads its still-active user and session.
func (s *AuthService) ResolveAccessToken(ctx context.Context, token string) (*models.User, *jwtPkg.Claims, error) {
	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		if errors.Is(err, jwtPkg.ErrExpiredToken) {
			return nil, nil, apperrors.NewExpired("token expired")
		}
		return nil, nil, apperrors.NewInvalidCredential("invalid token")
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if dberrors.IsNotFound(err) {
			return nil, nil, apperrors.NewInvalidCredential("session not found")
		}
		return nil, nil, err
	}
	if !session.Active(s.now()) || session.UserID != claims.UserID {
		return nil, nil, apperrors.NewInvalidCredential("session revoked")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if dberrors.IsNotFound(err) {
			return nil, nil, apperrors.NewInvalidCredential("user not found")
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, apperrors.NewUnverified("email not verified")
	}
	return user, claims, nil
}

// OAuthLoginURL returns the provider authorisation URL carrying a signed state.
func (s *AuthService) OAuthLoginURL() (string, error) {
	if s.provider == nil {
		return "", apperrors.NewNotFound("oauth login is not configured")
	}
	state, err := s.tokens.GenerateState(stateTTL)
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

// OAuthCallback exchanges code, then gets or creates the local account by email.
// Provider accounts skip OTP: new and inactive accounts are activated here.
func (s *AuthService) OAuthCallback(ctx context.Context, code, state string) (*models.AuthResponse, error) {
	if s.provider == nil {
		return nil, apperrors.NewNotFound("oauth login is not configured")
	}
	if code == "" {
		return nil, apperrors.NewValidation("authorization code missing")
	}
	if err := s.tokens.ValidateState(state); err != nil {
		return nil, apperrors.NewValidation("invalid oauth state")
	}

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("oauth exchange failed", zap.Error(err))
		return nil, apperrors.NewInvalidCredential("oauth exchange failed")
	}

	user, err := s.upsertProviderUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, user)
}

func (s *AuthService) upsertProviderUser(ctx context.Context, p *models.ProviderProfile) (*models.User, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(p.Email))
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		if !user.IsActive {
			if err := s.users.Activate(ctx, user.ID); err != nil {
				return nil, err
			}
			user.IsActive = true
		}
		return user, nil
	}
	if !dberrors.IsNotFound(err) {
		return nil, err
	}

	// Provider accounts never sign in with a password; store an unguessable one.
	secret, err := utils.GenerateToken(32)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.HashPassword(secret)
	if err != nil {
		return nil, err
	}
	user = &models.User{
		Username:     emailAddr,
		Email:        emailAddr,
		Password:     hash,
		FullName:     p.FullName,
		ShortName:    p.ShortName,
		EnrollmentNo: p.EnrollmentNo,
		IsActive:     true,
		Roles:        []models.UserRole{{Role: models.RolePublic}},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("username already taken")
		}
		return nil, err
	}
	s.logger.Info("provider account created", zap.Uint("user_id", user.ID))
	return user, nil
}

func (s *AuthService) signIn(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	pair, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}
	return &models.AuthResponse{Tokens: *pair, User: user.ToResponse()}, nil
}

func (s *AuthService) issueSession(ctx context.Context, userID uint) (*models.TokenPair, error) {
	refresh, hash, err := jwtPkg.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	session := &models.Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		RefreshTokenHash: hash,
		ExpiresAt:        now.Add(s.tokens.RefreshTTL()),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	access, accessExp, err := s.tokens.GenerateAccessToken(userID, session.ID)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: session.ExpiresAt,
		SessionID:        session.ID,
	}, nil
}
