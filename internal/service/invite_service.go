package service

import (
	"context"
	"time"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/repository"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/sefazor/keepevents-backend/pkg/dberrors"
	"github.com/sefazor/keepevents-backend/pkg/email"
	"github.com/sefazor/keepevents-backend/pkg/qrcode"
	"github.com/sefazor/keepevents-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const inviteTokenBytes = 32

type InviteService struct {
	tx      *repository.Transactor
	invites *repository.InviteRepository
	grants  *repository.GrantRepository
	access  *AccessService
	qr      *qrcode.QRService
	mailer  email.Sender
	logger  *zap.Logger
	now     func() time.Time
}

func NewInviteService(
	tx *repository.Transactor,
	invites *repository.InviteRepository,
	grants *repository.GrantRepository,
	access *AccessService,
	qr *qrcode.QRService,
	mailer email.Sender,
	logger *zap.Logger,
) *InviteService {
	return &InviteService{
		tx:      tx,
		invites: invites,
		grants:  grants,
		access:  access,
		qr:      qr,
		mailer:  mailer,
		logger:  logger.Named("invites"),
		now:     time.Now,
	}
}

// CreateInvite mints a single-use token for the event. The actor needs invite.
func (s *InviteService) CreateInvite(ctx context.Context, actor *models.User, eventID uint, req models.CreateInviteRequest) (*models.InviteResponse, error) {
	if !req.Role.Valid() {
		return nil, apperrors.NewValidation("role must be viewer or editor")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, apperrors.NewValidation("expires_at must be in the future")
	}

	event, err := s.access.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, actor, models.CapInvite, event); err != nil {
		return nil, err
	}

	token, err := utils.GenerateToken(inviteTokenBytes)
	if err != nil {
		return nil, err
	}
	invite := &models.EventInvite{
		Token:       token,
		EventID:     event.ID,
		Role:        req.Role,
		ExpiresAt:   req.ExpiresAt,
		IsActive:    true,
		CreatedByID: &actor.ID,
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, err
	}

	link := s.qr.InviteLink(token)
	if req.Email != "" {
		if err := s.mailer.SendInvite(ctx, req.Email, event.Name, link); err != nil {
			s.logger.Warn("invite email not delivered", zap.Uint("event_id", event.ID), zap.Error(err))
		}
	}

	s.logger.Info("invite created", zap.Uint("event_id", event.ID), zap.String("role", string(req.Role)))
	return &models.InviteResponse{
		Token:     token,
		Link:      link,
		EventID:   event.ID,
		Role:      invite.Role,
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

// InviteQRCode renders the invite link as a PNG. The actor needs invite on the event.
func (s *InviteService) InviteQRCode(ctx context.Context, actor *models.User, token string, size int) ([]byte, error) {
	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		return nil, notFound(err, "invite not found")
	}
	if err := s.access.Authorize(ctx, actor, models.CapInvite, invite.Event); err != nil {
		return nil, err
	}
	return s.qr.GenerateQRCode(token, size)
}

// ListInvites returns the event's unredeemed invites. The actor needs invite.
// Expired invites are included; they simply fail on redeem.
func (s *InviteService) ListInvites(ctx context.Context, actor *models.User, eventID uint) ([]models.EventInvite, error) {
	event, err := s.access.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, actor, models.CapInvite, event); err != nil {
		return nil, err
	}
	return s.invites.ListActive(ctx, event.ID)
}

// Redeem turns an active, unexpired invite into grants for user, exactly once.
// A used invite reports AlreadyUsed even if it has also expired since.
func (s *InviteService) Redeem(ctx context.Context, user *models.User, token string) (*models.RedeemInviteResponse, error) {
	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		if dberrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("invite not found")
		}
		return nil, err
	}
	if !invite.IsActive {
		return nil, apperrors.NewAlreadyUsed("invite already used")
	}
	now := s.now()
	if invite.Expired(now) {
		return nil, apperrors.NewExpired("invite expired")
	}

	caps := invite.Role.Capabilities()
	err = s.tx.Do(ctx, func(tx *gorm.DB) error {
		won, err := s.invites.WithTx(tx).Redeem(ctx, invite.ID, user.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return apperrors.NewAlreadyUsed("invite already used")
		}
		return s.grants.WithTx(tx).GrantUser(ctx, invite.EventID, user.ID, caps...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invite redeemed", zap.Uint("event_id", invite.EventID), zap.Uint("user_id", user.ID))
	return &models.RedeemInviteResponse{
		EventID:      invite.EventID,
		Role:         invite.Role,
		Capabilities: caps,
	}, nil
}
