package service

import (
	"context"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/repository"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
	"github.com/sefazor/keepevents-backend/pkg/dberrors"
)

// AccessService decides whether a user holds a capability on an event or photo.
//
// Resolution order, first match wins:
//  1. staff or superuser
//  2. event owner
//  3. per-user grant
//  4. grant held by one of the user's groups
//  5. view only: the visibility tier (public: anyone signed in, img: IMG Member, admin: Admin)
//
// Photo checks additionally allow the uploader before falling back to the parent event.
type AccessService struct {
	grants *repository.GrantRepository
	events *repository.EventRepository
}

func NewAccessService(grants *repository.GrantRepository, events *repository.EventRepository) *AccessService {
	return &AccessService{grants: grants, events: events}
}

// Can expects user.Roles to be loaded. A nil user holds nothing.
func (s *AccessService) Can(ctx context.Context, user *models.User, c models.Capability, event *models.Event) (bool, error) {
	if user == nil || event == nil {
		return false, nil
	}
	if user.IsPrivileged() {
		return true, nil
	}
	if event.IsOwnedBy(user.ID) {
		return true, nil
	}

	ok, err := s.grants.HasUserGrant(ctx, event.ID, user.ID, c)
	if err != nil || ok {
		return ok, err
	}

	ok, err = s.grants.HasGroupGrant(ctx, event.ID, user.RoleNames(), c)
	if err != nil || ok {
		return ok, err
	}

	if c == models.CapView {
		return tierAllowsView(event.Visibility, user), nil
	}
	return false, nil
}

// CanOnPhoto short-circuits on the uploader and otherwise defers to the parent event.
func (s *AccessService) CanOnPhoto(ctx context.Context, user *models.User, c models.Capability, photo *models.Photo) (bool, error) {
	if user == nil || photo == nil {
		return false, nil
	}
	if photo.IsUploadedBy(user.ID) {
		return true, nil
	}
	event := photo.Event
	if event == nil || event.ID != photo.EventID {
		var err error
		if event, err = s.LoadEvent(ctx, photo.EventID); err != nil {
			return false, err
		}
	}
	return s.Can(ctx, user, c, event)
}

// Authorize is Can returning ErrForbidden on denial.
func (s *AccessService) Authorize(ctx context.Context, user *models.User, c models.Capability, event *models.Event) error {
	ok, err := s.Can(ctx, user, c, event)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewForbidden("you do not have " + string(c) + " permission on this event")
	}
	return nil
}

func (s *AccessService) AuthorizePhoto(ctx context.Context, user *models.User, c models.Capability, photo *models.Photo) error {
	ok, err := s.CanOnPhoto(ctx, user, c, photo)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewForbidden("you do not have " + string(c) + " permission on this photo")
	}
	return nil
}

// LoadEvent fetches an event and maps a missing row to ErrNotFound.
func (s *AccessService) LoadEvent(ctx context.Context, id uint) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "event not found")
	}
	return event, nil
}

func tierAllowsView(v models.Visibility, user *models.User) bool {
	switch v {
	case models.VisibilityPublic:
		return true
	case models.VisibilityIMG:
		return user.HasRole(models.RoleIMGMember)
	case models.VisibilityAdmin:
		return user.HasRole(models.RoleAdmin)
	}
	return false
}

// TierGrants is the group grant set an event of tier v carries. The Admin group
// always manages every event.
func TierGrants(v models.Visibility) map[models.Role][]models.Capability {
	grants := map[models.Role][]models.Capability{
		models.RoleAdmin: {models.CapView, models.CapChange, models.CapDelete},
	}
	switch v {
	case models.VisibilityIMG:
		grants[models.RoleIMGMember] = []models.Capability{models.CapView}
	case models.VisibilityPublic:
		grants[models.RoleIMGMember] = []models.Capability{models.CapView}
		grants[models.RolePublic] = []models.Capability{models.CapView}
	}
	return grants
}

func notFound(err error, msg string) error {
	if dberrors.IsNotFound(err) {
		return apperrors.NewNotFound(msg)
	}
	return err
}
