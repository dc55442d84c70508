package models

import (
	"time"
)

// Visibility is the coarse default-access tier of an event.
type Visibility string

const (
	VisibilityAdmin   Visibility = "admin"
	VisibilityIMG     Visibility = "img"
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityAdmin, VisibilityIMG, VisibilityPublic, VisibilityPrivate:
		return true
	}
	return false
}

type Event struct {
	ID          uint       `json:"eventid" gorm:"primaryKey"`
	Name        string     `json:"eventname" gorm:"size:100;not null"`
	Description string     `json:"eventdesc" gorm:"size:1000"`
	Date        *time.Time `json:"eventdate" gorm:"index"`
	Time        string     `json:"eventtime" gorm:"size:8"`
	Location    string     `json:"eventlocation" gorm:"size:100;index"`
	CoverKey    string     `json:"-"`
	CoverURL    string     `json:"eventCoverPhoto_url"`
	CreatorID   *uint      `json:"eventCreator" gorm:"index"`
	Creator     *User      `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	Visibility  Visibility `json:"visibility" gorm:"size:16;not null;default:'public';index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsOwnedBy reports whether userID created the event. Orphaned events have no owner.
func (e *Event) IsOwnedBy(userID uint) bool {
	return e.CreatorID != nil && *e.CreatorID == userID
}

type EventRequest struct {
	Name        string     `json:"eventname" validate:"required,max=100"`
	Description string     `json:"eventdesc" validate:"max=1000"`
	Date        *time.Time `json:"eventdate"`
	Time        string     `json:"eventtime" validate:"omitempty,max=8"`
	Location    string     `json:"eventlocation" validate:"max=100"`
	Visibility  Visibility `json:"visibility" validate:"omitempty,visibility"`
	ViewerIDs   []uint     `json:"viewer_ids"`
}

type UpdateEventRequest struct {
	Name        *string     `json:"eventname" validate:"omitempty,max=100"`
	Description *string     `json:"eventdesc" validate:"omitempty,max=1000"`
	Date        *time.Time  `json:"eventdate"`
	Time        *string     `json:"eventtime" validate:"omitempty,max=8"`
	Location    *string     `json:"eventlocation" validate:"omitempty,max=100"`
	Visibility  *Visibility `json:"visibility" validate:"omitempty,visibility"`
}

// EventFilter narrows the visible-events listing.
type EventFilter struct {
	Search    string
	Locations []string
	DateFrom  *time.Time
	DateTo    *time.Time
	Ordering  string
	Limit     int
	Offset    int
}

type EventResponse struct {
	Event
	CreatorDetail *UserResponse `json:"eventCreator_detail"`
}

func (e *Event) ToResponse() EventResponse {
	resp := EventResponse{Event: *e}
	if e.Creator != nil {
		u := e.Creator.ToResponse()
		resp.CreatorDetail = &u
	}
	return resp
}

// Capability is the unit a PermissionGrant hands out.
type Capability string

const (
	CapView   Capability = "view"
	CapChange Capability = "change"
	CapDelete Capability = "delete"
	CapInvite Capability = "invite"
)

func (c Capability) Valid() bool {
	switch c {
	case CapView, CapChange, CapDelete, CapInvite:
		return true
	}
	return false
}

type PrincipalType string

const (
	PrincipalUser  PrincipalType = "user"
	PrincipalGroup PrincipalType = "group"
)

// PermissionGrant gives one capability on one event to a user or a group.
// Exactly one of UserID (non-zero) or GroupName (non-empty) identifies the principal;
// the unused column holds its zero value so the composite unique index dedupes grants.
type PermissionGrant struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	EventID       uint          `json:"event_id" gorm:"uniqueIndex:idx_grant_unique;not null"`
	Event         *Event        `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Capability    Capability    `json:"capability" gorm:"uniqueIndex:idx_grant_unique;size:16;not null"`
	PrincipalType PrincipalType `json:"principal_type" gorm:"size:8;not null"`
	UserID        uint          `json:"user_id" gorm:"uniqueIndex:idx_grant_unique;not null;default:0;index"`
	GroupName     Role          `json:"group_name" gorm:"uniqueIndex:idx_grant_unique;size:32;not null;default:''"`
	CreatedAt     time.Time     `json:"created_at"`
}

// InviteRole is the capability bundle an invite redeems into.
type InviteRole string

const (
	InviteViewer InviteRole = "viewer"
	InviteEditor InviteRole = "editor"
)

func (r InviteRole) Valid() bool {
	return r == InviteViewer || r == InviteEditor
}

// Capabilities returns the grants a redeemed invite of this role produces.
func (r InviteRole) Capabilities() []Capability {
	switch r {
	case InviteViewer:
		return []Capability{CapView}
	case InviteEditor:
		return []Capability{CapView, CapChange, CapInvite}
	}
	return nil
}

type EventInvite struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Token        string     `json:"token" gorm:"size:64;uniqueIndex;not null"`
	EventID      uint       `json:"event_id" gorm:"index;not null"`
	Event        *Event     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Role         InviteRole `json:"role" gorm:"size:16;not null"`
	ExpiresAt    *time.Time `json:"expires_at"`
	IsActive     bool       `json:"is_active" gorm:"not null;default:true"`
	CreatedByID  *uint      `json:"created_by"`
	RedeemedByID *uint      `json:"redeemed_by"`
	RedeemedAt   *time.Time `json:"redeemed_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Expired is evaluated lazily at redemption time; nothing sweeps stale invites.
func (i *EventInvite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

type CreateInviteRequest struct {
	Role      InviteRole `json:"role" validate:"required,invite_role"`
	ExpiresAt *time.Time `json:"expires_at"`
	// Email, when set, receives the invite link.
	Email string `json:"email" validate:"omitempty,email"`
}

type InviteResponse struct {
	Token     string     `json:"token"`
	Link      string     `json:"link"`
	EventID   uint       `json:"event_id"`
	Role      InviteRole `json:"role"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type RedeemInviteResponse struct {
	EventID      uint         `json:"event_id"`
	Role         InviteRole   `json:"role"`
	Capabilities []Capability `json:"capabilities"`
}
