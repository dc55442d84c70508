package models

import (
	"time"
)

// Role is a named group a user can belong to. Groups are also grant principals.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleIMGMember Role = "IMG Member"
	RolePublic    Role = "Public"
)

// AllRoles lists every group in the system.
var AllRoles = []Role{RoleAdmin, RoleIMGMember, RolePublic}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleIMGMember, RolePublic:
		return true
	}
	return false
}

type User struct {
	ID           uint       `json:"userid" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	Password     string     `json:"-" gorm:"not null"`
	FullName     string     `json:"full_name"`
	ShortName    string     `json:"short_name"`
	EnrollmentNo string     `json:"enrollment_no"`
	Bio          string     `json:"userbio" gorm:"size:500"`
	Dept         string     `json:"dept" gorm:"size:100"`
	Batch        *int       `json:"batch"`
	IsActive     bool       `json:"is_active" gorm:"not null;default:false"`
	IsStaff      bool       `json:"is_staff" gorm:"not null;default:false"`
	IsSuperuser  bool       `json:"is_superuser" gorm:"not null;default:false"`
	Roles        []UserRole `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"date_joined"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserRole is one membership row of a user's role set.
type UserRole struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"uniqueIndex:idx_user_role;not null"`
	Role   Role `gorm:"uniqueIndex:idx_user_role;size:32;not null"`
}

// HasRole reports whether the user is a member of the given group.
// Roles must be preloaded.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

func (u *User) RoleNames() []Role {
	names := make([]Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Role)
	}
	return names
}

// IsPrivileged covers superusers and staff, who bypass every object check.
func (u *User) IsPrivileged() bool {
	return u != nil && (u.IsSuperuser || u.IsStaff)
}

// IsAdmin matches staff or members of the Admin group.
func (u *User) IsAdmin() bool {
	return u.IsPrivileged() || u.HasRole(RoleAdmin)
}

type UserResponse struct {
	ID           uint       `json:"userid"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	EnrollmentNo string     `json:"enrollment_no,omitempty"`
	Bio          string     `json:"userbio"`
	Dept         string     `json:"dept"`
	Batch        *int       `json:"batch"`
	IsActive     bool       `json:"is_active"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser"`
	Groups       []Role     `json:"groups"`
	LastLogin    *time.Time `json:"last_login"`
	DateJoined   time.Time  `json:"date_joined"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		EnrollmentNo: u.EnrollmentNo,
		Bio:          u.Bio,
		Dept:         u.Dept,
		Batch:        u.Batch,
		IsActive:     u.IsActive,
		IsStaff:      u.IsStaff,
		IsSuperuser:  u.IsSuperuser,
		Groups:       u.RoleNames(),
		LastLogin:    u.LastLogin,
		DateJoined:   u.CreatedAt,
	}
}

type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
	Bio      *string `json:"userbio" validate:"omitempty,max=500"`
	Dept     *string `json:"dept" validate:"omitempty,max=100"`
	Batch    *int    `json:"batch"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

type SetRolesRequest struct {
	Groups []Role `json:"groups" validate:"dive,role"`
}

// EmailOTP is a six digit verification code. At most one unused code per user is live.
type EmailOTP struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE"`
	Code      string    `gorm:"size:6;not null"`
	Used      bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

// Session backs one access/refresh pair. Revoking it invalidates both tokens.
type Session struct {
	ID               string     `gorm:"primaryKey;size:36"`
	UserID           uint       `gorm:"index;not null"`
	User             *User      `gorm:"constraint:OnDelete:CASCADE"`
	RefreshTokenHash string     `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt        time.Time  `gorm:"not null"`
	RevokedAt        *time.Time `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
