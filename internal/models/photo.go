package models

import (
	"time"

	"gorm.io/datatypes"
)

type Photo struct {
	ID            uint                        `json:"photoid" gorm:"primaryKey"`
	EventID       uint                        `json:"event_id" gorm:"index;not null"`
	Event         *Event                      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	UploaderID    *uint                       `json:"uploaded_by" gorm:"index"`
	Uploader      *User                       `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	Description   string                      `json:"photoDesc" gorm:"size:500"`
	FileKey       string                      `json:"-" gorm:"not null"`
	FileURL       string                      `json:"photoFile"`
	ImageID       string                      `json:"-" gorm:"size:64"`
	Variants      datatypes.JSONMap           `json:"variants"`
	FileName      string                      `json:"file_name"`
	FileSize      int64                       `json:"file_size"`
	MimeType      string                      `json:"mime_type"`
	Tags          datatypes.JSONSlice[string] `json:"extractedTags"`
	Meta          datatypes.JSON              `json:"photoMeta"`
	LikeCount     int64                       `json:"likecount" gorm:"column:likecount;not null;default:0"`
	ViewCount     int64                       `json:"viewcount" gorm:"column:viewcount;not null;default:0"`
	DownloadCount int64                       `json:"downloadcount" gorm:"column:downloadcount;not null;default:0"`
	CommentCount  int64                       `json:"commentcount" gorm:"column:commentcount;not null;default:0"`
	UploadedAt    time.Time                   `json:"uploadDate" gorm:"index"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// VariantOriginal names the stored upload itself. Every photo has it.
const VariantOriginal = "original"

// HasVariant reports whether label is one of the sizes this photo is served in.
func (p *Photo) HasVariant(label string) bool {
	if label == VariantOriginal {
		return true
	}
	_, ok := p.Variants[label]
	return ok
}

func (p *Photo) IsUploadedBy(userID uint) bool {
	return p.UploaderID != nil && *p.UploaderID == userID
}

// UploadPhotoInput is one item of a single or bulk upload.
type UploadPhotoInput struct {
	FileName    string
	ContentType string
	Data        []byte
	Description string
	Tags        []string
	Meta        map[string]interface{}
	// ReadErr is set when the upload could not be read; the item fails on its own.
	ReadErr error
}

// PhotoUploadResult reports one item of a bulk upload. Items succeed or fail independently.
type PhotoUploadResult struct {
	Index    int            `json:"index"`
	FileName string         `json:"file_name"`
	Photo    *PhotoResponse `json:"photo,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type UpdatePhotoRequest struct {
	Description *string  `json:"photoDesc" validate:"omitempty,max=500"`
	Tags        []string `json:"extractedTags" validate:"omitempty,max=20,dive,max=50"`
}

type PhotoFilter struct {
	EventID    uint
	UploaderID uint
	Tag        string
	Limit      int
	Offset     int
}

type PhotoResponse struct {
	Photo
	IsLikedByCurrentUser bool `json:"isLikedByCurrentUser"`
}

// Engagement record kinds. Each maps to one counter column on photos.
type EngagementKind string

const (
	KindLike     EngagementKind = "like"
	KindComment  EngagementKind = "comment"
	KindDownload EngagementKind = "download"
	KindView     EngagementKind = "view"
)

func (k EngagementKind) CounterColumn() string {
	switch k {
	case KindLike:
		return "likecount"
	case KindComment:
		return "commentcount"
	case KindDownload:
		return "downloadcount"
	case KindView:
		return "viewcount"
	}
	return ""
}

// EngagementRecord is implemented by every child row that feeds a photo counter.
type EngagementRecord interface {
	Kind() EngagementKind
	TargetPhotoID() uint
}

type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PhotoID   uint      `json:"photo_id" gorm:"uniqueIndex:idx_like_photo_user;not null"`
	Photo     *Photo    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_like_photo_user;not null;index"`
	User      *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}

func (Like) Kind() EngagementKind  { return KindLike }
func (l Like) TargetPhotoID() uint { return l.PhotoID }

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PhotoID   uint      `json:"photo_id" gorm:"index;not null"`
	Photo     *Photo    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	User      *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Body      string    `json:"comment" gorm:"size:1000;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) Kind() EngagementKind  { return KindComment }
func (c Comment) TargetPhotoID() uint { return c.PhotoID }

type Download struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	PhotoID      uint      `json:"photo_id" gorm:"uniqueIndex:idx_download_unique;not null"`
	Photo        *Photo    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	UserID       uint      `json:"user_id" gorm:"uniqueIndex:idx_download_unique;not null;index"`
	User         *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	VersionLabel string    `json:"version_label" gorm:"uniqueIndex:idx_download_unique;size:32;not null"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Download) Kind() EngagementKind  { return KindDownload }
func (d Download) TargetPhotoID() uint { return d.PhotoID }

type View struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PhotoID   uint      `json:"photo_id" gorm:"uniqueIndex:idx_view_photo_user;not null"`
	Photo     *Photo    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_view_photo_user;not null;index"`
	User      *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}

func (View) Kind() EngagementKind  { return KindView }
func (v View) TargetPhotoID() uint { return v.PhotoID }

type CommentRequest struct {
	Comment string `json:"comment" validate:"required,max=1000"`
}

type DownloadRequest struct {
	VersionLabel string `json:"version_label" validate:"omitempty,max=32"`
}

type ToggleLikeResponse struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likecount"`
}

type PhotoCounters struct {
	LikeCount     int64 `json:"likecount"`
	ViewCount     int64 `json:"viewcount"`
	DownloadCount int64 `json:"downloadcount"`
	CommentCount  int64 `json:"commentcount"`
}
