// Package testutil opens throwaway SQLite databases and seeds fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/pkg/bcrypt"
	"github.com/sefazor/keepevents-backend/pkg/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const Password = "secret123"

// NewDB returns a migrated database in t.TempDir().
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite://"+filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts an active user with password Password and the given roles.
func CreateUser(t *testing.T, db *gorm.DB, username string, roles ...models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.HashPassword(Password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
		FullName: username,
		IsActive: true,
	}
	for _, r := range roles {
		u.Roles = append(u.Roles, models.UserRole{Role: r})
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateStaff inserts an active staff user with no roles.
func CreateStaff(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := CreateUser(t, db, username)
	if err := db.Model(u).Update("is_staff", true).Error; err != nil {
		t.Fatalf("mark staff: %v", err)
	}
	u.IsStaff = true
	return u
}

// CreateEvent inserts an event owned by creator (nil for an orphan) without any grants.
func CreateEvent(t *testing.T, db *gorm.DB, creator *models.User, visibility models.Visibility) *models.Event {
	t.Helper()
	e := &models.Event{
		Name:       "Event " + string(visibility),
		Visibility: visibility,
		Location:   "LHC",
	}
	if creator != nil {
		e.CreatorID = &creator.ID
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

// CreatePhoto inserts a photo in event uploaded by uploader.
func CreatePhoto(t *testing.T, db *gorm.DB, event *models.Event, uploader *models.User) *models.Photo {
	t.Helper()
	p := &models.Photo{
		EventID:    event.ID,
		FileKey:    "events/test.jpg",
		FileURL:    "http://files.local/events/test.jpg",
		UploadedAt: time.Now(),
	}
	if uploader != nil {
		p.UploaderID = &uploader.ID
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create photo: %v", err)
	}
	return p
}
