package repository

import (
	"context"
	"strings"

	"github.com/sefazor/keepevents-backend/internal/models"
	"gorm.io/gorm"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) WithTx(tx *gorm.DB) *EventRepository {
	return &EventRepository{db: tx}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *EventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Preload("Creator.Roles").First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(fields).Error
}

func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Event{}, id).Error
}

// PhotoFiles returns the stored file key and image id of every photo in the event.
func (r *EventRepository) PhotoFiles(ctx context.Context, eventID uint) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.WithContext(ctx).Select("id", "file_key", "image_id").Where("event_id = ?", eventID).Find(&photos).Error
	return photos, err
}

// ListVisible returns the events user may view, filtered and paginated, plus the total count.
func (r *EventRepository) ListVisible(ctx context.Context, user *models.User, f models.EventFilter) ([]models.Event, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("events.id IN (?)", VisibleEventIDs(r.db, user))

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(events.name) LIKE ? OR LOWER(events.description) LIKE ? OR LOWER(events.location) LIKE ?)", like, like, like)
	}
	if len(f.Locations) > 0 {
		q = q.Where("events.location IN ?", f.Locations)
	}
	if f.DateFrom != nil {
		q = q.Where("events.date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("events.date <= ?", *f.DateTo)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.Event
	err := q.Preload("Creator.Roles").
		Order(eventOrdering(f.Ordering)).
		Scopes(paginate(f.Limit, f.Offset)).
		Find(&events).Error
	return events, total, err
}

var eventOrderings = map[string]string{
	"date":        "events.date ASC, events.id ASC",
	"-date":       "events.date DESC, events.id DESC",
	"name":        "events.name ASC, events.id ASC",
	"-name":       "events.name DESC, events.id DESC",
	"created_at":  "events.created_at ASC, events.id ASC",
	"-created_at": "events.created_at DESC, events.id DESC",
}

func eventOrdering(o string) string {
	if clause, ok := eventOrderings[o]; ok {
		return clause
	}
	return eventOrderings["-created_at"]
}

// VisibleEventIDs is a subquery of event ids the user holds view on. It mirrors
// the resolver: staff, owner, user grant, group grant, then the visibility tier.
func VisibleEventIDs(db *gorm.DB, user *models.User) *gorm.DB {
	q := db.Session(&gorm.Session{NewDB: true}).Model(&models.Event{}).Select("events.id")
	if user == nil {
		return q.Where("1 = 0")
	}
	if user.IsPrivileged() {
		return q
	}

	userGrant := db.Session(&gorm.Session{NewDB: true}).Model(&models.PermissionGrant{}).
		Select("event_id").
		Where("capability = ? AND principal_type = ? AND user_id = ?", models.CapView, models.PrincipalUser, user.ID)

	tiers := []models.Visibility{models.VisibilityPublic}
	if user.HasRole(models.RoleIMGMember) {
		tiers = append(tiers, models.VisibilityIMG)
	}
	if user.HasRole(models.RoleAdmin) {
		tiers = append(tiers, models.VisibilityAdmin)
	}

	cond := db.Session(&gorm.Session{NewDB: true}).
		Where("events.creator_id = ?", user.ID).
		Or("events.id IN (?)", userGrant).
		Or("events.visibility IN ?", tiers)

	if groups := user.RoleNames(); len(groups) > 0 {
		groupGrant := db.Session(&gorm.Session{NewDB: true}).Model(&models.PermissionGrant{}).
			Select("event_id").
			Where("capability = ? AND principal_type = ? AND group_name IN ?", models.CapView, models.PrincipalGroup, groups)
		cond = cond.Or("events.id IN (?)", groupGrant)
	}

	return q.Where(cond)
}
