package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rentflow/internal/apperr"
)

// NotificationKind identifies the event a notification reports
type NotificationKind string

const (
	NotifyInviteCreated        NotificationKind = "INVITE_CREATED"
	NotifyInviteUpdated        NotificationKind = "INVITE_UPDATED"
	NotifyApplicationSubmitted NotificationKind = "APPLICATION_SUBMITTED"
	NotifyApplicationCompleted NotificationKind = "APPLICATION_COMPLETED"
	NotifyReferenceReceived    NotificationKind = "REFERENCE_RECEIVED"
	NotifyVerificationPassed   NotificationKind = "VERIFICATION_PASSED"
	NotifyDecision             NotificationKind = "DECISION"
	NotifyTenantCreated        NotificationKind = "TENANT_CREATED"
	NotifyApplicationReminder  NotificationKind = "APPLICATION_REMINDER"
)

// Notification is an in-app message for a user
type Notification struct {
	BaseModel
	UserID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind    NotificationKind `gorm:"column:kind;type:text;not null" json:"kind"`
	Title   string           `gorm:"column:title;not null" json:"title"`
	Message string           `gorm:"column:message" json:"message"`
	Link    string           `gorm:"column:link" json:"link,omitempty"`
	ReadAt  *time.Time       `gorm:"column:read_at" json:"read_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationManager provides ORM methods for Notification
type NotificationManager struct {
	db *gorm.DB
}

func NewNotificationManager(db *gorm.DB) *NotificationManager {
	return &NotificationManager{db: db}
}

func (m *NotificationManager) Create(ctx context.Context, n *Notification) error {
	return m.db.WithContext(ctx).Create(n).Error
}

// ListForUser returns the user's most recent notifications, newest first
func (m *NotificationManager) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	var out []Notification
	q := m.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// MarkRead stamps a notification owned by userID as read
func (m *NotificationManager) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res := m.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("notification")
	}
	return nil
}
