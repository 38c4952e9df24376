package models

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rentflow/internal/apperr"
	"rentflow/internal/patch"
)

// ApplicationInvite represents a landlord's invitation for a user to view
// and apply for a property
type ApplicationInvite struct {
	BaseModel
	PropertyID             uuid.UUID               `gorm:"type:uuid;not null;index" json:"property_id"`
	InvitedByLandlordID    uuid.UUID               `gorm:"type:uuid;not null" json:"invited_by_landlord_id"`
	UserInvitedID          uuid.UUID               `gorm:"type:uuid;not null;index" json:"user_invited_id"`
	TenantID               *uuid.UUID              `gorm:"type:uuid" json:"tenant_id,omitempty"`
	EnquiryID              *uuid.UUID              `gorm:"type:uuid" json:"enquiry_id,omitempty"`
	ApplicationID          *uuid.UUID              `gorm:"type:uuid" json:"application_id,omitempty"`
	ScheduleDate           *time.Time              `gorm:"column:schedule_date" json:"schedule_date,omitempty"`
	ReScheduleDate         *time.Time              `gorm:"column:re_schedule_date" json:"re_schedule_date,omitempty"`
	Response               InviteResponse          `gorm:"column:response;type:text;not null;default:'PENDING'" json:"response"`
	ResponseStepsCompleted History[InviteResponse] `gorm:"column:response_steps_completed;type:text[];not null;default:'{}'" json:"response_steps_completed"`
	IsDeleted              bool                    `gorm:"column:is_deleted;default:false" json:"is_deleted"`

	// Associations
	Property    *Property    `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	InvitedBy   *User        `gorm:"foreignKey:InvitedByLandlordID" json:"invited_by,omitempty"`
	UserInvited *User        `gorm:"foreignKey:UserInvitedID" json:"user_invited,omitempty"`
	Enquiry     *Enquiry     `gorm:"foreignKey:EnquiryID" json:"enquiry,omitempty"`
	Application *Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
}

// TableName specifies the table name for the ApplicationInvite model
func (ApplicationInvite) TableName() string {
	return "application_invites"
}

// InviteUpdate carries the non-response fields of an invite update.
type InviteUpdate struct {
	ScheduleDate   patch.Value[time.Time]
	ReScheduleDate patch.Value[time.Time]
	TenantID       patch.Value[uuid.UUID]
	EnquiryID      patch.Value[uuid.UUID]
}

// Columns returns the column assignments for the supplied fields only.
func (u InviteUpdate) Columns() map[string]any {
	cols := map[string]any{}
	add := func(name string, v any, ok bool) {
		if ok {
			cols[name] = v
		}
	}
	v, ok := u.ScheduleDate.Column()
	add("schedule_date", v, ok)
	v, ok = u.ReScheduleDate.Column()
	add("re_schedule_date", v, ok)
	v, ok = u.TenantID.Column()
	add("tenant_id", v, ok)
	v, ok = u.EnquiryID.Column()
	add("enquiry_id", v, ok)
	return cols
}

// ApplyTo copies the supplied fields onto an in-memory invite.
func (u InviteUpdate) ApplyTo(inv *ApplicationInvite) {
	u.ScheduleDate.Apply(&inv.ScheduleDate)
	u.ReScheduleDate.Apply(&inv.ReScheduleDate)
	u.TenantID.Apply(&inv.TenantID)
	u.EnquiryID.Apply(&inv.EnquiryID)
}

// InviteManager provides Django-like ORM methods for ApplicationInvite
type InviteManager struct {
	db *gorm.DB
}

// NewInviteManager creates a new InviteManager instance
func NewInviteManager(db *gorm.DB) *InviteManager {
	return &InviteManager{db: db}
}

func (m *InviteManager) withRelations(ctx context.Context) *gorm.DB {
	return m.db.WithContext(ctx).
		Preload("Property").
		Preload("InvitedBy").
		Preload("UserInvited").
		Preload("Enquiry")
}

// CreateInvite inserts a new invite
func (m *InviteManager) CreateInvite(ctx context.Context, invite *ApplicationInvite) error {
	return m.db.WithContext(ctx).Omit("Property", "InvitedBy", "UserInvited", "Enquiry", "Application").Create(invite).Error
}

// GetInvite retrieves a live invite by ID with its relations loaded
func (m *InviteManager) GetInvite(ctx context.Context, id uuid.UUID) (*ApplicationInvite, error) {
	var invite ApplicationInvite
	err := m.withRelations(ctx).
		Where("application_invites.id = ? AND application_invites.is_deleted = ?", id, false).
		First(&invite).Error
	if err != nil {
		return nil, notFound(err, "invite")
	}
	return &invite, nil
}

// UpdateInviteFields writes the supplied non-response fields
func (m *InviteManager) UpdateInviteFields(ctx context.Context, id uuid.UUID, update InviteUpdate) error {
	cols := update.Columns()
	if len(cols) == 0 {
		return nil
	}
	return m.updateColumns(ctx, id, cols)
}

const appendResponseSQL = `
UPDATE application_invites
SET response = @response,
    response_steps_completed = CASE
        WHEN CAST(@response AS text) = ANY(response_steps_completed) THEN response_steps_completed
        ELSE array_append(response_steps_completed, CAST(@response AS text))
    END,
    updated_at = NOW()
WHERE id = @id AND is_deleted = false`

// AppendInviteResponse sets the response and appends it to the history
// unless already present, in a single statement.
func (m *InviteManager) AppendInviteResponse(ctx context.Context, id uuid.UUID, response InviteResponse) (*ApplicationInvite, error) {
	res := m.db.WithContext(ctx).Exec(appendResponseSQL,
		sql.Named("response", string(response)),
		sql.Named("id", id),
	)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("invite")
	}
	return m.GetInvite(ctx, id)
}

func (m *InviteManager) landlordInvites(ctx context.Context, landlordID uuid.UUID) *gorm.DB {
	return m.withRelations(ctx).
		Joins("JOIN properties ON properties.id = application_invites.property_id").
		Where("properties.landlord_id = ? AND application_invites.is_deleted = ?", landlordID, false).
		Order("application_invites.created_at DESC")
}

// ListInvitesWithout returns the landlord's invites whose history contains
// none of the excluded responses
func (m *InviteManager) ListInvitesWithout(ctx context.Context, landlordID uuid.UUID, excluded []InviteResponse) ([]ApplicationInvite, error) {
	var invites []ApplicationInvite
	err := m.landlordInvites(ctx, landlordID).
		Where("NOT (application_invites.response_steps_completed && ?::text[])", History[InviteResponse](excluded).Strings()).
		Find(&invites).Error
	return invites, err
}

// ListInvitesWith returns the landlord's invites whose history contains
// every required response
func (m *InviteManager) ListInvitesWith(ctx context.Context, landlordID uuid.UUID, required []InviteResponse) ([]ApplicationInvite, error) {
	var invites []ApplicationInvite
	err := m.landlordInvites(ctx, landlordID).
		Where("application_invites.response_steps_completed @> ?::text[]", History[InviteResponse](required).Strings()).
		Find(&invites).Error
	return invites, err
}

// ListAwaitingApplication returns invites that reached APPLY before the
// cutoff but never started an application and were not declined or rejected
func (m *InviteManager) ListAwaitingApplication(ctx context.Context, cutoff time.Time) ([]ApplicationInvite, error) {
	var invites []ApplicationInvite
	poison := History[InviteResponse]{ResponseDeclined, ResponseRejected}
	err := m.withRelations(ctx).
		Where("is_deleted = ? AND application_id IS NULL AND updated_at < ?", false, cutoff).
		Where("? = ANY(response_steps_completed)", string(ResponseApply)).
		Where("NOT (response_steps_completed && ?::text[])", poison.Strings()).
		Find(&invites).Error
	return invites, err
}

// AttachApplication links the application started from this invite
func (m *InviteManager) AttachApplication(ctx context.Context, id, applicationID uuid.UUID) error {
	return m.updateColumns(ctx, id, map[string]any{"application_id": applicationID})
}

// AttachTenant links the tenant record created from this invite
func (m *InviteManager) AttachTenant(ctx context.Context, id, tenantID uuid.UUID) error {
	return m.updateColumns(ctx, id, map[string]any{"tenant_id": tenantID})
}

func (m *InviteManager) updateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	cols["updated_at"] = time.Now()
	res := m.db.WithContext(ctx).Model(&ApplicationInvite{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("invite")
	}
	return nil
}

// SoftDeleteInvite flags the invite as deleted and returns its final state
func (m *InviteManager) SoftDeleteInvite(ctx context.Context, id uuid.UUID) (*ApplicationInvite, error) {
	invite, err := m.GetInvite(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.updateColumns(ctx, id, map[string]any{"is_deleted": true}); err != nil {
		return nil, err
	}
	invite.IsDeleted = true
	return invite, nil
}
