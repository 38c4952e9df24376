package models

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rentflow/internal/apperr"
)

// User represents a landlord, applicant, tenant or vendor account
type User struct {
	BaseModel
	Provider   string   `gorm:"column:provider" json:"provider,omitempty"`
	ProviderID string   `gorm:"column:provider_id" json:"provider_id,omitempty"`
	Email      string   `gorm:"column:email;uniqueIndex;not null" json:"email"`
	FirstName  string   `gorm:"column:first_name" json:"first_name"`
	LastName   string   `gorm:"column:last_name" json:"last_name"`
	Role       UserRole `gorm:"column:role;type:text;not null;default:'APPLICANT'" json:"role"`
	AvatarURL  string   `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Property is a rentable unit owned by a landlord
type Property struct {
	BaseModel
	LandlordID uuid.UUID `gorm:"type:uuid;not null;index" json:"landlord_id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	Address    string    `gorm:"column:address" json:"address"`
	IsDeleted  bool      `gorm:"column:is_deleted;default:false" json:"is_deleted"`
}

func (Property) TableName() string {
	return "properties"
}

// Enquiry is the log record a prospective tenant leaves against a
// property; invites are issued in response to it
type Enquiry struct {
	BaseModel
	PropertyID  uuid.UUID     `gorm:"type:uuid;not null" json:"property_id"`
	ApplicantID uuid.UUID     `gorm:"type:uuid;not null" json:"applicant_id"`
	Message     string        `gorm:"column:message" json:"message"`
	Status      EnquiryStatus `gorm:"column:status;type:text;not null;default:'NEW'" json:"status"`
}

func (Enquiry) TableName() string {
	return "enquiries"
}

// UserManager provides Django-like ORM methods for User
type UserManager struct {
	db *gorm.DB
}

// NewUserManager creates a new UserManager instance
func NewUserManager(db *gorm.DB) *UserManager {
	return &UserManager{db: db}
}

// Create creates a new user
func (m *UserManager) Create(ctx context.Context, user *User) error {
	return m.db.WithContext(ctx).Create(user).Error
}

// GetUser retrieves a user by ID
func (m *UserManager) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := m.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// UpsertOAuthUser gets an existing user by provider identity or creates a new one
func (m *UserManager) UpsertOAuthUser(ctx context.Context, user *User) error {
	return m.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", user.Provider, user.ProviderID).
		Assign(User{
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			AvatarURL: user.AvatarURL,
		}).
		FirstOrCreate(user).Error
}

// PropertyManager provides ORM methods for Property
type PropertyManager struct {
	db *gorm.DB
}

func NewPropertyManager(db *gorm.DB) *PropertyManager {
	return &PropertyManager{db: db}
}

func (m *PropertyManager) Create(ctx context.Context, property *Property) error {
	return m.db.WithContext(ctx).Create(property).Error
}

// GetProperty retrieves a property that has not been soft-deleted
func (m *PropertyManager) GetProperty(ctx context.Context, id uuid.UUID) (*Property, error) {
	var property Property
	err := m.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&property).Error
	if err != nil {
		return nil, notFound(err, "property")
	}
	return &property, nil
}

// EnquiryManager provides ORM methods for Enquiry
type EnquiryManager struct {
	db *gorm.DB
}

func NewEnquiryManager(db *gorm.DB) *EnquiryManager {
	return &EnquiryManager{db: db}
}

func (m *EnquiryManager) Create(ctx context.Context, enquiry *Enquiry) error {
	return m.db.WithContext(ctx).Create(enquiry).Error
}

func (m *EnquiryManager) GetEnquiry(ctx context.Context, id uuid.UUID) (*Enquiry, error) {
	var enquiry Enquiry
	if err := m.db.WithContext(ctx).First(&enquiry, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "enquiry")
	}
	return &enquiry, nil
}

// SetEnquiryStatus updates the status of an enquiry log record
func (m *EnquiryManager) SetEnquiryStatus(ctx context.Context, id uuid.UUID, status EnquiryStatus) error {
	res := m.db.WithContext(ctx).Model(&Enquiry{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("enquiry")
	}
	return nil
}
