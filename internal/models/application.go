package models

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentflow/internal/apperr"
)

// Verification holds the six screening outcomes recorded on an application
type Verification struct {
	EmploymentVerificationStatus VerificationStatus `gorm:"column:employment_verification_status;type:text;default:'PENDING'" json:"employment_verification_status"`
	IncomeVerificationStatus     VerificationStatus `gorm:"column:income_verification_status;type:text;default:'PENDING'" json:"income_verification_status"`
	CreditCheckStatus            VerificationStatus `gorm:"column:credit_check_status;type:text;default:'PENDING'" json:"credit_check_status"`
	LandlordVerificationStatus   VerificationStatus `gorm:"column:landlord_verification_status;type:text;default:'PENDING'" json:"landlord_verification_status"`
	GuarantorVerificationStatus  VerificationStatus `gorm:"column:guarantor_verification_status;type:text;default:'PENDING'" json:"guarantor_verification_status"`
	RefereeVerificationStatus    VerificationStatus `gorm:"column:referee_verification_status;type:text;default:'PENDING'" json:"referee_verification_status"`
}

// AllVerified returns a Verification with every status set to YES
func AllVerified() Verification {
	return Verification{
		EmploymentVerificationStatus: VerificationYes,
		IncomeVerificationStatus:     VerificationYes,
		CreditCheckStatus:            VerificationYes,
		LandlordVerificationStatus:   VerificationYes,
		GuarantorVerificationStatus:  VerificationYes,
		RefereeVerificationStatus:    VerificationYes,
	}
}

// Application is an applicant's submission package for a property
type Application struct {
	BaseModel
	UserID                     uuid.UUID                  `gorm:"type:uuid;not null;index:idx_application_user_property" json:"user_id"`
	PropertyID                 uuid.UUID                  `gorm:"type:uuid;not null;index:idx_application_user_property" json:"property_id"`
	ApplicationInviteID        *uuid.UUID                 `gorm:"type:uuid" json:"application_invite_id,omitempty"`
	Status                     ApplicationStatus          `gorm:"column:status;type:text;not null;default:'PENDING'" json:"status"`
	StatusesCompleted          History[ApplicationStatus] `gorm:"column:statuses_completed;type:text[];not null;default:'{}'" json:"statuses_completed"`
	LastStep                   *ApplicationStep           `gorm:"column:last_step;type:text" json:"last_step,omitempty"`
	CompletedSteps             History[ApplicationStep]   `gorm:"column:completed_steps;type:text[];not null;default:'{}'" json:"completed_steps"`
	ApplicantPersonalDetailsID *uuid.UUID                 `gorm:"type:uuid" json:"applicant_personal_details_id,omitempty"`
	ResidentialID              *uuid.UUID                 `gorm:"type:uuid" json:"residential_id,omitempty"`
	EmploymentInformationID    *uuid.UUID                 `gorm:"type:uuid" json:"employment_information_id,omitempty"`
	GuarantorInformationID     *uuid.UUID                 `gorm:"type:uuid" json:"guarantor_information_id,omitempty"`
	EmergencyContactID         *uuid.UUID                 `gorm:"type:uuid" json:"emergency_contact_id,omitempty"`
	RefereeID                  *uuid.UUID                 `gorm:"type:uuid" json:"referee_id,omitempty"`
	Verification
	IsDeleted bool `gorm:"column:is_deleted;default:false" json:"is_deleted"`

	// Associations
	PersonalDetails    *ApplicantPersonalDetails `gorm:"foreignKey:ApplicantPersonalDetailsID" json:"personal_details,omitempty"`
	ResidentialInfo    *ResidentialInformation   `gorm:"foreignKey:ResidentialID" json:"residential_info,omitempty"`
	EmploymentInfo     *EmploymentInformation    `gorm:"foreignKey:EmploymentInformationID" json:"employment_info,omitempty"`
	GuarantorInfo      *GuarantorInformation     `gorm:"foreignKey:GuarantorInformationID" json:"guarantor_info,omitempty"`
	EmergencyContact   *EmergencyContact         `gorm:"foreignKey:EmergencyContactID" json:"emergency_contact,omitempty"`
	Referee            *Referee                  `gorm:"foreignKey:RefereeID" json:"referee,omitempty"`
	Documents          []ApplicationDocument     `gorm:"foreignKey:ApplicationID" json:"documents,omitempty"`
	AdditionalInfo     *ApplicationQuestion      `gorm:"foreignKey:ApplicationID" json:"additional_info,omitempty"`
	Declaration        *Declaration              `gorm:"foreignKey:ApplicationID" json:"declaration,omitempty"`
	LandlordReference  *LandlordReferenceForm    `gorm:"foreignKey:ApplicationID" json:"landlord_reference,omitempty"`
	GuarantorAgreement *GuarantorAgreement       `gorm:"foreignKey:ApplicationID" json:"guarantor_agreement,omitempty"`
	EmployeeReference  *EmployeeReferenceForm    `gorm:"foreignKey:ApplicationID" json:"employee_reference,omitempty"`
}

// TableName specifies the table name for the Application model
func (Application) TableName() string {
	return "applications"
}

// Relation names a nullable foreign key column on applications
type Relation string

const (
	RelationPersonalDetails  Relation = "applicant_personal_details_id"
	RelationResidential      Relation = "residential_id"
	RelationEmployment       Relation = "employment_information_id"
	RelationGuarantor        Relation = "guarantor_information_id"
	RelationEmergencyContact Relation = "emergency_contact_id"
	RelationReferee          Relation = "referee_id"
)

// Set assigns id to the matching field of a.
func (r Relation) Set(a *Application, id uuid.UUID) {
	switch r {
	case RelationPersonalDetails:
		a.ApplicantPersonalDetailsID = &id
	case RelationResidential:
		a.ResidentialID = &id
	case RelationEmployment:
		a.EmploymentInformationID = &id
	case RelationGuarantor:
		a.GuarantorInformationID = &id
	case RelationEmergencyContact:
		a.EmergencyContactID = &id
	case RelationReferee:
		a.RefereeID = &id
	}
}

// Get returns the matching field of a.
func (r Relation) Get(a *Application) *uuid.UUID {
	switch r {
	case RelationPersonalDetails:
		return a.ApplicantPersonalDetailsID
	case RelationResidential:
		return a.ResidentialID
	case RelationEmployment:
		return a.EmploymentInformationID
	case RelationGuarantor:
		return a.GuarantorInformationID
	case RelationEmergencyContact:
		return a.EmergencyContactID
	case RelationReferee:
		return a.RefereeID
	}
	return nil
}

// ApplicationManager provides Django-like ORM methods for Application
type ApplicationManager struct {
	db *gorm.DB
}

// NewApplicationManager creates a new ApplicationManager instance
func NewApplicationManager(db *gorm.DB) *ApplicationManager {
	return &ApplicationManager{db: db}
}

// CreateApplication inserts the personal details and the application that
// references them in one transaction
func (m *ApplicationManager) CreateApplication(ctx context.Context, app *Application, details *ApplicantPersonalDetails) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(details).Error; err != nil {
			return err
		}
		app.ApplicantPersonalDetailsID = &details.ID
		return tx.Omit(clause.Associations).Create(app).Error
	})
}

// GetApplication retrieves a live application with every relation loaded
func (m *ApplicationManager) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	var app Application
	err := m.db.WithContext(ctx).
		Preload("PersonalDetails").
		Preload("ResidentialInfo.PreviousAddresses").
		Preload("EmploymentInfo").
		Preload("GuarantorInfo").
		Preload("EmergencyContact").
		Preload("Referee").
		Preload("Documents").
		Preload("AdditionalInfo").
		Preload("Declaration").
		Preload("LandlordReference.TenancyHistory").
		Preload("LandlordReference.ExternalLandlord").
		Preload("LandlordReference.TenantConduct").
		Preload("GuarantorAgreement.EmploymentInfo").
		Preload("EmployeeReference").
		Where("id = ? AND is_deleted = ?", id, false).
		First(&app).Error
	if err != nil {
		return nil, notFound(err, "application")
	}
	return &app, nil
}

// LatestApplicationFor returns the most recent live application for the
// (user, property) pair, or nil when there is none
func (m *ApplicationManager) LatestApplicationFor(ctx context.Context, userID, propertyID uuid.UUID) (*Application, error) {
	var apps []Application
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND property_id = ? AND is_deleted = ?", userID, propertyID, false).
		Order("created_at DESC").
		Limit(1).
		Find(&apps).Error
	if err != nil || len(apps) == 0 {
		return nil, err
	}
	return &apps[0], nil
}

func (m *ApplicationManager) updateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	cols["updated_at"] = time.Now()
	res := m.db.WithContext(ctx).Model(&Application{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("application")
	}
	return nil
}

// SetLastStep overwrites the last step reached
func (m *ApplicationManager) SetLastStep(ctx context.Context, id uuid.UUID, step ApplicationStep) error {
	return m.updateColumns(ctx, id, map[string]any{"last_step": step})
}

// SetRelation points one of the nullable sub-form columns at relID
func (m *ApplicationManager) SetRelation(ctx context.Context, id uuid.UUID, rel Relation, relID uuid.UUID) error {
	return m.updateColumns(ctx, id, map[string]any{string(rel): relID})
}

// SetVerification writes all six verification statuses in one update
func (m *ApplicationManager) SetVerification(ctx context.Context, id uuid.UUID, v Verification) error {
	return m.updateColumns(ctx, id, map[string]any{
		"employment_verification_status": v.EmploymentVerificationStatus,
		"income_verification_status":     v.IncomeVerificationStatus,
		"credit_check_status":            v.CreditCheckStatus,
		"landlord_verification_status":   v.LandlordVerificationStatus,
		"guarantor_verification_status":  v.GuarantorVerificationStatus,
		"referee_verification_status":    v.RefereeVerificationStatus,
	})
}

// SoftDeleteApplication flags the application as deleted
func (m *ApplicationManager) SoftDeleteApplication(ctx context.Context, id uuid.UUID) error {
	return m.updateColumns(ctx, id, map[string]any{"is_deleted": true})
}

const appendStepSQL = `
UPDATE applications
SET completed_steps = array_append(completed_steps, CAST(@step AS text)),
    updated_at = NOW()
WHERE id = @id AND is_deleted = false AND NOT (CAST(@step AS text) = ANY(completed_steps))`

const appendStatusSQL = `
UPDATE applications
SET status = @status,
    statuses_completed = array_append(statuses_completed, CAST(@status AS text)),
    updated_at = NOW()
WHERE id = @id AND is_deleted = false AND NOT (CAST(@status AS text) = ANY(statuses_completed))`

const setStatusSQL = `
UPDATE applications
SET status = @status,
    statuses_completed = CASE
        WHEN CAST(@status AS text) = ANY(statuses_completed) THEN statuses_completed
        ELSE array_append(statuses_completed, CAST(@status AS text))
    END,
    updated_at = NOW()
WHERE id = @id AND is_deleted = false`

// AppendCompletedStep adds step to completed_steps unless present. It
// reports whether the step was added.
func (m *ApplicationManager) AppendCompletedStep(ctx context.Context, id uuid.UUID, step ApplicationStep) (bool, error) {
	return m.conditionalAppend(ctx, id, appendStepSQL, sql.Named("step", string(step)))
}

// AppendStatus sets status and adds it to statuses_completed, but only when
// it is not already in the history. It reports whether anything changed.
func (m *ApplicationManager) AppendStatus(ctx context.Context, id uuid.UUID, status ApplicationStatus) (bool, error) {
	return m.conditionalAppend(ctx, id, appendStatusSQL, sql.Named("status", string(status)))
}

// SetStatus unconditionally sets status, appending it to the history if new
func (m *ApplicationManager) SetStatus(ctx context.Context, id uuid.UUID, status ApplicationStatus) error {
	res := m.db.WithContext(ctx).Exec(setStatusSQL, sql.Named("status", string(status)), sql.Named("id", id))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("application")
	}
	return nil
}

func (m *ApplicationManager) conditionalAppend(ctx context.Context, id uuid.UUID, query string, value sql.NamedArg) (bool, error) {
	res := m.db.WithContext(ctx).Exec(query, value, sql.Named("id", id))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var count int64
	if err := m.db.WithContext(ctx).Model(&Application{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, apperr.NotFound("application")
	}
	return false, nil
}
