package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentflow/internal/apperr"
)

// DefaultReferenceTxTimeout bounds the multi-insert reference transactions
const DefaultReferenceTxTimeout = 30 * time.Second

// TenancyHistory is the previous landlord's account of the applicant's tenancy
type TenancyHistory struct {
	BaseModel
	TenantName       string     `gorm:"column:tenant_name;not null" json:"tenant_name"`
	CurrentAddress   string     `gorm:"column:current_address;not null" json:"current_address"`
	MonthlyRent      float64    `gorm:"column:monthly_rent" json:"monthly_rent"`
	RentStartDate    *time.Time `gorm:"column:rent_start_date" json:"rent_start_date,omitempty"`
	RentEndDate      *time.Time `gorm:"column:rent_end_date" json:"rent_end_date,omitempty"`
	ReasonForLeaving string     `gorm:"column:reason_for_leaving" json:"reason_for_leaving"`
}

func (TenancyHistory) TableName() string { return "tenancy_histories" }

// ExternalLandlord identifies the landlord who filled in a reference
type ExternalLandlord struct {
	BaseModel
	Name        string `gorm:"column:name;not null" json:"name"`
	Email       string `gorm:"column:email" json:"email"`
	PhoneNumber string `gorm:"column:phone_number" json:"phone_number"`
}

func (ExternalLandlord) TableName() string { return "external_landlords" }

type TenantConduct struct {
	BaseModel
	RentOnTime         *bool  `gorm:"column:rent_on_time" json:"rent_on_time"`
	PaidUtilities      *bool  `gorm:"column:paid_utilities" json:"paid_utilities,omitempty"`
	PropertyCondition  string `gorm:"column:property_condition" json:"property_condition,omitempty"`
	HasComplaints      bool   `gorm:"column:has_complaints" json:"has_complaints"`
	ComplaintsDetails  string `gorm:"column:complaints_details" json:"complaints_details,omitempty"`
	WouldRentAgain     *bool  `gorm:"column:would_rent_again" json:"would_rent_again,omitempty"`
	AdditionalComments string `gorm:"column:additional_comments" json:"additional_comments,omitempty"`
}

func (TenantConduct) TableName() string { return "tenant_conducts" }

// LandlordReferenceForm is submitted once per application by the
// applicant's current or previous landlord
type LandlordReferenceForm struct {
	BaseModel
	ApplicationID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	TenancyHistoryID   uuid.UUID  `gorm:"type:uuid;not null" json:"tenancy_history_id"`
	ExternalLandlordID uuid.UUID  `gorm:"type:uuid;not null" json:"external_landlord_id"`
	TenantConductID    uuid.UUID  `gorm:"type:uuid;not null" json:"tenant_conduct_id"`
	AdditionalComments string     `gorm:"column:additional_comments" json:"additional_comments,omitempty"`
	Signature          string     `gorm:"column:signature" json:"signature"`
	SignedAt           *time.Time `gorm:"column:signed_at" json:"signed_at,omitempty"`

	// Associations
	TenancyHistory   *TenancyHistory   `gorm:"foreignKey:TenancyHistoryID" json:"tenancy_history,omitempty"`
	ExternalLandlord *ExternalLandlord `gorm:"foreignKey:ExternalLandlordID" json:"external_landlord,omitempty"`
	TenantConduct    *TenantConduct    `gorm:"foreignKey:TenantConductID" json:"tenant_conduct,omitempty"`
}

func (LandlordReferenceForm) TableName() string { return "landlord_reference_forms" }

type GuarantorEmploymentInfo struct {
	BaseModel
	EmploymentStatus    string     `gorm:"column:employment_status" json:"employment_status"`
	EmployerName        string     `gorm:"column:employer_name" json:"employer_name,omitempty"`
	JobTitle            string     `gorm:"column:job_title" json:"job_title,omitempty"`
	AnnualIncome        float64    `gorm:"column:annual_income" json:"annual_income,omitempty"`
	EmploymentStartDate *time.Time `gorm:"column:employment_start_date" json:"employment_start_date,omitempty"`
}

func (GuarantorEmploymentInfo) TableName() string { return "guarantor_employment_info" }

// GuarantorAgreement is the guarantor's own signed statement. Name parts
// are entered separately so they can be matched against the applicant's
// free-text guarantor name.
type GuarantorAgreement struct {
	BaseModel
	ApplicationID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	Title                   string     `gorm:"column:title" json:"title,omitempty"`
	FirstName               string     `gorm:"column:first_name;not null" json:"first_name"`
	MiddleName              string     `gorm:"column:middle_name" json:"middle_name,omitempty"`
	LastName                string     `gorm:"column:last_name" json:"last_name"`
	DateOfBirth             *time.Time `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
	NationalInsuranceNumber string     `gorm:"column:national_insurance_number" json:"national_insurance_number"`
	Email                   string     `gorm:"column:email" json:"email"`
	PhoneNumber             string     `gorm:"column:phone_number" json:"phone_number,omitempty"`
	Address                 string     `gorm:"column:address" json:"address,omitempty"`
	Signature               string     `gorm:"column:signature" json:"signature,omitempty"`
	EmploymentInfoID        *uuid.UUID `gorm:"type:uuid" json:"employment_info_id,omitempty"`

	EmploymentInfo *GuarantorEmploymentInfo `gorm:"foreignKey:EmploymentInfoID" json:"employment_info,omitempty"`
}

func (GuarantorAgreement) TableName() string { return "guarantor_agreements" }

// EmployeeReferenceForm is the employer's confirmation of the applicant's job
type EmployeeReferenceForm struct {
	BaseModel
	ApplicationID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	EmployeeName        string     `gorm:"column:employee_name;not null" json:"employee_name"`
	JobTitle            string     `gorm:"column:job_title" json:"job_title"`
	CompanyName         string     `gorm:"column:company_name" json:"company_name"`
	EmployerEmail       string     `gorm:"column:employer_email" json:"employer_email"`
	EmploymentStartDate *time.Time `gorm:"column:employment_start_date" json:"employment_start_date,omitempty"`
	EmploymentType      string     `gorm:"column:employment_type" json:"employment_type,omitempty"`
	AnnualIncome        float64    `gorm:"column:annual_income" json:"annual_income,omitempty"`
	RefereeName         string     `gorm:"column:referee_name" json:"referee_name,omitempty"`
	RefereePosition     string     `gorm:"column:referee_position" json:"referee_position,omitempty"`
	Signature           string     `gorm:"column:signature" json:"signature,omitempty"`
}

func (EmployeeReferenceForm) TableName() string { return "employee_reference_forms" }

// Tenant is created by the landlord once an application is accepted
type Tenant struct {
	BaseModel
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PropertyID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"property_id"`
	ApplicationID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	TenancyStartDate *time.Time `gorm:"column:tenancy_start_date" json:"tenancy_start_date,omitempty"`
	IsCurrent        bool       `gorm:"column:is_current;default:true" json:"is_current"`
}

func (Tenant) TableName() string { return "tenants" }

// Messages returned when a singleton form is submitted twice
const (
	LandlordReferenceCompleted  = "landlord reference completed"
	GuarantorReferenceCompleted = "guarantor reference completed"
	EmployeeReferenceCompleted  = "employee reference completed"
	TenantAlreadyCreated        = "tenant already created"
)

// ReferenceManager creates the third-party reference forms
type ReferenceManager struct {
	db        *gorm.DB
	txTimeout time.Duration
}

func NewReferenceManager(db *gorm.DB) *ReferenceManager {
	return &ReferenceManager{db: db, txTimeout: DefaultReferenceTxTimeout}
}

// WithTxTimeout returns a copy of the manager using d for its transactions
func (m *ReferenceManager) WithTxTimeout(d time.Duration) *ReferenceManager {
	if d <= 0 {
		return m
	}
	return &ReferenceManager{db: m.db, txTimeout: d}
}

// CreateLandlordReference inserts the tenancy history, external landlord,
// tenant conduct and the form itself; all four rows or none are written.
func (m *ReferenceManager) CreateLandlordReference(ctx context.Context, form *LandlordReferenceForm) error {
	if form.TenancyHistory == nil || form.ExternalLandlord == nil || form.TenantConduct == nil {
		return apperr.Validation("landlord reference requires tenancy history, landlord and conduct details")
	}
	ctx, cancel := context.WithTimeout(ctx, m.txTimeout)
	defer cancel()

	exists, err := Exists[LandlordReferenceForm](m.db.WithContext(ctx), "application_id = ?", form.ApplicationID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Duplicate(LandlordReferenceCompleted)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(form.TenancyHistory).Error; err != nil {
			return err
		}
		if err := tx.Create(form.ExternalLandlord).Error; err != nil {
			return err
		}
		if err := tx.Create(form.TenantConduct).Error; err != nil {
			return err
		}
		form.TenancyHistoryID = form.TenancyHistory.ID
		form.ExternalLandlordID = form.ExternalLandlord.ID
		form.TenantConductID = form.TenantConduct.ID
		return tx.Omit(clause.Associations).Create(form).Error
	})
	return duplicate(err, LandlordReferenceCompleted)
}

// CreateGuarantorAgreement inserts the guarantor's employment details and
// the agreement in one transaction
func (m *ReferenceManager) CreateGuarantorAgreement(ctx context.Context, agreement *GuarantorAgreement) error {
	ctx, cancel := context.WithTimeout(ctx, m.txTimeout)
	defer cancel()

	exists, err := Exists[GuarantorAgreement](m.db.WithContext(ctx), "application_id = ?", agreement.ApplicationID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Duplicate(GuarantorReferenceCompleted)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if agreement.EmploymentInfo != nil {
			if err := tx.Create(agreement.EmploymentInfo).Error; err != nil {
				return err
			}
			agreement.EmploymentInfoID = &agreement.EmploymentInfo.ID
		}
		return tx.Omit(clause.Associations).Create(agreement).Error
	})
	return duplicate(err, GuarantorReferenceCompleted)
}

// CreateEmployeeReference inserts the employer's reference
func (m *ReferenceManager) CreateEmployeeReference(ctx context.Context, form *EmployeeReferenceForm) error {
	exists, err := Exists[EmployeeReferenceForm](m.db.WithContext(ctx), "application_id = ?", form.ApplicationID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Duplicate(EmployeeReferenceCompleted)
	}
	return duplicate(m.db.WithContext(ctx).Create(form).Error, EmployeeReferenceCompleted)
}

// TenantManager provides ORM methods for Tenant
type TenantManager struct {
	db *gorm.DB
}

func NewTenantManager(db *gorm.DB) *TenantManager {
	return &TenantManager{db: db}
}

// CreateTenant records the tenancy that results from an accepted application
func (m *TenantManager) CreateTenant(ctx context.Context, tenant *Tenant) error {
	return duplicate(m.db.WithContext(ctx).Create(tenant).Error, TenantAlreadyCreated)
}

func (m *TenantManager) GetTenantForApplication(ctx context.Context, applicationID uuid.UUID) (*Tenant, error) {
	var tenant Tenant
	if err := m.db.WithContext(ctx).First(&tenant, "application_id = ?", applicationID).Error; err != nil {
		return nil, notFound(err, "tenant")
	}
	return &tenant, nil
}
