package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentflow/internal/apperr"
)

// ApplicantPersonalDetails is the PERSONAL_KIN step of an application
type ApplicantPersonalDetails struct {
	BaseModel
	Title                 string     `gorm:"column:title" json:"title"`
	FirstName             string     `gorm:"column:first_name;not null" json:"first_name"`
	MiddleName            string     `gorm:"column:middle_name" json:"middle_name,omitempty"`
	LastName              string     `gorm:"column:last_name;not null" json:"last_name"`
	Email                 string     `gorm:"column:email" json:"email"`
	PhoneNumber           string     `gorm:"column:phone_number" json:"phone_number"`
	DateOfBirth           *time.Time `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
	Nationality           string     `gorm:"column:nationality" json:"nationality,omitempty"`
	MaritalStatus         string     `gorm:"column:marital_status" json:"marital_status,omitempty"`
	NextOfKinName         string     `gorm:"column:next_of_kin_name" json:"next_of_kin_name,omitempty"`
	NextOfKinRelationship string     `gorm:"column:next_of_kin_relationship" json:"next_of_kin_relationship,omitempty"`
	NextOfKinPhone        string     `gorm:"column:next_of_kin_phone" json:"next_of_kin_phone,omitempty"`
}

func (ApplicantPersonalDetails) TableName() string { return "applicant_personal_details" }

// ResidentialInformation is the RESIDENTIAL_ADDRESS step, including the
// current landlord's contact details used by the landlord screener
type ResidentialInformation struct {
	BaseModel
	Address           string            `gorm:"column:address;not null" json:"address"`
	City              string            `gorm:"column:city" json:"city,omitempty"`
	PostCode          string            `gorm:"column:post_code" json:"post_code,omitempty"`
	ResidentialStatus string            `gorm:"column:residential_status" json:"residential_status,omitempty"`
	LengthOfResidence string            `gorm:"column:length_of_residence" json:"length_of_residence"`
	ReasonForLeaving  string            `gorm:"column:reason_for_leaving" json:"reason_for_leaving"`
	LandlordName      string            `gorm:"column:landlord_name" json:"landlord_name"`
	LandlordEmail     string            `gorm:"column:landlord_email" json:"landlord_email"`
	LandlordPhone     string            `gorm:"column:landlord_phone" json:"landlord_phone"`
	PreviousAddresses []PreviousAddress `gorm:"foreignKey:ResidentialInformationID" json:"previous_addresses,omitempty"`
}

func (ResidentialInformation) TableName() string { return "residential_information" }

type PreviousAddress struct {
	BaseModel
	ResidentialInformationID uuid.UUID `gorm:"type:uuid;not null;index" json:"residential_information_id"`
	Address                  string    `gorm:"column:address" json:"address"`
	LengthOfResidence        string    `gorm:"column:length_of_residence" json:"length_of_residence"`
}

func (PreviousAddress) TableName() string { return "previous_addresses" }

// EmploymentInformation is the EMPLOYMENT step
type EmploymentInformation struct {
	BaseModel
	EmploymentStatus string     `gorm:"column:employment_status" json:"employment_status"`
	EmployerCompany  string     `gorm:"column:employer_company" json:"employer_company"`
	EmployerEmail    string     `gorm:"column:employer_email" json:"employer_email"`
	EmployerPhone    string     `gorm:"column:employer_phone" json:"employer_phone,omitempty"`
	JobTitle         string     `gorm:"column:job_title" json:"job_title"`
	StartDate        *time.Time `gorm:"column:start_date" json:"start_date,omitempty"`
	AnnualIncome     float64    `gorm:"column:annual_income" json:"annual_income,omitempty"`
}

func (EmploymentInformation) TableName() string { return "employment_information" }

// GuarantorInformation is the GUARANTOR_INFO step as declared by the applicant
type GuarantorInformation struct {
	BaseModel
	FullName                string     `gorm:"column:full_name;not null" json:"full_name"`
	Email                   string     `gorm:"column:email" json:"email"`
	PhoneNumber             string     `gorm:"column:phone_number" json:"phone_number,omitempty"`
	Address                 string     `gorm:"column:address" json:"address,omitempty"`
	Relationship            string     `gorm:"column:relationship" json:"relationship,omitempty"`
	DateOfBirth             *time.Time `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
	NationalInsuranceNumber string     `gorm:"column:national_insurance_number" json:"national_insurance_number,omitempty"`
	MonthlyIncome           float64    `gorm:"column:monthly_income" json:"monthly_income,omitempty"`
}

func (GuarantorInformation) TableName() string { return "guarantor_information" }

type EmergencyContact struct {
	BaseModel
	FullName     string `gorm:"column:full_name;not null" json:"full_name"`
	PhoneNumber  string `gorm:"column:phone_number" json:"phone_number"`
	Email        string `gorm:"column:email" json:"email,omitempty"`
	Relationship string `gorm:"column:relationship" json:"relationship,omitempty"`
	Address      string `gorm:"column:address" json:"address,omitempty"`
}

func (EmergencyContact) TableName() string { return "emergency_contacts" }

type Referee struct {
	BaseModel
	ProfessionalReferenceName string `gorm:"column:professional_reference_name;not null" json:"professional_reference_name"`
	CompanyName               string `gorm:"column:company_name" json:"company_name,omitempty"`
	Email                     string `gorm:"column:email" json:"email"`
	PhoneNumber               string `gorm:"column:phone_number" json:"phone_number,omitempty"`
	Relationship              string `gorm:"column:relationship" json:"relationship,omitempty"`
}

func (Referee) TableName() string { return "referees" }

type ApplicationDocument struct {
	BaseModel
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;index" json:"application_id"`
	DocumentName  string    `gorm:"column:document_name;not null" json:"document_name"`
	DocumentType  string    `gorm:"column:document_type" json:"document_type,omitempty"`
	S3Key         string    `gorm:"column:s3_key" json:"s3_key"`
	FileHash      string    `gorm:"column:file_hash" json:"file_hash,omitempty"`
	FileSize      int64     `gorm:"column:file_size" json:"file_size"`
	MimeType      string    `gorm:"column:mime_type" json:"mime_type"`
}

func (ApplicationDocument) TableName() string { return "application_documents" }

// ApplicationQuestion holds the ADDITIONAL_INFO answers
type ApplicationQuestion struct {
	BaseModel
	ApplicationID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	HavePets          bool      `gorm:"column:have_pets" json:"have_pets"`
	PetDetails        string    `gorm:"column:pet_details" json:"pet_details,omitempty"`
	Smoker            bool      `gorm:"column:smoker" json:"smoker"`
	HasArrears        bool      `gorm:"column:has_arrears" json:"has_arrears"`
	ArrearsDetails    string    `gorm:"column:arrears_details" json:"arrears_details,omitempty"`
	AdditionalComment string    `gorm:"column:additional_comment" json:"additional_comment,omitempty"`
}

func (ApplicationQuestion) TableName() string { return "application_questions" }

type Declaration struct {
	BaseModel
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	Declared      bool      `gorm:"column:declared;not null" json:"declared"`
	Signature     string    `gorm:"column:signature" json:"signature"`
	DeclaredAt    time.Time `gorm:"column:declared_at" json:"declared_at"`
}

func (Declaration) TableName() string { return "declarations" }

// FormManager provides create-or-update methods for application sub-forms
type FormManager struct {
	db *gorm.DB
}

func NewFormManager(db *gorm.DB) *FormManager {
	return &FormManager{db: db}
}

// save creates the row when it has no id yet and otherwise rewrites every
// column of the existing row. It reports whether a row was created.
func save(ctx context.Context, db *gorm.DB, v any, id uuid.UUID, what string) (bool, error) {
	if id == uuid.Nil {
		return true, db.WithContext(ctx).Omit(clause.Associations).Create(v).Error
	}
	res := db.WithContext(ctx).Model(v).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Where("id = ?", id).
		Updates(v)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, apperr.NotFound(what)
	}
	return false, nil
}

func (m *FormManager) SavePersonalDetails(ctx context.Context, f *ApplicantPersonalDetails) (bool, error) {
	return save(ctx, m.db, f, f.ID, "personal details")
}

func (m *FormManager) SaveEmployment(ctx context.Context, f *EmploymentInformation) (bool, error) {
	return save(ctx, m.db, f, f.ID, "employment information")
}

func (m *FormManager) SaveGuarantor(ctx context.Context, f *GuarantorInformation) (bool, error) {
	return save(ctx, m.db, f, f.ID, "guarantor information")
}

func (m *FormManager) SaveEmergencyContact(ctx context.Context, f *EmergencyContact) (bool, error) {
	return save(ctx, m.db, f, f.ID, "emergency contact")
}

func (m *FormManager) SaveReferee(ctx context.Context, f *Referee) (bool, error) {
	return save(ctx, m.db, f, f.ID, "referee")
}

func (m *FormManager) SaveAdditionalInfo(ctx context.Context, f *ApplicationQuestion) (bool, error) {
	return save(ctx, m.db, f, f.ID, "additional information")
}

// SaveResidential upserts the residential record and replaces its
// previous addresses
func (m *FormManager) SaveResidential(ctx context.Context, f *ResidentialInformation) (bool, error) {
	var created bool
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = save(ctx, tx, f, f.ID, "residential information")
		if err != nil {
			return err
		}
		if err := tx.Where("residential_information_id = ?", f.ID).Delete(&PreviousAddress{}).Error; err != nil {
			return err
		}
		for i := range f.PreviousAddresses {
			addr := &f.PreviousAddresses[i]
			addr.ID = uuid.Nil
			addr.ResidentialInformationID = f.ID
			if err := tx.Create(addr).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return created, err
}

// AddDocument records an uploaded document
func (m *FormManager) AddDocument(ctx context.Context, doc *ApplicationDocument) error {
	return m.db.WithContext(ctx).Create(doc).Error
}

// CreateDeclaration records the applicant's declaration; an application
// can only be declared once
func (m *FormManager) CreateDeclaration(ctx context.Context, d *Declaration) error {
	exists, err := Exists[Declaration](m.db.WithContext(ctx), "application_id = ?", d.ApplicationID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Duplicate("declaration completed")
	}
	return duplicate(m.db.WithContext(ctx).Create(d).Error, "declaration completed")
}
