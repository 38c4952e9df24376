package models

import (
	"database/sql/driver"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Custom types to match the text columns used for enumerations
type InviteResponse string
type ApplicationStatus string
type ApplicationStep string
type VerificationStatus string
type EnquiryStatus string
type UserRole string

const (
	ResponsePending               InviteResponse = "PENDING"
	ResponseScheduled             InviteResponse = "SCHEDULED"
	ResponseAccepted              InviteResponse = "ACCEPTED"
	ResponseRescheduled           InviteResponse = "RESCHEDULED"
	ResponseRescheduledAccepted   InviteResponse = "RESCHEDULED_ACCEPTED"
	ResponseAwaitingFeedback      InviteResponse = "AWAITING_FEEDBACK"
	ResponseFeedback              InviteResponse = "FEEDBACK"
	ResponseApply                 InviteResponse = "APPLY"
	ResponseReInvited             InviteResponse = "RE_INVITED"
	ResponseApplicationNotStarted InviteResponse = "APPLICATION_NOT_STARTED"
	ResponseApplicationStarted    InviteResponse = "APPLICATION_STARTED"
	ResponseDeclined              InviteResponse = "DECLINED"
	ResponseRejected              InviteResponse = "REJECTED"
	ResponseApproved              InviteResponse = "APPROVED"
	ResponseSubmitted             InviteResponse = "SUBMITTED"
	ResponseCancelled             InviteResponse = "CANCELLED"
	ResponseCompleted             InviteResponse = "COMPLETED"
)

// InviteResponses lists every valid invite response.
var InviteResponses = []InviteResponse{
	ResponsePending, ResponseScheduled, ResponseAccepted, ResponseRescheduled,
	ResponseRescheduledAccepted, ResponseAwaitingFeedback, ResponseFeedback,
	ResponseApply, ResponseReInvited, ResponseApplicationNotStarted,
	ResponseApplicationStarted, ResponseDeclined, ResponseRejected,
	ResponseApproved, ResponseSubmitted, ResponseCancelled, ResponseCompleted,
}

func (r InviteResponse) Valid() bool {
	return slices.Contains(InviteResponses, r)
}

const (
	StatusPending            ApplicationStatus = "PENDING"
	StatusSubmitted          ApplicationStatus = "SUBMITTED"
	StatusMakePayment        ApplicationStatus = "MAKEPAYMENT"
	StatusAccepted           ApplicationStatus = "ACCEPTED"
	StatusDeclined           ApplicationStatus = "DECLINED"
	StatusCompleted          ApplicationStatus = "COMPLETED"
	StatusLandlordReference  ApplicationStatus = "LANDLORD_REFERENCE"
	StatusGuarantorReference ApplicationStatus = "GUARANTOR_REFERENCE"
	StatusEmployeeReference  ApplicationStatus = "EMPLOYEE_REFERENCE"
	StatusTenantCreated      ApplicationStatus = "TENANT_CREATED"
	StatusAgreementsSigned   ApplicationStatus = "AGREEMENTS_SIGNED"
)

// Application sub-form steps, in the order the form presents them.
const (
	StepPersonalKin        ApplicationStep = "PERSONAL_KIN"
	StepResidentialAddress ApplicationStep = "RESIDENTIAL_ADDRESS"
	StepEmployment         ApplicationStep = "EMPLOYMENT"
	StepGuarantorInfo      ApplicationStep = "GUARANTOR_INFO"
	StepEmergencyContact   ApplicationStep = "EMERGENCY_CONTACT"
	StepReferee            ApplicationStep = "REFEREE"
	StepAdditionalInfo     ApplicationStep = "ADDITIONAL_INFO"
	StepDocumentUpload     ApplicationStep = "DOCUMENT_UPLOAD"
	StepDeclaration        ApplicationStep = "DECLARATION"
)

var ApplicationSteps = []ApplicationStep{
	StepPersonalKin, StepResidentialAddress, StepEmployment, StepGuarantorInfo,
	StepEmergencyContact, StepReferee, StepAdditionalInfo, StepDocumentUpload,
	StepDeclaration,
}

const (
	VerificationPending VerificationStatus = "PENDING"
	VerificationYes     VerificationStatus = "YES"
	VerificationNo      VerificationStatus = "NO"
)

const (
	EnquiryNew       EnquiryStatus = "NEW"
	EnquiryInvited   EnquiryStatus = "INVITED"
	EnquiryReInvited EnquiryStatus = "RE_INVITED"
	EnquiryClosed    EnquiryStatus = "CLOSED"
)

const (
	RoleLandlord  UserRole = "LANDLORD"
	RoleTenant    UserRole = "TENANT"
	RoleApplicant UserRole = "APPLICANT"
	RoleVendor    UserRole = "VENDOR"
)

// History is an append-only, duplicate-free list of enumeration values
// stored in a postgres text[] column.
type History[T ~string] []T

func (h History[T]) Contains(v T) bool {
	return slices.Contains(h, v)
}

// ContainsAll reports whether every value in vs is present.
func (h History[T]) ContainsAll(vs ...T) bool {
	for _, v := range vs {
		if !h.Contains(v) {
			return false
		}
	}
	return true
}

// ContainsAny reports whether at least one value in vs is present.
func (h History[T]) ContainsAny(vs ...T) bool {
	return slices.ContainsFunc(vs, h.Contains)
}

// Missing returns the values of vs not present in h, in the order given.
func (h History[T]) Missing(vs ...T) []T {
	var out []T
	for _, v := range vs {
		if !h.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// Append returns h with v added at the end unless it is already present.
// The second result reports whether v was added.
func (h History[T]) Append(v T) (History[T], bool) {
	if h.Contains(v) {
		return h, false
	}
	out := make(History[T], len(h), len(h)+1)
	copy(out, h)
	return append(out, v), true
}

// Strings converts h for use as a query argument.
func (h History[T]) Strings() pq.StringArray {
	out := make(pq.StringArray, len(h))
	for i, v := range h {
		out[i] = string(v)
	}
	return out
}

// Value implements the driver.Valuer interface
func (h History[T]) Value() (driver.Value, error) {
	return h.Strings().Value()
}

// Scan implements the sql.Scanner interface
func (h *History[T]) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	out := make(History[T], len(arr))
	for i, v := range arr {
		out[i] = T(v)
	}
	*h = out
	return nil
}

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// BeforeCreate hook for UUID generation
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
