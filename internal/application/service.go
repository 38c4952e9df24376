// Package application drives an applicant's rental application from
// creation through sub-form submission, third-party references, screening
// and the landlord's decision.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rentflow/internal/apperr"
	"rentflow/internal/models"
	"rentflow/internal/notify"
	"rentflow/internal/storage"
)

// DefaultCooldown is how long a (user, property) pair must wait before
// applying again.
const DefaultCooldown = 90 * 24 * time.Hour

// Store persists applications and their tracking columns
type Store interface {
	CreateApplication(ctx context.Context, app *models.Application, details *models.ApplicantPersonalDetails) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	LatestApplicationFor(ctx context.Context, userID, propertyID uuid.UUID) (*models.Application, error)
	SetLastStep(ctx context.Context, id uuid.UUID, step models.ApplicationStep) error
	AppendCompletedStep(ctx context.Context, id uuid.UUID, step models.ApplicationStep) (bool, error)
	AppendStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error
	SetRelation(ctx context.Context, id uuid.UUID, rel models.Relation, relID uuid.UUID) error
	SetVerification(ctx context.Context, id uuid.UUID, v models.Verification) error
	SoftDeleteApplication(ctx context.Context, id uuid.UUID) error
}

// FormStore creates or updates the applicant's sub-forms
type FormStore interface {
	SavePersonalDetails(ctx context.Context, f *models.ApplicantPersonalDetails) (bool, error)
	SaveResidential(ctx context.Context, f *models.ResidentialInformation) (bool, error)
	SaveEmployment(ctx context.Context, f *models.EmploymentInformation) (bool, error)
	SaveGuarantor(ctx context.Context, f *models.GuarantorInformation) (bool, error)
	SaveEmergencyContact(ctx context.Context, f *models.EmergencyContact) (bool, error)
	SaveReferee(ctx context.Context, f *models.Referee) (bool, error)
	SaveAdditionalInfo(ctx context.Context, f *models.ApplicationQuestion) (bool, error)
	AddDocument(ctx context.Context, doc *models.ApplicationDocument) error
	CreateDeclaration(ctx context.Context, d *models.Declaration) error
}

// ReferenceStore creates the third-party reference forms
type ReferenceStore interface {
	CreateLandlordReference(ctx context.Context, form *models.LandlordReferenceForm) error
	CreateGuarantorAgreement(ctx context.Context, agreement *models.GuarantorAgreement) error
	CreateEmployeeReference(ctx context.Context, form *models.EmployeeReferenceForm) error
}

type TenantStore interface {
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
}

// InviteStore is the subset of invite persistence applications need
type InviteStore interface {
	GetInvite(ctx context.Context, id uuid.UUID) (*models.ApplicationInvite, error)
	AttachApplication(ctx context.Context, id, applicationID uuid.UUID) error
	AttachTenant(ctx context.Context, id, tenantID uuid.UUID) error
}

// InviteResponder moves an invite's response; the invite engine implements it
type InviteResponder interface {
	UpdateInviteResponse(ctx context.Context, id uuid.UUID, response models.InviteResponse) (*models.ApplicationInvite, error)
}

type PropertyStore interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

type Deps struct {
	Applications Store
	Forms        FormStore
	References   ReferenceStore
	Tenants      TenantStore
	Invites      InviteStore
	Responder    InviteResponder
	Properties   PropertyStore
	Users        notify.UserLookup
	Documents    storage.Store
	Notifier     notify.Notifier
	Logger       logrus.FieldLogger

	// Cooldown is the creation dedup window; zero means DefaultCooldown
	Cooldown time.Duration
	// Now is the clock; nil means time.Now
	Now func() time.Time
}

type Service struct {
	apps       Store
	forms      FormStore
	references ReferenceStore
	tenants    TenantStore
	invites    InviteStore
	responder  InviteResponder
	properties PropertyStore
	users      notify.UserLookup
	documents  storage.Store
	notifier   notify.Notifier
	log        logrus.FieldLogger
	cooldown   time.Duration
	now        func() time.Time
}

func NewService(deps Deps) *Service {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Cooldown <= 0 {
		deps.Cooldown = DefaultCooldown
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		apps:       deps.Applications,
		forms:      deps.Forms,
		references: deps.References,
		tenants:    deps.Tenants,
		invites:    deps.Invites,
		responder:  deps.Responder,
		properties: deps.Properties,
		users:      deps.Users,
		documents:  deps.Documents,
		notifier:   deps.Notifier,
		log:        deps.Logger.WithField("component", "application"),
		cooldown:   deps.Cooldown,
		now:        deps.Now,
	}
}

// applyRequired must all be in the invite history before an application
// can be started from it
var applyRequired = []models.InviteResponse{
	models.ResponseApply,
	models.ResponseAwaitingFeedback,
	models.ResponseFeedback,
	models.ResponsePending,
}

// CreateRequest starts an application from an invite
type CreateRequest struct {
	InviteID        uuid.UUID
	PersonalDetails models.ApplicantPersonalDetails
}

// CreateApplication starts an application for propertyID by the invited
// user. The personal details submitted with it count as the PERSONAL_KIN step.
func (s *Service) CreateApplication(ctx context.Context, userID, propertyID uuid.UUID, req CreateRequest) (*models.Application, error) {
	if _, err := s.properties.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	invite, err := s.invites.GetInvite(ctx, req.InviteID)
	if err != nil {
		return nil, err
	}
	if invite.UserInvitedID != userID || invite.PropertyID != propertyID {
		return nil, apperr.Unauthorized("invite does not belong to this user and property")
	}
	if missing := invite.ResponseStepsCompleted.Missing(applyRequired...); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = string(m)
		}
		return nil, apperr.Precondition("invite has not reached the steps required to apply", names...)
	}
	if invite.ResponseStepsCompleted.ContainsAny(models.ResponseDeclined, models.ResponseRejected) {
		return nil, apperr.Precondition("invite has been declined or rejected")
	}

	latest, err := s.apps.LatestApplicationFor(ctx, userID, propertyID)
	if err != nil {
		return nil, err
	}
	if latest != nil && !latest.CreatedAt.Before(s.now().Add(-s.cooldown)) {
		return nil, apperr.Precondition(fmt.Sprintf(
			"an application for this property was already created in the last %d days",
			int(s.cooldown.Hours()/24)))
	}

	details := req.PersonalDetails
	details.ID = uuid.Nil
	inviteID := invite.ID
	app := &models.Application{
		UserID:              userID,
		PropertyID:          propertyID,
		ApplicationInviteID: &inviteID,
		Status:              models.StatusPending,
		StatusesCompleted:   models.History[models.ApplicationStatus]{models.StatusPending},
		CompletedSteps:      models.History[models.ApplicationStep]{},
	}
	if err := s.apps.CreateApplication(ctx, app, &details); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	if err := s.invites.AttachApplication(ctx, invite.ID, app.ID); err != nil {
		return nil, fmt.Errorf("attach application to invite: %w", err)
	}
	if err := s.advanceStep(ctx, app.ID, models.StepPersonalKin); err != nil {
		return nil, err
	}
	if _, err := s.responder.UpdateInviteResponse(ctx, invite.ID, models.ResponseApplicationStarted); err != nil {
		return nil, err
	}

	return s.apps.GetApplication(ctx, app.ID)
}

// GetApplication returns the application to its applicant or to the
// landlord of its property.
func (s *Service) GetApplication(ctx context.Context, actorID, id uuid.UUID) (*models.Application, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.UserID == actorID {
		return app, nil
	}
	if _, err := s.landlordProperty(ctx, actorID, app); err != nil {
		return nil, err
	}
	return app, nil
}

// DeleteApplication soft-deletes an application owned by actorID
func (s *Service) DeleteApplication(ctx context.Context, actorID, id uuid.UUID) error {
	if _, err := s.ownedApplication(ctx, actorID, id); err != nil {
		return err
	}
	return s.apps.SoftDeleteApplication(ctx, id)
}

// ownedApplication loads an application and checks actorID is its applicant
func (s *Service) ownedApplication(ctx context.Context, actorID, id uuid.UUID) (*models.Application, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != actorID {
		return nil, apperr.Unauthorized("application does not belong to you")
	}
	return app, nil
}

// landlordProperty checks actorID is the landlord of the application's property
func (s *Service) landlordProperty(ctx context.Context, actorID uuid.UUID, app *models.Application) (*models.Property, error) {
	property, err := s.properties.GetProperty(ctx, app.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.LandlordID != actorID {
		return nil, apperr.Unauthorized("only the property's landlord can do this")
	}
	return property, nil
}

func (s *Service) notifyUser(ctx context.Context, userID uuid.UUID, msg notify.Message) {
	notify.ToUser(ctx, s.notifier, s.users, userID, msg)
}

// notifyLandlord tells the landlord of app's property about msg
func (s *Service) notifyLandlord(ctx context.Context, app *models.Application, msg notify.Message) {
	property, err := s.properties.GetProperty(ctx, app.PropertyID)
	if err != nil {
		s.log.WithError(err).WithField("application_id", app.ID).Warn("cannot resolve landlord for notification")
		return
	}
	s.notifyUser(ctx, property.LandlordID, msg)
}

func applicationLink(id uuid.UUID) string {
	return "/application/" + id.String()
}
