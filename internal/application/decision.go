package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rentflow/internal/apperr"
	"rentflow/internal/metrics"
	"rentflow/internal/models"
	"rentflow/internal/notify"
)

// Decisions a landlord can make on an application, and the invite
// response each one sets, if any.
var decisions = map[models.ApplicationStatus]models.InviteResponse{
	models.StatusAccepted:    models.ResponseApproved,
	models.StatusDeclined:    models.ResponseDeclined,
	models.StatusMakePayment: "",
}

// Decide records the landlord's decision on an application
func (s *Service) Decide(ctx context.Context, actorID, id uuid.UUID, decision models.ApplicationStatus) (*models.Application, error) {
	response, ok := decisions[decision]
	if !ok {
		return nil, apperr.Validation("decision must be one of ACCEPTED, DECLINED or MAKEPAYMENT")
	}
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.landlordProperty(ctx, actorID, app); err != nil {
		return nil, err
	}
	if app.StatusesCompleted.Contains(models.StatusDeclined) {
		return nil, apperr.Precondition("application has already been declined")
	}

	if _, err := s.UpdateApplicationStatusStep(ctx, id, decision); err != nil {
		return nil, err
	}
	if response != "" && app.ApplicationInviteID != nil {
		if _, err := s.responder.UpdateInviteResponse(ctx, *app.ApplicationInviteID, response); err != nil {
			return nil, fmt.Errorf("update invite response: %w", err)
		}
	}

	s.notifyUser(ctx, app.UserID, notify.Message{
		Kind:  models.NotifyDecision,
		Title: "Update on your application",
		Body:  fmt.Sprintf("The landlord has set your application to %s.", decision),
		Link:  applicationLink(id),
	})
	return s.apps.GetApplication(ctx, id)
}

// CreateTenant turns an accepted application into a tenancy
func (s *Service) CreateTenant(ctx context.Context, actorID, id uuid.UUID, startDate *time.Time) (*models.Tenant, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.landlordProperty(ctx, actorID, app); err != nil {
		return nil, err
	}
	if !app.StatusesCompleted.Contains(models.StatusAccepted) {
		return nil, apperr.Precondition("application has not been accepted", string(models.StatusAccepted))
	}

	tenant := &models.Tenant{
		UserID:           app.UserID,
		PropertyID:       app.PropertyID,
		ApplicationID:    app.ID,
		TenancyStartDate: startDate,
		IsCurrent:        true,
	}
	if err := s.tenants.CreateTenant(ctx, tenant); err != nil {
		return nil, err
	}
	if app.ApplicationInviteID != nil {
		if err := s.invites.AttachTenant(ctx, *app.ApplicationInviteID, tenant.ID); err != nil {
			return nil, fmt.Errorf("attach tenant to invite: %w", err)
		}
	}
	if _, err := s.UpdateApplicationStatusStep(ctx, id, models.StatusTenantCreated); err != nil {
		return nil, err
	}

	s.notifyUser(ctx, app.UserID, notify.Message{
		Kind:  models.NotifyTenantCreated,
		Title: "Welcome to your new home",
		Body:  "Your tenancy has been created. Please sign your agreements.",
		Link:  applicationLink(id),
	})
	return tenant, nil
}

// AgreementsSigned records that the new tenant signed their agreements
func (s *Service) AgreementsSigned(ctx context.Context, actorID, id uuid.UUID) (*models.Application, error) {
	app, err := s.ownedApplication(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if !app.StatusesCompleted.Contains(models.StatusTenantCreated) {
		return nil, apperr.Precondition("tenancy has not been created", string(models.StatusTenantCreated))
	}
	if _, err := s.UpdateApplicationStatusStep(ctx, id, models.StatusAgreementsSigned); err != nil {
		return nil, err
	}
	return s.apps.GetApplication(ctx, id)
}

// SendReminder nudges the applicant to finish their application
func (s *Service) SendReminder(ctx context.Context, actorID, id uuid.UUID) error {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return err
	}
	property, err := s.landlordProperty(ctx, actorID, app)
	if err != nil {
		return err
	}

	s.notifyUser(ctx, app.UserID, notify.Message{
		Kind:  models.NotifyApplicationReminder,
		Title: "Reminder: complete your application",
		Body:  fmt.Sprintf("Your application for %s is waiting to be completed.", property.Name),
		Link:  applicationLink(id),
	})
	metrics.RecordReminder("manual")
	return nil
}
