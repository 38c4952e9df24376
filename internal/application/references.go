package application

import (
	"context"

	"github.com/google/uuid"

	"rentflow/internal/models"
	"rentflow/internal/notify"
)

// Reference forms are filled in by the applicant's previous landlord,
// guarantor and employer. Each exists at most once per application and
// its creation records the matching *_REFERENCE status.

func (s *Service) CreateLandlordReference(ctx context.Context, id uuid.UUID, form *models.LandlordReferenceForm) (*models.LandlordReferenceForm, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	form.ID = uuid.Nil
	form.ApplicationID = id
	if err := s.references.CreateLandlordReference(ctx, form); err != nil {
		return nil, err
	}
	if err := s.referenceReceived(ctx, app, models.StatusLandlordReference, "landlord"); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *Service) CreateGuarantorAgreement(ctx context.Context, id uuid.UUID, agreement *models.GuarantorAgreement) (*models.GuarantorAgreement, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	agreement.ID = uuid.Nil
	agreement.ApplicationID = id
	if err := s.references.CreateGuarantorAgreement(ctx, agreement); err != nil {
		return nil, err
	}
	if err := s.referenceReceived(ctx, app, models.StatusGuarantorReference, "guarantor"); err != nil {
		return nil, err
	}
	return agreement, nil
}

func (s *Service) CreateEmployeeReference(ctx context.Context, id uuid.UUID, form *models.EmployeeReferenceForm) (*models.EmployeeReferenceForm, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	form.ID = uuid.Nil
	form.ApplicationID = id
	if err := s.references.CreateEmployeeReference(ctx, form); err != nil {
		return nil, err
	}
	if err := s.referenceReceived(ctx, app, models.StatusEmployeeReference, "employer"); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *Service) referenceReceived(ctx context.Context, app *models.Application, status models.ApplicationStatus, from string) error {
	if _, err := s.UpdateApplicationStatusStep(ctx, app.ID, status); err != nil {
		return err
	}
	s.notifyLandlord(ctx, app, notify.Message{
		Kind:  models.NotifyReferenceReceived,
		Title: "Reference received",
		Body:  "A reference from the applicant's " + from + " has been submitted.",
		Link:  applicationLink(app.ID),
	})
	return nil
}
