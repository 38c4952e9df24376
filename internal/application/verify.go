package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rentflow/internal/apperr"
	"rentflow/internal/metrics"
	"rentflow/internal/models"
	"rentflow/internal/notify"
	"rentflow/internal/screening"
)

// ErrScreeningFailed is returned with the report when at least one
// screener did not pass. Nothing is written in that case.
var ErrScreeningFailed = apperr.Precondition("application failed screening")

type VerifyResult struct {
	Report      screening.Report
	Application *models.Application
}

// VerifyApplication runs every screener against the submitted references
// and, when all pass, marks every verification status YES.
func (s *Service) VerifyApplication(ctx context.Context, actorID, id uuid.UUID) (*VerifyResult, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.landlordProperty(ctx, actorID, app); err != nil {
		return nil, err
	}

	var missing []string
	if app.LandlordReference == nil {
		missing = append(missing, "landlordReferenceForm")
	}
	if app.GuarantorAgreement == nil {
		missing = append(missing, "guarantorAgreement")
	}
	if app.EmployeeReference == nil {
		missing = append(missing, "employeeReferenceForm")
	}
	if len(missing) > 0 {
		return nil, apperr.Precondition("reference forms have not all been submitted", missing...)
	}

	report := screening.Run(app)
	for _, r := range report.Results() {
		metrics.RecordScreening(r.Name, r.Passed)
	}
	s.log.WithFields(logrus.Fields{
		"application_id": id,
		"guarantor":      report.Guarantor,
		"employment":     report.Employment,
		"landlord":       report.Landlord,
	}).Info("application screened")

	if !report.Passed() {
		return &VerifyResult{Report: report}, ErrScreeningFailed
	}

	if err := s.apps.SetVerification(ctx, id, models.AllVerified()); err != nil {
		return nil, err
	}
	verified, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifyUser(ctx, verified.UserID, notify.Message{
		Kind:  models.NotifyVerificationPassed,
		Title: "Your references have been verified",
		Body:  "Your references were verified. The landlord will be in touch with a decision.",
		Link:  applicationLink(id),
	})
	return &VerifyResult{Report: report, Application: verified}, nil
}
