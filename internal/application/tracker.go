package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rentflow/internal/apperr"
	"rentflow/internal/models"
	"rentflow/internal/notify"
)

// UpdateLastStepStop records step as the last one the applicant reached
func (s *Service) UpdateLastStepStop(ctx context.Context, id uuid.UUID, step models.ApplicationStep) error {
	return s.apps.SetLastStep(ctx, id, step)
}

// UpdateCompletedStep appends step to the completed steps. A step that is
// already present is left alone.
func (s *Service) UpdateCompletedStep(ctx context.Context, id uuid.UUID, step models.ApplicationStep) error {
	added, err := s.apps.AppendCompletedStep(ctx, id, step)
	if err != nil {
		return err
	}
	if !added {
		s.log.WithFields(logrus.Fields{"application_id": id, "step": step}).Debug("step already completed")
	}
	return nil
}

// advanceStep is what creating a sub-form does: move the last step and
// record the step as completed.
func (s *Service) advanceStep(ctx context.Context, id uuid.UUID, step models.ApplicationStep) error {
	if err := s.UpdateLastStepStop(ctx, id, step); err != nil {
		return fmt.Errorf("update last step: %w", err)
	}
	if err := s.UpdateCompletedStep(ctx, id, step); err != nil {
		return fmt.Errorf("update completed steps: %w", err)
	}
	return nil
}

// UpdateApplicationStatusStep sets status and records it in the status
// history. When the status was already recorded nothing changes and it
// returns (nil, nil). Otherwise it returns the application's invite, and
// fails when the application has none.
func (s *Service) UpdateApplicationStatusStep(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) (*models.ApplicationInvite, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}

	added, err := s.apps.AppendStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !added {
		s.log.WithFields(logrus.Fields{"application_id": id, "status": status}).Debug("status already recorded")
		return nil, nil
	}

	if app.ApplicationInviteID == nil {
		return nil, apperr.Precondition("application has no invite")
	}
	return s.invites.GetInvite(ctx, *app.ApplicationInviteID)
}

// UpdateApplicationStatus sets status unconditionally. Completing an
// application also marks its invite SUBMITTED.
func (s *Service) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) (*models.Application, error) {
	if err := s.apps.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if status == models.StatusCompleted && app.ApplicationInviteID != nil {
		if _, err := s.responder.UpdateInviteResponse(ctx, *app.ApplicationInviteID, models.ResponseSubmitted); err != nil {
			return nil, fmt.Errorf("mark invite submitted: %w", err)
		}
	}
	return app, nil
}

// requiredRelations must all be set before an application can complete
var requiredRelations = []struct {
	name string
	rel  models.Relation
}{
	{"guarantorInformationId", models.RelationGuarantor},
	{"residentialId", models.RelationResidential},
	{"employmentInformationId", models.RelationEmployment},
	{"applicantPersonalDetailsId", models.RelationPersonalDetails},
	{"refereeId", models.RelationReferee},
}

// MissingFields lists the required relations app does not have yet
func MissingFields(app *models.Application) []string {
	var missing []string
	for _, r := range requiredRelations {
		if r.rel.Get(app) == nil {
			missing = append(missing, r.name)
		}
	}
	return missing
}

// CompleteApplication marks the application COMPLETED once every required
// sub-form exists, or returns a precondition error naming the missing ones.
func (s *Service) CompleteApplication(ctx context.Context, actorID, id uuid.UUID) (*models.Application, error) {
	app, err := s.ownedApplication(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if missing := MissingFields(app); len(missing) > 0 {
		return nil, apperr.Precondition("application is incomplete", missing...)
	}

	completed, err := s.UpdateApplicationStatus(ctx, id, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	s.notifyLandlord(ctx, completed, notify.Message{
		Kind:  models.NotifyApplicationCompleted,
		Title: "Application completed",
		Body:  "An applicant has completed their application.",
		Link:  applicationLink(id),
	})
	return completed, nil
}
