// Package invite owns every change to an invite's response and its
// response history.
package invite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rentflow/internal/apperr"
	"rentflow/internal/metrics"
	"rentflow/internal/models"
	"rentflow/internal/notify"
	"rentflow/internal/patch"
)

// Store persists invites
type Store interface {
	CreateInvite(ctx context.Context, invite *models.ApplicationInvite) error
	GetInvite(ctx context.Context, id uuid.UUID) (*models.ApplicationInvite, error)
	UpdateInviteFields(ctx context.Context, id uuid.UUID, update models.InviteUpdate) error
	AppendInviteResponse(ctx context.Context, id uuid.UUID, response models.InviteResponse) (*models.ApplicationInvite, error)
	ListInvitesWithout(ctx context.Context, landlordID uuid.UUID, excluded []models.InviteResponse) ([]models.ApplicationInvite, error)
	ListInvitesWith(ctx context.Context, landlordID uuid.UUID, required []models.InviteResponse) ([]models.ApplicationInvite, error)
	SoftDeleteInvite(ctx context.Context, id uuid.UUID) (*models.ApplicationInvite, error)
}

// EnquiryStore reads and updates the enquiry log an invite answers
type EnquiryStore interface {
	GetEnquiry(ctx context.Context, id uuid.UUID) (*models.Enquiry, error)
	SetEnquiryStatus(ctx context.Context, id uuid.UUID, status models.EnquiryStatus) error
}

// PropertyStore resolves the property an invite is issued for
type PropertyStore interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

// Engine applies invite transitions
type Engine struct {
	invites    Store
	enquiries  EnquiryStore
	properties PropertyStore
	users      notify.UserLookup
	notifier   notify.Notifier
	log        logrus.FieldLogger
}

// Deps are the collaborators NewEngine wires into an Engine
type Deps struct {
	Invites    Store
	Enquiries  EnquiryStore
	Properties PropertyStore
	Users      notify.UserLookup
	Notifier   notify.Notifier
	Logger     logrus.FieldLogger
}

func NewEngine(deps Deps) *Engine {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &Engine{
		invites:    deps.Invites,
		enquiries:  deps.Enquiries,
		properties: deps.Properties,
		users:      deps.Users,
		notifier:   deps.Notifier,
		log:        deps.Logger.WithField("component", "invite"),
	}
}

// CreateRequest issues an invite in answer to an enquiry
type CreateRequest struct {
	EnquiryID    uuid.UUID
	LandlordID   uuid.UUID
	ScheduleDate *time.Time
	Response     *models.InviteResponse
}

// UpdateRequest is a partial update. Response and EnquiryID are optional;
// Fields only writes what was supplied.
type UpdateRequest struct {
	Response  *models.InviteResponse
	EnquiryID *uuid.UUID
	Fields    models.InviteUpdate
}

// CreateInvite inserts an invite for the enquiry's applicant and property.
// The history starts with the supplied response, or empty when none was given.
func (e *Engine) CreateInvite(ctx context.Context, req CreateRequest) (*models.ApplicationInvite, error) {
	if req.Response != nil && !req.Response.Valid() {
		return nil, apperr.Validation("invalid response %q", *req.Response)
	}

	enquiry, err := e.enquiries.GetEnquiry(ctx, req.EnquiryID)
	if err != nil {
		return nil, err
	}
	property, err := e.properties.GetProperty(ctx, enquiry.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.LandlordID != req.LandlordID {
		return nil, apperr.Unauthorized("only the property's landlord can invite applicants")
	}

	enquiryID := enquiry.ID
	invite := &models.ApplicationInvite{
		PropertyID:             property.ID,
		InvitedByLandlordID:    req.LandlordID,
		UserInvitedID:          enquiry.ApplicantID,
		EnquiryID:              &enquiryID,
		ScheduleDate:           req.ScheduleDate,
		Response:               models.ResponsePending,
		ResponseStepsCompleted: models.History[models.InviteResponse]{},
	}
	if req.Response != nil {
		invite.Response = *req.Response
		invite.ResponseStepsCompleted = models.History[models.InviteResponse]{*req.Response}
	}

	if err := e.invites.CreateInvite(ctx, invite); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}
	if err := e.enquiries.SetEnquiryStatus(ctx, enquiry.ID, models.EnquiryInvited); err != nil {
		return nil, fmt.Errorf("mark enquiry invited: %w", err)
	}
	metrics.RecordInviteTransition(string(invite.Response))

	created, err := e.invites.GetInvite(ctx, invite.ID)
	if err != nil {
		return nil, err
	}
	e.notifyUser(ctx, created.UserInvitedID, notify.Message{
		Kind:  models.NotifyInviteCreated,
		Title: "You have been invited to view a property",
		Body:  fmt.Sprintf("You have been invited to view %s.", propertyName(created)),
		Link:  "/invites/" + created.ID.String(),
	})
	return created, nil
}

// poisonResponses block every further update once present in the history
var poisonResponses = []models.InviteResponse{models.ResponseDeclined, models.ResponseRejected}

// applyPrerequisites must all be in the history before APPLY
var applyPrerequisites = []models.InviteResponse{
	models.ResponsePending,
	models.ResponseAwaitingFeedback,
	models.ResponseFeedback,
}

// ValidateUpdate checks a requested update against the invite's current
// history. It has no side effects.
func ValidateUpdate(history models.History[models.InviteResponse], req UpdateRequest) error {
	if history.ContainsAny(poisonResponses...) {
		return apperr.Precondition("invite has been declined or rejected and can no longer be updated")
	}
	if req.Response == nil {
		return nil
	}

	response := *req.Response
	if !response.Valid() {
		return apperr.Validation("invalid response %q", response)
	}
	if response == models.ResponseApply {
		if missing := history.Missing(applyPrerequisites...); len(missing) > 0 {
			names := make([]string, len(missing))
			for i, m := range missing {
				names[i] = string(m)
			}
			return apperr.Precondition("invite has not completed the steps required to apply", names...)
		}
	}
	if (response == models.ResponseApply || response == models.ResponseReInvited) && req.EnquiryID == nil {
		return apperr.Validation("enquiryId is required when response is %s", response)
	}
	if response == models.ResponseRescheduledAccepted && !req.Fields.ReScheduleDate.IsSet() {
		return apperr.Validation("reScheduleDate is required when response is %s", response)
	}
	return nil
}

// UpdateInvite validates and applies req. The enquiry is re-invited first,
// then the fields are written, then the response is appended.
func (e *Engine) UpdateInvite(ctx context.Context, id uuid.UUID, req UpdateRequest) (*models.ApplicationInvite, error) {
	current, err := e.invites.GetInvite(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateUpdate(current.ResponseStepsCompleted, req); err != nil {
		return nil, err
	}

	if req.Response != nil && req.EnquiryID != nil &&
		(*req.Response == models.ResponseApply || *req.Response == models.ResponseReInvited) {
		if err := e.enquiries.SetEnquiryStatus(ctx, *req.EnquiryID, models.EnquiryReInvited); err != nil {
			return nil, fmt.Errorf("re-invite enquiry: %w", err)
		}
	}

	fields := req.Fields
	if req.EnquiryID != nil && fields.EnquiryID.IsUnchanged() {
		fields.EnquiryID = patch.Set(*req.EnquiryID)
	}
	if err := e.invites.UpdateInviteFields(ctx, id, fields); err != nil {
		return nil, err
	}

	if req.Response == nil {
		return e.invites.GetInvite(ctx, id)
	}
	updated, err := e.UpdateInviteResponse(ctx, id, *req.Response)
	if err != nil {
		return nil, err
	}
	e.notifyUser(ctx, updated.InvitedByLandlordID, notify.Message{
		Kind:  models.NotifyInviteUpdated,
		Title: "Invite updated",
		Body:  fmt.Sprintf("An invite for %s is now %s.", propertyName(updated), updated.Response),
		Link:  "/invites/" + updated.ID.String(),
	})
	return updated, nil
}

// UpdateInviteResponse sets the response and appends it to the history
// unless already present.
func (e *Engine) UpdateInviteResponse(ctx context.Context, id uuid.UUID, response models.InviteResponse) (*models.ApplicationInvite, error) {
	if !response.Valid() {
		return nil, apperr.Validation("invalid response %q", response)
	}
	invite, err := e.invites.AppendInviteResponse(ctx, id, response)
	if err != nil {
		return nil, err
	}
	metrics.RecordInviteTransition(string(response))
	e.log.WithFields(logrus.Fields{"invite_id": id, "response": response}).Debug("invite response updated")
	return invite, nil
}

func (e *Engine) GetInvite(ctx context.Context, id uuid.UUID) (*models.ApplicationInvite, error) {
	return e.invites.GetInvite(ctx, id)
}

// GetInviteWithoutStatus lists the landlord's invites whose history holds
// none of excluded
func (e *Engine) GetInviteWithoutStatus(ctx context.Context, landlordID uuid.UUID, excluded []models.InviteResponse) ([]models.ApplicationInvite, error) {
	return e.invites.ListInvitesWithout(ctx, landlordID, excluded)
}

// GetInvitesWithStatus lists the landlord's invites whose history holds
// every one of required
func (e *Engine) GetInvitesWithStatus(ctx context.Context, landlordID uuid.UUID, required []models.InviteResponse) ([]models.ApplicationInvite, error) {
	return e.invites.ListInvitesWith(ctx, landlordID, required)
}

// DeleteInvite soft-deletes the invite when landlordID issued it and
// returns an Unauthorized error otherwise.
func (e *Engine) DeleteInvite(ctx context.Context, id, landlordID uuid.UUID) (*models.ApplicationInvite, error) {
	invite, err := e.invites.GetInvite(ctx, id)
	if err != nil {
		return nil, err
	}
	if invite.InvitedByLandlordID != landlordID {
		return nil, apperr.Unauthorized("you cannot delete this invite")
	}
	return e.invites.SoftDeleteInvite(ctx, id)
}

func (e *Engine) notifyUser(ctx context.Context, userID uuid.UUID, msg notify.Message) {
	notify.ToUser(ctx, e.notifier, e.users, userID, msg)
}

func propertyName(invite *models.ApplicationInvite) string {
	if invite.Property != nil && invite.Property.Name != "" {
		return invite.Property.Name
	}
	return "a property"
}
