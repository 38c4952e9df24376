package application

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"rentflow/internal/apperr"
	"rentflow/internal/models"
	"rentflow/internal/notify"
	"rentflow/internal/storage"
)

// upsertRelation saves a sub-form that the application points at through
// rel. Creating the form (no id) re-points the application and advances
// step; updating an existing form only rewrites it.
func (s *Service) upsertRelation(
	ctx context.Context,
	actorID, id uuid.UUID,
	rel models.Relation,
	step models.ApplicationStep,
	formID *uuid.UUID,
	save func() (bool, error),
) (*models.Application, error) {
	app, err := s.ownedApplication(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if *formID != uuid.Nil {
		if current := rel.Get(app); current == nil || *current != *formID {
			return nil, apperr.NotFound(string(step) + " record")
		}
	}

	created, err := save()
	if err != nil {
		return nil, err
	}
	if created {
		if err := s.apps.SetRelation(ctx, id, rel, *formID); err != nil {
			return nil, err
		}
		if err := s.advanceStep(ctx, id, step); err != nil {
			return nil, err
		}
	}
	return s.apps.GetApplication(ctx, id)
}

// UpsertPersonalDetails updates the details the application was created with
func (s *Service) UpsertPersonalDetails(ctx context.Context, actorID, id uuid.UUID, f *models.ApplicantPersonalDetails) (*models.Application, error) {
	return s.upsertRelation(ctx, actorID, id, models.RelationPersonalDetails, models.StepPersonalKin, &f.ID,
		func() (bool, error) { return s.forms.SavePersonalDetails(ctx, f) })
}

func (s *Service) UpsertResidentialInformation(ctx context.Context, actorID, id uuid.UUID, f *models.ResidentialInformation) (*models.Application, error) {
	return s.upsertRelation(ctx, actorID, id, models.RelationResidential, models.StepResidentialAddress, &f.ID,
		func() (bool, error) { return s.forms.SaveResidential(ctx, f) })
}

func (s *Service) UpsertEmploymentInfo(ctx context.Context, actorID, id uuid.UUID, f *models.EmploymentInformation) (*models.Application, error) {
	return s.upsertRelation(ctx, actorID, id, models.RelationEmployment, models.StepEmployment, &f.ID,
		func() (bool, error) { return s.forms.SaveEmployment(ctx, f) })
}

func (s *Service) UpsertGuarantorInfo(ctx context.Context, actorID, id uuid.UUID, f *models.GuarantorInformation) (*models.Application, error) {
	return s.upsertRelation(ctx, actorID, id, models.RelationGuarantor, models.StepGuarantorInfo, &f.ID,
		func() (bool, error) { return s.forms.SaveGuarantor(ctx, f) })
}

func (s *Service) UpsertEmergencyContact(ctx context.Context, actorID, id uuid.UUID, f *models.EmergencyContact) (*models.Application, error) {
	return s.upsertRelation(ctx, actorID, id, models.RelationEmergencyContact, models.StepEmergencyContact, &f.ID,
		func() (bool, error) { return s.forms.SaveEmergencyContact(ctx, f) })
}

func (s *Service) UpsertRefereeInfo(ctx context.Context, actorID, id uuid.UUID, f *models.Referee) (*models.Application, error) {
	return s.upsertRelation(ctx, actorID, id, models.RelationReferee, models.StepReferee, &f.ID,
		func() (bool, error) { return s.forms.SaveReferee(ctx, f) })
}

// UpsertAdditionalInfo saves the application questions
func (s *Service) UpsertAdditionalInfo(ctx context.Context, actorID, id uuid.UUID, f *models.ApplicationQuestion) (*models.Application, error) {
	app, err := s.ownedApplication(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if f.ID != uuid.Nil && (app.AdditionalInfo == nil || app.AdditionalInfo.ID != f.ID) {
		return nil, apperr.NotFound("additional information")
	}
	if f.ID == uuid.Nil && app.AdditionalInfo != nil {
		f.ID = app.AdditionalInfo.ID
	}
	f.ApplicationID = id

	created, err := s.forms.SaveAdditionalInfo(ctx, f)
	if err != nil {
		return nil, err
	}
	if created {
		if err := s.advanceStep(ctx, id, models.StepAdditionalInfo); err != nil {
			return nil, err
		}
	}
	return s.apps.GetApplication(ctx, id)
}

// DocumentUpload is a file submitted for the DOCUMENT_UPLOAD step
type DocumentUpload struct {
	Name        string
	Type        string
	Filename    string
	ContentType string
	Body        io.Reader
}

// AddDocument stores the file and records it against the application
func (s *Service) AddDocument(ctx context.Context, actorID, id uuid.UUID, up DocumentUpload) (*models.ApplicationDocument, error) {
	if _, err := s.ownedApplication(ctx, actorID, id); err != nil {
		return nil, err
	}
	doc := storage.Document{
		ApplicationID: id,
		Filename:      up.Filename,
		ContentType:   up.ContentType,
		Body:          up.Body,
	}
	if err := doc.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	res, err := s.documents.UploadDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	name := up.Name
	if name == "" {
		name = up.Filename
	}
	record := &models.ApplicationDocument{
		ApplicationID: id,
		DocumentName:  name,
		DocumentType:  up.Type,
		S3Key:         res.S3Key,
		FileHash:      res.FileHash,
		FileSize:      res.FileSize,
		MimeType:      res.MimeType,
	}
	if err := s.forms.AddDocument(ctx, record); err != nil {
		if delErr := s.documents.DeleteFile(ctx, res.S3Key); delErr != nil {
			s.log.WithError(delErr).WithField("s3_key", res.S3Key).Warn("failed to remove orphaned document")
		}
		return nil, err
	}
	if err := s.advanceStep(ctx, id, models.StepDocumentUpload); err != nil {
		return nil, err
	}
	return record, nil
}

const documentURLExpiry = 15 * time.Minute

// DocumentURL returns a short-lived download link for one of the
// application's documents
func (s *Service) DocumentURL(ctx context.Context, actorID, id, documentID uuid.UUID) (string, error) {
	app, err := s.GetApplication(ctx, actorID, id)
	if err != nil {
		return "", err
	}
	for _, doc := range app.Documents {
		if doc.ID == documentID {
			return s.documents.GeneratePresignedURL(ctx, doc.S3Key, documentURLExpiry)
		}
	}
	return "", apperr.NotFound("document")
}

// CreateDeclaration records the applicant's declaration, which submits
// the application.
func (s *Service) CreateDeclaration(ctx context.Context, actorID, id uuid.UUID, d *models.Declaration) (*models.Application, error) {
	if !d.Declared {
		return nil, apperr.Validation("declaration must be accepted")
	}
	app, err := s.ownedApplication(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	d.ID = uuid.Nil
	d.ApplicationID = id
	if d.DeclaredAt.IsZero() {
		d.DeclaredAt = s.now().UTC()
	}
	if err := s.forms.CreateDeclaration(ctx, d); err != nil {
		return nil, err
	}
	if err := s.advanceStep(ctx, id, models.StepDeclaration); err != nil {
		return nil, err
	}
	if _, err := s.UpdateApplicationStatusStep(ctx, id, models.StatusSubmitted); err != nil {
		return nil, err
	}

	s.notifyLandlord(ctx, app, notify.Message{
		Kind:  models.NotifyApplicationSubmitted,
		Title: "New application submitted",
		Body:  "An applicant has signed their declaration and submitted an application.",
		Link:  applicationLink(id),
	})
	return s.apps.GetApplication(ctx, id)
}
