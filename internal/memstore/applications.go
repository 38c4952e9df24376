package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"rentflow/internal/apperr"
	"rentflow/internal/models"
)

type Applications struct{ *state }

func (s *Applications) CreateApplication(_ context.Context, app *models.Application, details *models.ApplicantPersonalDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&details.BaseModel)
	s.personal[details.ID] = *details

	app.ApplicantPersonalDetailsID = &details.ID
	s.stamp(&app.BaseModel)
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	row := *app
	row.StatusesCompleted = cloneHistory(app.StatusesCompleted)
	row.CompletedSteps = cloneHistory(app.CompletedSteps)
	s.apps[row.ID] = row
	s.appOrder = append(s.appOrder, row.ID)
	return nil
}

func (s *Applications) live(id uuid.UUID) (models.Application, error) {
	app, ok := s.apps[id]
	if !ok || app.IsDeleted {
		return models.Application{}, apperr.NotFound("application")
	}
	return app, nil
}

// GetApplication returns the application with every relation loaded
func (s *Applications) GetApplication(_ context.Context, id uuid.UUID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, err := s.live(id)
	if err != nil {
		return nil, err
	}
	return s.resolveApplication(app), nil
}

func (s *state) resolveApplication(app models.Application) *models.Application {
	out := app
	out.StatusesCompleted = cloneHistory(app.StatusesCompleted)
	out.CompletedSteps = cloneHistory(app.CompletedSteps)
	out.PersonalDetails = lookup(s.personal, app.ApplicantPersonalDetailsID)
	out.EmploymentInfo = lookup(s.employment, app.EmploymentInformationID)
	out.GuarantorInfo = lookup(s.guarantors, app.GuarantorInformationID)
	out.EmergencyContact = lookup(s.emergency, app.EmergencyContactID)
	out.Referee = lookup(s.referees, app.RefereeID)
	if r := lookup(s.residential, app.ResidentialID); r != nil {
		r.PreviousAddresses = slices.Clone(r.PreviousAddresses)
		out.ResidentialInfo = r
	}
	out.Documents = slices.Clone(s.documents[app.ID])
	for _, q := range s.questions {
		if q.ApplicationID == app.ID {
			out.AdditionalInfo = ptr(q)
		}
	}
	if d, ok := s.declarations[app.ID]; ok {
		out.Declaration = &d
	}
	if f, ok := s.landlordRefs[app.ID]; ok {
		f.TenancyHistory = ptr(*f.TenancyHistory)
		f.ExternalLandlord = ptr(*f.ExternalLandlord)
		f.TenantConduct = ptr(*f.TenantConduct)
		out.LandlordReference = &f
	}
	if a, ok := s.agreements[app.ID]; ok {
		if a.EmploymentInfo != nil {
			a.EmploymentInfo = ptr(*a.EmploymentInfo)
		}
		out.GuarantorAgreement = &a
	}
	if e, ok := s.employeeRefs[app.ID]; ok {
		out.EmployeeReference = &e
	}
	return &out
}

func lookup[T any](m map[uuid.UUID]T, id *uuid.UUID) *T {
	if id == nil {
		return nil
	}
	v, ok := m[*id]
	if !ok {
		return nil
	}
	return &v
}

// LatestApplicationFor returns the newest live application for the pair,
// or nil when there is none
func (s *Applications) LatestApplicationFor(_ context.Context, userID, propertyID uuid.UUID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Application
	for _, id := range s.appOrder {
		app := s.apps[id]
		if app.IsDeleted || app.UserID != userID || app.PropertyID != propertyID {
			continue
		}
		if latest == nil || !app.CreatedAt.Before(latest.CreatedAt) {
			latest = ptr(app)
		}
	}
	if latest == nil {
		return nil, nil
	}
	latest.StatusesCompleted = cloneHistory(latest.StatusesCompleted)
	latest.CompletedSteps = cloneHistory(latest.CompletedSteps)
	return latest, nil
}

func (s *Applications) update(id uuid.UUID, fn func(*models.Application) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, err := s.live(id)
	if err != nil {
		return false, err
	}
	if !fn(&app) {
		return false, nil
	}
	app.UpdatedAt = s.now()
	s.apps[id] = app
	return true, nil
}

func (s *Applications) SetLastStep(_ context.Context, id uuid.UUID, step models.ApplicationStep) error {
	_, err := s.update(id, func(a *models.Application) bool {
		a.LastStep = &step
		return true
	})
	return err
}

func (s *Applications) AppendCompletedStep(_ context.Context, id uuid.UUID, step models.ApplicationStep) (bool, error) {
	return s.update(id, func(a *models.Application) bool {
		var added bool
		a.CompletedSteps, added = cloneHistory(a.CompletedSteps).Append(step)
		return added
	})
}

// AppendStatus changes nothing when status is already in the history
func (s *Applications) AppendStatus(_ context.Context, id uuid.UUID, status models.ApplicationStatus) (bool, error) {
	return s.update(id, func(a *models.Application) bool {
		var added bool
		a.StatusesCompleted, added = cloneHistory(a.StatusesCompleted).Append(status)
		if added {
			a.Status = status
		}
		return added
	})
}

func (s *Applications) SetStatus(_ context.Context, id uuid.UUID, status models.ApplicationStatus) error {
	_, err := s.update(id, func(a *models.Application) bool {
		a.Status = status
		a.StatusesCompleted, _ = cloneHistory(a.StatusesCompleted).Append(status)
		return true
	})
	return err
}

func (s *Applications) SetRelation(_ context.Context, id uuid.UUID, rel models.Relation, relID uuid.UUID) error {
	_, err := s.update(id, func(a *models.Application) bool {
		rel.Set(a, relID)
		return true
	})
	return err
}

func (s *Applications) SetVerification(_ context.Context, id uuid.UUID, v models.Verification) error {
	_, err := s.update(id, func(a *models.Application) bool {
		a.Verification = v
		return true
	})
	return err
}

func (s *Applications) SoftDeleteApplication(_ context.Context, id uuid.UUID) error {
	_, err := s.update(id, func(a *models.Application) bool {
		a.IsDeleted = true
		return true
	})
	return err
}

type Forms struct{ *state }

// save creates the record when it has no id and otherwise overwrites the
// existing one, keeping its creation time
func save[T any](s *state, m map[uuid.UUID]T, v *T, base *models.BaseModel, what string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if base.ID == uuid.Nil {
		s.stamp(base)
		m[base.ID] = *v
		return true, nil
	}
	if _, ok := m[base.ID]; !ok {
		return false, apperr.NotFound(what)
	}
	created := baseOf(m[base.ID])
	base.CreatedAt = created.CreatedAt
	base.UpdatedAt = s.now()
	m[base.ID] = *v
	return false, nil
}

func baseOf(v any) models.BaseModel {
	switch r := v.(type) {
	case models.ApplicantPersonalDetails:
		return r.BaseModel
	case models.ResidentialInformation:
		return r.BaseModel
	case models.EmploymentInformation:
		return r.BaseModel
	case models.GuarantorInformation:
		return r.BaseModel
	case models.EmergencyContact:
		return r.BaseModel
	case models.Referee:
		return r.BaseModel
	case models.ApplicationQuestion:
		return r.BaseModel
	}
	return models.BaseModel{}
}

func (s *Forms) SavePersonalDetails(_ context.Context, f *models.ApplicantPersonalDetails) (bool, error) {
	return save(s.state, s.personal, f, &f.BaseModel, "personal details")
}

func (s *Forms) SaveEmployment(_ context.Context, f *models.EmploymentInformation) (bool, error) {
	return save(s.state, s.employment, f, &f.BaseModel, "employment information")
}

func (s *Forms) SaveGuarantor(_ context.Context, f *models.GuarantorInformation) (bool, error) {
	return save(s.state, s.guarantors, f, &f.BaseModel, "guarantor information")
}

func (s *Forms) SaveEmergencyContact(_ context.Context, f *models.EmergencyContact) (bool, error) {
	return save(s.state, s.emergency, f, &f.BaseModel, "emergency contact")
}

func (s *Forms) SaveReferee(_ context.Context, f *models.Referee) (bool, error) {
	return save(s.state, s.referees, f, &f.BaseModel, "referee")
}

func (s *Forms) SaveAdditionalInfo(_ context.Context, f *models.ApplicationQuestion) (bool, error) {
	s.mu.RLock()
	for id, q := range s.questions {
		if q.ApplicationID == f.ApplicationID && id != f.ID {
			s.mu.RUnlock()
			return false, apperr.Duplicate("additional information already exists")
		}
	}
	s.mu.RUnlock()
	return save(s.state, s.questions, f, &f.BaseModel, "additional information")
}

// SaveResidential upserts the record and replaces its previous addresses
func (s *Forms) SaveResidential(_ context.Context, f *models.ResidentialInformation) (bool, error) {
	addresses := make([]models.PreviousAddress, len(f.PreviousAddresses))
	for i, addr := range f.PreviousAddresses {
		addr.ID = uuid.Nil
		addresses[i] = addr
	}
	f.PreviousAddresses = addresses
	created, err := save(s.state, s.residential, f, &f.BaseModel, "residential information")
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range f.PreviousAddresses {
		f.PreviousAddresses[i].ResidentialInformationID = f.ID
		s.stamp(&f.PreviousAddresses[i].BaseModel)
	}
	row := *f
	row.PreviousAddresses = slices.Clone(f.PreviousAddresses)
	s.residential[f.ID] = row
	return created, nil
}

func (s *Forms) AddDocument(_ context.Context, doc *models.ApplicationDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&doc.BaseModel)
	s.documents[doc.ApplicationID] = append(s.documents[doc.ApplicationID], *doc)
	return nil
}

func (s *Forms) CreateDeclaration(_ context.Context, d *models.Declaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.declarations[d.ApplicationID]; ok {
		return apperr.Duplicate("declaration completed")
	}
	s.stamp(&d.BaseModel)
	s.declarations[d.ApplicationID] = *d
	return nil
}

type References struct{ *state }

func (s *References) CreateLandlordReference(_ context.Context, form *models.LandlordReferenceForm) error {
	if form.TenancyHistory == nil || form.ExternalLandlord == nil || form.TenantConduct == nil {
		return apperr.Validation("landlord reference requires tenancy history, landlord and conduct details")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.landlordRefs[form.ApplicationID]; ok {
		return apperr.Duplicate(models.LandlordReferenceCompleted)
	}
	s.stamp(&form.TenancyHistory.BaseModel)
	s.stamp(&form.ExternalLandlord.BaseModel)
	s.stamp(&form.TenantConduct.BaseModel)
	form.TenancyHistoryID = form.TenancyHistory.ID
	form.ExternalLandlordID = form.ExternalLandlord.ID
	form.TenantConductID = form.TenantConduct.ID
	s.stamp(&form.BaseModel)

	row := *form
	row.TenancyHistory = ptr(*form.TenancyHistory)
	row.ExternalLandlord = ptr(*form.ExternalLandlord)
	row.TenantConduct = ptr(*form.TenantConduct)
	s.landlordRefs[form.ApplicationID] = row
	return nil
}

func (s *References) CreateGuarantorAgreement(_ context.Context, agreement *models.GuarantorAgreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agreements[agreement.ApplicationID]; ok {
		return apperr.Duplicate(models.GuarantorReferenceCompleted)
	}
	row := *agreement
	if agreement.EmploymentInfo != nil {
		s.stamp(&agreement.EmploymentInfo.BaseModel)
		agreement.EmploymentInfoID = &agreement.EmploymentInfo.ID
		row.EmploymentInfo = ptr(*agreement.EmploymentInfo)
		row.EmploymentInfoID = agreement.EmploymentInfoID
	}
	s.stamp(&agreement.BaseModel)
	row.BaseModel = agreement.BaseModel
	s.agreements[agreement.ApplicationID] = row
	return nil
}

func (s *References) CreateEmployeeReference(_ context.Context, form *models.EmployeeReferenceForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employeeRefs[form.ApplicationID]; ok {
		return apperr.Duplicate(models.EmployeeReferenceCompleted)
	}
	s.stamp(&form.BaseModel)
	s.employeeRefs[form.ApplicationID] = *form
	return nil
}

type Tenants struct{ *state }

func (s *Tenants) CreateTenant(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenant.ApplicationID]; ok {
		return apperr.Duplicate(models.TenantAlreadyCreated)
	}
	s.stamp(&tenant.BaseModel)
	s.tenants[tenant.ApplicationID] = *tenant
	return nil
}

func (s *Tenants) GetTenantForApplication(_ context.Context, applicationID uuid.UUID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[applicationID]
	if !ok {
		return nil, apperr.NotFound("tenant")
	}
	return &t, nil
}
