package application

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentflow/internal/apperr"
	"rentflow/internal/models"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func yes() *bool {
	b := true
	return &b
}

// fillForms submits every sub-form the completion gate requires, with
// data the reference forms below agree with
func (f *fixture) fillForms(t *testing.T, id uuid.UUID) {
	t.Helper()
	_, err := f.svc.UpsertResidentialInformation(f.ctx, f.applicant.ID, id, &models.ResidentialInformation{
		Address:           "1 Marylebone Road",
		LengthOfResidence: "3 years",
		ReasonForLeaving:  "Relocating",
		LandlordName:      "Charles Babbage",
		LandlordEmail:     "charles@example.com",
		LandlordPhone:     "0207 000 0000",
		PreviousAddresses: []models.PreviousAddress{{Address: "2 Strand", LengthOfResidence: "3 Years"}},
	})
	require.NoError(t, err)
	_, err = f.svc.UpsertEmploymentInfo(f.ctx, f.applicant.ID, id, &models.EmploymentInformation{
		EmployerCompany: "Analytical Engines Ltd",
		EmployerEmail:   "hr@engines.example",
		JobTitle:        "Programmer",
		StartDate:       day(2020, time.January, 6),
	})
	require.NoError(t, err)
	_, err = f.svc.UpsertGuarantorInfo(f.ctx, f.applicant.ID, id, &models.GuarantorInformation{
		FullName:                "Jane Doe",
		DateOfBirth:             day(1970, time.March, 4),
		NationalInsuranceNumber: "QQ123456C",
	})
	require.NoError(t, err)
	_, err = f.svc.UpsertRefereeInfo(f.ctx, f.applicant.ID, id, &models.Referee{ProfessionalReferenceName: "Mary Somerville"})
	require.NoError(t, err)
}

func landlordReference() *models.LandlordReferenceForm {
	return &models.LandlordReferenceForm{
		TenancyHistory: &models.TenancyHistory{
			TenantName:       "ada",
			CurrentAddress:   "1 marylebone road",
			ReasonForLeaving: "relocating",
		},
		ExternalLandlord: &models.ExternalLandlord{
			Name:        "charles babbage",
			Email:       "Charles@Example.com",
			PhoneNumber: "0207 000 0000",
		},
		TenantConduct: &models.TenantConduct{RentOnTime: yes()},
		Signature:     "C. Babbage",
	}
}

func guarantorAgreement(ni string) *models.GuarantorAgreement {
	return &models.GuarantorAgreement{
		FirstName:               "Jane",
		LastName:                "Doe",
		DateOfBirth:             day(1970, time.March, 4),
		NationalInsuranceNumber: ni,
		EmploymentInfo:          &models.GuarantorEmploymentInfo{EmploymentStatus: "EMPLOYED"},
	}
}

func employeeReference() *models.EmployeeReferenceForm {
	return &models.EmployeeReferenceForm{
		EmployeeName:        "Analytical Engines Ltd",
		CompanyName:         "analytical engines ltd",
		EmployerEmail:       "HR@engines.example",
		JobTitle:            "programmer",
		EmploymentStartDate: day(2020, time.January, 6),
	}
}

func (f *fixture) submitReferences(t *testing.T, id uuid.UUID, ni string) {
	t.Helper()
	_, err := f.svc.CreateLandlordReference(f.ctx, id, landlordReference())
	require.NoError(t, err)
	_, err = f.svc.CreateGuarantorAgreement(f.ctx, id, guarantorAgreement(ni))
	require.NoError(t, err)
	_, err = f.svc.CreateEmployeeReference(f.ctx, id, employeeReference())
	require.NoError(t, err)
}

func TestUpsert_CreateThenUpdate(t *testing.T) {
	f := newFixture(t)
	app := f.createApplication(t, f.readyInvite(t).ID)

	created, err := f.svc.UpsertEmploymentInfo(f.ctx, f.applicant.ID, app.ID, &models.EmploymentInformation{JobTitle: "Programmer"})
	require.NoError(t, err)
	require.NotNil(t, created.EmploymentInfo)
	assert.True(t, created.CompletedSteps.Contains(models.StepEmployment))

	// A step is only recorded once, and only on creation.
	require.NoError(t, f.svc.UpdateLastStepStop(f.ctx, app.ID, models.StepReferee))
	updated, err := f.svc.UpsertEmploymentInfo(f.ctx, f.applicant.ID, app.ID, &models.EmploymentInformation{
		BaseModel: models.BaseModel{ID: created.EmploymentInfo.ID},
		JobTitle:  "Analyst",
	})
	require.NoError(t, err)
	assert.Equal(t, "Analyst", updated.EmploymentInfo.JobTitle)
	assert.Equal(t, created.EmploymentInfo.ID, updated.EmploymentInfo.ID)
	assert.Equal(t, models.StepReferee, *updated.LastStep)
	assert.Equal(t, models.History[models.ApplicationStep]{models.StepPersonalKin, models.StepEmployment}, updated.CompletedSteps)

	_, err = f.svc.UpsertEmploymentInfo(f.ctx, f.applicant.ID, app.ID, &models.EmploymentInformation{
		BaseModel: models.BaseModel{ID: uuid.New()},
	})
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.svc.UpsertEmploymentInfo(f.ctx, f.landlord.ID, app.ID, &models.EmploymentInformation{})
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestUpsertResidentialInformation_ReplacesPreviousAddresses(t *testing.T) {
	f := newFixture(t)
	app := f.createApplication(t, f.readyInvite(t).ID)

	first, err := f.svc.UpsertResidentialInformation(f.ctx, f.applicant.ID, app.ID, &models.ResidentialInformation{
		Address:           "1 Marylebone Road",
		PreviousAddresses: []models.PreviousAddress{{Address: "2 Strand"}, {Address: "3 Fleet Street"}},
	})
	require.NoError(t, err)
	require.Len(t, first.ResidentialInfo.PreviousAddresses, 2)

	second, err := f.svc.UpsertResidentialInformation(f.ctx, f.applicant.ID, app.ID, &models.ResidentialInformation{
		BaseModel:         models.BaseModel{ID: first.ResidentialInfo.ID},
		Address:           "1 Marylebone Road",
		PreviousAddresses: []models.PreviousAddress{{Address: "4 Baker Street"}},
	})
	require.NoError(t, err)
	require.Len(t, second.ResidentialInfo.PreviousAddresses, 1)
	assert.Equal(t, "4 Baker Street", second.ResidentialInfo.PreviousAddresses[0].Address)
	assert.Equal(t, first.ResidentialInfo.ID, second.ResidentialInfo.PreviousAddresses[0].ResidentialInformationID)
}

func TestUpsertAdditionalInfo(t *testing.T) {
	f := newFixture(t)
	app := f.createApplication(t, f.readyInvite(t).ID)

	got, err := f.svc.UpsertAdditionalInfo(f.ctx, f.applicant.ID, app.ID, &models.ApplicationQuestion{HavePets: true})
	require.NoError(t, err)
	require.NotNil(t, got.AdditionalInfo)
	assert.True(t, got.CompletedSteps.Contains(models.StepAdditionalInfo))

	// Without an id the existing answers are updated rather than duplicated.
	got, err = f.svc.UpsertAdditionalInfo(f.ctx, f.applicant.ID, app.ID, &models.ApplicationQuestion{Smoker: true})
	require.NoError(t, err)
	assert.True(t, got.AdditionalInfo.Smoker)
	assert.False(t, got.AdditionalInfo.HavePets)
}

func TestAddDocument(t *testing.T) {
	f := newFixture(t)
	app := f.createApplication(t, f.readyInvite(t).ID)

	doc, err := f.svc.AddDocument(f.ctx, f.applicant.ID, app.ID, DocumentUpload{
		Type:        "PAYSLIP",
		Filename:    "payslip.pdf",
		ContentType: "application/pdf",
		Body:        bytes.NewReader([]byte("%PDF-1.7 payslip")),
	})
	require.NoError(t, err)
	assert.Equal(t, "payslip.pdf", doc.DocumentName)
	assert.Equal(t, int64(len("%PDF-1.7 payslip")), doc.FileSize)
	assert.NotEmpty(t, doc.FileHash)

	got, err := f.svc.GetApplication(f.ctx, f.applicant.ID, app.ID)
	require.NoError(t, err)
	require.Len(t, got.Documents, 1)
	assert.True(t, got.CompletedSteps.Contains(models.StepDocumentUpload))

	url, err := f.svc.DocumentURL(f.ctx, f.landlord.ID, app.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "memory://"+doc.S3Key, url)

	_, err = f.svc.DocumentURL(f.ctx, f.landlord.ID, app.ID, uuid.New())
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.svc.AddDocument(f.ctx, f.applicant.ID, app.ID, DocumentUpload{
		Filename:    "payslip.exe",
		ContentType: "application/octet-stream",
		Body:        bytes.NewReader([]byte("MZ")),
	})
	requireKind(t, err, apperr.KindValidation)
}

func TestCreateDeclaration(t *testing.T) {
	f := newFixture(t)
	inv := f.readyInvite(t)
	app := f.createApplication(t, inv.ID)

	_, err := f.svc.CreateDeclaration(f.ctx, f.applicant.ID, app.ID, &models.Declaration{Declared: false})
	requireKind(t, err, apperr.KindValidation)

	got, err := f.svc.CreateDeclaration(f.ctx, f.applicant.ID, app.ID, &models.Declaration{Declared: true, Signature: "Ada Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, got.Status)
	assert.True(t, got.CompletedSteps.Contains(models.StepDeclaration))
	require.NotNil(t, got.Declaration)
	assert.Equal(t, f.now, got.Declaration.DeclaredAt)
	assert.True(t, f.notes.sentTo(f.landlord.ID, models.NotifyApplicationSubmitted))

	_, err = f.svc.CreateDeclaration(f.ctx, f.applicant.ID, app.ID, &models.Declaration{Declared: true})
	e := requireKind(t, err, apperr.KindDuplicate)
	assert.Equal(t, "declaration completed", e.Message)
}

func TestReferences_RecordStatusesOnce(t *testing.T) {
	f := newFixture(t)
	app := f.createApplication(t, f.readyInvite(t).ID)

	f.submitReferences(t, app.ID, "QQ123456C")

	got, err := f.store.Applications.GetApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, got.StatusesCompleted.ContainsAll(
		models.StatusLandlordReference,
		models.StatusGuarantorReference,
		models.StatusEmployeeReference,
	))
	require.NotNil(t, got.LandlordReference)
	assert.Equal(t, "ada", got.LandlordReference.TenancyHistory.TenantName)
	require.NotNil(t, got.GuarantorAgreement)
	require.NotNil(t, got.GuarantorAgreement.EmploymentInfoID)
	assert.True(t, f.notes.sentTo(f.landlord.ID, models.NotifyReferenceReceived))

	_, err = f.svc.CreateLandlordReference(f.ctx, app.ID, landlordReference())
	e := requireKind(t, err, apperr.KindDuplicate)
	assert.Equal(t, models.LandlordReferenceCompleted, e.Message)

	_, err = f.svc.CreateEmployeeReference(f.ctx, uuid.New(), employeeReference())
	requireKind(t, err, apperr.KindNotFound)
}

func TestCreateLandlordReference_RequiresNestedDetails(t *testing.T) {
	f := newFixture(t)
	app := f.createApplication(t, f.readyInvite(t).ID)

	form := landlordReference()
	form.TenantConduct = nil
	_, err := f.svc.CreateLandlordReference(f.ctx, app.ID, form)
	requireKind(t, err, apperr.KindValidation)

	got, err := f.store.Applications.GetApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LandlordReference)
	assert.False(t, got.StatusesCompleted.Contains(models.StatusLandlordReference))
}

func TestVerifyApplication(t *testing.T) {
	f := newFixture(t)
	app := f.createApplication(t, f.readyInvite(t).ID)
	f.fillForms(t, app.ID)

	_, err := f.svc.VerifyApplication(f.ctx, f.landlord.ID, app.ID)
	e := requireKind(t, err, apperr.KindPrecondition)
	assert.Equal(t, []string{"landlordReferenceForm", "guarantorAgreement", "employeeReferenceForm"}, e.Missing)

	f.submitReferences(t, app.ID, " qq123456c ")

	_, err = f.svc.VerifyApplication(f.ctx, f.applicant.ID, app.ID)
	requireKind(t, err, apperr.KindUnauthorized)

	res, err := f.svc.VerifyApplication(f.ctx, f.landlord.ID, app.ID)
	require.NoError(t, err)
	assert.True(t, res.Report.Passed())
	assert.Equal(t, models.AllVerified(), res.Application.Verification)
	assert.True(t, f.notes.sentTo(f.applicant.ID, models.NotifyVerificationPassed))
}

func TestVerifyApplication_FailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	app := f.createApplication(t, f.readyInvite(t).ID)
	f.fillForms(t, app.ID)
	f.submitReferences(t, app.ID, "AB999999Z")

	res, err := f.svc.VerifyApplication(f.ctx, f.landlord.ID, app.ID)
	require.ErrorIs(t, err, ErrScreeningFailed)
	require.NotNil(t, res)
	assert.False(t, res.Report.Guarantor)
	assert.True(t, res.Report.Employment)
	assert.True(t, res.Report.Landlord)
	assert.Nil(t, res.Application)

	got, err := f.store.Applications.GetApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.NotEqual(t, models.VerificationYes, got.GuarantorVerificationStatus)
	assert.False(t, f.notes.sentTo(f.applicant.ID, models.NotifyVerificationPassed))
}

func TestDecide(t *testing.T) {
	f := newFixture(t)
	inv := f.readyInvite(t)
	app := f.createApplication(t, inv.ID)

	_, err := f.svc.Decide(f.ctx, f.landlord.ID, app.ID, models.StatusCompleted)
	requireKind(t, err, apperr.KindValidation)

	_, err = f.svc.Decide(f.ctx, f.applicant.ID, app.ID, models.StatusAccepted)
	requireKind(t, err, apperr.KindUnauthorized)

	got, err := f.svc.Decide(f.ctx, f.landlord.ID, app.ID, models.StatusDeclined)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, got.Status)
	assert.True(t, f.notes.sentTo(f.applicant.ID, models.NotifyDecision))

	updated, err := f.engine.GetInvite(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseDeclined, updated.Response)

	_, err = f.svc.Decide(f.ctx, f.landlord.ID, app.ID, models.StatusAccepted)
	requireKind(t, err, apperr.KindPrecondition)
}

func TestCreateTenant(t *testing.T) {
	f := newFixture(t)
	inv := f.readyInvite(t)
	app := f.createApplication(t, inv.ID)
	start := day(2025, time.July, 1)

	_, err := f.svc.CreateTenant(f.ctx, f.landlord.ID, app.ID, start)
	e := requireKind(t, err, apperr.KindPrecondition)
	assert.Equal(t, []string{"ACCEPTED"}, e.Missing)

	_, err = f.svc.Decide(f.ctx, f.landlord.ID, app.ID, models.StatusAccepted)
	require.NoError(t, err)
	approved, err := f.engine.GetInvite(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseApproved, approved.Response)

	_, err = f.svc.AgreementsSigned(f.ctx, f.applicant.ID, app.ID)
	requireKind(t, err, apperr.KindPrecondition)

	tenant, err := f.svc.CreateTenant(f.ctx, f.landlord.ID, app.ID, start)
	require.NoError(t, err)
	assert.Equal(t, f.applicant.ID, tenant.UserID)
	assert.True(t, tenant.IsCurrent)

	withTenant, err := f.engine.GetInvite(f.ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, withTenant.TenantID)
	assert.Equal(t, tenant.ID, *withTenant.TenantID)

	_, err = f.svc.CreateTenant(f.ctx, f.landlord.ID, app.ID, start)
	requireKind(t, err, apperr.KindDuplicate)

	signed, err := f.svc.AgreementsSigned(f.ctx, f.applicant.ID, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAgreementsSigned, signed.Status)
	assert.True(t, signed.StatusesCompleted.ContainsAll(models.StatusAccepted, models.StatusTenantCreated))
}

func TestSendReminder(t *testing.T) {
	f := newFixture(t)
	app := f.createApplication(t, f.readyInvite(t).ID)

	err := f.svc.SendReminder(f.ctx, f.applicant.ID, app.ID)
	requireKind(t, err, apperr.KindUnauthorized)

	require.NoError(t, f.svc.SendReminder(f.ctx, f.landlord.ID, app.ID))
	assert.True(t, f.notes.sentTo(f.applicant.ID, models.NotifyApplicationReminder))
}
