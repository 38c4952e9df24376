// Package screening cross-checks what an applicant declared against the
// reference forms submitted by their guarantor, employer and landlord.
//
// Every screener is a pure predicate over a fully loaded application. A
// missing record on either side fails the screener.
package screening

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"rentflow/internal/models"
)

// Report is the outcome of every screener for one application
type Report struct {
	Guarantor  bool `json:"guarantorScreener"`
	Employment bool `json:"employmentScreener"`
	Landlord   bool `json:"landlordScreener"`
}

// Passed reports whether every screener passed
func (r Report) Passed() bool {
	return r.Guarantor && r.Employment && r.Landlord
}

// Results lists the outcomes keyed by screener name, in a fixed order
func (r Report) Results() []Result {
	return []Result{
		{Name: "guarantor", Passed: r.Guarantor},
		{Name: "employment", Passed: r.Employment},
		{Name: "landlord", Passed: r.Landlord},
	}
}

type Result struct {
	Name   string
	Passed bool
}

// Run evaluates all three screeners. None of them short-circuits the others.
func Run(app *models.Application) Report {
	return Report{
		Guarantor:  Guarantor(app),
		Employment: Employment(app),
		Landlord:   Landlord(app),
	}
}

// Guarantor passes when the applicant's guarantor name matches one of the
// name combinations on the agreement and date of birth and national
// insurance number agree.
func Guarantor(app *models.Application) bool {
	info, agreement := app.GuarantorInfo, app.GuarantorAgreement
	if info == nil || agreement == nil {
		return false
	}

	first, middle, last := agreement.FirstName, agreement.MiddleName, agreement.LastName
	candidates := []string{
		join(first, last),
		join(first, middle, last),
		join(first, middle),
		first,
		last,
	}
	fullName := normalize(info.FullName)
	nameMatches := false
	for _, c := range candidates {
		if c = normalize(c); c != "" && c == fullName {
			nameMatches = true
			break
		}
	}

	return nameMatches &&
		SameDay(info.DateOfBirth, agreement.DateOfBirth) &&
		equal(info.NationalInsuranceNumber, agreement.NationalInsuranceNumber)
}

// Employment passes when the employer's reference agrees with the declared
// employment. The reference's employee name is checked against the declared
// employer company.
func Employment(app *models.Application) bool {
	info, ref := app.EmploymentInfo, app.EmployeeReference
	if info == nil || ref == nil {
		return false
	}
	return equal(ref.EmployeeName, info.EmployerCompany) &&
		equal(ref.JobTitle, info.JobTitle) &&
		equal(ref.CompanyName, info.EmployerCompany) &&
		equal(ref.EmployerEmail, info.EmployerEmail) &&
		SameDay(ref.EmploymentStartDate, info.StartDate)
}

// Landlord passes when the landlord reference agrees with the declared
// residential details and the tenant always paid rent on time.
func Landlord(app *models.Application) bool {
	res, ref := app.ResidentialInfo, app.LandlordReference
	if res == nil || ref == nil || ref.TenancyHistory == nil || ref.ExternalLandlord == nil {
		return false
	}
	history, landlord := ref.TenancyHistory, ref.ExternalLandlord

	firstName := ""
	if app.PersonalDetails != nil {
		firstName = app.PersonalDetails.FirstName
	}

	previousMatches := false
	for _, prev := range res.PreviousAddresses {
		if equal(prev.LengthOfResidence, res.LengthOfResidence) {
			previousMatches = true
			break
		}
	}

	rentOnTime := ref.TenantConduct != nil &&
		ref.TenantConduct.RentOnTime != nil &&
		*ref.TenantConduct.RentOnTime

	return equal(res.LandlordName, landlord.Name) &&
		equal(res.LandlordPhone, landlord.PhoneNumber) &&
		equal(res.LandlordEmail, landlord.Email) &&
		firstName != "" && equal(firstName, history.TenantName) &&
		equal(res.Address, history.CurrentAddress) &&
		previousMatches &&
		equal(res.ReasonForLeaving, history.ReasonForLeaving) &&
		rentOnTime
}

// normalize trims, collapses inner whitespace and case-folds s
func normalize(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

func equal(a, b string) bool {
	return normalize(a) == normalize(b)
}

func join(parts ...string) string {
	return strings.Join(parts, " ")
}

// SameDay reports whether a and b fall on the same UTC calendar day. It is
// false when either is missing.
func SameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
