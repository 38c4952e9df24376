package routes

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rentflow/internal/apperr"
	"rentflow/internal/models"
)

// respondError maps a service error onto the response. notFound is the
// status this endpoint uses for missing records.
func respondError(c *gin.Context, err error, notFound int) {
	e, ok := apperr.As(err)
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	switch e.Kind {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Message})
	case apperr.KindNotFound:
		c.JSON(notFound, gin.H{"error": e.Message})
	case apperr.KindPrecondition:
		body := gin.H{"error": e.Message}
		if len(e.Missing) > 0 {
			body["missingFields"] = e.Missing
		}
		c.JSON(http.StatusBadRequest, body)
	case apperr.KindDuplicate:
		c.JSON(http.StatusConflict, gin.H{"error": e.Message})
	case apperr.KindUnauthorized:
		c.JSON(http.StatusForbidden, gin.H{"error": e.Message})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// bindJSON decodes and validates the body into obj, writing a 400 with the
// first violated field on failure
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fieldMessage(verrs[0])
	}
	return "Invalid request body: " + err.Error()
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

var registerOnce sync.Once

// RegisterValidation teaches gin's validator the rules for the form
// records, which are bound straight into the models.
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		v.RegisterStructValidationMapRules(map[string]string{
			"FirstName": "required",
			"LastName":  "required",
			"Email":     "omitempty,email",
		}, models.ApplicantPersonalDetails{})
		v.RegisterStructValidationMapRules(map[string]string{
			"Address":           "required",
			"LengthOfResidence": "required",
			"LandlordEmail":     "omitempty,email",
		}, models.ResidentialInformation{})
		v.RegisterStructValidationMapRules(map[string]string{
			"EmploymentStatus": "required",
			"EmployerEmail":    "omitempty,email",
			"AnnualIncome":     "gte=0",
		}, models.EmploymentInformation{})
		v.RegisterStructValidationMapRules(map[string]string{
			"FullName":      "required",
			"Email":         "required,email",
			"MonthlyIncome": "gte=0",
		}, models.GuarantorInformation{})
		v.RegisterStructValidationMapRules(map[string]string{
			"FullName":    "required",
			"PhoneNumber": "required",
			"Email":       "omitempty,email",
		}, models.EmergencyContact{})
		v.RegisterStructValidationMapRules(map[string]string{
			"ProfessionalReferenceName": "required",
			"Email":                     "required,email",
		}, models.Referee{})
		v.RegisterStructValidationMapRules(map[string]string{
			"TenancyHistory":   "required",
			"ExternalLandlord": "required",
			"TenantConduct":    "required",
			"Signature":        "required",
		}, models.LandlordReferenceForm{})
		v.RegisterStructValidationMapRules(map[string]string{
			"TenantName":     "required",
			"CurrentAddress": "required",
		}, models.TenancyHistory{})
		v.RegisterStructValidationMapRules(map[string]string{
			"Name":  "required",
			"Email": "omitempty,email",
		}, models.ExternalLandlord{})
		v.RegisterStructValidationMapRules(map[string]string{
			"RentOnTime": "required",
		}, models.TenantConduct{})
		v.RegisterStructValidationMapRules(map[string]string{
			"FirstName":               "required",
			"LastName":                "required",
			"DateOfBirth":             "required",
			"NationalInsuranceNumber": "required",
			"Email":                   "required,email",
		}, models.GuarantorAgreement{})
		v.RegisterStructValidationMapRules(map[string]string{
			"EmployeeName":  "required",
			"CompanyName":   "required",
			"EmployerEmail": "required,email",
		}, models.EmployeeReferenceForm{})
	})
}
