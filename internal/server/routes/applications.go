package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rentflow/internal/application"
	"rentflow/internal/models"
	"rentflow/internal/storage"
)

type ApplicationRoutes struct {
	server ServerInterface
}

func NewApplicationRoutes(server ServerInterface) *ApplicationRoutes {
	return &ApplicationRoutes{server: server}
}

// RegisterRoutes mounts the applicant and landlord endpoints. The second
// path segment is always :id; for creation it names the property.
func (ar *ApplicationRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(ar.server)
	landlord := middleware.RequireRole(models.RoleLandlord)

	g := r.Group("/application", middleware.AuthMiddleware())
	g.POST("/:id", ar.createApplicationHandler)
	g.GET("/:id", ar.getApplicationHandler)
	g.DELETE("/:id", ar.deleteApplicationHandler)

	g.POST("/complete/:id", ar.completeApplicationHandler)
	g.POST("/personal-details/:id", ar.personalDetailsHandler)
	g.POST("/guarantor/:id", ar.guarantorHandler)
	g.POST("/employment/:id", ar.employmentHandler)
	g.POST("/residential/:id", ar.residentialHandler)
	g.POST("/emergency-contact/:id", ar.emergencyContactHandler)
	g.POST("/referee/:id", ar.refereeHandler)
	g.POST("/additional-info/:id", ar.additionalInfoHandler)
	g.POST("/document/:id", ar.documentHandler)
	g.POST("/declaration/:id", ar.declarationHandler)
	g.GET("/:id/documents/:documentId/url", ar.documentURLHandler)

	g.POST("/:id/verify", landlord, ar.verifyHandler)
	g.POST("/:id/decision", landlord, ar.decisionHandler)
	g.POST("/:id/tenant", landlord, ar.createTenantHandler)
	g.POST("/:id/reminder", landlord, ar.reminderHandler)
	g.POST("/:id/agreements-signed", ar.agreementsSignedHandler)
}

type createApplicationRequest struct {
	ApplicationInviteID uuid.UUID `json:"application_invite_id" binding:"required"`
	models.ApplicantPersonalDetails
}

func (ar *ApplicationRoutes) createApplicationHandler(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	propertyID, ok := paramUUID(c, "id", "property")
	if !ok {
		return
	}
	var req createApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	app, err := ar.server.GetApplications().CreateApplication(c.Request.Context(), user.ID, propertyID, application.CreateRequest{
		InviteID:        req.ApplicationInviteID,
		PersonalDetails: req.ApplicantPersonalDetails,
	})
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"application": app})
}

func (ar *ApplicationRoutes) getApplicationHandler(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	app, err := ar.server.GetApplications().GetApplication(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

func (ar *ApplicationRoutes) deleteApplicationHandler(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	if err := ar.server.GetApplications().DeleteApplication(c.Request.Context(), user.ID, id); err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application deleted"})
}

// completeApplicationHandler answers 400 with missingFields until every
// required sub-form has been submitted
func (ar *ApplicationRoutes) completeApplicationHandler(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	app, err := ar.server.GetApplications().CompleteApplication(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

// upsertForm binds a sub-form and hands it to save
func upsertForm[T any](c *gin.Context, save func(user *models.User, id uuid.UUID, form *T) (*models.Application, error)) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	form := new(T)
	if !bindJSON(c, form) {
		return
	}
	app, err := save(user, id, form)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

func (ar *ApplicationRoutes) personalDetailsHandler(c *gin.Context) {
	upsertForm(c, func(u *models.User, id uuid.UUID, f *models.ApplicantPersonalDetails) (*models.Application, error) {
		return ar.server.GetApplications().UpsertPersonalDetails(c.Request.Context(), u.ID, id, f)
	})
}

func (ar *ApplicationRoutes) guarantorHandler(c *gin.Context) {
	upsertForm(c, func(u *models.User, id uuid.UUID, f *models.GuarantorInformation) (*models.Application, error) {
		return ar.server.GetApplications().UpsertGuarantorInfo(c.Request.Context(), u.ID, id, f)
	})
}

func (ar *ApplicationRoutes) employmentHandler(c *gin.Context) {
	upsertForm(c, func(u *models.User, id uuid.UUID, f *models.EmploymentInformation) (*models.Application, error) {
		return ar.server.GetApplications().UpsertEmploymentInfo(c.Request.Context(), u.ID, id, f)
	})
}

func (ar *ApplicationRoutes) residentialHandler(c *gin.Context) {
	upsertForm(c, func(u *models.User, id uuid.UUID, f *models.ResidentialInformation) (*models.Application, error) {
		return ar.server.GetApplications().UpsertResidentialInformation(c.Request.Context(), u.ID, id, f)
	})
}

func (ar *ApplicationRoutes) emergencyContactHandler(c *gin.Context) {
	upsertForm(c, func(u *models.User, id uuid.UUID, f *models.EmergencyContact) (*models.Application, error) {
		return ar.server.GetApplications().UpsertEmergencyContact(c.Request.Context(), u.ID, id, f)
	})
}

func (ar *ApplicationRoutes) refereeHandler(c *gin.Context) {
	upsertForm(c, func(u *models.User, id uuid.UUID, f *models.Referee) (*models.Application, error) {
		return ar.server.GetApplications().UpsertRefereeInfo(c.Request.Context(), u.ID, id, f)
	})
}

func (ar *ApplicationRoutes) additionalInfoHandler(c *gin.Context) {
	upsertForm(c, func(u *models.User, id uuid.UUID, f *models.ApplicationQuestion) (*models.Application, error) {
		return ar.server.GetApplications().UpsertAdditionalInfo(c.Request.Context(), u.ID, id, f)
	})
}

func (ar *ApplicationRoutes) declarationHandler(c *gin.Context) {
	upsertForm(c, func(u *models.User, id uuid.UUID, f *models.Declaration) (*models.Application, error) {
		return ar.server.GetApplications().CreateDeclaration(c.Request.Context(), u.ID, id, f)
	})
}

// documentHandler accepts a multipart upload in the "file" field
func (ar *ApplicationRoutes) documentHandler(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxDocumentSize+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > storage.MaxDocumentSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is too large"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer file.Close()

	doc, err := ar.server.GetApplications().AddDocument(c.Request.Context(), user.ID, id, application.DocumentUpload{
		Name:        c.PostForm("name"),
		Type:        c.PostForm("type"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

func (ar *ApplicationRoutes) documentURLHandler(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	documentID, ok := paramUUID(c, "documentId", "document")
	if !ok {
		return
	}
	url, err := ar.server.GetApplications().DocumentURL(c.Request.Context(), user.ID, id, documentID)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// verifyHandler runs screening. A failed screen returns the breakdown with
// a 400 and leaves the application untouched.
func (ar *ApplicationRoutes) verifyHandler(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	res, err := ar.server.GetApplications().VerifyApplication(c.Request.Context(), user.ID, id)
	if errors.Is(err, application.ErrScreeningFailed) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     application.ErrScreeningFailed.Message,
			"screening": res.Report,
		})
		return
	}
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"screening":   res.Report,
		"application": res.Application,
	})
}

type decisionRequest struct {
	Decision models.ApplicationStatus `json:"decision" binding:"required,oneof=ACCEPTED DECLINED MAKEPAYMENT"`
}

func (ar *ApplicationRoutes) decisionHandler(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	var req decisionRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := ar.server.GetApplications().Decide(c.Request.Context(), user.ID, id, req.Decision)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

type createTenantRequest struct {
	TenancyStartDate *time.Time `json:"tenancy_start_date"`
}

func (ar *ApplicationRoutes) createTenantHandler(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	var req createTenantRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	tenant, err := ar.server.GetApplications().CreateTenant(c.Request.Context(), user.ID, id, req.TenancyStartDate)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tenant": tenant})
}

func (ar *ApplicationRoutes) reminderHandler(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	if err := ar.server.GetApplications().SendReminder(c.Request.Context(), user.ID, id); err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reminder sent"})
}

func (ar *ApplicationRoutes) agreementsSignedHandler(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}
	app, err := ar.server.GetApplications().AgreementsSigned(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

func userAndID(c *gin.Context) (*models.User, uuid.UUID, bool) {
	user, ok := mustUser(c)
	if !ok {
		return nil, uuid.Nil, false
	}
	id, ok := paramUUID(c, "id", "application")
	if !ok {
		return nil, uuid.Nil, false
	}
	return user, id, true
}
