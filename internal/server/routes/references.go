package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReferenceRoutes serves the forms filled in by third parties. They hold
// no account, so these endpoints are public and keyed by application id.
type ReferenceRoutes struct {
	server ServerInterface
}

func NewReferenceRoutes(server ServerInterface) *ReferenceRoutes {
	return &ReferenceRoutes{server: server}
}

func (rr *ReferenceRoutes) RegisterRoutes(r *gin.Engine) {
	r.POST("/application/landlord-reference/:id", func(c *gin.Context) {
		createReference(c, "landlordReferenceForm", rr.server.GetApplications().CreateLandlordReference)
	})
	r.POST("/application/guarantor-reference/:id", func(c *gin.Context) {
		createReference(c, "guarantorAgreement", rr.server.GetApplications().CreateGuarantorAgreement)
	})
	r.POST("/application/employee-reference/:id", func(c *gin.Context) {
		createReference(c, "employeeReferenceForm", rr.server.GetApplications().CreateEmployeeReference)
	})
}

// createReference binds a reference form and stores it. A second form of
// the same kind for an application is a 409.
func createReference[T any](c *gin.Context, key string, create func(ctx context.Context, id uuid.UUID, form *T) (*T, error)) {
	id, ok := paramUUID(c, "id", "application")
	if !ok {
		return
	}
	form := new(T)
	if !bindJSON(c, form) {
		return
	}
	created, err := create(c.Request.Context(), id, form)
	if err != nil {
		respondError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusCreated, gin.H{key: created})
}
