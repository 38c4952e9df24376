package routes

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rentflow/internal/apperr"
	"rentflow/internal/invite"
	"rentflow/internal/models"
	"rentflow/internal/patch"
)

type InviteRoutes struct {
	server ServerInterface
}

func NewInviteRoutes(server ServerInterface) *InviteRoutes {
	return &InviteRoutes{server: server}
}

func (ir *InviteRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(ir.server)
	landlord := middleware.RequireRole(models.RoleLandlord)

	g := r.Group("/invites", middleware.AuthMiddleware())
	g.GET("", landlord, ir.listInvitesHandler)
	g.POST("/:enquiryId", landlord, ir.createInviteHandler)
	g.GET("/:id", ir.getInviteHandler)
	g.PATCH("/:id", ir.updateInviteHandler)
	g.DELETE("/:id", landlord, ir.deleteInviteHandler)
}

type createInviteRequest struct {
	Response     *models.InviteResponse `json:"response"`
	ScheduleDate *time.Time             `json:"schedule_date"`
}

// createInviteHandler issues an invite answering the enquiry
func (ir *InviteRoutes) createInviteHandler(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	enquiryID, ok := paramUUID(c, "enquiryId", "enquiry")
	if !ok {
		return
	}
	var req createInviteRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := ir.server.GetInvites().CreateInvite(c.Request.Context(), invite.CreateRequest{
		EnquiryID:    enquiryID,
		LandlordID:   user.ID,
		ScheduleDate: req.ScheduleDate,
		Response:     req.Response,
	})
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invite": inv})
}

type updateInviteRequest struct {
	Response       *models.InviteResponse `json:"response"`
	EnquiryID      *uuid.UUID             `json:"enquiry_id"`
	ScheduleDate   patch.Value[time.Time] `json:"schedule_date"`
	ReScheduleDate patch.Value[time.Time] `json:"re_schedule_date"`
	TenantID       patch.Value[uuid.UUID] `json:"tenant_id"`
}

// updateInviteHandler moves the invite along. Both the inviting landlord
// and the invited user may update it.
func (ir *InviteRoutes) updateInviteHandler(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invite")
	if !ok {
		return
	}
	var req updateInviteRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	engine := ir.server.GetInvites()
	current, err := engine.GetInvite(ctx, id)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	if current.InvitedByLandlordID != user.ID && current.UserInvitedID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot update this invite"})
		return
	}

	updated, err := engine.UpdateInvite(ctx, id, invite.UpdateRequest{
		Response:  req.Response,
		EnquiryID: req.EnquiryID,
		Fields: models.InviteUpdate{
			ScheduleDate:   req.ScheduleDate,
			ReScheduleDate: req.ReScheduleDate,
			TenantID:       req.TenantID,
		},
	})
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	if req.Response != nil {
		c.JSON(http.StatusOK, gin.H{"updatedInvite": updated})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invite": updated})
}

func (ir *InviteRoutes) getInviteHandler(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invite")
	if !ok {
		return
	}

	inv, err := ir.server.GetInvites().GetInvite(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	if inv.InvitedByLandlordID != user.ID && inv.UserInvitedID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot view this invite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invite": inv})
}

// deleteInviteHandler soft-deletes the invite. A landlord who did not issue
// it gets a 200 with an explanation rather than an error.
func (ir *InviteRoutes) deleteInviteHandler(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invite")
	if !ok {
		return
	}

	deleted, err := ir.server.GetInvites().DeleteInvite(c.Request.Context(), id, user.ID)
	if err != nil {
		if e, isApp := apperr.As(err); isApp && e.Kind == apperr.KindUnauthorized {
			c.JSON(http.StatusOK, gin.H{"message": e.Message})
			return
		}
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedInvite": deleted})
}

// listInvitesHandler lists the landlord's invites filtered by history:
// ?without=A,B keeps invites holding none of them, ?with=A,B those holding
// all of them.
func (ir *InviteRoutes) listInvitesHandler(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	without, err := parseResponses(c.Query("without"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	with, err := parseResponses(c.Query("with"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	engine := ir.server.GetInvites()
	var invites []models.ApplicationInvite
	if len(with) > 0 {
		invites, err = engine.GetInvitesWithStatus(ctx, user.ID, with)
	} else {
		invites, err = engine.GetInviteWithoutStatus(ctx, user.ID, without)
	}
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	if invites == nil {
		invites = []models.ApplicationInvite{}
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

func parseResponses(raw string) ([]models.InviteResponse, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []models.InviteResponse
	for _, part := range strings.Split(raw, ",") {
		r := models.InviteResponse(strings.ToUpper(strings.TrimSpace(part)))
		if !r.Valid() {
			return nil, fmt.Errorf("invalid response %q", part)
		}
		out = append(out, r)
	}
	return out, nil
}
