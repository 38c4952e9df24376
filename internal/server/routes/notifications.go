package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type NotificationRoutes struct {
	server ServerInterface
}

func NewNotificationRoutes(server ServerInterface) *NotificationRoutes {
	return &NotificationRoutes{server: server}
}

func (nr *NotificationRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(nr.server)

	r.GET("/notifications", middleware.AuthMiddleware(), nr.getUserNotificationsHandler)
	r.POST("/notifications/:id/read", middleware.AuthMiddleware(), nr.markNotificationAsReadHandler)
}

// getUserNotificationsHandler returns the newest notifications for the authenticated user
func (nr *NotificationRoutes) getUserNotificationsHandler(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	// Get limit from query parameter, default to 50
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	notifications, err := nr.server.GetNotifications().ListForUser(c.Request.Context(), user.ID, limit)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// markNotificationAsReadHandler marks a specific notification as read
func (nr *NotificationRoutes) markNotificationAsReadHandler(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	notificationID, ok := paramUUID(c, "id", "notification")
	if !ok {
		return
	}

	if err := nr.server.GetNotifications().MarkRead(c.Request.Context(), notificationID, user.ID); err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
