package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rentflow/internal/application"
	"rentflow/internal/auth"
	"rentflow/internal/config"
	"rentflow/internal/invite"
	"rentflow/internal/models"
)

// UserStore loads and signs in users
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpsertOAuthUser(ctx context.Context, user *models.User) error
}

// NotificationStore serves a user's in-app notifications
type NotificationStore interface {
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type ServerInterface interface {
	GetInvites() *invite.Engine
	GetApplications() *application.Service
	GetUsers() UserStore
	GetNotifications() NotificationStore
	GetTokens() *auth.Tokens
	GetConfig() *config.Config
}

const (
	sessionUserID = "user_id"
	sessionEmail  = "email"
)

type Middleware struct {
	server ServerInterface
}

func NewMiddleware(server ServerInterface) *Middleware {
	return &Middleware{server: server}
}

// AuthMiddleware accepts a bearer token or, failing that, the login session
func (m *Middleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := m.bearerUser(c)
		if !ok {
			if c.IsAborted() {
				return
			}
			userID, ok = sessionUser(c)
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		user, err := m.server.GetUsers().GetUser(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// bearerUser reads the Authorization header. A malformed or invalid
// token aborts the request.
func (m *Middleware) bearerUser(c *gin.Context) (uuid.UUID, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return uuid.Nil, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
		return uuid.Nil, false
	}
	claims, err := m.server.GetTokens().Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func sessionUser(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := sessions.Default(c).Get(sessionUserID).(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireRole rejects users whose role is not one of roles. It runs after
// AuthMiddleware.
func (m *Middleware) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

func currentUser(c *gin.Context) (*models.User, bool) {
	raw, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := raw.(*models.User)
	return user, ok
}

// mustUser returns the authenticated user or writes a 500
func mustUser(c *gin.Context) (*models.User, bool) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
	}
	return user, ok
}

// paramUUID parses a path parameter or writes a 400
func paramUUID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}
