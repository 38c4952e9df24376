package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserRoutes struct {
	server ServerInterface
}

func NewUserRoutes(server ServerInterface) *UserRoutes {
	return &UserRoutes{server: server}
}

func (ur *UserRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(ur.server)

	r.GET("/user", middleware.AuthMiddleware(), ur.userHandler)
}

func (ur *UserRoutes) userHandler(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":       user.ID,
		"email":         user.Email,
		"name":          user.FullName(),
		"role":          user.Role,
		"avatar_url":    user.AvatarURL,
		"authenticated": true,
	})
}
