package routes

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	"rentflow/internal/auth"
)

type AuthRoutes struct {
	server ServerInterface
}

func NewAuthRoutes(server ServerInterface) *AuthRoutes {
	return &AuthRoutes{server: server}
}

func (ar *AuthRoutes) RegisterRoutes(r *gin.Engine) {
	// OAuth routes
	r.GET("/auth/:provider", ar.authHandler)
	r.GET("/auth/:provider/callback", ar.authCallbackHandler)
	r.GET("/logout", ar.logoutHandler)
}

func (ar *AuthRoutes) authHandler(c *gin.Context) {
	provider := c.Param("provider")

	req := c.Request.Clone(c.Request.Context())
	req.URL.Path = "/auth/" + provider

	q := req.URL.Query()
	q.Add("provider", provider)
	req.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, req)
}

// authCallbackHandler signs the user in. Browsers are redirected to the
// frontend with a session cookie; ?format=json returns a bearer token instead.
func (ar *AuthRoutes) authCallbackHandler(c *gin.Context) {
	provider := c.Param("provider")

	req := c.Request.Clone(c.Request.Context())
	req.URL.Path = "/auth/" + provider + "/callback"

	q := req.URL.Query()
	q.Add("provider", provider)
	req.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := auth.UserFromGoth(gothUser)
	if err := ar.server.GetUsers().UpsertOAuthUser(c.Request.Context(), user); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save user"})
		return
	}

	token, err := ar.server.GetTokens().Issue(user)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserID, user.ID.String())
	session.Set(sessionEmail, user.Email)
	if err := session.Save(); err != nil {
		_ = c.Error(err)
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, ar.server.GetConfig().FrontendURL+"/home")
}

func (ar *AuthRoutes) logoutHandler(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		_ = c.Error(err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
