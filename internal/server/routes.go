package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	"rentflow/internal/auth"
	"rentflow/internal/logging"
	"rentflow/internal/metrics"
	"rentflow/internal/server/routes"
)

const sessionName = "rentflow-session"

type routeRegistrar interface {
	RegisterRoutes(r *gin.Engine)
}

func (s *Server) RegisterRoutes() http.Handler {
	// Initialize Goth providers
	providers := auth.InitGothProviders(s.cfg)
	s.log.WithField("providers", providers).Info("oauth providers registered")

	routes.RegisterValidation()

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(s.log), metrics.Middleware())

	// Set up sessions, shared with gothic for the OAuth handshake
	store := cookie.NewStore([]byte(s.cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(s.cfg.JWTTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	gothic.Store = store
	r.Use(sessions.Sessions(sessionName, store))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	for _, rr := range []routeRegistrar{
		routes.NewAuthRoutes(s),
		routes.NewUserRoutes(s),
		routes.NewInviteRoutes(s),
		routes.NewApplicationRoutes(s),
		routes.NewReferenceRoutes(s),
		routes.NewNotificationRoutes(s),
	} {
		rr.RegisterRoutes(r)
	}

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	stats := s.health()
	if stats["status"] == "down" {
		c.JSON(http.StatusServiceUnavailable, stats)
		return
	}
	c.JSON(http.StatusOK, stats)
}
