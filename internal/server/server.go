package server

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"rentflow/internal/application"
	"rentflow/internal/auth"
	"rentflow/internal/config"
	"rentflow/internal/invite"
	"rentflow/internal/server/routes"
)

// HealthFunc reports the state of the backing store
type HealthFunc func() map[string]string

type Server struct {
	cfg           *config.Config
	invites       *invite.Engine
	applications  *application.Service
	users         routes.UserStore
	notifications routes.NotificationStore
	tokens        *auth.Tokens
	health        HealthFunc
	log           logrus.FieldLogger
}

// Deps carries everything the HTTP layer serves
type Deps struct {
	Config        *config.Config
	Invites       *invite.Engine
	Applications  *application.Service
	Users         routes.UserStore
	Notifications routes.NotificationStore
	Tokens        *auth.Tokens
	Health        HealthFunc
	Logger        logrus.FieldLogger
}

func New(deps Deps) *Server {
	s := &Server{
		cfg:           deps.Config,
		invites:       deps.Invites,
		applications:  deps.Applications,
		users:         deps.Users,
		notifications: deps.Notifications,
		tokens:        deps.Tokens,
		health:        deps.Health,
		log:           deps.Logger,
	}
	if s.health == nil {
		s.health = func() map[string]string { return map[string]string{"status": "up"} }
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

func (s *Server) GetInvites() *invite.Engine { return s.invites }
func (s *Server) GetApplications() *application.Service { return s.applications }
func (s *Server) GetUsers() routes.UserStore { return s.users }
func (s *Server) GetNotifications() routes.NotificationStore { return s.notifications }
func (s *Server) GetTokens() *auth.Tokens { return s.tokens }
func (s *Server) GetConfig() *config.Config { return s.cfg }

func NewServer(deps Deps) *http.Server {
	s := New(deps)

	// Declare Server config
	server := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
