package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentflow/internal/application"
	"rentflow/internal/auth"
	"rentflow/internal/config"
	"rentflow/internal/invite"
	"rentflow/internal/memstore"
	"rentflow/internal/models"
	"rentflow/internal/notify"
	"rentflow/internal/storage"
)

type testServer struct {
	store  *memstore.Store
	engine *invite.Engine
	apps   *application.Service
	tokens *auth.Tokens
	cfg    *config.Config
}

func (s *testServer) GetInvites() *invite.Engine { return s.engine }
func (s *testServer) GetApplications() *application.Service { return s.apps }
func (s *testServer) GetUsers() UserStore { return s.store.Users }
func (s *testServer) GetNotifications() NotificationStore { return s.store.Notifications }
func (s *testServer) GetTokens() *auth.Tokens { return s.tokens }
func (s *testServer) GetConfig() *config.Config { return s.cfg }

type env struct {
	t      *testing.T
	srv    *testServer
	router *gin.Engine

	landlord  *models.User
	applicant *models.User
	stranger  *models.User
	property  *models.Property
	enquiry   *models.Enquiry
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	store := memstore.New()
	cipher, err := storage.NewCipher(strings.Repeat("cd", 32))
	require.NoError(t, err)

	engine := invite.NewEngine(invite.Deps{
		Invites:    store.Invites,
		Enquiries:  store.Enquiries,
		Properties: store.Properties,
		Users:      store.Users,
		Notifier:   notify.Nop{},
		Logger:     logger,
	})
	srv := &testServer{
		store:  store,
		engine: engine,
		apps: application.NewService(application.Deps{
			Applications: store.Applications,
			Forms:        store.Forms,
			References:   store.References,
			Tenants:      store.Tenants,
			Invites:      store.Invites,
			Responder:    engine,
			Properties:   store.Properties,
			Users:        store.Users,
			Documents:    storage.NewMemory(cipher),
			Notifier:     notify.Nop{},
			Logger:       logger,
		}),
		tokens: auth.NewTokens("route-test-secret", time.Hour),
		cfg:    &config.Config{FrontendURL: "http://localhost:3000"},
	}

	RegisterValidation()
	r := gin.New()
	r.Use(sessions.Sessions("test-session", cookie.NewStore([]byte("session-secret"))))
	NewUserRoutes(srv).RegisterRoutes(r)
	NewInviteRoutes(srv).RegisterRoutes(r)
	NewApplicationRoutes(srv).RegisterRoutes(r)
	NewReferenceRoutes(srv).RegisterRoutes(r)
	NewNotificationRoutes(srv).RegisterRoutes(r)

	e := &env{t: t, srv: srv, router: r}
	e.landlord = &models.User{Email: "landlord@example.com", FirstName: "Charles", Role: models.RoleLandlord}
	e.applicant = &models.User{Email: "ada@example.com", FirstName: "Ada", Role: models.RoleApplicant}
	e.stranger = &models.User{Email: "other@example.com", FirstName: "Grace", Role: models.RoleLandlord}
	for _, u := range []*models.User{e.landlord, e.applicant, e.stranger} {
		require.NoError(t, store.Users.Create(ctx, u))
	}
	e.property = &models.Property{LandlordID: e.landlord.ID, Name: "Flat 2, Baker Street"}
	require.NoError(t, store.Properties.Create(ctx, e.property))
	e.enquiry = &models.Enquiry{PropertyID: e.property.ID, ApplicantID: e.applicant.ID}
	require.NoError(t, store.Enquiries.Create(ctx, e.enquiry))
	return e
}

// do sends body as JSON, authenticated as user when user is not nil
func (e *env) do(method, path string, body any, user *models.User) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := e.srv.tokens.Issue(user)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out.Error
}

func (e *env) createInvite() models.ApplicationInvite {
	e.t.Helper()
	w := e.do(http.MethodPost, "/invites/"+e.enquiry.ID.String(), gin.H{"response": "PENDING"}, e.landlord)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var inv models.ApplicationInvite
	require.NoError(e.t, json.Unmarshal(decode(e.t, w)["invite"], &inv))
	return inv
}

// readyInvite walks an invite up to APPLY through the API
func (e *env) readyInvite() models.ApplicationInvite {
	e.t.Helper()
	inv := e.createInvite()
	for _, body := range []gin.H{
		{"response": "AWAITING_FEEDBACK"},
		{"response": "FEEDBACK"},
		{"response": "APPLY", "enquiry_id": e.enquiry.ID},
	} {
		w := e.do(http.MethodPatch, "/invites/"+inv.ID.String(), body, e.applicant)
		require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	}
	return inv
}

func (e *env) createApplication(inviteID uuid.UUID) models.Application {
	e.t.Helper()
	w := e.do(http.MethodPost, "/application/"+e.property.ID.String(), gin.H{
		"application_invite_id": inviteID,
		"first_name":            "Ada",
		"last_name":             "Lovelace",
	}, e.applicant)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var app models.Application
	require.NoError(e.t, json.Unmarshal(decode(e.t, w)["application"], &app))
	return app
}

func TestAuthMiddleware(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name   string
		header string
		status int
		err    string
	}{
		{"no credentials", "", http.StatusUnauthorized, "Not authenticated"},
		{"wrong scheme", "Token abc", http.StatusUnauthorized, "Invalid authorization header format"},
		{"bad token", "Bearer not-a-jwt", http.StatusUnauthorized, auth.ErrInvalidToken.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/user", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			e.router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.err, errorOf(t, w))
		})
	}

	t.Run("unknown user", func(t *testing.T) {
		ghost := &models.User{BaseModel: models.BaseModel{ID: uuid.New()}, Role: models.RoleLandlord}
		w := e.do(http.MethodGet, "/user", nil, ghost)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := e.do(http.MethodGet, "/user", nil, e.landlord)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.JSONEq(t, `"LANDLORD"`, string(body["role"]))
		assert.JSONEq(t, `"landlord@example.com"`, string(body["email"]))
	})

	t.Run("landlord only route", func(t *testing.T) {
		w := e.do(http.MethodGet, "/invites", nil, e.applicant)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Insufficient permissions", errorOf(t, w))
	})
}

func TestInviteRoutes_Lifecycle(t *testing.T) {
	e := newEnv(t)
	inv := e.createInvite()
	assert.Equal(t, models.ResponsePending, inv.Response)
	path := "/invites/" + inv.ID.String()

	t.Run("visible to both parties only", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, e.do(http.MethodGet, path, nil, e.applicant).Code)
		assert.Equal(t, http.StatusOK, e.do(http.MethodGet, path, nil, e.landlord).Code)
		assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, path, nil, e.stranger).Code)
		assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/invites/"+uuid.NewString(), nil, e.landlord).Code)
		assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/invites/nope", nil, e.landlord).Code)
	})

	t.Run("response update", func(t *testing.T) {
		w := e.do(http.MethodPatch, path, gin.H{"response": "AWAITING_FEEDBACK"}, e.applicant)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var updated models.ApplicationInvite
		require.NoError(t, json.Unmarshal(decode(t, w)["updatedInvite"], &updated))
		assert.Equal(t, models.History[models.InviteResponse]{models.ResponsePending, models.ResponseAwaitingFeedback}, updated.ResponseStepsCompleted)
	})

	t.Run("field update without response", func(t *testing.T) {
		w := e.do(http.MethodPatch, path, gin.H{"schedule_date": "2025-07-01T10:00:00Z"}, e.landlord)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Contains(t, body, "invite")
		assert.NotContains(t, body, "updatedInvite")
	})

	t.Run("apply before feedback", func(t *testing.T) {
		w := e.do(http.MethodPatch, path, gin.H{"response": "APPLY", "enquiry_id": e.enquiry.ID}, e.applicant)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var body struct {
			MissingFields []string `json:"missingFields"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, []string{"FEEDBACK"}, body.MissingFields)
	})

	t.Run("listing filters", func(t *testing.T) {
		w := e.do(http.MethodGet, "/invites?with=awaiting_feedback", nil, e.landlord)
		require.Equal(t, http.StatusOK, w.Code)
		var with []models.ApplicationInvite
		require.NoError(t, json.Unmarshal(decode(t, w)["invites"], &with))
		require.Len(t, with, 1)
		assert.Equal(t, inv.ID, with[0].ID)

		w = e.do(http.MethodGet, "/invites?without=PENDING", nil, e.landlord)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, string(decode(t, w)["invites"]))

		w = e.do(http.MethodGet, "/invites?with=BOGUS", nil, e.landlord)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete by another landlord", func(t *testing.T) {
		w := e.do(http.MethodDelete, path, nil, e.stranger)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Contains(t, body, "message")
		assert.NotContains(t, body, "deletedInvite")
		assert.Equal(t, http.StatusOK, e.do(http.MethodGet, path, nil, e.landlord).Code)
	})

	t.Run("delete by owner", func(t *testing.T) {
		w := e.do(http.MethodDelete, path, nil, e.landlord)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decode(t, w), "deletedInvite")
		assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, path, nil, e.landlord).Code)
	})
}

func TestInviteRoutes_CreateForSomeoneElsesProperty(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/invites/"+e.enquiry.ID.String(), gin.H{}, e.stranger)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestApplicationRoutes_CreateAndComplete(t *testing.T) {
	e := newEnv(t)
	inv := e.readyInvite()

	t.Run("validation reports the first field", func(t *testing.T) {
		w := e.do(http.MethodPost, "/application/"+e.property.ID.String(), gin.H{
			"application_invite_id": inv.ID,
			"last_name":             "Lovelace",
		}, e.applicant)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "first_name is required", errorOf(t, w))
	})

	app := e.createApplication(inv.ID)
	assert.Equal(t, models.StatusPending, app.Status)

	t.Run("complete lists missing forms", func(t *testing.T) {
		w := e.do(http.MethodPost, "/application/complete/"+app.ID.String(), nil, e.applicant)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var body struct {
			MissingFields []string `json:"missingFields"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, []string{"guarantorInformationId", "residentialId", "employmentInformationId", "refereeId"}, body.MissingFields)
	})

	t.Run("complete unknown application", func(t *testing.T) {
		w := e.do(http.MethodPost, "/application/complete/"+uuid.NewString(), nil, e.applicant)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("sub-form validation", func(t *testing.T) {
		w := e.do(http.MethodPost, "/application/guarantor/"+app.ID.String(), gin.H{
			"full_name": "Mary Somerville",
			"email":     "not-an-email",
		}, e.applicant)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "email must be a valid email address", errorOf(t, w))
	})

	t.Run("decision is landlord only", func(t *testing.T) {
		w := e.do(http.MethodPost, "/application/"+app.ID.String()+"/decision", gin.H{"decision": "ACCEPTED"}, e.applicant)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("decision value is checked", func(t *testing.T) {
		w := e.do(http.MethodPost, "/application/"+app.ID.String()+"/decision", gin.H{"decision": "MAYBE"}, e.landlord)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "decision must be one of ACCEPTED, DECLINED, MAKEPAYMENT", errorOf(t, w))
	})

	t.Run("only the owner deletes", func(t *testing.T) {
		w := e.do(http.MethodDelete, "/application/"+app.ID.String(), nil, e.landlord)
		assert.Equal(t, http.StatusForbidden, w.Code)
		w = e.do(http.MethodDelete, "/application/"+app.ID.String(), nil, e.applicant)
		assert.Equal(t, http.StatusOK, w.Code)
		w = e.do(http.MethodGet, "/application/"+app.ID.String(), nil, e.applicant)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReferenceRoutes(t *testing.T) {
	e := newEnv(t)
	app := e.createApplication(e.readyInvite().ID)
	path := "/application/employee-reference/" + app.ID.String()

	w := e.do(http.MethodPost, path, gin.H{"employee_name": "Ada Lovelace", "company_name": "Analytical Engines"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "employer_email is required", errorOf(t, w))

	form := gin.H{
		"employee_name":  "Ada Lovelace",
		"company_name":   "Analytical Engines",
		"employer_email": "hr@engines.example",
	}
	w = e.do(http.MethodPost, path, form, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w), "employeeReferenceForm")

	w = e.do(http.MethodPost, path, form, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.EmployeeReferenceCompleted, errorOf(t, w))

	w = e.do(http.MethodPost, "/application/employee-reference/"+uuid.NewString(), form, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationRoutes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	n := &models.Notification{UserID: e.applicant.ID, Kind: models.NotifyInviteCreated, Title: "Invited"}
	require.NoError(t, e.srv.store.Notifications.Create(ctx, n))

	w := e.do(http.MethodGet, "/notifications?limit=500", nil, e.applicant)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Notification
	require.NoError(t, json.Unmarshal(decode(t, w)["notifications"], &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Invited", list[0].Title)

	w = e.do(http.MethodPost, "/notifications/"+n.ID.String()+"/read", nil, e.landlord)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, "/notifications/"+n.ID.String()+"/read", nil, e.applicant)
	assert.Equal(t, http.StatusOK, w.Code)
}
