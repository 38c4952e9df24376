package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordInviteTransition(t *testing.T) {
	before := testutil.ToFloat64(inviteTransitions.WithLabelValues("FEEDBACK"))
	RecordInviteTransition("FEEDBACK")
	RecordInviteTransition("FEEDBACK")
	assert.Equal(t, before+2, testutil.ToFloat64(inviteTransitions.WithLabelValues("FEEDBACK")))
}

func TestRecordScreening(t *testing.T) {
	pass := testutil.ToFloat64(screeningResults.WithLabelValues("landlord", "pass"))
	fail := testutil.ToFloat64(screeningResults.WithLabelValues("landlord", "fail"))

	RecordScreening("landlord", true)
	RecordScreening("landlord", false)
	RecordScreening("landlord", false)

	assert.Equal(t, pass+1, testutil.ToFloat64(screeningResults.WithLabelValues("landlord", "pass")))
	assert.Equal(t, fail+2, testutil.ToFloat64(screeningResults.WithLabelValues("landlord", "fail")))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/invites/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	r.GET("/metrics", gin.WrapH(Handler()))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/invites/:id", "418"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invites/abc", nil))
	require.Equal(t, http.StatusTeapot, w.Code)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/invites/:id", "418")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "rentflow_http_requests_total"))
}
