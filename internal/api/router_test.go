package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"logmene/internal/config"
	"logmene/internal/models"
	"logmene/internal/modules/freight"
	"logmene/internal/modules/notification"
	"logmene/internal/modules/user"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-secret"

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(db Pinger) *echo.Echo {
	e := echo.New()
	cfg := &config.Config{JWTSecret: testSecret, MetricsEnabled: true}
	// Handlers are never reached in these tests: every request stops at a middleware.
	SetupRoutes(e, cfg, Handlers{
		User:         user.NewHandler(nil),
		Freight:      freight.NewHandler(nil),
		Notification: notification.NewHandler(nil, nil, ""),
	}, db, nil)
	return e
}

func signToken(t *testing.T, userID string, role models.Role) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID: userID,
		Email:  userID + "@example.com",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "database reachable", want: http.StatusOK},
		{name: "database down", err: errors.New("connection refused"), want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(fakePinger{err: tt.err})
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestServer(fakePinger{})
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "logmene_http_request_duration_seconds")
}

func TestRoutes_RequireAuthentication(t *testing.T) {
	e := newTestServer(fakePinger{})
	for _, target := range []string{"/requests", "/profile", "/notifications", "/ws/notifications"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestRoutes_RoleGates(t *testing.T) {
	e := newTestServer(fakePinger{})
	clientToken := signToken(t, "client-1", models.RoleClient)
	companyToken := signToken(t, "company-1", models.RoleCompany)

	tests := []struct {
		method string
		target string
		token  string
	}{
		{http.MethodPost, "/requests", companyToken},
		{http.MethodPut, "/requests/1", companyToken},
		{http.MethodDelete, "/requests/1", companyToken},
		{http.MethodPost, "/requests/1/respond", companyToken},
		{http.MethodPost, "/requests/1/quote", clientToken},
		{http.MethodPost, "/requests/1/proof", clientToken},
		{http.MethodPost, "/requests/1/complete", clientToken},
		{http.MethodPut, "/quotes/1", clientToken},
		{http.MethodDelete, "/quotes/1", clientToken},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader("{}"))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}
