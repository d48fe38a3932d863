package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"logmene/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func postJSON(target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestHandler_Signup_RejectsInvalidCNPJ(t *testing.T) {
	svc, repo, _ := newTestService(t)
	h := NewHandler(svc)

	c, rec := postJSON("/auth/signup", `{"name":"Transportes Sul","email":"ops@sul.com","password":"password123",
		"role":"company","cnpj":"11.222.333/0001-00"}`)
	require.NoError(t, h.Signup(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "cnpj")
	repo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestHandler_Signup_RejectsUnknownRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	c, rec := postJSON("/auth/signup", `{"name":"Ana","email":"ana@example.com","password":"password123","role":"admin"}`)
	require.NoError(t, h.Signup(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Login_InvalidCredentials(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, models.ErrNotFound)
	h := NewHandler(svc)

	c, rec := postJSON("/auth/login", `{"email":"ana@example.com","password":"whatever"}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, models.ErrInvalidCredentials.Error(), errorMessage(t, rec))
}

func TestHandler_RequestPasswordReset_AlwaysOK(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, models.ErrNotFound)
	h := NewHandler(svc)

	c, rec := postJSON("/auth/password/forgot", `{"email":"ghost@example.com"}`)
	require.NoError(t, h.RequestPasswordReset(c))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_GoogleCallback_StateMismatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=forged&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "expected"})
	rec := httptest.NewRecorder()

	require.NoError(t, h.GoogleCallback(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid state parameter", errorMessage(t, rec))
}

func TestHandler_GetProfile_RequiresIdentity(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/profile", nil), httptest.NewRecorder())

	err := h.GetProfile(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
