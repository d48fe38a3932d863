package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"logmene/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     any
		wantCode int
	}{
		{name: "allowed role", role: models.RoleCompany, wantCode: http.StatusOK},
		{name: "other role", role: models.RoleClient, wantCode: http.StatusForbidden},
		{name: "missing role", role: nil, wantCode: http.StatusForbidden},
		{name: "wrong type", role: "company", wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.role != nil {
				c.Set("userRole", tt.role)
			}

			h := RequireRole(models.RoleCompany)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			_ = h(c)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
