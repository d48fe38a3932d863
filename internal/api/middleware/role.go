package middleware

import (
	"net/http"

	"logmene/internal/models"

	"github.com/labstack/echo/v4"
)

// RequireRole aborts with 403 unless the authenticated user has one of roles.
// It must run after JWTMAuth, which stores the role under "userRole".
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("userRole").(models.Role)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Forbidden"})
			}
			return next(c)
		}
	}
}
