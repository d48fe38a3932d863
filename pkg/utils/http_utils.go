package utils

import (
	"errors"
	"net/http"
	"strconv"

	"logmene/internal/models"
	"logmene/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// RespondWithError writes {"message": msg} with the given status.
func RespondWithError(c echo.Context, code int, msg string) error {
	return c.JSON(code, models.ErrorResponse{Message: msg})
}

// RespondWithJSON writes payload with the given status.
func RespondWithJSON(c echo.Context, code int, payload interface{}) error {
	return c.JSON(code, payload)
}

// ExtractUserInfo reads the identity the JWT middleware stored on the context.
func ExtractUserInfo(c echo.Context) (string, models.Role, error) {
	userID, _ := c.Get("userID").(string)
	role, _ := c.Get("userRole").(models.Role)
	if userID == "" || role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid user identity")
	}
	return userID, role, nil
}

// ExtractActor is ExtractUserInfo packed into a models.Actor.
func ExtractActor(c echo.Context) (models.Actor, error) {
	userID, role, err := ExtractUserInfo(c)
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{UserID: userID, Role: role}, nil
}

// HandleServiceError maps service errors to HTTP responses. Domain errors keep
// their descriptive message; anything else is logged and reported as a generic 500.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		return RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrForbidden):
		return RespondWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrInvalidState):
		return RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrConflict):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrInvalidToken):
		return RespondWithError(c, http.StatusUnauthorized, err.Error())
	}

	logger.Error("unhandled service error",
		"method", c.Request().Method,
		"path", c.Path(),
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"error", err,
	)
	return RespondWithError(c, http.StatusInternalServerError, "Internal server error")
}

// GetPageLimit reads ?page= and ?limit= with defaults and an upper bound on limit.
func GetPageLimit(c echo.Context) (int, int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = defaultPage
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// ParseIDParam parses a positive integer path parameter.
func ParseIDParam(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}
