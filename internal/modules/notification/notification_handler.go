package notification

import (
	"net/http"
	"strconv"

	"logmene/pkg/logger"
	"logmene/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for notifications and the live feed.
type Handler struct {
	svc      ServiceInterface
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a new notification handler. Websocket upgrades are
// accepted from allowedOrigin only; an empty value accepts any origin.
func NewHandler(svc ServiceInterface, hub *Hub, allowedOrigin string) *Handler {
	return &Handler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

func (h *Handler) List(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	page, limit := utils.GetPageLimit(c)
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread"))
	notifications, total, err := h.svc.List(c.Request().Context(), userID, unreadOnly, page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"total":         total,
	})
}

func (h *Handler) UnreadCount(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	n, err := h.svc.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) MarkRead(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.MarkRead(c.Request().Context(), userID, id); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	updated, err := h.svc.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]int64{"updated": updated})
}

// Stream upgrades to a websocket and streams the user's new notifications until the client leaves.
func (h *Handler) Stream(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.Debug("websocket upgrade failed", "user_id", userID, "error", err)
		return nil
	}
	h.hub.Serve(conn, userID)
	return nil
}
