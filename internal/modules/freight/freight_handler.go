package freight

import (
	"net/http"

	"logmene/internal/models"
	"logmene/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for freight requests, quotes and deliveries.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new freight handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateRequest(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}

	var req models.CreateFreightRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	fr, err := h.svc.CreateRequest(c.Request().Context(), actor, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, fr)
}

func (h *Handler) ListRequests(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}

	page, limit := utils.GetPageLimit(c)
	status := models.RequestStatus(c.QueryParam("status"))
	requests, total, err := h.svc.ListRequests(c.Request().Context(), actor, status, page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

func (h *Handler) GetStats(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}

	stats, err := h.svc.GetStats(c.Request().Context(), actor)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, stats)
}

func (h *Handler) GetRequest(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	requestID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	details, err := h.svc.GetRequest(c.Request().Context(), actor, requestID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, details)
}

func (h *Handler) EditRequest(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	requestID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateFreightRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	fr, err := h.svc.EditRequest(c.Request().Context(), actor, requestID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, fr)
}

func (h *Handler) DeleteRequest(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	requestID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.DeleteRequest(c.Request().Context(), actor, requestID); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateQuote(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	requestID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req models.CreateQuoteRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	quote, err := h.svc.CreateQuote(c.Request().Context(), actor, requestID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, quote)
}

func (h *Handler) GetQuote(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	requestID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	quote, err := h.svc.GetQuote(c.Request().Context(), actor, requestID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, quote)
}

func (h *Handler) UpdateQuote(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	quoteID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateQuoteRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	quote, err := h.svc.UpdateQuote(c.Request().Context(), actor, quoteID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, quote)
}

func (h *Handler) DeleteQuote(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	quoteID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.DeleteQuote(c.Request().Context(), actor, quoteID); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RespondToQuote(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	requestID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req models.RespondToQuoteRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	fr, err := h.svc.RespondToQuote(c.Request().Context(), actor, requestID, req.Decision)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, fr)
}

func (h *Handler) UploadDeliveryProof(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	requestID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req models.CreateDeliveryProofRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	proof, err := h.svc.UploadDeliveryProof(c.Request().Context(), actor, requestID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, proof)
}

func (h *Handler) GetDeliveryProof(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	requestID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	proof, err := h.svc.GetDeliveryProof(c.Request().Context(), actor, requestID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, proof)
}

func (h *Handler) CompleteRequest(c echo.Context) error {
	actor, err := utils.ExtractActor(c)
	if err != nil {
		return err
	}
	requestID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return err
	}

	fr, err := h.svc.CompleteRequest(c.Request().Context(), actor, requestID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, fr)
}
