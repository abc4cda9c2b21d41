package handlers

import (
	"net/http"
	"strconv"

	"github.com/bobmate/backend/internal/models"
	"github.com/bobmate/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// RequestHandler handles HTTP requests for the meal request lifecycle
type RequestHandler struct {
	requests *services.RequestService
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(requestService *services.RequestService) *RequestHandler {
	return &RequestHandler{requests: requestService}
}

// RegisterRequestRoutes registers meal-request routes
func (h *RequestHandler) RegisterRequestRoutes(g *echo.Group) {
	g.POST("/requests", h.CreateRequest)
	g.GET("/requests", h.ListActiveRequests)
	g.GET("/requests/:id", h.GetRequest)
	g.DELETE("/requests/:id", h.CancelRequest)
	g.GET("/requests/:id/participants", h.ListParticipants)
	g.POST("/requests/:id/join", h.JoinRequest)
	g.DELETE("/requests/:id/join", h.CancelJoin)
	g.POST("/requests/:id/participants/:participantId/approve", h.ApproveParticipant)
	g.POST("/requests/:id/participants/:participantId/reject", h.RejectParticipant)
	g.POST("/requests/:id/complete", h.MarkMealCompleted)
}

func requestIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid request ID")
	}
	return uint(id), nil
}

// CreateRequest opens a new meal request owned by the caller
func (h *RequestHandler) CreateRequest(c echo.Context) error {
	userID := c.Get("userID").(uint)

	var req models.CreateMealRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	request, err := h.requests.CreateRequest(c.Request().Context(), userID, req)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, request)
}

// ListActiveRequests returns open requests matching optional filters
func (h *RequestHandler) ListActiveRequests(c echo.Context) error {
	var filters models.ListRequestFilters
	if err := c.Bind(&filters); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	requests, err := h.requests.ListActiveRequests(c.Request().Context(), filters)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, requests)
}

// GetRequest returns one request with its derived seat counts
func (h *RequestHandler) GetRequest(c echo.Context) error {
	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	request, err := h.requests.GetRequest(c.Request().Context(), requestID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, request)
}

// ListParticipants returns every participant row for a request
func (h *RequestHandler) ListParticipants(c echo.Context) error {
	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	participants, err := h.requests.ListParticipants(c.Request().Context(), requestID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, participants)
}

// JoinRequest joins the caller to a request. On an "open" request the
// caller lands directly in the joined set, on an "approval" request a
// pending row is created for the owner to decide on.
func (h *RequestHandler) JoinRequest(c echo.Context) error {
	userID := c.Get("userID").(uint)
	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	var req models.JoinMealRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Without a client key a retried join gets no replay detection; the
	// one-active-row check still stops the caller's own duplicates.
	participant, err := h.requests.JoinRequest(c.Request().Context(), requestID, userID, req.ClientKey)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, participant)
}

// CancelJoin withdraws the caller from a request
func (h *RequestHandler) CancelJoin(c echo.Context) error {
	userID := c.Get("userID").(uint)
	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	if err := h.requests.CancelJoin(c.Request().Context(), userID, requestID); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ApproveParticipant lets the request owner accept a pending participant
func (h *RequestHandler) ApproveParticipant(c echo.Context) error {
	userID := c.Get("userID").(uint)
	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}
	participantID, err := strconv.ParseUint(c.Param("participantId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid participant ID")
	}

	participant, err := h.requests.ApproveParticipant(c.Request().Context(), userID, requestID, uint(participantID))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, participant)
}

// RejectParticipant lets the request owner decline a pending participant
func (h *RequestHandler) RejectParticipant(c echo.Context) error {
	userID := c.Get("userID").(uint)
	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}
	participantID, err := strconv.ParseUint(c.Param("participantId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid participant ID")
	}

	participant, err := h.requests.RejectParticipant(c.Request().Context(), userID, requestID, uint(participantID))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, participant)
}

// CancelRequest cancels the caller's own request and removes everyone
func (h *RequestHandler) CancelRequest(c echo.Context) error {
	userID := c.Get("userID").(uint)
	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	if err := h.requests.CancelRequest(c.Request().Context(), userID, requestID); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkMealCompleted marks the caller's request as eaten, unlocking ratings
func (h *RequestHandler) MarkMealCompleted(c echo.Context) error {
	userID := c.Get("userID").(uint)
	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	request, err := h.requests.MarkMealCompleted(c.Request().Context(), userID, requestID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, request)
}
