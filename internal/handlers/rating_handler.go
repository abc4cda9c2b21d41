package handlers

import (
	"net/http"

	"github.com/bobmate/backend/internal/models"
	"github.com/bobmate/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// RatingHandler handles HTTP requests for post-meal ratings
type RatingHandler struct {
	ratings *services.RatingService
}

// NewRatingHandler creates a new RatingHandler
func NewRatingHandler(ratingService *services.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratingService}
}

// RegisterRatingRoutes registers rating routes
func (h *RatingHandler) RegisterRatingRoutes(g *echo.Group) {
	g.GET("/ratings/pending", h.GetPendingRatings)
	g.POST("/ratings", h.SubmitRatings)
}

// GetPendingRatings lists the participants the caller still has to rate
func (h *RatingHandler) GetPendingRatings(c echo.Context) error {
	userID := c.Get("userID").(uint)

	pending, err := h.ratings.GetPendingRatings(c.Request().Context(), userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, pending)
}

// SubmitRatings accepts a batch of ratings and reports per-entry results.
// A bad entry never blocks the others; already-rated pairs come back as
// failed entries, not as a request-level error.
func (h *RatingHandler) SubmitRatings(c echo.Context) error {
	userID := c.Get("userID").(uint)

	var req models.SubmitRatingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	results := h.ratings.SubmitRatings(c.Request().Context(), userID, req.Ratings)
	return c.JSON(http.StatusOK, results)
}
