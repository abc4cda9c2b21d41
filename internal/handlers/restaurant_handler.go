package handlers

import (
	"net/http"
	"strconv"

	"github.com/bobmate/backend/internal/models"
	"github.com/bobmate/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// RestaurantHandler handles HTTP requests for restaurants
type RestaurantHandler struct {
	restaurants repositories.RestaurantRepository
}

// NewRestaurantHandler creates a new RestaurantHandler
func NewRestaurantHandler(restaurantRepo repositories.RestaurantRepository) *RestaurantHandler {
	return &RestaurantHandler{restaurants: restaurantRepo}
}

// RegisterRestaurantRoutes registers restaurant routes
func (h *RestaurantHandler) RegisterRestaurantRoutes(g *echo.Group) {
	g.POST("/restaurants", h.CreateRestaurant)
	g.GET("/restaurants", h.ListRestaurants)
	g.GET("/restaurants/:id", h.GetRestaurant)
}

// CreateRestaurant adds a restaurant to the directory
func (h *RestaurantHandler) CreateRestaurant(c echo.Context) error {
	var req models.CreateRestaurantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	restaurant := models.Restaurant{
		Name:        req.Name,
		Address:     req.Address,
		District:    req.District,
		City:        req.City,
		CuisineType: req.CuisineType,
	}
	if err := h.restaurants.CreateRestaurant(&restaurant); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, restaurant)
}

// ListRestaurants lists restaurants, optionally filtered by area or cuisine
func (h *RestaurantHandler) ListRestaurants(c echo.Context) error {
	restaurants, err := h.restaurants.ListRestaurants(
		c.QueryParam("district"),
		c.QueryParam("city"),
		c.QueryParam("cuisine"),
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, restaurants)
}

// GetRestaurant returns a single restaurant by ID
func (h *RestaurantHandler) GetRestaurant(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid restaurant ID")
	}

	restaurant, err := h.restaurants.GetRestaurantByID(uint(id))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, restaurant)
}
