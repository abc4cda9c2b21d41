package handlers

import (
	"net/http"
	"strconv"

	"github.com/bobmate/backend/internal/models"
	"github.com/bobmate/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)            // Get own profile
	g.PUT("/profile", h.UpdateProfile)         // Update own profile
	g.PUT("/profile/push-token", h.RegisterPushToken)
	g.GET("/users/:id", h.GetUser)             // Get other user's profile by ID
	g.GET("/users/search", h.SearchUsers)
	g.DELETE("/profile", h.DeleteUser)         // Delete own user profile
}

func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	user, err := h.userRepository.GetUserByID(uint(id))
	if err != nil {
		return domainError(err)
	}
	// Other users only ever see the compact shape
	return c.JSON(http.StatusOK, user.ToCompact())
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID := c.Get("userID").(uint)

	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID := c.Get("userID").(uint)

	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return domainError(err)
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Persona != "" {
		user.Persona = req.Persona
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Language != "" {
		user.Language = req.Language
	}

	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, user)
}

// RegisterPushToken stores the device token used for push notifications
func (h *UserHandler) RegisterPushToken(c echo.Context) error {
	userID := c.Get("userID").(uint)

	var req models.RegisterPushTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.userRepository.UpdatePushToken(userID, req.PushToken); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// DeleteUser deletes the authenticated user's profile
func (h *UserHandler) DeleteUser(c echo.Context) error {
	userID := c.Get("userID").(uint)

	if err := h.userRepository.DeleteUser(userID); err != nil {
		return domainError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// SearchUsers searches for users by a query string (email or name)
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}

	users, err := h.userRepository.SearchUsers(query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	compacts := make([]models.UserCompact, 0, len(users))
	for i := range users {
		compacts = append(compacts, users[i].ToCompact())
	}
	return c.JSON(http.StatusOK, compacts)
}
