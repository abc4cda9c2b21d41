package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bobmate/backend/internal/models"
	"github.com/bobmate/backend/internal/repositories"
	"github.com/bobmate/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ChatHandler handles HTTP requests for per-request chat channels
type ChatHandler struct {
	chat     repositories.ChatRepository
	users    repositories.UserRepository
	notifier services.Notifier
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatRepo repositories.ChatRepository, userRepo repositories.UserRepository, notifier services.Notifier) *ChatHandler {
	return &ChatHandler{chat: chatRepo, users: userRepo, notifier: notifier}
}

// RegisterChatRoutes registers chat routes
func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.GET("/requests/:id/chat", h.GetChannel)
	g.GET("/requests/:id/chat/messages", h.ListMessages)
	g.POST("/requests/:id/chat/messages", h.SendMessage)
}

// memberChannel loads the channel for a request and checks the caller is in it
func (h *ChatHandler) memberChannel(c echo.Context) (*models.ChatChannel, uint, error) {
	userID := c.Get("userID").(uint)
	requestID, err := requestIDParam(c)
	if err != nil {
		return nil, 0, err
	}

	channel, err := h.chat.GetChannelByRequestID(c.Request().Context(), requestID)
	if err != nil {
		return nil, 0, domainError(err)
	}

	for _, memberID := range channel.MemberIDs {
		if memberID == userID {
			return channel, userID, nil
		}
	}
	return nil, 0, echo.NewHTTPError(http.StatusForbidden, "you are not a member of this chat")
}

// GetChannel returns the chat channel for a request
func (h *ChatHandler) GetChannel(c echo.Context) error {
	channel, _, err := h.memberChannel(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, channel)
}

// ListMessages returns a page of messages, newest first
func (h *ChatHandler) ListMessages(c echo.Context) error {
	channel, _, err := h.memberChannel(c)
	if err != nil {
		return err
	}

	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, err := h.chat.ListMessages(c.Request().Context(), channel.ID, skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, messages)
}

// SendMessage posts a message into the channel and pings the other members
func (h *ChatHandler) SendMessage(c echo.Context) error {
	channel, userID, err := h.memberChannel(c)
	if err != nil {
		return err
	}
	if channel.Closed {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "this chat is closed")
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	message := models.ChatMessage{
		ChannelID: channel.ID,
		SenderID:  userID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if err := h.chat.InsertMessage(c.Request().Context(), &message); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	senderName := "Someone"
	if sender, err := h.users.GetUserByID(userID); err == nil {
		senderName = sender.Name
	}
	for _, memberID := range channel.MemberIDs {
		if memberID == userID {
			continue
		}
		h.notifier.Dispatch(models.Notification{
			Type:        models.NotificationNewMessage,
			ActorID:     userID,
			RecipientID: memberID,
			RequestID:   channel.RequestID,
			Message:     fmt.Sprintf("%s sent a message", senderName),
		})
	}

	return c.JSON(http.StatusCreated, message)
}
