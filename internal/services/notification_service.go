package services

import (
	"context"
	"log"
	"strconv"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/bobmate/backend/internal/models"
	"github.com/bobmate/backend/internal/repositories"
)

// Notifier is the fire-and-forget event sink the lifecycle engine reports
// state transitions to. Delivery failure never rolls back the transition
// that triggered it.
type Notifier interface {
	Dispatch(notification models.Notification)
}

// PushSender delivers a push message to a single device token.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// FCMPushSender implements PushSender over Firebase Cloud Messaging
type FCMPushSender struct {
	client *messaging.Client
}

// NewFCMPushSender creates a new FCMPushSender
func NewFCMPushSender(client *messaging.Client) *FCMPushSender {
	return &FCMPushSender{client: client}
}

// Send delivers one push via FCM
func (s *FCMPushSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	return err
}

// NotificationService persists notifications and pushes them to devices
type NotificationService struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	push          PushSender // nil when FCM is not configured
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notificationRepo repositories.NotificationRepository, userRepo repositories.UserRepository, push PushSender) *NotificationService {
	return &NotificationService{
		notifications: notificationRepo,
		users:         userRepo,
		push:          push,
	}
}

var pushTitles = map[string]string{
	models.NotificationJoinRequested:    "New join request",
	models.NotificationJoinApproved:     "You're in!",
	models.NotificationJoinRejected:     "Join request declined",
	models.NotificationNewMessage:       "New message",
	models.NotificationRequestCancelled: "Meal cancelled",
	models.NotificationMealCompleted:    "How was your meal?",
}

// Dispatch stores the notification and sends a best-effort push. It runs
// in the background so callers never block or fail on delivery problems.
func (s *NotificationService) Dispatch(notification models.Notification) {
	go func() {
		if err := s.notifications.CreateNotification(&notification); err != nil {
			log.Printf("failed to persist notification for user %d: %v", notification.RecipientID, err)
		}

		if s.push == nil {
			return
		}
		recipient, err := s.users.GetUserByID(notification.RecipientID)
		if err != nil || recipient.PushToken == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data := map[string]string{
			"type":       notification.Type,
			"request_id": strconv.FormatUint(uint64(notification.RequestID), 10),
			"actor_id":   strconv.FormatUint(uint64(notification.ActorID), 10),
		}
		if err := s.push.Send(ctx, recipient.PushToken, pushTitles[notification.Type], notification.Message, data); err != nil {
			log.Printf("failed to push notification to user %d: %v", notification.RecipientID, err)
		}
	}()
}
