package models

import "time"

// Notification event types emitted by the lifecycle engine
const (
	NotificationJoinRequested    = "join_requested"
	NotificationJoinApproved     = "join_approved"
	NotificationJoinRejected     = "join_rejected"
	NotificationNewMessage       = "new_message"
	NotificationRequestCancelled = "request_cancelled"
	NotificationMealCompleted    = "meal_completed"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index"`
	ActorID     uint      `json:"actor_id" gorm:"index"`
	RecipientID uint      `json:"recipient_id" gorm:"index"`
	RequestID   uint      `json:"request_id" gorm:"index"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}
