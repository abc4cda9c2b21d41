package models

import "time"

// ParticipantStatus is the join-state of a user on a meal request.
type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantJoined   ParticipantStatus = "joined"
	ParticipantRejected ParticipantStatus = "rejected"
)

// Active reports whether the status counts against the one-active-row rule.
func (s ParticipantStatus) Active() bool {
	return s == ParticipantPending || s == ParticipantJoined
}

// Participant is a join-table row between MealRequest and User.
// The requester never has a row here; withdrawal deletes the row.
type Participant struct {
	ID        uint              `json:"id" gorm:"primaryKey"`
	RequestID uint              `json:"request_id" gorm:"not null;index"`
	UserID    uint              `json:"user_id" gorm:"not null;index"`
	Status    ParticipantStatus `json:"status" gorm:"size:16;not null;index"`
	ClientKey string            `json:"-" gorm:"size:64;index"`
	CreatedAt time.Time         `json:"created_at"`
	JoinedAt  *time.Time        `json:"joined_at"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}
