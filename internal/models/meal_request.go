package models

import (
	"time"

	"gorm.io/gorm"
)

// JoinType controls whether joining is instant or approval-gated.
type JoinType string

const (
	JoinTypeOpen     JoinType = "open"
	JoinTypeApproval JoinType = "approval"
)

// MealRequest is a proposal to share a meal at a restaurant.
// The requester implicitly occupies one of the GroupSize seats and never
// has a Participant row of their own; every joined-count comparison in
// the engine accounts for that extra seat.
type MealRequest struct {
	gorm.Model      `json:"-"`
	ID              uint       `json:"id" gorm:"primaryKey"`
	RequesterID     uint       `json:"requester_id" gorm:"not null;index"`
	RestaurantID    uint       `json:"restaurant_id" gorm:"not null;index"`
	Cuisine         string     `json:"cuisine" gorm:"size:30;index"`
	BudgetRange     string     `json:"budget_range" gorm:"size:30"`
	TimeWindow      time.Time  `json:"time_window" gorm:"index"`
	Asap            bool       `json:"asap" gorm:"default:false"`
	GroupSize       int        `json:"group_size" gorm:"not null"`
	JoinType        JoinType   `json:"join_type" gorm:"size:16;not null;default:'open'"`
	Description     string     `json:"description" gorm:"size:500"`
	MealCompletedAt *time.Time `json:"meal_completed_at"`
	CreatedAt       time.Time  `json:"created_at"`

	Requester  User       `json:"requester" gorm:"foreignKey:RequesterID"`
	Restaurant Restaurant `json:"restaurant" gorm:"foreignKey:RestaurantID"`
}

// Completed reports whether the requester has marked the meal as held.
func (m *MealRequest) Completed() bool {
	return m.MealCompletedAt != nil
}

// Expired reports whether the request's time window has passed.
// ASAP requests never expire on their own.
func (m *MealRequest) Expired(now time.Time) bool {
	return !m.Asap && m.TimeWindow.Before(now)
}

// MealRequestWithDerived is the read-only list projection. SpotsLeft is
// GroupSize minus joined participants minus the requester's own seat.
type MealRequestWithDerived struct {
	MealRequest
	ParticipantCount int `json:"participant_count"`
	SpotsLeft        int `json:"spots_left"`
}

// CreateMealRequestRequest defines the body for creating a meal request
type CreateMealRequestRequest struct {
	RestaurantID uint      `json:"restaurant_id" validate:"required"`
	Cuisine      string    `json:"cuisine" validate:"required,max=30"`
	BudgetRange  string    `json:"budget_range" validate:"omitempty,max=30"`
	TimeWindow   time.Time `json:"time_window"`
	Asap         bool      `json:"asap"`
	GroupSize    int       `json:"group_size" validate:"required,min=2,max=4"`
	JoinType     JoinType  `json:"join_type" validate:"required,oneof=open approval"`
	Description  string    `json:"description" validate:"omitempty,max=500"`
}

// JoinMealRequestRequest carries the optional client-supplied dedup key
// so a retried join cannot double-insert a participant row.
type JoinMealRequestRequest struct {
	ClientKey string `json:"client_key" validate:"omitempty,max=64"`
}

// ListRequestFilters narrows the active-request feed.
type ListRequestFilters struct {
	District string   `query:"district"`
	City     string   `query:"city"`
	Cuisine  string   `query:"cuisine"`
	Budget   string   `query:"budget"`
	JoinType JoinType `query:"join_type"`
}
