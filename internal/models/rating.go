package models

import "time"

// Rating is a requester's show-up verdict on a joined participant.
// The (rater, rated, request) triple is unique so the meal_count
// increment can never be applied twice for the same pair.
type Rating struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RaterID   uint      `json:"rater_id" gorm:"not null;uniqueIndex:idx_rater_rated_request,priority:1"`
	RatedID   uint      `json:"rated_id" gorm:"not null;index;uniqueIndex:idx_rater_rated_request,priority:2"`
	RequestID uint      `json:"request_id" gorm:"not null;index;uniqueIndex:idx_rater_rated_request,priority:3"`
	ShowedUp  bool      `json:"showed_up"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingRating is one not-yet-rated (request, participant) pair.
type PendingRating struct {
	RequestID      uint      `json:"request_id"`
	RatedID        uint      `json:"rated_id"`
	RatedName      string    `json:"rated_name"`
	RestaurantName string    `json:"restaurant_name"`
	TimeWindow     time.Time `json:"time_window"`
}

// SubmitRatingRequest defines the body for a single show-up rating
type SubmitRatingRequest struct {
	RatedID   uint `json:"rated_id" validate:"required"`
	RequestID uint `json:"request_id" validate:"required"`
	ShowedUp  bool `json:"showed_up"`
}

// SubmitRatingsRequest is the batch form; entries succeed or fail independently
type SubmitRatingsRequest struct {
	Ratings []SubmitRatingRequest `json:"ratings" validate:"required,min=1,max=10,dive"`
}

// RatingResult is the per-entry outcome of a batch submission.
type RatingResult struct {
	RatedID   uint   `json:"rated_id"`
	RequestID uint   `json:"request_id"`
	Ok        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}
