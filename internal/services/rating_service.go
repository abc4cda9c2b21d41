package services

import (
	"context"

	"github.com/bobmate/backend/internal/apperrors"
	"github.com/bobmate/backend/internal/models"
	"github.com/bobmate/backend/internal/repositories"
)

// RatingService collects post-meal show-up ratings. Confirmed show-ups
// feed the rated user's meal_count, once per (request, rated) pair.
type RatingService struct {
	ratings  repositories.RatingRepository
	requests repositories.MealRequestRepository
	users    repositories.UserRepository
}

// NewRatingService creates a new RatingService
func NewRatingService(ratingRepo repositories.RatingRepository, requestRepo repositories.MealRequestRepository, userRepo repositories.UserRepository) *RatingService {
	return &RatingService{
		ratings:  ratingRepo,
		requests: requestRepo,
		users:    userRepo,
	}
}

// GetPendingRatings lists the (request, participant) pairs the rater
// still owes a verdict on: completed requests they created, joined
// participants, minus already-rated pairs. No cursor state; each call
// recomputes from scratch.
func (s *RatingService) GetPendingRatings(ctx context.Context, raterID uint) ([]models.PendingRating, error) {
	completed, err := s.requests.ListCompletedByRequester(raterID)
	if err != nil {
		return nil, err
	}

	pending := []models.PendingRating{}
	for _, request := range completed {
		joined, err := s.requests.ListJoinedParticipants(request.ID)
		if err != nil {
			return nil, err
		}
		for _, participant := range joined {
			_, err := s.ratings.GetRating(raterID, participant.UserID, request.ID)
			if err == nil {
				continue // already rated
			}
			if !apperrors.IsKind(err, apperrors.KindNotFound) {
				return nil, err
			}
			pending = append(pending, models.PendingRating{
				RequestID:      request.ID,
				RatedID:        participant.UserID,
				RatedName:      s.nameOf(participant),
				RestaurantName: request.Restaurant.Name,
				TimeWindow:     request.TimeWindow,
			})
		}
	}
	return pending, nil
}

// SubmitRating records one show-up verdict. Only the requester of a
// completed request may rate, only participants who reached joined are
// ratable, and the (rater, rated, request) triple is submit-once.
func (s *RatingService) SubmitRating(ctx context.Context, raterID uint, req models.SubmitRatingRequest) error {
	request, err := s.requests.GetRequestByID(req.RequestID)
	if err != nil {
		return err
	}
	if request.RequesterID != raterID {
		return apperrors.Unauthorized("only the requester can rate participants of this meal")
	}
	if !request.Completed() {
		return apperrors.NotEligible("meal request %d is not completed yet", req.RequestID)
	}
	if req.RatedID == raterID {
		return apperrors.NotEligible("you cannot rate yourself")
	}

	eligible, err := s.isJoinedParticipant(req.RequestID, req.RatedID)
	if err != nil {
		return err
	}
	if !eligible {
		return apperrors.NotEligible("user %d never joined meal request %d", req.RatedID, req.RequestID)
	}

	return s.ratings.SubmitRating(&models.Rating{
		RaterID:   raterID,
		RatedID:   req.RatedID,
		RequestID: req.RequestID,
		ShowedUp:  req.ShowedUp,
	})
}

// SubmitRatings applies SubmitRating per entry; one invalid pair does not
// block the rest, and the caller gets a result per entry.
func (s *RatingService) SubmitRatings(ctx context.Context, raterID uint, batch []models.SubmitRatingRequest) []models.RatingResult {
	results := make([]models.RatingResult, len(batch))
	for i, entry := range batch {
		result := models.RatingResult{
			RatedID:   entry.RatedID,
			RequestID: entry.RequestID,
			Ok:        true,
		}
		if err := s.SubmitRating(ctx, raterID, entry); err != nil {
			result.Ok = false
			result.Error = err.Error()
		}
		results[i] = result
	}
	return results
}

func (s *RatingService) isJoinedParticipant(requestID, userID uint) (bool, error) {
	joined, err := s.requests.ListJoinedParticipants(requestID)
	if err != nil {
		return false, err
	}
	for _, participant := range joined {
		if participant.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// nameOf prefers the preloaded user row and falls back to a lookup.
func (s *RatingService) nameOf(participant models.Participant) string {
	if participant.User.Name != "" {
		return participant.User.Name
	}
	if user, err := s.users.GetUserByID(participant.UserID); err == nil {
		return user.Name
	}
	return ""
}
