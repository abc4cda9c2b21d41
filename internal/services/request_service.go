package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/bobmate/backend/internal/apperrors"
	"github.com/bobmate/backend/internal/models"
	"github.com/bobmate/backend/internal/repositories"
	"github.com/go-redis/redis/v8"
)

const (
	minLeadTime    = time.Hour
	maxLeadTime    = 24 * time.Hour
	activeCacheTTL = 2 * time.Second // the client re-polls the feed on a ~2s interval
)

// RequestService is the meal-request lifecycle engine: creation, the
// capacity/approval state machine, cancellation and completion, plus the
// chat-membership and notification side effects of each transition.
type RequestService struct {
	requests    repositories.MealRequestRepository
	users       repositories.UserRepository
	restaurants repositories.RestaurantRepository
	chat        repositories.ChatRepository
	notifier    Notifier
	cache       redis.Cmdable // nil disables feed caching
	now         func() time.Time
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requestRepo repositories.MealRequestRepository,
	userRepo repositories.UserRepository,
	restaurantRepo repositories.RestaurantRepository,
	chatRepo repositories.ChatRepository,
	notifier Notifier,
	cache redis.Cmdable,
) *RequestService {
	return &RequestService{
		requests:    requestRepo,
		users:       userRepo,
		restaurants: restaurantRepo,
		chat:        chatRepo,
		notifier:    notifier,
		cache:       cache,
		now:         time.Now,
	}
}

// CreateRequest validates and persists a new meal request. The requester
// implicitly occupies one seat, so group_size counts them.
func (s *RequestService) CreateRequest(ctx context.Context, requesterID uint, req models.CreateMealRequestRequest) (*models.MealRequest, error) {
	if req.GroupSize < 2 || req.GroupSize > 4 {
		return nil, apperrors.Validation("group size must be between 2 and 4, got %d", req.GroupSize)
	}
	if req.JoinType != models.JoinTypeOpen && req.JoinType != models.JoinTypeApproval {
		return nil, apperrors.Validation("join type must be open or approval")
	}
	now := s.now()
	if !req.Asap {
		if req.TimeWindow.Before(now.Add(minLeadTime)) {
			return nil, apperrors.Validation("time window must be at least 1 hour ahead")
		}
		if req.TimeWindow.After(now.Add(maxLeadTime)) {
			return nil, apperrors.Validation("time window must be at most 24 hours ahead")
		}
	}
	if _, err := s.restaurants.GetRestaurantByID(req.RestaurantID); err != nil {
		return nil, err
	}

	request := &models.MealRequest{
		RequesterID:  requesterID,
		RestaurantID: req.RestaurantID,
		Cuisine:      req.Cuisine,
		BudgetRange:  req.BudgetRange,
		TimeWindow:   req.TimeWindow,
		Asap:         req.Asap,
		GroupSize:    req.GroupSize,
		JoinType:     req.JoinType,
		Description:  req.Description,
	}
	if err := s.requests.CreateRequest(request); err != nil {
		return nil, err
	}
	return request, nil
}

// ListActiveRequests is a pure query over the current request set,
// soonest time window first. Results are cached briefly because clients
// poll the feed aggressively.
func (s *RequestService) ListActiveRequests(ctx context.Context, filters models.ListRequestFilters) ([]models.MealRequestWithDerived, error) {
	cacheKey := fmt.Sprintf("active_requests:%s:%s:%s:%s:%s",
		filters.District, filters.City, filters.Cuisine, filters.Budget, filters.JoinType)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var result []models.MealRequestWithDerived
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				return result, nil
			}
		}
	}

	result, err := s.requests.ListActiveRequests(s.now(), filters)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, cacheKey, encoded, activeCacheTTL).Err(); err != nil {
				log.Printf("failed to cache active requests: %v", err)
			}
		}
	}
	return result, nil
}

// GetRequest returns one request with its derived counts. Expired and
// completed requests stay retrievable here even though the feed excludes
// them.
func (s *RequestService) GetRequest(ctx context.Context, requestID uint) (*models.MealRequestWithDerived, error) {
	request, err := s.requests.GetRequestByID(requestID)
	if err != nil {
		return nil, err
	}
	joined, err := s.requests.JoinedCount(requestID)
	if err != nil {
		return nil, err
	}
	return &models.MealRequestWithDerived{
		MealRequest:      *request,
		ParticipantCount: joined,
		SpotsLeft:        request.GroupSize - joined - 1,
	}, nil
}

// ListParticipants returns all participant rows for a request,
// oldest first, so the requester can approve in arrival order.
func (s *RequestService) ListParticipants(ctx context.Context, requestID uint) ([]models.Participant, error) {
	if _, err := s.requests.GetRequestByID(requestID); err != nil {
		return nil, err
	}
	return s.requests.ListParticipants(requestID)
}

// JoinRequest is a user's attempt to take a seat. Open requests join
// instantly (or fail with CapacityExceeded); approval requests queue a
// pending row whose capacity is checked at approval time instead.
func (s *RequestService) JoinRequest(ctx context.Context, requestID, userID uint, clientKey string) (*models.Participant, error) {
	request, err := s.requests.GetRequestByID(requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID == userID {
		return nil, apperrors.InvalidState("the requester already holds a seat on their own request")
	}
	if request.Completed() {
		return nil, apperrors.InvalidState("meal request %d is already completed", requestID)
	}
	if request.Expired(s.now()) {
		return nil, apperrors.InvalidState("meal request %d is past its time window", requestID)
	}

	if request.JoinType == models.JoinTypeApproval {
		participant, err := s.requests.InsertPending(requestID, userID, clientKey, s.now())
		if err != nil {
			return nil, err
		}
		s.notify(models.NotificationJoinRequested, userID, request.RequesterID, requestID,
			"%s asked to join your meal")
		return participant, nil
	}

	participant, err := s.requests.InsertJoined(requestID, userID, clientKey, s.now())
	if err != nil {
		return nil, err
	}
	s.ensureMembership(ctx, requestID, request.RequesterID, userID)
	s.notify(models.NotificationJoinApproved, userID, request.RequesterID, requestID,
		"%s joined your meal")
	return participant, nil
}

// ApproveParticipant moves a pending participant to joined, requester
// only. Capacity is re-checked at approval time: the first approval to
// commit wins any race for the last seat, the loser stays pending.
func (s *RequestService) ApproveParticipant(ctx context.Context, callerID, requestID, participantID uint) (*models.Participant, error) {
	request, err := s.requests.GetRequestByID(requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != callerID {
		return nil, apperrors.Unauthorized("only the requester can approve join requests")
	}
	if request.Completed() {
		return nil, apperrors.InvalidState("meal request %d is already completed", requestID)
	}
	if request.Expired(s.now()) {
		return nil, apperrors.InvalidState("meal request %d is past its time window", requestID)
	}

	participant, transitioned, err := s.requests.ApproveParticipant(requestID, participantID, s.now())
	if err != nil {
		return nil, err
	}
	// an already-joined replay changes nothing, so no second push
	if transitioned {
		s.ensureMembership(ctx, requestID, request.RequesterID, participant.UserID)
		s.notify(models.NotificationJoinApproved, callerID, participant.UserID, requestID,
			"Your join request was approved by %s")
	}
	return participant, nil
}

// RejectParticipant marks a pending participant rejected, requester only.
func (s *RequestService) RejectParticipant(ctx context.Context, callerID, requestID, participantID uint) (*models.Participant, error) {
	request, err := s.requests.GetRequestByID(requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != callerID {
		return nil, apperrors.Unauthorized("only the requester can reject join requests")
	}

	participant, err := s.requests.RejectParticipant(requestID, participantID)
	if err != nil {
		return nil, err
	}
	s.notify(models.NotificationJoinRejected, callerID, participant.UserID, requestID,
		"Your join request was declined by %s")
	return participant, nil
}

// CancelRequest hard-deletes a request and every participant row,
// requester only. The chat channel is emptied but kept for history, and
// every pending or joined user is told the meal is off.
func (s *RequestService) CancelRequest(ctx context.Context, callerID, requestID uint) error {
	request, err := s.requests.GetRequestByID(requestID)
	if err != nil {
		return err
	}
	if request.RequesterID != callerID {
		return apperrors.Unauthorized("only the requester can cancel a meal request")
	}

	removed, err := s.requests.DeleteRequestCascade(requestID)
	if err != nil {
		return err
	}
	if err := s.chat.CloseChannel(ctx, requestID); err != nil {
		log.Printf("failed to close chat channel for request %d: %v", requestID, err)
	}
	for _, participant := range removed {
		if participant.Status.Active() {
			s.notify(models.NotificationRequestCancelled, callerID, participant.UserID, requestID,
				"%s cancelled the meal")
		}
	}
	return nil
}

// CancelJoin is a participant's own withdrawal, modeled as deleting the
// row. The requester cannot withdraw; they cancel the whole request.
func (s *RequestService) CancelJoin(ctx context.Context, callerID, requestID uint) error {
	request, err := s.requests.GetRequestByID(requestID)
	if err != nil {
		return err
	}
	if request.RequesterID == callerID {
		return apperrors.InvalidState("the requester cannot withdraw; cancel the request instead")
	}

	participant, err := s.requests.DeleteParticipantByUser(requestID, callerID)
	if err != nil {
		return err
	}
	if participant.Status == models.ParticipantJoined {
		if err := s.chat.RemoveMember(ctx, requestID, callerID); err != nil {
			log.Printf("failed to remove user %d from chat of request %d: %v", callerID, requestID, err)
		}
	}
	return nil
}

// MarkMealCompleted sets meal_completed_at once, requester only, after
// the scheduled time (ASAP requests can complete any time). Joined
// participants are told the rating window is open.
func (s *RequestService) MarkMealCompleted(ctx context.Context, callerID, requestID uint) (*models.MealRequest, error) {
	request, err := s.requests.GetRequestByID(requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != callerID {
		return nil, apperrors.Unauthorized("only the requester can mark the meal as completed")
	}

	completed, err := s.requests.SetMealCompleted(requestID, s.now())
	if err != nil {
		return nil, err
	}
	joined, err := s.requests.ListJoinedParticipants(requestID)
	if err != nil {
		log.Printf("failed to list joined participants of request %d: %v", requestID, err)
		return completed, nil
	}
	for _, participant := range joined {
		s.notify(models.NotificationMealCompleted, callerID, participant.UserID, requestID,
			"%s marked the meal as completed")
	}
	return completed, nil
}

// ensureMembership brings the chat channel in line with a new joined
// participant. Channel creation and membership are idempotent, so a
// failure here is retryable and never invalidates the join itself.
func (s *RequestService) ensureMembership(ctx context.Context, requestID, requesterID, userID uint) {
	if _, err := s.chat.EnsureChannel(ctx, requestID, requesterID, userID); err != nil {
		log.Printf("failed to ensure chat channel for request %d: %v", requestID, err)
	}
}

// notify resolves the actor's display name into the message and hands the
// event to the dispatcher. Best-effort by contract.
func (s *RequestService) notify(eventType string, actorID, recipientID, requestID uint, format string) {
	if s.notifier == nil {
		return
	}
	name := "Someone"
	if actor, err := s.users.GetUserByID(actorID); err == nil {
		name = actor.Name
	}
	s.notifier.Dispatch(models.Notification{
		Type:        eventType,
		ActorID:     actorID,
		RecipientID: recipientID,
		RequestID:   requestID,
		Message:     fmt.Sprintf(format, name),
	})
}
