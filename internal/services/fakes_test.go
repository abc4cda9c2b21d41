package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bobmate/backend/internal/apperrors"
	"github.com/bobmate/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeRequestRepo is an in-memory MealRequestRepository. It keeps the
// same atomic contract as the SQL implementation: every participant-set
// mutation runs under one lock, so concurrent callers observe the same
// winner-takes-the-seat behavior the tests exercise.
type fakeRequestRepo struct {
	mu            sync.Mutex
	nextRequestID uint
	nextRowID     uint
	requests      map[uint]*models.MealRequest
	participants  map[uint]*models.Participant
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{
		requests:     make(map[uint]*models.MealRequest),
		participants: make(map[uint]*models.Participant),
	}
}

func (f *fakeRequestRepo) CreateRequest(request *models.MealRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRequestID++
	request.ID = f.nextRequestID
	request.CreatedAt = time.Now()
	stored := *request
	f.requests[request.ID] = &stored
	return nil
}

func (f *fakeRequestRepo) GetRequestByID(id uint) (*models.MealRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, apperrors.NotFound("meal request %d not found", id)
	}
	copied := *request
	return &copied, nil
}

func (f *fakeRequestRepo) ListActiveRequests(now time.Time, filters models.ListRequestFilters) ([]models.MealRequestWithDerived, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.MealRequestWithDerived
	for _, request := range f.requests {
		if request.Completed() || request.Expired(now) {
			continue
		}
		if filters.Cuisine != "" && request.Cuisine != filters.Cuisine {
			continue
		}
		if filters.Budget != "" && request.BudgetRange != filters.Budget {
			continue
		}
		if filters.JoinType != "" && request.JoinType != filters.JoinType {
			continue
		}
		joined := f.countJoinedLocked(request.ID)
		result = append(result, models.MealRequestWithDerived{
			MealRequest:      *request,
			ParticipantCount: joined,
			SpotsLeft:        request.GroupSize - joined - 1,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Asap != result[j].Asap {
			return result[i].Asap
		}
		if !result[i].TimeWindow.Equal(result[j].TimeWindow) {
			return result[i].TimeWindow.Before(result[j].TimeWindow)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if result == nil {
		result = []models.MealRequestWithDerived{}
	}
	return result, nil
}

func (f *fakeRequestRepo) ListCompletedByRequester(requesterID uint) ([]models.MealRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.MealRequest
	for _, request := range f.requests {
		if request.RequesterID == requesterID && request.Completed() {
			result = append(result, *request)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TimeWindow.After(result[j].TimeWindow) })
	return result, nil
}

func (f *fakeRequestRepo) JoinedCount(requestID uint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countJoinedLocked(requestID), nil
}

func (f *fakeRequestRepo) SetMealCompleted(requestID uint, now time.Time) (*models.MealRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[requestID]
	if !ok {
		return nil, apperrors.NotFound("meal request %d not found", requestID)
	}
	if request.Completed() {
		return nil, apperrors.InvalidState("meal request %d is already completed", requestID)
	}
	if !request.Asap && request.TimeWindow.After(now) {
		return nil, apperrors.InvalidState("meal request %d cannot be completed before its scheduled time", requestID)
	}
	completedAt := now
	request.MealCompletedAt = &completedAt
	copied := *request
	return &copied, nil
}

func (f *fakeRequestRepo) DeleteRequestCascade(requestID uint) ([]models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[requestID]; !ok {
		return nil, apperrors.NotFound("meal request %d not found", requestID)
	}
	var removed []models.Participant
	for id, participant := range f.participants {
		if participant.RequestID == requestID {
			removed = append(removed, *participant)
			delete(f.participants, id)
		}
	}
	delete(f.requests, requestID)
	return removed, nil
}

func (f *fakeRequestRepo) InsertJoined(requestID, userID uint, clientKey string, now time.Time) (*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[requestID]
	if !ok {
		return nil, apperrors.NotFound("meal request %d not found", requestID)
	}
	if err := ensureJoinableLocked(request, now); err != nil {
		return nil, err
	}
	if replay := f.findReplayLocked(requestID, userID, clientKey); replay != nil {
		return replay, nil
	}
	if err := f.ensureNoExistingRowLocked(requestID, userID); err != nil {
		return nil, err
	}
	if f.countJoinedLocked(requestID)+1 >= request.GroupSize {
		return nil, apperrors.CapacityExceeded(requestID)
	}
	joinedAt := now
	return f.insertLocked(&models.Participant{
		RequestID: requestID,
		UserID:    userID,
		Status:    models.ParticipantJoined,
		ClientKey: clientKey,
		JoinedAt:  &joinedAt,
	}), nil
}

func (f *fakeRequestRepo) InsertPending(requestID, userID uint, clientKey string, now time.Time) (*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[requestID]
	if !ok {
		return nil, apperrors.NotFound("meal request %d not found", requestID)
	}
	if err := ensureJoinableLocked(request, now); err != nil {
		return nil, err
	}
	if replay := f.findReplayLocked(requestID, userID, clientKey); replay != nil {
		return replay, nil
	}
	if err := f.ensureNoExistingRowLocked(requestID, userID); err != nil {
		return nil, err
	}
	return f.insertLocked(&models.Participant{
		RequestID: requestID,
		UserID:    userID,
		Status:    models.ParticipantPending,
		ClientKey: clientKey,
	}), nil
}

func (f *fakeRequestRepo) ApproveParticipant(requestID, participantID uint, now time.Time) (*models.Participant, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[requestID]
	if !ok {
		return nil, false, apperrors.NotFound("meal request %d not found", requestID)
	}
	if err := ensureJoinableLocked(request, now); err != nil {
		return nil, false, err
	}
	participant, ok := f.participants[participantID]
	if !ok || participant.RequestID != requestID {
		return nil, false, apperrors.NotFound("participant %d not found on request %d", participantID, requestID)
	}
	switch participant.Status {
	case models.ParticipantJoined:
		copied := *participant
		return &copied, false, nil
	case models.ParticipantRejected:
		return nil, false, apperrors.InvalidState("participant %d was already rejected", participantID)
	}
	if f.countJoinedLocked(requestID)+1 >= request.GroupSize {
		return nil, false, apperrors.CapacityExceeded(requestID)
	}
	joinedAt := now
	participant.Status = models.ParticipantJoined
	participant.JoinedAt = &joinedAt
	copied := *participant
	return &copied, true, nil
}

func (f *fakeRequestRepo) RejectParticipant(requestID, participantID uint) (*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	participant, ok := f.participants[participantID]
	if !ok || participant.RequestID != requestID {
		return nil, apperrors.NotFound("participant %d not found on request %d", participantID, requestID)
	}
	switch participant.Status {
	case models.ParticipantRejected:
		copied := *participant
		return &copied, nil
	case models.ParticipantJoined:
		return nil, apperrors.InvalidState("participant %d already joined and cannot be rejected", participantID)
	}
	participant.Status = models.ParticipantRejected
	copied := *participant
	return &copied, nil
}

func (f *fakeRequestRepo) DeleteParticipantByUser(requestID, userID uint) (*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, participant := range f.participants {
		if participant.RequestID == requestID && participant.UserID == userID && participant.Status.Active() {
			copied := *participant
			delete(f.participants, id)
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("user %d has no active participation on request %d", userID, requestID)
}

func (f *fakeRequestRepo) GetParticipant(participantID uint) (*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	participant, ok := f.participants[participantID]
	if !ok {
		return nil, apperrors.NotFound("participant %d not found", participantID)
	}
	copied := *participant
	return &copied, nil
}

func (f *fakeRequestRepo) ListParticipants(requestID uint) ([]models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listLocked(requestID, ""), nil
}

func (f *fakeRequestRepo) ListJoinedParticipants(requestID uint) ([]models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listLocked(requestID, models.ParticipantJoined), nil
}

func (f *fakeRequestRepo) insertLocked(participant *models.Participant) *models.Participant {
	f.nextRowID++
	participant.ID = f.nextRowID
	participant.CreatedAt = time.Now()
	stored := *participant
	f.participants[participant.ID] = &stored
	copied := stored
	return &copied
}

func (f *fakeRequestRepo) countJoinedLocked(requestID uint) int {
	count := 0
	for _, participant := range f.participants {
		if participant.RequestID == requestID && participant.Status == models.ParticipantJoined {
			count++
		}
	}
	return count
}

func (f *fakeRequestRepo) findReplayLocked(requestID, userID uint, clientKey string) *models.Participant {
	if clientKey == "" {
		return nil
	}
	for _, participant := range f.participants {
		if participant.RequestID == requestID && participant.UserID == userID && participant.ClientKey == clientKey {
			copied := *participant
			return &copied
		}
	}
	return nil
}

func (f *fakeRequestRepo) ensureNoExistingRowLocked(requestID, userID uint) error {
	for _, participant := range f.participants {
		if participant.RequestID != requestID || participant.UserID != userID {
			continue
		}
		if participant.Status == models.ParticipantRejected {
			return apperrors.InvalidState("user %d was rejected from request %d and cannot re-join", userID, requestID)
		}
		return apperrors.InvalidState("user %d already has a %s participation on request %d", userID, participant.Status, requestID)
	}
	return nil
}

func ensureJoinableLocked(request *models.MealRequest, now time.Time) error {
	if request.Completed() {
		return apperrors.InvalidState("meal request %d is already completed", request.ID)
	}
	if request.Expired(now) {
		return apperrors.InvalidState("meal request %d is past its time window", request.ID)
	}
	return nil
}

func (f *fakeRequestRepo) listLocked(requestID uint, status models.ParticipantStatus) []models.Participant {
	var result []models.Participant
	for _, participant := range f.participants {
		if participant.RequestID != requestID {
			continue
		}
		if status != "" && participant.Status != status {
			continue
		}
		result = append(result, *participant)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// fakeUserRepo holds users by ID, enough for name lookups and meal counts.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uint]*models.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) CreateUser(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetUserByID(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFound("user %d not found", id)
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (f *fakeUserRepo) GetUserByFirebaseUID(firebaseUID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.FirebaseUID == firebaseUID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (f *fakeUserRepo) UpdateUser(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdatePushToken(id uint, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		user.PushToken = token
	}
	return nil
}

func (f *fakeUserRepo) DeleteUser(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) SearchUsers(query string) ([]models.User, error) {
	return nil, nil
}

// fakeRestaurantRepo answers GetRestaurantByID for the seeded IDs.
type fakeRestaurantRepo struct {
	restaurants map[uint]*models.Restaurant
}

func newFakeRestaurantRepo(restaurants ...*models.Restaurant) *fakeRestaurantRepo {
	repo := &fakeRestaurantRepo{restaurants: make(map[uint]*models.Restaurant)}
	for _, restaurant := range restaurants {
		repo.restaurants[restaurant.ID] = restaurant
	}
	return repo
}

func (f *fakeRestaurantRepo) CreateRestaurant(restaurant *models.Restaurant) error {
	f.restaurants[restaurant.ID] = restaurant
	return nil
}

func (f *fakeRestaurantRepo) GetRestaurantByID(id uint) (*models.Restaurant, error) {
	restaurant, ok := f.restaurants[id]
	if !ok {
		return nil, apperrors.NotFound("restaurant %d not found", id)
	}
	return restaurant, nil
}

func (f *fakeRestaurantRepo) ListRestaurants(district, city, cuisine string) ([]models.Restaurant, error) {
	var result []models.Restaurant
	for _, restaurant := range f.restaurants {
		result = append(result, *restaurant)
	}
	return result, nil
}

// fakeChatRepo tracks channel membership per request ID.
type fakeChatRepo struct {
	mu       sync.Mutex
	channels map[uint]*models.ChatChannel
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{channels: make(map[uint]*models.ChatChannel)}
}

func (f *fakeChatRepo) EnsureChannel(ctx context.Context, requestID uint, memberIDs ...uint) (*models.ChatChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel, ok := f.channels[requestID]
	if !ok {
		channel = &models.ChatChannel{RequestID: requestID, CreatedAt: time.Now()}
		f.channels[requestID] = channel
	}
	for _, memberID := range memberIDs {
		if !containsMember(channel.MemberIDs, memberID) {
			channel.MemberIDs = append(channel.MemberIDs, memberID)
		}
	}
	copied := *channel
	return &copied, nil
}

func (f *fakeChatRepo) RemoveMember(ctx context.Context, requestID, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel, ok := f.channels[requestID]
	if !ok {
		return apperrors.NotFound("chat channel for request %d not found", requestID)
	}
	remaining := channel.MemberIDs[:0]
	for _, memberID := range channel.MemberIDs {
		if memberID != userID {
			remaining = append(remaining, memberID)
		}
	}
	channel.MemberIDs = remaining
	return nil
}

func (f *fakeChatRepo) CloseChannel(ctx context.Context, requestID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel, ok := f.channels[requestID]
	if !ok {
		return nil
	}
	channel.MemberIDs = nil
	channel.Closed = true
	return nil
}

func (f *fakeChatRepo) GetChannelByRequestID(ctx context.Context, requestID uint) (*models.ChatChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel, ok := f.channels[requestID]
	if !ok {
		return nil, apperrors.NotFound("chat channel for request %d not found", requestID)
	}
	copied := *channel
	return &copied, nil
}

func (f *fakeChatRepo) InsertMessage(ctx context.Context, message *models.ChatMessage) error {
	return nil
}

func (f *fakeChatRepo) ListMessages(ctx context.Context, channelID primitive.ObjectID, skip, limit int64) ([]models.ChatMessage, error) {
	return nil, nil
}

func (f *fakeChatRepo) members(requestID uint) []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel, ok := f.channels[requestID]
	if !ok {
		return nil
	}
	return append([]uint(nil), channel.MemberIDs...)
}

func containsMember(members []uint, userID uint) bool {
	for _, memberID := range members {
		if memberID == userID {
			return true
		}
	}
	return false
}

// fakeNotifier records dispatched notifications in order.
type fakeNotifier struct {
	mu     sync.Mutex
	events []models.Notification
}

func (f *fakeNotifier) Dispatch(notification models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notification)
}

func (f *fakeNotifier) byType(eventType string) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.Notification
	for _, event := range f.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// fakeRatingRepo mirrors the submit-once triple and the meal_count bump.
type fakeRatingRepo struct {
	mu      sync.Mutex
	users   *fakeUserRepo
	ratings map[[3]uint]*models.Rating
}

func newFakeRatingRepo(users *fakeUserRepo) *fakeRatingRepo {
	return &fakeRatingRepo{users: users, ratings: make(map[[3]uint]*models.Rating)}
}

func (f *fakeRatingRepo) SubmitRating(rating *models.Rating) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [3]uint{rating.RaterID, rating.RatedID, rating.RequestID}
	if _, exists := f.ratings[key]; exists {
		return apperrors.DuplicateRating(rating.RatedID, rating.RequestID)
	}
	f.ratings[key] = rating
	if rating.ShowedUp {
		f.users.mu.Lock()
		if user, ok := f.users.users[rating.RatedID]; ok {
			user.MealCount++
		}
		f.users.mu.Unlock()
	}
	return nil
}

func (f *fakeRatingRepo) GetRating(raterID, ratedID, requestID uint) (*models.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rating, ok := f.ratings[[3]uint{raterID, ratedID, requestID}]
	if !ok {
		return nil, apperrors.NotFound("rating not found")
	}
	return rating, nil
}
