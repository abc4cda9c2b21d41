package repositories

import (
	"errors"
	"time"

	"github.com/bobmate/backend/internal/apperrors"
	"github.com/bobmate/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MealRequestRepository defines the data operations for meal requests and
// their participant rows. The mutating operations that touch the joined
// count are single atomic units: they lock the meal-request row first, so
// two racers for the last seat can never both commit.
type MealRequestRepository interface {
	CreateRequest(request *models.MealRequest) error
	GetRequestByID(id uint) (*models.MealRequest, error)
	ListActiveRequests(now time.Time, filters models.ListRequestFilters) ([]models.MealRequestWithDerived, error)
	ListCompletedByRequester(requesterID uint) ([]models.MealRequest, error)
	JoinedCount(requestID uint) (int, error)
	SetMealCompleted(requestID uint, now time.Time) (*models.MealRequest, error)
	DeleteRequestCascade(requestID uint) ([]models.Participant, error)

	InsertJoined(requestID, userID uint, clientKey string, now time.Time) (*models.Participant, error)
	InsertPending(requestID, userID uint, clientKey string, now time.Time) (*models.Participant, error)
	ApproveParticipant(requestID, participantID uint, now time.Time) (*models.Participant, bool, error)
	RejectParticipant(requestID, participantID uint) (*models.Participant, error)
	DeleteParticipantByUser(requestID, userID uint) (*models.Participant, error)
	GetParticipant(participantID uint) (*models.Participant, error)
	ListParticipants(requestID uint) ([]models.Participant, error)
	ListJoinedParticipants(requestID uint) ([]models.Participant, error)
}

// PostgresMealRequestRepository implements MealRequestRepository for PostgreSQL
type PostgresMealRequestRepository struct {
	db *gorm.DB
}

// NewPostgresMealRequestRepository creates a new PostgresMealRequestRepository
func NewPostgresMealRequestRepository(db *gorm.DB) *PostgresMealRequestRepository {
	return &PostgresMealRequestRepository{db: db}
}

// CreateRequest persists a new meal request
func (r *PostgresMealRequestRepository) CreateRequest(request *models.MealRequest) error {
	return r.db.Create(request).Error
}

// GetRequestByID retrieves a meal request by ID, including expired and
// completed ones; only cancellation removes a request.
func (r *PostgresMealRequestRepository) GetRequestByID(id uint) (*models.MealRequest, error) {
	var request models.MealRequest
	if err := r.db.Preload("Requester").Preload("Restaurant").First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("meal request %d not found", id)
		}
		return nil, err
	}
	return &request, nil
}

// ListActiveRequests returns non-completed requests whose time window is
// still ahead (or that are flagged ASAP), soonest first, with the joined
// count and spots-left derived per row.
func (r *PostgresMealRequestRepository) ListActiveRequests(now time.Time, filters models.ListRequestFilters) ([]models.MealRequestWithDerived, error) {
	query := r.db.Model(&models.MealRequest{}).
		Preload("Requester").
		Preload("Restaurant").
		Where("meal_completed_at IS NULL").
		Where("asap = TRUE OR time_window > ?", now)

	if filters.Cuisine != "" {
		query = query.Where("cuisine = ?", filters.Cuisine)
	}
	if filters.Budget != "" {
		query = query.Where("budget_range = ?", filters.Budget)
	}
	if filters.JoinType != "" {
		query = query.Where("join_type = ?", filters.JoinType)
	}
	if filters.District != "" || filters.City != "" {
		query = query.Joins("JOIN restaurants ON restaurants.id = meal_requests.restaurant_id")
		if filters.District != "" {
			query = query.Where("restaurants.district = ?", filters.District)
		}
		if filters.City != "" {
			query = query.Where("restaurants.city = ?", filters.City)
		}
	}

	var requests []models.MealRequest
	if err := query.Order("asap DESC, time_window ASC, meal_requests.created_at ASC").Find(&requests).Error; err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return []models.MealRequestWithDerived{}, nil
	}

	ids := make([]uint, len(requests))
	for i, request := range requests {
		ids[i] = request.ID
	}

	type requestCount struct {
		RequestID uint
		Count     int
	}
	var counts []requestCount
	err := r.db.Model(&models.Participant{}).
		Select("request_id, COUNT(*) AS count").
		Where("request_id IN ? AND status = ?", ids, models.ParticipantJoined).
		Group("request_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	countByRequest := make(map[uint]int, len(counts))
	for _, c := range counts {
		countByRequest[c.RequestID] = c.Count
	}

	result := make([]models.MealRequestWithDerived, len(requests))
	for i, request := range requests {
		joined := countByRequest[request.ID]
		result[i] = models.MealRequestWithDerived{
			MealRequest:      request,
			ParticipantCount: joined,
			SpotsLeft:        request.GroupSize - joined - 1,
		}
	}
	return result, nil
}

// ListCompletedByRequester returns the requester's completed requests,
// most recent time window first, for the rating collector.
func (r *PostgresMealRequestRepository) ListCompletedByRequester(requesterID uint) ([]models.MealRequest, error) {
	var requests []models.MealRequest
	err := r.db.Preload("Restaurant").
		Where("requester_id = ? AND meal_completed_at IS NOT NULL", requesterID).
		Order("time_window DESC").Find(&requests).Error
	return requests, err
}

// JoinedCount returns the number of participants with status joined.
// The requester's implicit seat is not included.
func (r *PostgresMealRequestRepository) JoinedCount(requestID uint) (int, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).
		Where("request_id = ? AND status = ?", requestID, models.ParticipantJoined).
		Count(&count).Error
	return int(count), err
}

// SetMealCompleted sets meal_completed_at once. The time window must have
// passed unless the request is ASAP.
func (r *PostgresMealRequestRepository) SetMealCompleted(requestID uint, now time.Time) (*models.MealRequest, error) {
	var request models.MealRequest
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := lockRequest(tx, requestID, &request); err != nil {
			return err
		}
		if request.Completed() {
			return apperrors.InvalidState("meal request %d is already completed", requestID)
		}
		if !request.Asap && request.TimeWindow.After(now) {
			return apperrors.InvalidState("meal request %d cannot be completed before its scheduled time", requestID)
		}
		request.MealCompletedAt = &now
		return tx.Model(&models.MealRequest{}).Where("id = ?", requestID).
			Update("meal_completed_at", now).Error
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// DeleteRequestCascade hard-deletes the request and all its participant
// rows, returning the removed rows so the caller can mirror the removal
// into chat membership and notifications.
func (r *PostgresMealRequestRepository) DeleteRequestCascade(requestID uint) ([]models.Participant, error) {
	var removed []models.Participant
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var request models.MealRequest
		if err := lockRequest(tx, requestID, &request); err != nil {
			return err
		}
		if err := tx.Where("request_id = ?", requestID).Find(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("request_id = ?", requestID).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.MealRequest{}, requestID).Error
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// InsertJoined is the open-join path: capacity check and insert are one
// transaction under the request-row lock, so a lost race surfaces as
// CapacityExceeded instead of over-booking.
func (r *PostgresMealRequestRepository) InsertJoined(requestID, userID uint, clientKey string, now time.Time) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var request models.MealRequest
		if err := lockRequest(tx, requestID, &request); err != nil {
			return err
		}
		// re-checked on the locked row: a completion committed between the
		// caller's read and this lock must still refuse the join
		if err := ensureJoinable(&request, now); err != nil {
			return err
		}
		if replay, err := findReplay(tx, requestID, userID, clientKey); err != nil {
			return err
		} else if replay != nil {
			participant = *replay
			return nil
		}
		if err := ensureNoExistingRow(tx, requestID, userID); err != nil {
			return err
		}
		joined, err := countJoined(tx, requestID)
		if err != nil {
			return err
		}
		if joined+1 >= request.GroupSize {
			return apperrors.CapacityExceeded(requestID)
		}
		participant = models.Participant{
			RequestID: requestID,
			UserID:    userID,
			Status:    models.ParticipantJoined,
			ClientKey: clientKey,
			JoinedAt:  &now,
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// InsertPending is the approval-join path: no capacity check yet, that
// happens when the requester approves.
func (r *PostgresMealRequestRepository) InsertPending(requestID, userID uint, clientKey string, now time.Time) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var request models.MealRequest
		if err := lockRequest(tx, requestID, &request); err != nil {
			return err
		}
		if err := ensureJoinable(&request, now); err != nil {
			return err
		}
		if replay, err := findReplay(tx, requestID, userID, clientKey); err != nil {
			return err
		} else if replay != nil {
			participant = *replay
			return nil
		}
		if err := ensureNoExistingRow(tx, requestID, userID); err != nil {
			return err
		}
		participant = models.Participant{
			RequestID: requestID,
			UserID:    userID,
			Status:    models.ParticipantPending,
			ClientKey: clientKey,
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// ApproveParticipant re-checks capacity at approval time under the
// request-row lock. A participant that loses the race for the last seat
// stays pending; the requester has to reject it explicitly. The bool
// reports whether a transition actually happened, so callers can skip
// side effects on an already-joined replay.
func (r *PostgresMealRequestRepository) ApproveParticipant(requestID, participantID uint, now time.Time) (*models.Participant, bool, error) {
	var participant models.Participant
	transitioned := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var request models.MealRequest
		if err := lockRequest(tx, requestID, &request); err != nil {
			return err
		}
		if err := ensureJoinable(&request, now); err != nil {
			return err
		}
		if err := findParticipant(tx, requestID, participantID, &participant); err != nil {
			return err
		}
		switch participant.Status {
		case models.ParticipantJoined:
			return nil // idempotent: already approved
		case models.ParticipantRejected:
			return apperrors.InvalidState("participant %d was already rejected", participantID)
		}
		joined, err := countJoined(tx, requestID)
		if err != nil {
			return err
		}
		if joined+1 >= request.GroupSize {
			return apperrors.CapacityExceeded(requestID)
		}
		participant.Status = models.ParticipantJoined
		participant.JoinedAt = &now
		transitioned = true
		return tx.Model(&models.Participant{}).Where("id = ?", participantID).
			Updates(map[string]interface{}{"status": models.ParticipantJoined, "joined_at": now}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &participant, transitioned, nil
}

// RejectParticipant sets status=rejected. Idempotent if already rejected;
// a joined participant cannot be rejected.
func (r *PostgresMealRequestRepository) RejectParticipant(requestID, participantID uint) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var request models.MealRequest
		if err := lockRequest(tx, requestID, &request); err != nil {
			return err
		}
		if err := findParticipant(tx, requestID, participantID, &participant); err != nil {
			return err
		}
		switch participant.Status {
		case models.ParticipantRejected:
			return nil // idempotent no-op
		case models.ParticipantJoined:
			return apperrors.InvalidState("participant %d already joined and cannot be rejected", participantID)
		}
		participant.Status = models.ParticipantRejected
		return tx.Model(&models.Participant{}).Where("id = ?", participantID).
			Update("status", models.ParticipantRejected).Error
	})
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// DeleteParticipantByUser removes the user's active row (their own
// withdrawal). Returns the deleted row so the caller can mirror a joined
// withdrawal into chat membership.
func (r *PostgresMealRequestRepository) DeleteParticipantByUser(requestID, userID uint) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var request models.MealRequest
		if err := lockRequest(tx, requestID, &request); err != nil {
			return err
		}
		err := tx.Where("request_id = ? AND user_id = ? AND status IN ?",
			requestID, userID, []models.ParticipantStatus{models.ParticipantPending, models.ParticipantJoined}).
			First(&participant).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user %d has no active participation on request %d", userID, requestID)
			}
			return err
		}
		return tx.Delete(&models.Participant{}, participant.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// GetParticipant retrieves a participant row by ID
func (r *PostgresMealRequestRepository) GetParticipant(participantID uint) (*models.Participant, error) {
	var participant models.Participant
	if err := r.db.Preload("User").First(&participant, participantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("participant %d not found", participantID)
		}
		return nil, err
	}
	return &participant, nil
}

// ListParticipants retrieves all participant rows for a request
func (r *PostgresMealRequestRepository) ListParticipants(requestID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Preload("User").Where("request_id = ?", requestID).
		Order("created_at ASC").Find(&participants).Error
	return participants, err
}

// ListJoinedParticipants retrieves only the joined rows for a request
func (r *PostgresMealRequestRepository) ListJoinedParticipants(requestID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Preload("User").
		Where("request_id = ? AND status = ?", requestID, models.ParticipantJoined).
		Order("created_at ASC").Find(&participants).Error
	return participants, err
}

// lockRequest takes the per-request row lock that serializes every
// participant-set mutation for that request.
func lockRequest(tx *gorm.DB, requestID uint, request *models.MealRequest) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(request, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("meal request %d not found", requestID)
	}
	return err
}

// ensureJoinable refuses seat mutations on a completed or expired
// request. Runs on the locked row, after lockRequest.
func ensureJoinable(request *models.MealRequest, now time.Time) error {
	if request.Completed() {
		return apperrors.InvalidState("meal request %d is already completed", request.ID)
	}
	if request.Expired(now) {
		return apperrors.InvalidState("meal request %d is past its time window", request.ID)
	}
	return nil
}

func findParticipant(tx *gorm.DB, requestID, participantID uint, participant *models.Participant) error {
	err := tx.Where("id = ? AND request_id = ?", participantID, requestID).First(participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("participant %d not found on request %d", participantID, requestID)
	}
	return err
}

func countJoined(tx *gorm.DB, requestID uint) (int, error) {
	var count int64
	err := tx.Model(&models.Participant{}).
		Where("request_id = ? AND status = ?", requestID, models.ParticipantJoined).
		Count(&count).Error
	return int(count), err
}

// findReplay returns the row a previous attempt with the same client key
// already created, so a retried join is answered instead of re-applied.
func findReplay(tx *gorm.DB, requestID, userID uint, clientKey string) (*models.Participant, error) {
	if clientKey == "" {
		return nil, nil
	}
	var existing models.Participant
	err := tx.Where("request_id = ? AND user_id = ? AND client_key = ?", requestID, userID, clientKey).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// ensureNoExistingRow enforces the one-row-per-user rule: an active row
// blocks a second attempt, a rejected row blocks re-joining outright.
func ensureNoExistingRow(tx *gorm.DB, requestID, userID uint) error {
	var existing models.Participant
	err := tx.Where("request_id = ? AND user_id = ?", requestID, userID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Status == models.ParticipantRejected {
		return apperrors.InvalidState("user %d was rejected from request %d and cannot re-join", userID, requestID)
	}
	return apperrors.InvalidState("user %d already has a %s participation on request %d", userID, existing.Status, requestID)
}
