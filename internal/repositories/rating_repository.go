package repositories

import (
	"errors"

	"github.com/bobmate/backend/internal/apperrors"
	"github.com/bobmate/backend/internal/models"
	"gorm.io/gorm"
)

// RatingRepository defines the data operations for show-up ratings
type RatingRepository interface {
	SubmitRating(rating *models.Rating) error
	GetRating(raterID, ratedID, requestID uint) (*models.Rating, error)
}

// PostgresRatingRepository implements RatingRepository for PostgreSQL
type PostgresRatingRepository struct {
	db *gorm.DB
}

// NewPostgresRatingRepository creates a new PostgresRatingRepository
func NewPostgresRatingRepository(db *gorm.DB) *PostgresRatingRepository {
	return &PostgresRatingRepository{db: db}
}

// SubmitRating inserts the rating and, for a confirmed show-up, bumps the
// rated user's meal_count in the same transaction. The unique
// (rater, rated, request) index makes a second submission fail before the
// increment can ever apply twice.
func (r *PostgresRatingRepository) SubmitRating(rating *models.Rating) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rating).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.DuplicateRating(rating.RatedID, rating.RequestID)
			}
			return err
		}
		if !rating.ShowedUp {
			return nil
		}
		return tx.Model(&models.User{}).Where("id = ?", rating.RatedID).
			UpdateColumn("meal_count", gorm.Expr("meal_count + 1")).Error
	})
}

// GetRating retrieves a rating by its unique triple
func (r *PostgresRatingRepository) GetRating(raterID, ratedID, requestID uint) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.Where("rater_id = ? AND rated_id = ? AND request_id = ?", raterID, ratedID, requestID).
		First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("rating not found")
		}
		return nil, err
	}
	return &rating, nil
}
