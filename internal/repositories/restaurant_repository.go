package repositories

import (
	"errors"

	"github.com/bobmate/backend/internal/apperrors"
	"github.com/bobmate/backend/internal/models"
	"gorm.io/gorm"
)

// RestaurantRepository defines the interface for restaurant catalog operations
type RestaurantRepository interface {
	CreateRestaurant(restaurant *models.Restaurant) error
	GetRestaurantByID(id uint) (*models.Restaurant, error)
	ListRestaurants(district, city, cuisine string) ([]models.Restaurant, error)
}

// PostgresRestaurantRepository implements RestaurantRepository for PostgreSQL
type PostgresRestaurantRepository struct {
	db *gorm.DB
}

// NewPostgresRestaurantRepository creates a new PostgresRestaurantRepository
func NewPostgresRestaurantRepository(db *gorm.DB) *PostgresRestaurantRepository {
	return &PostgresRestaurantRepository{db: db}
}

// CreateRestaurant adds a curated or user-submitted restaurant
func (r *PostgresRestaurantRepository) CreateRestaurant(restaurant *models.Restaurant) error {
	return r.db.Create(restaurant).Error
}

// GetRestaurantByID retrieves a restaurant by ID
func (r *PostgresRestaurantRepository) GetRestaurantByID(id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.First(&restaurant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("restaurant %d not found", id)
		}
		return nil, err
	}
	return &restaurant, nil
}

// ListRestaurants retrieves restaurants filtered by district, city and cuisine
func (r *PostgresRestaurantRepository) ListRestaurants(district, city, cuisine string) ([]models.Restaurant, error) {
	query := r.db.Model(&models.Restaurant{})
	if district != "" {
		query = query.Where("district = ?", district)
	}
	if city != "" {
		query = query.Where("city = ?", city)
	}
	if cuisine != "" {
		query = query.Where("cuisine_type = ?", cuisine)
	}

	var restaurants []models.Restaurant
	if err := query.Order("name ASC").Find(&restaurants).Error; err != nil {
		return nil, err
	}
	return restaurants, nil
}
