package models

import "gorm.io/gorm"

// Restaurant is curated reference data. The lifecycle engine only reads it.
type Restaurant struct {
	gorm.Model  `json:"-"`
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"size:255;not null"`
	Address     string `json:"address" gorm:"size:255"`
	District    string `json:"district" gorm:"size:50;index"`
	City        string `json:"city" gorm:"size:50;index"`
	CuisineType string `json:"cuisine_type" gorm:"size:30;index"`
}

// CreateRestaurantRequest defines the body for a user-submitted restaurant
type CreateRestaurantRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Address     string `json:"address" validate:"omitempty,max=255"`
	District    string `json:"district" validate:"required,max=50"`
	City        string `json:"city" validate:"required,max=50"`
	CuisineType string `json:"cuisine_type" validate:"required,max=30"`
}
