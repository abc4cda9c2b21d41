package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model  `json:"-"`
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name"`
	Email       string `json:"email" gorm:"uniqueIndex"` // Ensure email is unique across all users
	Age         int    `json:"age"`
	Persona     string `json:"persona" gorm:"size:30"` // e.g. "foodie", "quiet", "talkative"
	Bio         string `json:"bio" gorm:"size:500"`
	MealCount   int    `json:"meal_count" gorm:"not null;default:0"` // confirmed show-ups, never decremented
	Language    string `json:"language" gorm:"size:10;default:'ko'"`
	PushToken   string `json:"-" gorm:"size:255"`
	Password    string `json:"-"`                                         // Store hashed password, ignore for JSON serialization
	FirebaseUID string `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // Link to Firebase User UID
}

// UserCompact is the trimmed shape embedded in lists and notifications
type UserCompact struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Persona   string `json:"persona"`
	MealCount int    `json:"meal_count"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:        u.ID,
		Name:      u.Name,
		Persona:   u.Persona,
		MealCount: u.MealCount,
	}
}

type CreateUserRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Age         int    `json:"age" validate:"required,min=0,max=150"`
	FirebaseUID string `json:"firebase_uid" validate:"required"` // Firebase UID will be provided by the client after Firebase Auth
}

type CreateLocalUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Age      int    `json:"age" validate:"required,min=0,max=150"`
	Password string `json:"password" validate:"required,min=8"`
}

type UpdateUserRequest struct {
	Name     string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Persona  string `json:"persona,omitempty" validate:"omitempty,max=30"`
	Bio      string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Language string `json:"language,omitempty" validate:"omitempty,max=10"`
}

type RegisterPushTokenRequest struct {
	PushToken string `json:"push_token" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
