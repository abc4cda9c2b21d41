package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatChannel lives in MongoDB, one per meal request, created lazily on
// the first successful join or approval. Once created it is never
// deleted; old messages stay addressable even after everybody leaves.
type ChatChannel struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RequestID uint               `json:"request_id" bson:"request_id"`
	MemberIDs []uint             `json:"member_ids" bson:"member_ids"`
	Closed    bool               `json:"closed" bson:"closed"` // set when the request is cancelled; no further joins
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// ChatMessage is a message inside a channel (MongoDB)
type ChatMessage struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ChannelID primitive.ObjectID `json:"channel_id" bson:"channel_id"`
	SenderID  uint               `json:"sender_id" bson:"sender_id"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// SendMessageRequest defines the body for posting a chat message
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}
