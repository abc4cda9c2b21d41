package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/bobmate/backend/internal/apperrors"
	"github.com/bobmate/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatRepository defines the interface for chat channel and message
// operations. Every membership operation is idempotent, so the engine may
// retry them after a successful state transition without harm.
type ChatRepository interface {
	EnsureChannel(ctx context.Context, requestID uint, memberIDs ...uint) (*models.ChatChannel, error)
	RemoveMember(ctx context.Context, requestID, userID uint) error
	CloseChannel(ctx context.Context, requestID uint) error
	GetChannelByRequestID(ctx context.Context, requestID uint) (*models.ChatChannel, error)
	InsertMessage(ctx context.Context, message *models.ChatMessage) error
	ListMessages(ctx context.Context, channelID primitive.ObjectID, skip, limit int64) ([]models.ChatMessage, error)
}

// MongoChatRepository implements ChatRepository for MongoDB
type MongoChatRepository struct {
	channels *mongo.Collection
	messages *mongo.Collection
}

// NewMongoChatRepository creates a new MongoChatRepository
func NewMongoChatRepository(db *mongo.Database) *MongoChatRepository {
	return &MongoChatRepository{
		channels: db.Collection("chat_channels"),
		messages: db.Collection("chat_messages"),
	}
}

// EnsureChannel is an idempotent get-or-create keyed on request_id. The
// given members are merged into the member set either way.
func (r *MongoChatRepository) EnsureChannel(ctx context.Context, requestID uint, memberIDs ...uint) (*models.ChatChannel, error) {
	now := time.Now()
	members := memberIDs
	if members == nil {
		members = []uint{}
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"request_id": requestID,
			"closed":     false,
			"created_at": now,
		},
		"$addToSet": bson.M{"member_ids": bson.M{"$each": members}},
		"$set":      bson.M{"updated_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var channel models.ChatChannel
	err := r.channels.FindOneAndUpdate(ctx, bson.M{"request_id": requestID}, update, opts).Decode(&channel)
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// RemoveMember removes a user from the channel's member set. Removing the
// last member keeps the channel and its message history addressable.
func (r *MongoChatRepository) RemoveMember(ctx context.Context, requestID, userID uint) error {
	res, err := r.channels.UpdateOne(ctx,
		bson.M{"request_id": requestID},
		bson.M{
			"$pull": bson.M{"member_ids": userID},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("no chat channel for request %d", requestID)
	}
	return nil
}

// CloseChannel empties the member set and marks the channel closed when
// the request is cancelled. The channel record and messages remain for
// history.
func (r *MongoChatRepository) CloseChannel(ctx context.Context, requestID uint) error {
	_, err := r.channels.UpdateOne(ctx,
		bson.M{"request_id": requestID},
		bson.M{"$set": bson.M{
			"member_ids": []uint{},
			"closed":     true,
			"updated_at": time.Now(),
		}})
	return err
}

// GetChannelByRequestID retrieves the channel for a request
func (r *MongoChatRepository) GetChannelByRequestID(ctx context.Context, requestID uint) (*models.ChatChannel, error) {
	var channel models.ChatChannel
	err := r.channels.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&channel)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("no chat channel for request %d", requestID)
		}
		return nil, err
	}
	return &channel, nil
}

// InsertMessage stores a chat message
func (r *MongoChatRepository) InsertMessage(ctx context.Context, message *models.ChatMessage) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	_, err := r.messages.InsertOne(ctx, message)
	return err
}

// ListMessages retrieves messages for a channel, newest first
func (r *MongoChatRepository) ListMessages(ctx context.Context, channelID primitive.ObjectID, skip, limit int64) ([]models.ChatMessage, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.messages.Find(ctx, bson.M{"channel_id": channelID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.ChatMessage
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
