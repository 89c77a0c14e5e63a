package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"LiveDesk/entity"
	"LiveDesk/internal/storage"
)

// SaveMessage inserts msg and updates the room summary. Closed rooms take no more messages.
func (m *MongoDB) SaveMessage(ctx context.Context, msg entity.Message) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	rooms := connection.Database(m.database).Collection(roomsCollection)
	filter := bson.D{{Key: "_id", Value: msg.RoomID}, {Key: "status", Value: bson.D{{Key: "$ne", Value: entity.RoomClosed}}}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "last_message", Value: msg.Message},
		{Key: "last_message_at", Value: msg.CreatedAt},
	}}}
	var room entity.Room
	err = rooms.FindOneAndUpdate(ctx, filter, update).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return m.conflict(ctx, rooms, msg.RoomID, storage.ErrRoomClosed)
	}
	if err != nil {
		return fmt.Errorf("mongodb update room summary: %w", err)
	}

	collection := connection.Database(m.database).Collection(messagesCollection)
	_, err = collection.InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("mongodb insert message: %w", err)
	}
	return nil
}

// GetMessages returns the room history, oldest first.
func (m *MongoDB) GetMessages(ctx context.Context, roomID string) ([]entity.Message, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	rooms := connection.Database(m.database).Collection(roomsCollection)
	if err = rooms.FindOne(ctx, bson.D{{Key: "_id", Value: roomID}}).Err(); err != nil {
		return nil, m.findError(err)
	}

	collection := connection.Database(m.database).Collection(messagesCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := collection.Find(ctx, bson.D{{Key: "room_id", Value: roomID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]entity.Message, 0)
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongodb decode messages: %w", err)
	}
	return messages, nil
}
