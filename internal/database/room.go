package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"LiveDesk/entity"
	"LiveDesk/internal/storage"
)

func (m *MongoDB) CreateRoom(ctx context.Context, room *entity.Room) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	if room.ID == "" {
		room.ID = uuid.NewString()
	}

	collection := connection.Database(m.database).Collection(roomsCollection)
	_, err = collection.InsertOne(ctx, room)
	if err != nil {
		return fmt.Errorf("mongodb insert room: %w", err)
	}
	return nil
}

func (m *MongoDB) GetRoom(ctx context.Context, id string) (*entity.Room, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(roomsCollection)

	var room entity.Room
	err = collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&room)
	if err != nil {
		return nil, m.findError(err)
	}
	return &room, nil
}

// FindOpenRoom returns the newest waiting or active room of the user, or nil.
func (m *MongoDB) FindOpenRoom(ctx context.Context, tenantID, userID string) (*entity.Room, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(roomsCollection)
	filter := bson.D{
		{Key: "tenant_id", Value: tenantID},
		{Key: "user_id", Value: userID},
		{Key: "status", Value: bson.D{{Key: "$in", Value: bson.A{entity.RoomWaiting, entity.RoomActive}}}},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var room entity.Room
	err = collection.FindOne(ctx, filter, opts).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.findError(err)
	}
	return &room, nil
}

// ClaimRoom moves a waiting room to active in one conditional update, so only one admin wins.
func (m *MongoDB) ClaimRoom(ctx context.Context, id, adminID, adminName string) (*entity.Room, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(roomsCollection)
	filter := bson.D{{Key: "_id", Value: id}, {Key: "status", Value: entity.RoomWaiting}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: entity.RoomActive},
		{Key: "admin_id", Value: adminID},
		{Key: "admin_name", Value: adminName},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var room entity.Room
	err = collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, m.conflict(ctx, collection, id, storage.ErrAlreadyClaimed)
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb claim room: %w", err)
	}
	return &room, nil
}

func (m *MongoDB) CloseRoom(ctx context.Context, id string, at time.Time) (*entity.Room, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(roomsCollection)
	filter := bson.D{{Key: "_id", Value: id}, {Key: "status", Value: bson.D{{Key: "$ne", Value: entity.RoomClosed}}}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: entity.RoomClosed},
		{Key: "closed_at", Value: at},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var room entity.Room
	err = collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, m.conflict(ctx, collection, id, storage.ErrRoomClosed)
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb close room: %w", err)
	}
	return &room, nil
}

// conflict tells a missing room from one whose status did not match the update filter.
func (m *MongoDB) conflict(ctx context.Context, collection *mongo.Collection, id string, fallback error) error {
	var room entity.Room
	err := collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&room)
	if err != nil {
		return m.findError(err)
	}
	if room.Status == entity.RoomClosed {
		return storage.ErrRoomClosed
	}
	return fallback
}

func (m *MongoDB) ListRooms(ctx context.Context, tenantID string, status entity.RoomStatus) ([]entity.Room, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(roomsCollection)
	filter := bson.D{{Key: "tenant_id", Value: tenantID}, {Key: "status", Value: status}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find rooms: %w", err)
	}
	defer cursor.Close(ctx)

	rooms := make([]entity.Room, 0)
	if err = cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("mongodb decode rooms: %w", err)
	}
	return rooms, nil
}
