package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

const roomKeyPrefix = "room:"

var ErrRoomNotFound = errors.New("room not found in mirror")

type RoomRepository interface {
	Save(ctx context.Context, record *entity.SessionRecord) error
	GetByID(ctx context.Context, roomID string) (*entity.SessionRecord, error)
	DeleteByID(ctx context.Context, roomID string) error
}

type dbRoom struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomRepository - records expire after ttl; zero keeps them until deleted.
func NewRoomRepository(client *redis.Client, ttl time.Duration) RoomRepository {
	return &dbRoom{
		client: client,
		ttl:    ttl,
	}
}

func (that *dbRoom) Save(ctx context.Context, record *entity.SessionRecord) error {
	if record.RoomID == "" {
		return entity.ErrEmptyRoomID
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal session record: %w", err)
	}

	if err = that.client.Set(ctx, roomKeyPrefix+record.RoomID, recordJSON, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, roomID string) (*entity.SessionRecord, error) {
	response, err := that.client.Get(ctx, roomKeyPrefix+roomID).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	var record entity.SessionRecord
	if err = json.Unmarshal([]byte(response), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}

	return &record, nil
}

func (that *dbRoom) DeleteByID(ctx context.Context, roomID string) error {
	if err := that.client.Del(ctx, roomKeyPrefix+roomID).Err(); err != nil {
		return fmt.Errorf("failed to delete room by id: %w", err)
	}

	return nil
}
