package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Stephani-e/food-delivery-app/internal/models"
)

// SelectionStorage is the durable home of a user's explicit location
// choice: one key holding the serialized SelectedLocation, or absent.
type SelectionStorage interface {
	Load(ctx context.Context, userID string) (*models.SelectedLocation, error)
	Save(ctx context.Context, userID string, loc models.SelectedLocation) error
	Delete(ctx context.Context, userID string) error
}

// RedisStorage keeps selections under location:selected:<userID>.
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage wraps an existing client.
func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

// OpenRedis connects and pings.
func OpenRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func selectionKey(userID string) string {
	return "location:selected:" + userID
}

func (s *RedisStorage) Load(ctx context.Context, userID string) (*models.SelectedLocation, error) {
	raw, err := s.client.Get(ctx, selectionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load selected location: %w", err)
	}

	var loc models.SelectedLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("failed to decode selected location: %w", err)
	}
	if err := loc.Coordinate.Validate(); err != nil {
		return nil, fmt.Errorf("persisted selected location invalid: %w", err)
	}
	return &loc, nil
}

func (s *RedisStorage) Save(ctx context.Context, userID string, loc models.SelectedLocation) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to encode selected location: %w", err)
	}
	if err := s.client.Set(ctx, selectionKey(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save selected location: %w", err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, selectionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete selected location: %w", err)
	}
	return nil
}
