package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RealtimeService pushes events to a user's realtime channel. Delivery
// is best effort and never required for correctness; callers log and
// ignore failures.
type RealtimeService interface {
	Emit(ctx context.Context, userID uuid.UUID, event string, payload interface{}) error
}

type redisRealtimeService struct {
	client *redis.Client
}

func NewRedisRealtimeService(addr, password string, db int) RealtimeService {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisRealtimeService{client: client}
}

func (s *redisRealtimeService) Emit(ctx context.Context, userID uuid.UUID, event string, payload interface{}) error {
	message := map[string]interface{}{
		"event":     event,
		"payload":   payload,
		"timestamp": time.Now().UTC(),
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime payload: %w", err)
	}

	channel := fmt.Sprintf("trainfit:user:%s", userID.String())
	return s.client.Publish(ctx, channel, data).Err()
}
