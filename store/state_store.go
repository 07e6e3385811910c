package store

import (
	"fmt"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/types"
)

// RedisStateStore keeps per-user conversation state (pending free link keys,
// funnel builder sessions, operator drafts) with a TTL so abandoned
// conversations evaporate on their own.
type RedisStateStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisStateStore(redisClient *RedisClient, ttlHours int) *RedisStateStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStateStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisStateStore) GetState(userID int64) (*types.ConvState, error) {
	key := s.client.generateKey("conv_state", fmt.Sprintf("%d", userID))
	var state types.ConvState
	if err := s.client.Get(key, &state); err != nil {
		return &types.ConvState{}, nil
	}
	return &state, nil
}

func (s *RedisStateStore) SetState(userID int64, state *types.ConvState) error {
	key := s.client.generateKey("conv_state", fmt.Sprintf("%d", userID))
	return s.client.Set(key, state, s.ttl)
}

func (s *RedisStateStore) ClearState(userID int64) error {
	key := s.client.generateKey("conv_state", fmt.Sprintf("%d", userID))
	return s.client.Del(key)
}
