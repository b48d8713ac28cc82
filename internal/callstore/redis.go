package callstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"q-pipecat/internal/clients/redis"
)

// RedisStore keeps records as JSON values so several service replicas share them.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, callID string) (CallRecord, bool, error) {
	raw, found, err := s.client.Get(ctx, key(callID))
	if err != nil {
		return CallRecord{}, false, fmt.Errorf("failed to get call %s: %w", callID, err)
	}
	if !found {
		return CallRecord{}, false, nil
	}

	var record CallRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return CallRecord{}, false, fmt.Errorf("failed to decode call %s: %w", callID, err)
	}
	return record, true, nil
}

func (s *RedisStore) Put(ctx context.Context, record CallRecord, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode call %s: %w", record.CallID, err)
	}
	if err := s.client.Set(ctx, key(record.CallID), raw, ttl); err != nil {
		return fmt.Errorf("failed to store call %s: %w", record.CallID, err)
	}
	return nil
}

func (s *RedisStore) Reserve(ctx context.Context, record CallRecord, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to encode call %s: %w", record.CallID, err)
	}
	ok, err := s.client.SetNX(ctx, key(record.CallID), raw, ttl)
	if err != nil {
		return false, fmt.Errorf("failed to reserve call %s: %w", record.CallID, err)
	}
	return ok, nil
}

func (s *RedisStore) Delete(ctx context.Context, callID string) error {
	if err := s.client.Del(ctx, key(callID)); err != nil {
		return fmt.Errorf("failed to delete call %s: %w", callID, err)
	}
	return nil
}
