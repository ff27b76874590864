package requisition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix prefixes cached requisition drafts.
const KeyPrefix = "openboxesRequisition"

// LocalStore caches drafts in redis so an unsaved form survives a reload.
type LocalStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocalStore constructs the store. A zero ttl keeps entries until overwritten.
func NewLocalStore(client *redis.Client, ttl time.Duration) *LocalStore {
	return &LocalStore{client: client, ttl: ttl}
}

// SaveToLocal stores v as JSON under key.
func (s *LocalStore) SaveToLocal(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, payload, s.ttl).Err()
}

// GetFromLocal decodes the value under key into dest and reports whether it existed.
func (s *LocalStore) GetFromLocal(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("requisition: decode %s: %w", key, err)
	}
	return true, nil
}

// LocalKey returns the cache key of a requisition id.
func LocalKey(id string) string {
	return KeyPrefix + id
}

// SaveRequisitionToLocal caches r and returns its key. A requisition without
// an id is not written and the returned key is empty.
func (s *LocalStore) SaveRequisitionToLocal(ctx context.Context, r Requisition) (string, error) {
	if r.ID == "" {
		return "", nil
	}
	key := LocalKey(r.ID)
	if err := s.SaveToLocal(ctx, key, r); err != nil {
		return "", err
	}
	return key, nil
}

// GetRequisitionFromLocal returns the cached requisition, or nil when none is cached.
func (s *LocalStore) GetRequisitionFromLocal(ctx context.Context, id string) (*Requisition, error) {
	var r Requisition
	found, err := s.GetFromLocal(ctx, LocalKey(id), &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}
