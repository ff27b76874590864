package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore persists per-step wizard state guarded by generation tokens.
type StateStore interface {
	// Begin starts a new load for the step and returns its generation.
	// Any load started earlier becomes stale.
	Begin(ctx context.Context, scope Scope, step Step) (int64, error)
	// Load decodes the stored state into dest and reports whether it existed.
	Load(ctx context.Context, scope Scope, step Step, dest any) (bool, error)
	// Commit stores state when generation is still current, else returns ErrStaleState.
	Commit(ctx context.Context, scope Scope, step Step, generation int64, state any) error
	// Clear removes the state of a step.
	Clear(ctx context.Context, scope Scope, step Step) error
}

// RedisStore implements StateStore on redis using WATCH/MULTI.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs the store. ttl bounds how long abandoned wizards linger.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) stateKey(scope Scope, step Step) string {
	return fmt.Sprintf("wizard:%s:%s:%d", scope.Session, scope.Movement, step)
}

func (s *RedisStore) generationKey(scope Scope, step Step) string {
	return s.stateKey(scope, step) + ":gen"
}

// Begin increments the generation counter.
func (s *RedisStore) Begin(ctx context.Context, scope Scope, step Step) (int64, error) {
	key := s.generationKey(scope, step)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Load reads the stored state.
func (s *RedisStore) Load(ctx context.Context, scope Scope, step Step, dest any) (bool, error) {
	raw, err := s.client.Get(ctx, s.stateKey(scope, step)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("wizard: decode state: %w", err)
	}
	return true, nil
}

// Commit writes state if the generation counter still equals generation.
func (s *RedisStore) Commit(ctx context.Context, scope Scope, step Step, generation int64, state any) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	genKey := s.generationKey(scope, step)
	stateKey := s.stateKey(scope, step)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		currentGen := int64(0)
		if current != "" {
			currentGen, err = strconv.ParseInt(current, 10, 64)
			if err != nil {
				return err
			}
		}
		if currentGen != generation {
			return ErrStaleState
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, stateKey, payload, s.ttl)
			pipe.Expire(ctx, genKey, s.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStaleState
	}
	return err
}

// Clear deletes the state but keeps the generation counter so older loads stay stale.
func (s *RedisStore) Clear(ctx context.Context, scope Scope, step Step) error {
	return s.client.Del(ctx, s.stateKey(scope, step)).Err()
}
