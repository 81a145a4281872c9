package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	historyKeyPrefix = "goldmon:history:"
	stateKeyPrefix   = "goldmon:state:"
)

// RedisStore keeps monitor state in Redis so multiple instances can share it.
// Observations live in a list trimmed to the configured retention; the alert
// state is a JSON value. An optional TTL expires idle monitors.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	mu        sync.RWMutex
	retention map[string]int
}

// NewRedisStore connects to Redis. Call Ping to verify connectivity before
// serving traffic.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis store: address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{
		client:    client,
		ttl:       ttl,
		retention: make(map[string]int),
	}, nil
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Register(name string, retention int) error {
	if name == "" {
		return fmt.Errorf("register: empty monitor name")
	}
	if retention <= 0 {
		return fmt.Errorf("register %s: retention must be positive, got %d", name, retention)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.retention[name]; ok {
		return fmt.Errorf("register %s: already registered", name)
	}
	s.retention[name] = retention
	return nil
}

func (s *RedisStore) Record(ctx context.Context, monitor string, obs Observation) error {
	retention, err := s.retentionFor(monitor)
	if err != nil {
		return fmt.Errorf("record %s: %w", monitor, err)
	}

	key := historyKeyPrefix + monitor

	raw, err := s.client.LIndex(ctx, key, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("record %s: read head: %w", monitor, err)
	}
	if err == nil {
		var head Observation
		if uerr := json.Unmarshal([]byte(raw), &head); uerr == nil {
			if !obs.Timestamp.After(head.Timestamp) {
				return fmt.Errorf("record %s: %w", monitor, ErrDuplicateObservation)
			}
		}
	}

	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("record %s: marshal: %w", monitor, err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-retention), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record %s: %w", monitor, err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, monitor string, limit int) ([]Observation, error) {
	retention, err := s.retentionFor(monitor)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", monitor, err)
	}

	start := int64(-retention)
	if limit > 0 && limit < retention {
		start = int64(-limit)
	}

	raws, err := s.client.LRange(ctx, historyKeyPrefix+monitor, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", monitor, err)
	}

	out := make([]Observation, 0, len(raws))
	for _, raw := range raws {
		var obs Observation
		if err := json.Unmarshal([]byte(raw), &obs); err != nil {
			return nil, fmt.Errorf("history %s: decode: %w", monitor, err)
		}
		out = append(out, obs)
	}
	return out, nil
}

func (s *RedisStore) State(ctx context.Context, monitor string) (AlertState, bool, error) {
	if _, err := s.retentionFor(monitor); err != nil {
		return AlertState{}, false, fmt.Errorf("state %s: %w", monitor, err)
	}

	data, err := s.client.Get(ctx, stateKeyPrefix+monitor).Bytes()
	if errors.Is(err, redis.Nil) {
		return AlertState{}, false, nil
	}
	if err != nil {
		return AlertState{}, false, fmt.Errorf("state %s: %w", monitor, err)
	}

	var state AlertState
	if err := json.Unmarshal(data, &state); err != nil {
		return AlertState{}, false, fmt.Errorf("state %s: decode: %w", monitor, err)
	}
	return state, true, nil
}

func (s *RedisStore) SetState(ctx context.Context, monitor string, state AlertState) error {
	if _, err := s.retentionFor(monitor); err != nil {
		return fmt.Errorf("set state %s: %w", monitor, err)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("set state %s: marshal: %w", monitor, err)
	}
	if err := s.client.Set(ctx, stateKeyPrefix+monitor, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set state %s: %w", monitor, err)
	}
	return nil
}

func (s *RedisStore) Monitors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.retention))
	for name := range s.retention {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *RedisStore) retentionFor(monitor string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	retention, ok := s.retention[monitor]
	if !ok {
		return 0, ErrUnknownMonitor
	}
	return retention, nil
}
