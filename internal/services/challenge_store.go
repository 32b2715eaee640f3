// internal/services/challenge_store.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Challenge is a pending one-time-code flow bound to a session.
type Challenge struct {
	Code     string          `json:"code"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	IssuedAt time.Time       `json:"issued_at"`
	Attempts int             `json:"attempts"`
	Verified bool            `json:"verified"`
}

// ChallengeStore keeps challenges for a limited time. Get returns an
// ErrNotFound-wrapped error for missing or expired entries.
type ChallengeStore interface {
	Put(ctx context.Context, namespace, key string, ch *Challenge, ttl time.Duration) error
	Update(ctx context.Context, namespace, key string, ch *Challenge) error
	Get(ctx context.Context, namespace, key string) (*Challenge, error)
	Delete(ctx context.Context, namespace, key string) error
}

const (
	ChallengeRegistration = "otp:register"
	ChallengeReset        = "otp:reset"
)

func challengeKey(namespace, key string) string {
	return namespace + ":" + key
}

// RedisChallengeStore stores challenges as JSON strings with a Redis TTL.
type RedisChallengeStore struct {
	client *redis.Client
}

func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func (s *RedisChallengeStore) Put(ctx context.Context, namespace, key string, ch *Challenge, ttl time.Duration) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, challengeKey(namespace, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *RedisChallengeStore) Update(ctx context.Context, namespace, key string, ch *Challenge) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	// XX: only overwrite a live entry, keeping its expiry.
	ok, err := s.client.SetArgs(ctx, challengeKey(namespace, key), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	if errors.Is(err, redis.Nil) || (err == nil && ok != "OK") {
		return notFound("challenge")
	}
	if err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	return nil
}

func (s *RedisChallengeStore) Get(ctx context.Context, namespace, key string) (*Challenge, error) {
	data, err := s.client.Get(ctx, challengeKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound("challenge")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	var ch Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("corrupt challenge: %w", err)
	}
	return &ch, nil
}

func (s *RedisChallengeStore) Delete(ctx context.Context, namespace, key string) error {
	return s.client.Del(ctx, challengeKey(namespace, key)).Err()
}

// MemoryChallengeStore is used when Redis is not configured.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	entries map[string]memoryChallenge
	now     func() time.Time
}

type memoryChallenge struct {
	challenge Challenge
	expiresAt time.Time
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		entries: make(map[string]memoryChallenge),
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (s *MemoryChallengeStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryChallengeStore) Put(_ context.Context, namespace, key string, ch *Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[challengeKey(namespace, key)] = memoryChallenge{challenge: *ch, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryChallengeStore) Update(_ context.Context, namespace, key string, ch *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := challengeKey(namespace, key)
	entry, ok := s.entries[k]
	if !ok || !s.now().Before(entry.expiresAt) {
		delete(s.entries, k)
		return notFound("challenge")
	}
	entry.challenge = *ch
	s.entries[k] = entry
	return nil
}

func (s *MemoryChallengeStore) Get(_ context.Context, namespace, key string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := challengeKey(namespace, key)
	entry, ok := s.entries[k]
	if !ok {
		return nil, notFound("challenge")
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, k)
		return nil, notFound("challenge")
	}
	ch := entry.challenge
	return &ch, nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, challengeKey(namespace, key))
	return nil
}
