package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// entry is what the in-process store keeps per key. sturdyc applies one TTL
// to the whole client, so per-entry expiry is tracked here.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// SturdycStore is an in-process byte store backed by a sturdyc client.
type SturdycStore struct {
	client *sturdyc.Client[entry]
	ttl    time.Duration
	now    func() time.Time
}

// NewSturdycStore creates a new sturdyc backed store.
// It validates the configuration and initializes a sturdyc client with the provided settings.
//
// Version compatibility note: This implementation assumes sturdyc v1.x API.
func NewSturdycStore(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycStore{client: client, ttl: cfg.TTL, now: time.Now}, nil
}

// Get returns the value stored under key. Expired entries are dropped and
// reported as absent.
func (s *SturdycStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	e, ok := s.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		s.client.Delete(key)
		return nil, false, nil
	}

	return e.value, true, nil
}

// Set stores value under key for ttl. A ttl that is zero or longer than the
// configured TTL is clamped to the configured TTL.
func (s *SturdycStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl <= 0 || ttl > s.ttl {
		ttl = s.ttl
	}

	buf := make([]byte, len(value))
	copy(buf, value)
	s.client.Set(key, entry{value: buf, expiresAt: s.now().Add(ttl)})
	return nil
}

// Delete removes a single entry. Deleting a missing key is not an error.
func (s *SturdycStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes all entries whose key starts with prefix.
func (s *SturdycStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}
