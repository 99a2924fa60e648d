package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"storymill/dedup"
	"storymill/types"
)

const opTimeout = 5 * time.Second

// SeenStoreConfig configures the Redis connection and key namespace.
type SeenStoreConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	// KeyPrefix namespaces the seen-state keys, e.g. "storymill:seen".
	KeyPrefix string
	// TTL is a sliding expiry reset on every record, so state stays alive
	// for TTL after the most recent batch.
	TTL time.Duration
}

// SeenStore persists the exact-match keys of accepted items (identifiers,
// normalized titles, content fingerprints) so later runs can re-supply them
// as prior state. Exact sets rather than a probabilistic filter: the engine
// needs real membership answers.
type SeenStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSeenStoreFromEnv builds a SeenStore from REDIS_ADDR, REDIS_PASS,
// SEEN_KEY_PREFIX and SEEN_TTL_SECONDS.
func NewSeenStoreFromEnv() (*SeenStore, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	prefix := os.Getenv("SEEN_KEY_PREFIX")
	if prefix == "" {
		prefix = "storymill:seen"
	}
	ttl := 7 * 24 * time.Hour
	if t := os.Getenv("SEEN_TTL_SECONDS"); t != "" {
		if secs, err := strconv.Atoi(t); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}

	return NewSeenStore(SeenStoreConfig{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASS"),
		KeyPrefix: prefix,
		TTL:       ttl,
	})
}

// NewSeenStore creates the store and verifies connectivity.
func NewSeenStore(cfg SeenStoreConfig) (*SeenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &SeenStore{client: client, prefix: cfg.KeyPrefix, ttl: cfg.TTL}, nil
}

func (s *SeenStore) idsKey() string    { return s.prefix + ":ids" }
func (s *SeenStore) titlesKey() string { return s.prefix + ":titles" }
func (s *SeenStore) hashesKey() string { return s.prefix + ":hashes" }

// Load returns the persisted keys as engine prior state.
func (s *SeenStore) Load(ctx context.Context) (*dedup.PriorState, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, err
	}
	titles, err := s.client.SMembers(ctx, s.titlesKey()).Result()
	if err != nil {
		return nil, err
	}
	hashes, err := s.client.SMembers(ctx, s.hashesKey()).Result()
	if err != nil {
		return nil, err
	}

	return &dedup.PriorState{IDs: ids, Titles: titles, Hashes: hashes}, nil
}

// Record persists the exact-match keys of the retained items and refreshes
// the sliding TTL on every key.
func (s *SeenStore) Record(ctx context.Context, items []types.Item) error {
	if len(items) == 0 {
		return nil
	}

	var ids, titles, hashes []any
	for _, item := range items {
		if id := item.ID(); id != "" {
			ids = append(ids, id)
		}
		if title := item.Title(); title != "" {
			titles = append(titles, dedup.NormalizeText(title))
		}
		if item.Text() != "" {
			hashes = append(hashes, dedup.Fingerprint(item))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipe := s.client.Pipeline()
	if len(ids) > 0 {
		pipe.SAdd(ctx, s.idsKey(), ids...)
	}
	if len(titles) > 0 {
		pipe.SAdd(ctx, s.titlesKey(), titles...)
	}
	if len(hashes) > 0 {
		pipe.SAdd(ctx, s.hashesKey(), hashes...)
	}
	for _, key := range []string{s.idsKey(), s.titlesKey(), s.hashesKey()} {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Clear drops all persisted seen state.
func (s *SeenStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.client.Del(ctx, s.idsKey(), s.titlesKey(), s.hashesKey()).Err()
}

// Close closes the underlying Redis client.
func (s *SeenStore) Close() error {
	return s.client.Close()
}
