package lock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the backing store for lock entries: a (name -> token, ttl)
// pair per lock. Implementations must make both operations atomic;
// nothing stronger is assumed.
type Store interface {
	// SetIfAbsent stores token under key with the given expiry only if
	// the key does not exist. Returns true when the value was stored.
	SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// DeleteIfOwner deletes key only if its current value equals token.
	// Returns true when a deletion actually occurred.
	DeleteIfOwner(ctx context.Context, key, token string) (bool, error)
}

// releaseScript deletes the key only when the stored token matches, so
// a handle can never release a lock it no longer owns.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// RedisStore implements Store over a Redis client.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed lock store.
// Parameters:
//   - client: connected Redis client; ownership stays with the caller.
// Returns:
//   - *RedisStore: store using the client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, token, ttl).Result()
}

func (s *RedisStore) DeleteIfOwner(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{key}, token).Int()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryStore implements Store in process memory. Used by tests and
// single-node deployments where Redis would be overkill.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-process lock store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && time.Now().Before(entry.expiresAt) {
		return false, nil
	}
	s.entries[key] = memoryEntry{token: token, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *MemoryStore) DeleteIfOwner(ctx context.Context, key, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.expiresAt) || entry.token != token {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// Expire force-expires a key. Test helper for simulating lease timeout.
func (s *MemoryStore) Expire(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}
