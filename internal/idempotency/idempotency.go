package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// idem:order:create:{user_id}:{key} -> order_id
	keyOrderCreate = "idem:order:create:%d:%s"

	TTL = 24 * time.Hour
)

// Store remembers which order a client-supplied key produced, per user.
type Store interface {
	Lookup(ctx context.Context, userID int64, key string) (orderID int64, ok bool, err error)
	Remember(ctx context.Context, userID int64, key string, orderID int64) error
}

func orderKey(userID int64, key string) string {
	return fmt.Sprintf(keyOrderCreate, userID, key)
}

// RedisStore keeps keys in redis with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = TTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// NewRedisClient opens a client for addr.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
}

func (s *RedisStore) Lookup(ctx context.Context, userID int64, key string) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, orderKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency value %q: %w", v, err)
	}
	return id, true, nil
}

// Remember keeps the first order stored for a key; later writes are ignored.
func (s *RedisStore) Remember(ctx context.Context, userID int64, key string, orderID int64) error {
	return s.rdb.SetNX(ctx, orderKey(userID, key), orderID, s.ttl).Err()
}

type entry struct {
	orderID int64
	expires time.Time
}

// MemoryStore is the in-process Store used when no redis is configured.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	keys map[string]entry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = TTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, keys: make(map[string]entry)}
}

func (s *MemoryStore) Lookup(_ context.Context, userID int64, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := orderKey(userID, key)
	e, ok := s.keys[k]
	if !ok {
		return 0, false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.keys, k)
		return 0, false, nil
	}
	return e.orderID, true, nil
}

func (s *MemoryStore) Remember(_ context.Context, userID int64, key string, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := orderKey(userID, key)
	if e, ok := s.keys[k]; ok && s.now().Before(e.expires) {
		return nil
	}
	s.keys[k] = entry{orderID: orderID, expires: s.now().Add(s.ttl)}
	return nil
}
