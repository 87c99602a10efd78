package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"task-tracker/models"
)

// Cache is a JSON value cache in Redis under a common key prefix.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCache(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// Get decodes the value at key into dest and reports whether it was there.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get error: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Generation returns the counter stored at key, or 0 when it is absent.
func (c *Cache) Generation(ctx context.Context, key string) (int64, error) {
	gen, err := c.client.Get(ctx, c.prefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache generation error: %w", err)
	}
	return gen, nil
}

// Bump advances the counter at key. Counters never expire.
func (c *Cache) Bump(ctx context.Context, key string) error {
	if err := c.client.Incr(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache bump error: %w", err)
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// CachedTaskStore serves ListByOwner from the cache. Each owner has a
// generation counter that every write bumps after it commits, and lists are
// cached under the generation that was current before the read, so a list
// read racing a write can only fill an entry nobody will look up again.
//
// When a bump fails the owner is served from the wrapped store until every
// entry cached before the write has expired. Other cache failures are logged
// and fall through to the wrapped store.
type CachedTaskStore struct {
	next  TaskStore
	cache *Cache
	log   *zap.Logger

	mu     sync.Mutex
	bypass map[uuid.UUID]time.Time
	now    func() time.Time
}

func NewCachedTaskStore(next TaskStore, cache *Cache, log *zap.Logger) *CachedTaskStore {
	return &CachedTaskStore{
		next:   next,
		cache:  cache,
		log:    log,
		bypass: map[uuid.UUID]time.Time{},
		now:    time.Now,
	}
}

func generationKey(ownerID uuid.UUID) string {
	return "tasks:gen:" + ownerID.String()
}

func listKey(ownerID uuid.UUID, gen int64) string {
	return "tasks:owner:" + ownerID.String() + ":" + strconv.FormatInt(gen, 10)
}

func (s *CachedTaskStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Task, error) {
	if s.bypassed(ownerID) {
		return s.next.ListByOwner(ctx, ownerID)
	}

	gen, err := s.cache.Generation(ctx, generationKey(ownerID))
	if err != nil {
		s.log.Warn("task cache read failed", zap.Error(err), zap.Stringer("owner_id", ownerID))
		return s.next.ListByOwner(ctx, ownerID)
	}

	var tasks []models.Task
	hit, err := s.cache.Get(ctx, listKey(ownerID, gen), &tasks)
	if err != nil {
		s.log.Warn("task cache read failed", zap.Error(err), zap.Stringer("owner_id", ownerID))
	}
	if hit && tasks != nil {
		return tasks, nil
	}

	tasks, err = s.next.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, listKey(ownerID, gen), tasks); err != nil {
		s.log.Warn("task cache write failed", zap.Error(err), zap.Stringer("owner_id", ownerID))
	}
	return tasks, nil
}

func (s *CachedTaskStore) Get(ctx context.Context, id, ownerID uuid.UUID) (models.Task, error) {
	return s.next.Get(ctx, id, ownerID)
}

func (s *CachedTaskStore) Create(ctx context.Context, in models.NewTask) (models.Task, error) {
	task, err := s.next.Create(ctx, in)
	if err != nil {
		return models.Task{}, err
	}
	s.invalidate(ctx, task.OwnerID)
	return task, nil
}

func (s *CachedTaskStore) Update(ctx context.Context, id, ownerID uuid.UUID, patch models.TaskPatch) (models.Task, error) {
	task, err := s.next.Update(ctx, id, ownerID, patch)
	if err != nil {
		return models.Task{}, err
	}
	s.invalidate(ctx, ownerID)
	return task, nil
}

func (s *CachedTaskStore) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	if err := s.next.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

func (s *CachedTaskStore) invalidate(ctx context.Context, ownerID uuid.UUID) {
	if err := s.cache.Bump(ctx, generationKey(ownerID)); err != nil {
		s.log.Warn("task cache invalidation failed, bypassing cache for owner",
			zap.Error(err), zap.Stringer("owner_id", ownerID), zap.Duration("for", s.cache.ttl))
		s.mu.Lock()
		s.bypass[ownerID] = s.now().Add(s.cache.ttl)
		s.mu.Unlock()
	}
}

func (s *CachedTaskStore) bypassed(ownerID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.bypass[ownerID]
	if !ok {
		return false
	}
	if s.now().Before(until) {
		return true
	}
	delete(s.bypass, ownerID)
	return false
}
