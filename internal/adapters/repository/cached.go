package repository

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/pauta/internal/adapters/cache"
	"github.com/okian/pauta/internal/domain/model"
	"github.com/okian/pauta/pkg/logger"
	"github.com/okian/pauta/pkg/metrics"
)

// Cache kinds used in metric labels.
const (
	cacheKindGrade   = "grade"
	cacheKindHistory = "history"
	cacheKindClass   = "class"
)

// CachedGrades serves Fetch and History from a cache and invalidates the
// trimester's entries on every successful Save. Cache failures fall through
// to the wrapped repository.
//
// Each trimester carries a generation that Save bumps before invalidating. A
// read that started under an older generation does not write its result back,
// so a slow read cannot re-cache a record that a concurrent Save replaced.
type CachedGrades struct {
	inner GradeRepository
	cache cache.Cache
	ttl   time.Duration
	log   logger.Logger

	mu   sync.Mutex
	gens map[string]uint64
}

var _ GradeRepository = (*CachedGrades)(nil)

// NewCachedGrades wraps inner. A non-positive ttl uses the cache default.
func NewCachedGrades(inner GradeRepository, c cache.Cache, ttl time.Duration, opts ...Option) *CachedGrades {
	o := newStoreOptions(opts)
	return &CachedGrades{inner: inner, cache: c, ttl: ttl, log: o.log, gens: make(map[string]uint64)}
}

// cacheKey escapes every key part so ids containing the separator cannot
// collide with another trimester.
func cacheKey(prefix string, k model.TrimesterKey) string {
	parts := []string{k.AcademicYear, k.ClassID, k.DisciplineID, k.StudentID, strconv.Itoa(k.Trimester)}
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return prefix + ":" + strings.Join(parts, "/")
}

func gradeTag(k model.TrimesterKey) string { return cacheKey("trimester", k) }

// Fetch implements GradeRepository.
func (c *CachedGrades) Fetch(ctx context.Context, key model.TrimesterKey) (model.TrimesterRecord, error) {
	ck := cacheKey("grade", key)
	var rec model.TrimesterRecord
	if c.lookup(ctx, cacheKindGrade, ck, &rec) {
		return rec, nil
	}
	tag := gradeTag(key)
	gen := c.generation(tag)
	rec, err := c.inner.Fetch(ctx, key)
	if err != nil {
		return rec, err
	}
	c.store(ctx, gen, ck, rec, tag)
	return rec, nil
}

// Save implements GradeRepository.
func (c *CachedGrades) Save(ctx context.Context, rec model.TrimesterRecord, editor string) (model.TrimesterRecord, error) {
	saved, err := c.inner.Save(ctx, rec, editor)
	if err != nil {
		return saved, err
	}
	tag := gradeTag(rec.Key)
	c.mu.Lock()
	c.gens[tag]++
	err = c.cache.Invalidate(ctx, tag)
	c.mu.Unlock()
	if err != nil {
		c.log.Warn(ctx, "cache invalidation failed", logger.String("key", rec.Key.String()), logger.Error(err))
	} else {
		metrics.RecordCacheInvalidation()
	}
	return saved, nil
}

// History implements GradeRepository.
func (c *CachedGrades) History(ctx context.Context, key model.TrimesterKey) ([]model.ChangeEvent, error) {
	ck := cacheKey("history", key)
	var events []model.ChangeEvent
	if c.lookup(ctx, cacheKindHistory, ck, &events) {
		return events, nil
	}
	tag := gradeTag(key)
	gen := c.generation(tag)
	events, err := c.inner.History(ctx, key)
	if err != nil {
		return events, err
	}
	c.store(ctx, gen, ck, events, tag)
	return events, nil
}

func (c *CachedGrades) lookup(ctx context.Context, kind, key string, dst any) bool {
	return cacheLookup(ctx, c.cache, c.log, kind, key, dst)
}

func (c *CachedGrades) generation(tag string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[tag]
}

// store writes v only while tag is still at gen. The lock orders the write
// against Save's bump and invalidation.
func (c *CachedGrades) store(ctx context.Context, gen uint64, key string, v any, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[tag] != gen {
		return
	}
	if err := c.cache.Set(ctx, key, v, c.ttl, tag); err != nil {
		c.log.Warn(ctx, "cache write failed", logger.String("cache_key", key), logger.Error(err))
	}
}

// CachedCatalog serves class designations from a cache.
type CachedCatalog struct {
	inner AcademicCatalog
	cache cache.Cache
	ttl   time.Duration
	log   logger.Logger
}

var _ AcademicCatalog = (*CachedCatalog)(nil)

// NewCachedCatalog wraps inner. A non-positive ttl uses the cache default.
func NewCachedCatalog(inner AcademicCatalog, c cache.Cache, ttl time.Duration, opts ...Option) *CachedCatalog {
	o := newStoreOptions(opts)
	return &CachedCatalog{inner: inner, cache: c, ttl: ttl, log: o.log}
}

// ClassDesignation implements AcademicCatalog.
func (c *CachedCatalog) ClassDesignation(ctx context.Context, classID string) (string, error) {
	ck := "class:" + classID
	var d string
	if cacheLookup(ctx, c.cache, c.log, cacheKindClass, ck, &d) {
		return d, nil
	}
	d, err := c.inner.ClassDesignation(ctx, classID)
	if err != nil {
		return d, err
	}
	if err := c.cache.Set(ctx, ck, d, c.ttl, ck); err != nil {
		c.log.Warn(ctx, "cache write failed", logger.String("cache_key", ck), logger.Error(err))
	}
	return d, nil
}

// Forget drops a cached designation after the class is renamed.
func (c *CachedCatalog) Forget(ctx context.Context, classID string) error {
	return c.cache.Invalidate(ctx, "class:"+classID)
}

func cacheLookup(ctx context.Context, c cache.Cache, log logger.Logger, kind, key string, dst any) bool {
	hit, err := c.Get(ctx, key, dst)
	if err != nil {
		log.Warn(ctx, "cache read failed", logger.String("cache_key", key), logger.Error(err))
		hit = false
	}
	if hit {
		metrics.RecordCacheHit(kind)
	} else {
		metrics.RecordCacheMiss(kind)
	}
	return hit
}
