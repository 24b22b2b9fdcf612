package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type entry struct {
	key     string
	value   []byte
	expires time.Time
	tags    []string
}

// Memory is a bounded in-process cache. When full, the oldest inserted entry
// is evicted first.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is newest
	tags    map[string]map[string]struct{}
	cfg     settings
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an in-memory cache.
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		tags:    make(map[string]map[string]struct{}),
		cfg:     newSettings(opts),
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	el, ok := m.entries[key]
	if !ok {
		m.mu.Unlock()
		return false, nil
	}
	e := el.Value.(*entry)
	if !m.cfg.now().Before(e.expires) {
		m.removeLocked(el)
		m.mu.Unlock()
		return false, nil
	}
	value := e.value
	m.mu.Unlock()

	if err := decode(value, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, v any, ttl time.Duration, tags ...string) error {
	b, err := encode(v)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.cfg.ttl
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		m.removeLocked(el)
	}
	if m.cfg.maxEntries > 0 {
		for len(m.entries) >= m.cfg.maxEntries {
			m.removeLocked(m.order.Back())
		}
	}

	e := &entry{key: key, value: b, expires: m.cfg.now().Add(ttl), tags: tags}
	m.entries[key] = m.order.PushFront(e)
	for _, t := range tags {
		keys, ok := m.tags[t]
		if !ok {
			keys = make(map[string]struct{})
			m.tags[t] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

// Invalidate implements Cache.
func (m *Memory) Invalidate(_ context.Context, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tags {
		for key := range m.tags[t] {
			if el, ok := m.entries[key]; ok {
				m.removeLocked(el)
			}
		}
		delete(m.tags, t)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// removeLocked must be called with m.mu held.
func (m *Memory) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	e := el.Value.(*entry)
	m.order.Remove(el)
	delete(m.entries, e.key)
	for _, t := range e.tags {
		if keys, ok := m.tags[t]; ok {
			delete(keys, e.key)
			if len(keys) == 0 {
				delete(m.tags, t)
			}
		}
	}
}
