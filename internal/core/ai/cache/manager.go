// Package cache provides an in-memory TTL cache for LLM responses, so a
// re-imported page or re-submitted text does not pay for a second model
// call.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"
)

// Manager is a bounded TTL cache keyed by a hash of the request payload.
type Manager struct {
	config *config.Config
	mu     sync.RWMutex
	store  map[string]entry
	done   chan struct{}
	once   sync.Once

	hits      int64
	misses    int64
	evictions int64
}

type entry struct {
	value      string
	expiresAt  time.Time
	lastAccess time.Time
}

// NewManager creates a cache manager. Returns nil when caching is disabled;
// callers treat a nil manager as a pass-through.
func NewManager(cfg *config.Config) *Manager {
	if !cfg.Cache.Enabled {
		common.LogInfo("cache disabled")
		return nil
	}

	m := &Manager{
		config: cfg,
		store:  make(map[string]entry),
		done:   make(chan struct{}),
	}
	go m.startCleanup()

	common.LogInfo("cache manager initialized",
		zap.Int("max_size", cfg.Cache.MaxSize),
		zap.Duration("ttl", cfg.Cache.TTL),
		zap.Duration("cleanup_interval", cfg.Cache.CleanupInterval),
	)
	return m
}

// Key hashes an arbitrary payload into a cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for key, or false on a miss.
func (m *Manager) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.store[key]
	if !ok {
		m.misses++
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(m.store, key)
		m.evictions++
		m.misses++
		return "", false
	}

	e.lastAccess = time.Now()
	m.store[key] = e
	m.hits++
	return e.value, true
}

// Set stores a value, evicting the least recently used entry when full.
func (m *Manager) Set(key, value string) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.store) >= m.config.Cache.MaxSize {
		m.evictOldestLocked()
	}
	now := time.Now()
	m.store[key] = entry{
		value:      value,
		expiresAt:  now.Add(m.config.Cache.TTL),
		lastAccess: now,
	}
}

func (m *Manager) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.store {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.evictions++
	}
}

func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.config.Cache.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for k, e := range m.store {
				if now.After(e.expiresAt) {
					delete(m.store, k)
					m.evictions++
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// Stats reports hit/miss/eviction counters.
func (m *Manager) Stats() (hits, misses, evictions int64) {
	if m == nil {
		return 0, 0, 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits, m.misses, m.evictions
}

// Close stops the cleanup goroutine. Safe to call more than once and on a
// nil manager.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.once.Do(func() { close(m.done) })
}
