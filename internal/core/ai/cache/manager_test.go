package cache

import (
	"testing"
	"time"

	"recipe-importer/internal/infrastructure/config"
)

func testManager(t *testing.T, maxSize int, ttl time.Duration) *Manager {
	t.Helper()
	m := NewManager(&config.Config{
		Cache: config.CacheConfig{
			Enabled:         true,
			MaxSize:         maxSize,
			TTL:             ttl,
			CleanupInterval: time.Hour,
		},
	})
	t.Cleanup(m.Close)
	return m
}

func TestKeyDistinguishesPartBoundaries(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("keys must encode part boundaries")
	}
	if Key("a", "b") != Key("a", "b") {
		t.Error("keys must be deterministic")
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	m := testManager(t, 10, time.Minute)

	if _, ok := m.Get("missing"); ok {
		t.Error("expected a miss")
	}

	m.Set("k", "v")
	got, ok := m.Get("k")
	if !ok || got != "v" {
		t.Errorf("got (%q, %v), want (v, true)", got, ok)
	}

	hits, misses, _ := m.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits / %d misses", hits, misses)
	}
}

func TestExpiredEntriesMiss(t *testing.T) {
	m := testManager(t, 10, time.Millisecond)

	m.Set("k", "v")
	time.Sleep(5 * time.Millisecond)

	if _, ok := m.Get("k"); ok {
		t.Error("expired entry must miss")
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	m := testManager(t, 2, time.Minute)

	m.Set("a", "1")
	m.Set("b", "2")
	m.Set("c", "3")

	_, _, evictions := m.Stats()
	if evictions != 1 {
		t.Errorf("evictions = %d, want 1", evictions)
	}
	if _, ok := m.Get("c"); !ok {
		t.Error("newest entry must survive eviction")
	}
}

func TestNilManagerIsPassThrough(t *testing.T) {
	var m *Manager

	m.Set("k", "v")
	if _, ok := m.Get("k"); ok {
		t.Error("nil manager must always miss")
	}
	m.Close()
}
