package cache

import (
	"testing"
	"time"
)

func TestRistretto_SetAndGet(t *testing.T) {
	c, err := NewRistretto(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("test-key", "test-value", 0)

	got, found := c.Get("test-key")
	if !found {
		t.Fatal("Expected to find cached value")
	}
	if got != "test-value" {
		t.Errorf("Expected test-value, got %v", got)
	}
}

func TestRistretto_Expiration(t *testing.T) {
	c, err := NewRistretto(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("expiring-key", "v", 10*time.Millisecond)
	if _, found := c.Get("expiring-key"); !found {
		t.Fatal("Expected to find value immediately after set")
	}

	now = now.Add(15 * time.Millisecond)
	if _, found := c.Get("expiring-key"); found {
		t.Error("Expected value to be expired")
	}
	if s := c.Stats(); s.Expirations != 1 {
		t.Errorf("expected 1 expiration, got %d", s.Expirations)
	}
}

func TestRistretto_DeleteAndClear(t *testing.T) {
	c, err := NewRistretto(100, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("key1", 1, 0)
	c.Set("key2", 2, 0)

	c.Delete("key1")
	if _, found := c.Get("key1"); found {
		t.Error("Expected key1 to be deleted")
	}

	c.Clear()
	if _, found := c.Get("key2"); found {
		t.Error("Expected key2 to be cleared")
	}
}

func TestRistretto_ImplementsCache(t *testing.T) {
	var _ Cache = (*Ristretto)(nil)
	var _ Cache = (*LRU)(nil)
	var _ PrefixDeleter = (*LRU)(nil)
}
