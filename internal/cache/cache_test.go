package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for absent key")
	}

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Fatalf("expected alpha, got %q (ok=%v)", got, ok)
	}

	c.Set("a", "updated")
	got, _ = c.Get("a")
	if got != "updated" {
		t.Fatalf("expected updated value, got %q", got)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](3, time.Minute)

	for i := 1; i <= 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	// touch k1 so k2 becomes least recently used
	c.Get("k1")
	c.Set("k4", 4)

	if _, ok := c.Get("k2"); ok {
		t.Fatal("expected k2 to be evicted")
	}
	if _, ok := c.Get("k1"); !ok {
		t.Fatal("expected k1 to survive eviction")
	}
	if c.Size() != 3 {
		t.Fatalf("expected size 3, got %d", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)

	c.Set("a", "alpha")
	c.Set("b", "beta")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 entry cleaned (a was removed by Get), got %d", removed)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got size %d", c.Size())
	}
}

func TestBalanceCacheInvalidate(t *testing.T) {
	c := NewBalanceCache(10, time.Minute)

	c.Set("u1", core.BalanceView{UserID: "u1", TotalOwes: core.Money{Cents: 500}})
	c.Set("u2", core.BalanceView{UserID: "u2"})
	c.Set("u3", core.BalanceView{UserID: "u3"})

	view, ok := c.Get("u1")
	if !ok || view.TotalOwes.Cents != 500 {
		t.Fatalf("expected cached view for u1, got ok=%v view=%+v", ok, view)
	}

	c.Invalidate("u1", "u3")

	if _, ok := c.Get("u1"); ok {
		t.Fatal("expected u1 to be invalidated")
	}
	if _, ok := c.Get("u3"); ok {
		t.Fatal("expected u3 to be invalidated")
	}
	if _, ok := c.Get("u2"); !ok {
		t.Fatal("expected u2 to remain cached")
	}
}
