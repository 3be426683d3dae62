package cache

import (
	"time"

	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
)

// BalanceCache caches computed balance views per user. Entries are
// short-lived; writes that touch a user (a new expense naming them as
// payer or participant) invalidate their entry immediately.
type BalanceCache struct {
	views *LRUCache[core.BalanceView]
}

// NewBalanceCache creates a balance cache holding up to maxSize user
// views, each valid for ttl.
func NewBalanceCache(maxSize int, ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		views: NewLRUCache[core.BalanceView](maxSize, ttl),
	}
}

// Get returns the cached balance view for a user, if present and fresh.
func (c *BalanceCache) Get(userID string) (core.BalanceView, bool) {
	return c.views.Get(userID)
}

// Set stores the balance view for a user.
func (c *BalanceCache) Set(userID string, view core.BalanceView) {
	c.views.Set(userID, view)
}

// Invalidate drops the cached views of every listed user.
func (c *BalanceCache) Invalidate(userIDs ...string) {
	for _, id := range userIDs {
		c.views.Delete(id)
	}
}

// Size returns the number of cached views.
func (c *BalanceCache) Size() int {
	return c.views.Size()
}
