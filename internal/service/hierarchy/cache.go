package hierarchy

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"rulebase/internal/domain/models"
)

// TreeCache memoizes account folder lists for the read path (effective-tree
// assembly hits the account tree on every request). Entries are invalidated
// while the account lock is held, so readers never observe a mix of old and
// new snapshots for one account.
type TreeCache struct {
	cache *lru.Cache[string, []models.Folder]
}

// NewTreeCache creates a cache bounded to the given number of accounts.
func NewTreeCache(size int) (*TreeCache, error) {
	c, err := lru.New[string, []models.Folder](size)
	if err != nil {
		return nil, err
	}
	return &TreeCache{cache: c}, nil
}

// Get returns the cached account folder list, if present.
func (c *TreeCache) Get(accountID string) ([]models.Folder, bool) {
	return c.cache.Get(accountID)
}

// Put stores an account folder list.
func (c *TreeCache) Put(accountID string, folders []models.Folder) {
	c.cache.Add(accountID, folders)
}

// Invalidate drops the account's entry. Call under the account lock after
// any mutation of account-scoped folders.
func (c *TreeCache) Invalidate(accountID string) {
	c.cache.Remove(accountID)
}
