package cache

import (
	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/patrickmn/go-cache"
)

// memoryAdminTier keeps admin decisions for the lifetime of one authorizer.
// Freshness is judged by the entry timestamp, so go-cache never expires them.
type memoryAdminTier struct {
	entries *cache.Cache
}

func NewMemoryAdminTier() *memoryAdminTier {
	return &memoryAdminTier{
		entries: cache.New(cache.NoExpiration, 0),
	}
}

func (tier *memoryAdminTier) FindAdminEntry(userId string) (common.AdminCacheEntry, bool) {
	entry, found := tier.entries.Get(userId)
	if !found {
		return common.AdminCacheEntry{}, false
	}
	return entry.(common.AdminCacheEntry), true
}

func (tier *memoryAdminTier) PutAdminEntry(userId string, entry common.AdminCacheEntry) {
	tier.entries.Set(userId, entry, cache.NoExpiration)
}

func (tier *memoryAdminTier) RemoveAdminEntry(userId string) {
	tier.entries.Delete(userId)
}

func (tier *memoryAdminTier) FlushAdminEntries() {
	tier.entries.Flush()
}
