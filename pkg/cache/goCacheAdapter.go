package cache

import (
	"strings"
	"time"

	"github.com/Alcereo/consign-gateway/pkg/authz"
	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/patrickmn/go-cache"
	"github.com/satori/go.uuid"
)

const scopeSeparator = ":"

type goCacheAdapter struct {
	cookieCache *cache.Cache
	itemsCache  *cache.Cache
}

func NewGoCacheAdapter(expirationTimeHours int, evictScheduleTimeHours int) *goCacheAdapter {
	expiration := time.Hour * time.Duration(expirationTimeHours)
	evictSchedule := time.Hour * time.Duration(evictScheduleTimeHours)
	return &goCacheAdapter{
		cookieCache: cache.New(expiration, evictSchedule),
		itemsCache:  cache.New(expiration, evictSchedule),
	}
}

// SessionCachePort implementation

func (adapter *goCacheAdapter) PutSession(session *common.BrowserSession) error {
	return adapter.cookieCache.Add(string(session.Cookie), session, cache.DefaultExpiration)
}

func (adapter *goCacheAdapter) GetSession(cookie common.SessionCookie) (*common.BrowserSession, bool) {
	session, found := adapter.cookieCache.Get(string(cookie))
	if found {
		return session.(*common.BrowserSession), true
	} else {
		return nil, false
	}
}

func (adapter *goCacheAdapter) RemoveSession(session *common.BrowserSession) {
	adapter.cookieCache.Delete(string(session.Cookie))
}

func (*goCacheAdapter) CreateNewIdentifier() common.SessionId {
	return common.SessionId(uuid.NewV4().String())
}

func (*goCacheAdapter) CreateNewCookie() common.SessionCookie {
	return common.SessionCookie(uuid.NewV4().String())
}

// ScopedStoreProvider implementation

func (adapter *goCacheAdapter) ForScope(scope string) authz.ScopedStorePort {
	return &goCacheScopedStore{
		items:  adapter.itemsCache,
		prefix: scope + scopeSeparator,
	}
}

type goCacheScopedStore struct {
	items  *cache.Cache
	prefix string
}

func (store *goCacheScopedStore) GetItem(key string) (string, bool, error) {
	value, found := store.items.Get(store.prefix + key)
	if !found {
		return "", false, nil
	}
	return value.(string), true, nil
}

func (store *goCacheScopedStore) SetItem(key string, value string) error {
	store.items.SetDefault(store.prefix+key, value)
	return nil
}

func (store *goCacheScopedStore) RemoveItem(key string) error {
	store.items.Delete(store.prefix + key)
	return nil
}

func (store *goCacheScopedStore) Keys() ([]string, error) {
	var keys []string
	for key := range store.items.Items() {
		if strings.HasPrefix(key, store.prefix) {
			keys = append(keys, strings.TrimPrefix(key, store.prefix))
		}
	}
	return keys, nil
}
