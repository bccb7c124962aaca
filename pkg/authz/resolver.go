package authz

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/Alcereo/consign-gateway/pkg/metrics"
	"github.com/Alcereo/consign-gateway/pkg/race"
	"github.com/sirupsen/logrus"
	"gopkg.in/go-playground/validator.v9"
)

const (
	DefaultCacheTTL         = 5 * time.Minute
	DefaultLookupTimeout    = 1500 * time.Millisecond
	DefaultSessionTimeout   = 2 * time.Second
	DefaultStorageKeyPrefix = "admin_status_"
)

var validate = validator.New()

type Clock func() time.Time

type ResolverSettings struct {
	CacheTTL         time.Duration `validate:"gt=0"`
	LookupTimeout    time.Duration `validate:"gt=0"`
	StorageKeyPrefix string        `validate:"required"`
	Clock            Clock
}

func DefaultResolverSettings() ResolverSettings {
	return ResolverSettings{
		CacheTTL:         DefaultCacheTTL,
		LookupTimeout:    DefaultLookupTimeout,
		StorageKeyPrefix: DefaultStorageKeyPrefix,
		Clock:            time.Now,
	}
}

// Resolver decides whether a user is an admin. It reads the memory tier, then
// the persisted tier, then the privilege store, and remembers the last
// decision as a fallback for failed lookups.
type Resolver struct {
	memory    AdminCachePort
	persisted ScopedStorePort
	store     PrivilegeStorePort
	settings  ResolverSettings
	log       *logrus.Entry

	mu       sync.Mutex
	fallback *bool
}

func NewResolver(
	memory AdminCachePort,
	persisted ScopedStorePort,
	store PrivilegeStorePort,
	settings ResolverSettings,
	log *logrus.Entry,
) *Resolver {
	if err := validate.Struct(settings); err != nil {
		panic(err.Error())
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}
	return &Resolver{
		memory:    memory,
		persisted: persisted,
		store:     store,
		settings:  settings,
		log:       log,
	}
}

func (resolver *Resolver) Resolve(ctx context.Context, userId string, forceRefresh bool) bool {
	log := resolver.log.WithField("userId", userId)

	if !forceRefresh {
		if isAdmin, found := resolver.fromMemory(userId); found {
			log.Tracef("Admin status found in memory cache: %v", isAdmin)
			metrics.RecordResolution(metrics.SourceMemory)
			return isAdmin
		}
		if isAdmin, found := resolver.fromPersisted(log, userId); found {
			log.Tracef("Admin status found in persisted cache: %v", isAdmin)
			metrics.RecordResolution(metrics.SourcePersisted)
			return isAdmin
		}
	}

	return resolver.lookup(ctx, log, userId)
}

// Fallback returns the last resolved decision, if any.
func (resolver *Resolver) Fallback() (bool, bool) {
	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	if resolver.fallback == nil {
		return false, false
	}
	return *resolver.fallback, true
}

// FallbackOrFalse returns the last resolved decision or false when nothing was resolved yet.
func (resolver *Resolver) FallbackOrFalse() bool {
	isAdmin, _ := resolver.Fallback()
	return isAdmin
}

// Invalidate drops cached entries of one user from both tiers.
func (resolver *Resolver) Invalidate(userId string) {
	resolver.memory.RemoveAdminEntry(userId)
	if err := resolver.persisted.RemoveItem(resolver.storageKey(userId)); err != nil {
		resolver.storageFailed("remove", err)
	}
}

// ClearAll drops every cached entry from both tiers and forgets the fallback.
func (resolver *Resolver) ClearAll() {
	resolver.memory.FlushAdminEntries()

	keys, err := resolver.persisted.Keys()
	if err != nil {
		resolver.storageFailed("keys", err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, resolver.settings.StorageKeyPrefix) {
			continue
		}
		if err := resolver.persisted.RemoveItem(key); err != nil {
			resolver.storageFailed("remove", err)
		}
	}

	resolver.mu.Lock()
	resolver.fallback = nil
	resolver.mu.Unlock()
}

func (resolver *Resolver) fromMemory(userId string) (bool, bool) {
	entry, found := resolver.memory.FindAdminEntry(userId)
	if !found || !entry.FreshAt(resolver.settings.Clock(), resolver.settings.CacheTTL) {
		return false, false
	}
	resolver.setFallback(entry.IsAdmin)
	return entry.IsAdmin, true
}

func (resolver *Resolver) fromPersisted(log *logrus.Entry, userId string) (bool, bool) {
	raw, found, err := resolver.persisted.GetItem(resolver.storageKey(userId))
	if err != nil {
		resolver.storageFailed("get", err)
		return false, false
	}
	if !found {
		return false, false
	}

	var entry common.AdminCacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		log.Debugf("Skip undecodable persisted admin entry. Reason: %v", err)
		return false, false
	}
	if !entry.FreshAt(resolver.settings.Clock(), resolver.settings.CacheTTL) {
		return false, false
	}

	resolver.memory.PutAdminEntry(userId, entry)
	resolver.setFallback(entry.IsAdmin)
	return entry.IsAdmin, true
}

func (resolver *Resolver) lookup(ctx context.Context, log *logrus.Entry, userId string) bool {
	started := time.Now()
	outcome := race.WithTimeout(ctx, resolver.settings.LookupTimeout, func(ctx context.Context) (bool, error) {
		row, err := resolver.store.LookupAdmin(ctx, userId)
		if err != nil {
			if common.IsNoRows(err) {
				return false, nil
			}
			return false, err
		}
		return row != nil, nil
	})
	metrics.RecordLookup(outcome.Kind.String(), time.Since(started))

	switch outcome.Kind {
	case race.Ok:
		log.Debugf("Admin status resolved by privilege store: %v", outcome.Value)
		resolver.remember(log, userId, outcome.Value)
		metrics.RecordResolution(metrics.SourceAuthoritative)
		return outcome.Value
	case race.TimedOut:
		log.Warnf("Admin status lookup timed out after %v. Using last known state.", resolver.settings.LookupTimeout)
	default:
		log.Warnf("Admin status lookup error. Using last known state. Reason: %v", outcome.Err)
	}
	metrics.RecordResolution(metrics.SourceFallback)
	return resolver.FallbackOrFalse()
}

func (resolver *Resolver) remember(log *logrus.Entry, userId string, isAdmin bool) {
	entry := common.NewAdminCacheEntry(isAdmin, resolver.settings.Clock())
	resolver.memory.PutAdminEntry(userId, entry)

	bytes, err := json.Marshal(entry)
	if err == nil {
		err = resolver.persisted.SetItem(resolver.storageKey(userId), string(bytes))
	}
	if err != nil {
		resolver.storageFailed("set", err)
	}

	resolver.setFallback(isAdmin)
}

func (resolver *Resolver) setFallback(isAdmin bool) {
	resolver.mu.Lock()
	resolver.fallback = &isAdmin
	resolver.mu.Unlock()
}

func (resolver *Resolver) storageKey(userId string) string {
	return resolver.settings.StorageKeyPrefix + userId
}

func (resolver *Resolver) storageFailed(operation string, err error) {
	metrics.RecordStorageError(operation)
	resolver.log.Debugf("Persisted admin cache %v error. Skip. Reason: %v", operation, err)
}
