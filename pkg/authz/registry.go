package authz

import (
	"sync"
	"time"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/Alcereo/consign-gateway/pkg/metrics"
	"github.com/patrickmn/go-cache"
)

type AuthorizerFactory func(scope string) *Authorizer

// Registry keeps one Authorizer per browser session. Authorizers that were
// not touched for the expiration time are evicted and closed.
type Registry struct {
	authorizers *cache.Cache
	factory     AuthorizerFactory
	source      AuthEventSourcePort
	mu          sync.Mutex
}

func NewRegistry(expiration time.Duration, cleanupInterval time.Duration, factory AuthorizerFactory, source AuthEventSourcePort) *Registry {
	authorizers := cache.New(expiration, cleanupInterval)
	authorizers.OnEvicted(func(_ string, value interface{}) {
		metrics.ActiveAuthorizers.Dec()
		value.(*Authorizer).Close()
	})
	return &Registry{
		authorizers: authorizers,
		factory:     factory,
		source:      source,
	}
}

func (registry *Registry) ForSession(id common.SessionId) *Authorizer {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	key := string(id)
	if value, found := registry.authorizers.Get(key); found {
		authorizer := value.(*Authorizer)
		registry.authorizers.SetDefault(key, authorizer)
		return authorizer
	}

	authorizer := registry.factory(key)
	if registry.source != nil {
		authorizer.Subscribe(registry.source)
	}
	registry.authorizers.SetDefault(key, authorizer)
	metrics.ActiveAuthorizers.Inc()
	return authorizer
}

func (registry *Registry) Discard(id common.SessionId) {
	registry.authorizers.Delete(string(id))
}

func (registry *Registry) Count() int {
	return registry.authorizers.ItemCount()
}
