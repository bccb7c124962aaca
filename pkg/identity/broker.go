package identity

import (
	"context"
	"sync"

	"github.com/Alcereo/consign-gateway/pkg/authz"
	"github.com/Alcereo/consign-gateway/pkg/common"
)

// Broker fans auth state changes out to the listeners of one browser session scope.
type Broker struct {
	mu        sync.Mutex
	nextId    uint64
	listeners map[string]map[uint64]authz.AuthEventListener
}

func NewBroker() *Broker {
	return &Broker{
		listeners: make(map[string]map[uint64]authz.AuthEventListener),
	}
}

func (broker *Broker) Subscribe(scope string, listener authz.AuthEventListener) func() {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	broker.nextId++
	id := broker.nextId
	if broker.listeners[scope] == nil {
		broker.listeners[scope] = make(map[uint64]authz.AuthEventListener)
	}
	broker.listeners[scope][id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			broker.mu.Lock()
			defer broker.mu.Unlock()
			delete(broker.listeners[scope], id)
			if len(broker.listeners[scope]) == 0 {
				delete(broker.listeners, scope)
			}
		})
	}
}

// Publish delivers the event synchronously and returns the number of listeners reached.
func (broker *Broker) Publish(ctx context.Context, scope string, kind common.AuthEventKind, session *common.AuthSession) int {
	broker.mu.Lock()
	listeners := make([]authz.AuthEventListener, 0, len(broker.listeners[scope]))
	for _, listener := range broker.listeners[scope] {
		listeners = append(listeners, listener)
	}
	broker.mu.Unlock()

	for _, listener := range listeners {
		listener(ctx, kind, session)
	}
	return len(listeners)
}
