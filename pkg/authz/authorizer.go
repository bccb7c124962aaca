package authz

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/Alcereo/consign-gateway/pkg/metrics"
	"github.com/Alcereo/consign-gateway/pkg/race"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const InitializationErrorMessage = "Failed to load your account. Please try again."

// Authorizer owns the authorization state of one browser session.
type Authorizer struct {
	scope          string
	sessions       SessionProviderPort
	resolver       *Resolver
	sessionTimeout time.Duration
	log            *logrus.Entry

	initializing int32

	mu          sync.RWMutex
	state       common.AuthState
	ready       chan struct{}
	settled     bool
	unsubscribe func()
}

func NewAuthorizer(
	scope string,
	sessions SessionProviderPort,
	resolver *Resolver,
	sessionTimeout time.Duration,
	log *logrus.Entry,
) *Authorizer {
	return &Authorizer{
		scope:          scope,
		sessions:       sessions,
		resolver:       resolver,
		sessionTimeout: sessionTimeout,
		log:            log.WithField("scope", scope),
		ready:          make(chan struct{}),
		state:          common.AuthState{Loading: true},
	}
}

func (authorizer *Authorizer) State() common.AuthState {
	authorizer.mu.RLock()
	defer authorizer.mu.RUnlock()
	return authorizer.state
}

// Ready is closed once the state has been settled by Initialize or an auth event.
func (authorizer *Authorizer) Ready() <-chan struct{} {
	authorizer.mu.RLock()
	defer authorizer.mu.RUnlock()
	return authorizer.ready
}

// Settled reports whether the state can be served without initializing.
// A state that ended with an initialization error is retried on the next call.
func (authorizer *Authorizer) Settled() bool {
	authorizer.mu.RLock()
	defer authorizer.mu.RUnlock()
	return authorizer.settled && authorizer.state.Error == ""
}

func (authorizer *Authorizer) Resolver() *Resolver {
	return authorizer.resolver
}

// Subscribe registers OnAuthEvent on the event source for this scope.
func (authorizer *Authorizer) Subscribe(source AuthEventSourcePort) {
	unsubscribe := source.Subscribe(authorizer.scope, authorizer.OnAuthEvent)
	authorizer.mu.Lock()
	authorizer.unsubscribe = unsubscribe
	authorizer.mu.Unlock()
}

func (authorizer *Authorizer) Close() {
	authorizer.mu.Lock()
	unsubscribe := authorizer.unsubscribe
	authorizer.unsubscribe = nil
	authorizer.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Initialize resolves the current user and admin status. A call made while
// another one is in flight returns the current state and false. The
// resolution outlives the cancellation of ctx, only its values are used.
func (authorizer *Authorizer) Initialize(ctx context.Context) (common.AuthState, bool) {
	if !atomic.CompareAndSwapInt32(&authorizer.initializing, 0, 1) {
		authorizer.log.Debugf("Initialization already in progress. Skip.")
		return authorizer.State(), false
	}
	defer atomic.StoreInt32(&authorizer.initializing, 0)

	authorizer.mu.Lock()
	if authorizer.settled && authorizer.state.Error != "" {
		authorizer.log.Debugf("Retrying failed initialization")
		authorizer.ready = make(chan struct{})
		authorizer.settled = false
		authorizer.state = common.AuthState{Loading: true}
	}
	authorizer.mu.Unlock()

	state := authorizer.initialize(context.WithoutCancel(ctx))
	authorizer.settle(state)
	return state, true
}

func (authorizer *Authorizer) initialize(ctx context.Context) common.AuthState {
	const stage = "Initializing authorization error. Reason: %v"

	outcome := race.WithTimeout(ctx, authorizer.sessionTimeout, authorizer.sessions.GetCurrentUser)

	switch outcome.Kind {
	case race.Ok:
		user := outcome.Value
		if user == nil {
			return common.AuthState{}
		}
		isAdmin := authorizer.resolver.Resolve(ctx, user.Id, false)
		return common.AuthState{User: user, IsAdmin: isAdmin}

	case race.TimedOut:
		authorizer.log.Warnf("Session check timed out after %v. Recovering user from stored session.", authorizer.sessionTimeout)
		session, err := authorizer.sessions.GetCurrentSession(ctx)
		if err != nil {
			authorizer.log.Debugf("Stored session unavailable. Reason: %v", err)
			return common.AuthState{}
		}
		if session == nil {
			return common.AuthState{}
		}
		user := session.User
		return common.AuthState{User: &user, IsAdmin: authorizer.resolver.FallbackOrFalse()}

	default:
		if errors.Is(outcome.Err, common.ErrSessionMissing) {
			return common.AuthState{}
		}
		authorizer.log.Errorf(stage, outcome.Err)
		return common.AuthState{Error: InitializationErrorMessage}
	}
}

func (authorizer *Authorizer) OnAuthEvent(ctx context.Context, kind common.AuthEventKind, session *common.AuthSession) {
	log := authorizer.log.WithField("event", kind)
	metrics.RecordAuthEvent(string(kind))

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Auth state change handling error. Reason: %v", r)
			if session != nil {
				user := session.User
				authorizer.settle(common.AuthState{User: &user, IsAdmin: authorizer.resolver.FallbackOrFalse()})
			} else {
				authorizer.settle(common.AuthState{})
			}
		}
	}()

	if kind == common.SignedOut {
		log.Debugf("Signed out. Clearing admin caches.")
		authorizer.resolver.ClearAll()
		authorizer.settle(common.AuthState{})
		return
	}

	if session == nil {
		authorizer.settle(common.AuthState{})
		return
	}
	user := session.User

	switch kind {
	case common.SignedIn:
		authorizer.resolver.Invalidate(user.Id)
		isAdmin := authorizer.resolver.Resolve(ctx, user.Id, true)
		authorizer.settle(common.AuthState{User: &user, IsAdmin: isAdmin})
	default:
		if isAdmin, found := authorizer.resolver.Fallback(); found {
			authorizer.settle(common.AuthState{User: &user, IsAdmin: isAdmin})
			return
		}
		isAdmin := authorizer.resolver.Resolve(ctx, user.Id, false)
		authorizer.settle(common.AuthState{User: &user, IsAdmin: isAdmin})
	}
}

func (authorizer *Authorizer) settle(state common.AuthState) {
	state.Loading = false
	authorizer.mu.Lock()
	defer authorizer.mu.Unlock()
	authorizer.state = state
	if !authorizer.settled {
		authorizer.settled = true
		close(authorizer.ready)
	}
}
