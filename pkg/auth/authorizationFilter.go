package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/Alcereo/consign-gateway/pkg/authz"
	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/Alcereo/consign-gateway/pkg/filters"
	"github.com/Alcereo/consign-gateway/pkg/identity"
	log "github.com/sirupsen/logrus"
)

type AuthorizerRegistryPort interface {
	ForSession(id common.SessionId) *authz.Authorizer
}

// authorizationFilter resolves {user, isAdmin} for the browser session and
// puts it into the request context. The first request of a session runs the
// initialization, concurrent ones wait for it to settle. Every request's
// access token must belong to the resolved user, otherwise the session is
// signed in again or signed out.
type authorizationFilter struct {
	next              *common.RequestHandler
	registry          AuthorizerRegistryPort
	sessions          SessionParserPort
	Name              string
	accessTokenCookie string
}

func NewAuthorizationFilter(registry AuthorizerRegistryPort, sessions SessionParserPort, name string, accessTokenCookie string) *authorizationFilter {
	return &authorizationFilter{
		registry:          registry,
		sessions:          sessions,
		Name:              name,
		accessTokenCookie: accessTokenCookie,
	}
}

func (filter *authorizationFilter) SetNext(handler common.RequestHandler) {
	filter.next = &handler
}

func (filter *authorizationFilter) Handle(log *log.Entry, writer http.ResponseWriter, request *http.Request) {
	log = log.WithField("filterName", filter.Name)

	session, found := filters.ResolveSession(request)
	if !found {
		log.Errorf("Authorization filter error. Reason: session not found. Session filter required to be performed before authorization filter")
		writer.WriteHeader(500)
		return
	}

	ctx := request.Context()
	token := filter.accessToken(request)
	if token != "" {
		ctx = identity.WithAccessToken(ctx, token)
	}

	authorizer := filter.registry.ForSession(session.Id)
	state := filter.resolveState(ctx, log, authorizer)
	if state.Loading {
		log.Debugf("Request cancelled while authorization was loading")
		return
	}
	state = filter.matchToken(ctx, log, authorizer, token, state)
	log.Debugf("Authorization state resolved. User: %v; admin: %v", state.User, state.IsAdmin)

	newRequest := request.WithContext(context.WithValue(ctx, common.AuthStateContextKey, &state))
	if filter.next != nil {
		(*filter.next).Handle(log, writer, newRequest)
	} else {
		log.Debugf("Authorization filter: %v doesn't have next handler", filter.Name)
	}
}

func (filter *authorizationFilter) resolveState(ctx context.Context, log *log.Entry, authorizer *authz.Authorizer) common.AuthState {
	if authorizer.Settled() {
		return authorizer.State()
	}

	state, started := authorizer.Initialize(ctx)
	if started {
		return state
	}

	log.Tracef("Waiting for in-flight authorization initialization")
	select {
	case <-authorizer.Ready():
		return authorizer.State()
	case <-ctx.Done():
		return authorizer.State()
	}
}

// matchToken reports a token for another user as a sign in and a missing or
// invalid token of a signed in session as a sign out.
func (filter *authorizationFilter) matchToken(
	ctx context.Context,
	log *log.Entry,
	authorizer *authz.Authorizer,
	token string,
	state common.AuthState,
) common.AuthState {
	if state.Error != "" {
		return state
	}

	var session *common.AuthSession
	if token != "" {
		parsed, err := filter.sessions.ParseSession(token)
		if err != nil {
			log.Debugf("Access token rejected. Reason: %v", err)
		} else {
			session = parsed
		}
	}

	ctx = context.WithoutCancel(ctx)
	switch {
	case session == nil && state.Authenticated():
		log.Debugf("Access token of user %v is gone. Signing out.", state.User.Id)
		authorizer.OnAuthEvent(ctx, common.SignedOut, nil)
	case session != nil && (!state.Authenticated() || state.User.Id != session.User.Id):
		log.Debugf("Access token belongs to user %v. Signing in.", session.User.Id)
		authorizer.OnAuthEvent(ctx, common.SignedIn, session)
	default:
		return state
	}
	return authorizer.State()
}

func (filter *authorizationFilter) accessToken(request *http.Request) string {
	header := request.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if filter.accessTokenCookie == "" {
		return ""
	}
	cookie, err := request.Cookie(filter.accessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}
