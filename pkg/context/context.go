package context

import (
	goctx "context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Alcereo/consign-gateway/pkg/auth"
	"github.com/Alcereo/consign-gateway/pkg/authz"
	"github.com/Alcereo/consign-gateway/pkg/cache"
	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/Alcereo/consign-gateway/pkg/filters"
	"github.com/Alcereo/consign-gateway/pkg/identity"
	"github.com/Alcereo/consign-gateway/pkg/privilege"
	"github.com/Alcereo/consign-gateway/pkg/proxy"
	"github.com/Alcereo/consign-gateway/pkg/serializers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"gopkg.in/go-playground/validator.v9"
)

const (
	defaultAdminTable         = "admin_users"
	defaultRegistryExpiration = time.Hour
	defaultUserDataTTL        = time.Minute
)

var validate = validator.New()

type scopedStoreProvider interface {
	ForScope(scope string) authz.ScopedStorePort
}

type context struct {
	sessionCacheAdapters map[string]filters.SessionCachePort
	scopedStoreAdapters  map[string]scopedStoreProvider
	router               *mux.Router
	broker               *identity.Broker
	tokens               *identity.TokenParser
	registry             *authz.Registry
	csrfKey              string
	jwtSecret            string
}

func NewContext() *context {
	return &context{
		sessionCacheAdapters: make(map[string]filters.SessionCachePort),
		scopedStoreAdapters:  make(map[string]scopedStoreProvider),
		router:               mux.NewRouter(),
		broker:               identity.NewBroker(),
	}
}

func (ctx *context) SetupCache(adapters []CacheAdapter) {
	for _, adapter := range adapters {
		switch adapter.Type {
		case GoCache:
			provider := cache.NewGoCacheAdapter(
				adapter.ExpirationTimeHours,
				adapter.EvictScheduleTimeHours,
			)
			// GoCache can be both
			ctx.sessionCacheAdapters[adapter.Identifier] = provider
			ctx.scopedStoreAdapters[adapter.Identifier] = provider
		case Redis:
			options := cache.RedisOptions{
				Address:   adapter.Address,
				Password:  adapter.Password,
				DB:        adapter.DB,
				EnableTLS: adapter.EnableTLS,
			}
			if err := validate.Struct(options); err != nil {
				panic(fmt.Errorf("Redis cache adapter '%v' misconfigured: %v.\n", adapter.Identifier, err))
			}
			ctx.scopedStoreAdapters[adapter.Identifier] = cache.NewRedisAdapter(
				cache.NewRedisClient(options),
				adapter.ExpirationTimeHours,
			)
		default:
			panic(fmt.Errorf("Undefined cache adapter type: %v.\n", adapter.Type))
		}
	}
}

// SetupAuthorization builds the identity provider, the privilege store and
// the registry of per-session authorizers. It must run before routers that
// use authorization are set up.
func (ctx *context) SetupAuthorization(
	runCtx goctx.Context,
	identityConfig Identity,
	storeConfig PrivilegeStore,
	settings Authorization,
	csrfKey string,
) error {
	ctx.csrfKey = csrfKey
	ctx.jwtSecret = identityConfig.JwtSecret
	ctx.tokens = identity.NewTokenParser(identityConfig.JwtSecret)
	sessions := identity.NewGoTrueProvider(identityConfig.Url, identityConfig.ApiKey, ctx.tokens)

	store, err := buildPrivilegeStore(runCtx, storeConfig)
	if err != nil {
		return err
	}

	persisted := ctx.scopedStoreAdapters[settings.CacheAdapterIdentifier]
	if persisted == nil {
		return errors.Errorf("scoped store cache adapter with identifier '%v' not found", settings.CacheAdapterIdentifier)
	}

	resolverSettings := authz.DefaultResolverSettings()
	if settings.CacheTTL > 0 {
		resolverSettings.CacheTTL = settings.CacheTTL
	}
	if settings.LookupTimeout > 0 {
		resolverSettings.LookupTimeout = settings.LookupTimeout
	}
	if settings.StorageKeyPrefix != "" {
		resolverSettings.StorageKeyPrefix = settings.StorageKeyPrefix
	}
	sessionTimeout := authz.DefaultSessionTimeout
	if settings.SessionTimeout > 0 {
		sessionTimeout = settings.SessionTimeout
	}
	expiration := defaultRegistryExpiration
	if settings.RegistryExpiration > 0 {
		expiration = settings.RegistryExpiration
	}

	log.Debugf(
		"Authorization configured. Cache TTL: %v; lookup timeout: %v; session timeout: %v; store: %v",
		resolverSettings.CacheTTL,
		resolverSettings.LookupTimeout,
		sessionTimeout,
		storeConfig.Type,
	)

	ctx.registry = authz.NewRegistry(expiration, expiration, func(scope string) *authz.Authorizer {
		entry := log.WithField("component", "authorizer")
		resolver := authz.NewResolver(cache.NewMemoryAdminTier(), persisted.ForScope(scope), store, resolverSettings, entry)
		return authz.NewAuthorizer(scope, sessions, resolver, sessionTimeout, entry)
	}, ctx.broker)
	return nil
}

func buildPrivilegeStore(runCtx goctx.Context, config PrivilegeStore) (authz.PrivilegeStorePort, error) {
	table := config.Table
	if table == "" {
		table = defaultAdminTable
	}
	switch config.Type {
	case Postgres:
		pool, err := privilege.NewPostgresPool(runCtx, config.DatabaseUrl)
		if err != nil {
			return nil, err
		}
		return privilege.NewPostgresStore(pool, table), nil
	case PostgREST:
		return privilege.NewRestStore(config.Url, config.ApiKey, table), nil
	default:
		return nil, errors.Errorf("undefined privilege store type: %v", config.Type)
	}
}

func (ctx *context) SetupRouters(routers []Router) {
	for _, router := range routers {
		var handler common.RequestHandler
		switch router.Type {
		case ReverseProxy:
			log.Debugf(
				"Adding Reverse proxy router. Pattern: %s; Target: %s",
				router.Pattern,
				router.TargetUrl,
			)
			targetUrl, err := url.Parse(router.TargetUrl)
			if err != nil {
				panic(fmt.Errorf("Reverse proxy target url '%v' error: %v.\n", router.TargetUrl, err))
			}
			handler = proxy.NewReverseProxyHandler(*targetUrl)
		case AuthEvents:
			log.Debugf("Adding auth events endpoint. Pattern: %s;", router.Pattern)
			handler = auth.NewAuthEventsHandler(ctx.requireRegistry(), ctx.broker, ctx.tokens)
		case AuthState:
			log.Debugf("Adding auth state endpoint. Pattern: %s;", router.Pattern)
			handler = auth.NewAuthStateHandler()
		case Metrics:
			log.Debugf("Adding metrics endpoint. Pattern: %s;", router.Pattern)
			handler = &httpHandlerAdapter{handler: promhttp.Handler()}
		default:
			panic(fmt.Errorf("Undefined router type: %v.\n", router.Type))
		}

		rootFilterHandler := ctx.BuildFilterHandlers(router.Filters, handler)
		ctx.handle(router.Pattern, common.HttpHandler(rootFilterHandler))
	}
}

// Patterns ending with a slash match the whole subtree and the subtree root
// without the slash. Routes are matched in the configured order.
func (ctx *context) handle(pattern string, handler http.Handler) {
	if strings.HasSuffix(pattern, "/") {
		if root := strings.TrimSuffix(pattern, "/"); root != "" {
			ctx.router.Handle(root, handler)
		}
		ctx.router.PathPrefix(pattern).Handler(handler)
		return
	}
	ctx.router.Handle(pattern, handler)
}

func (ctx *context) BuildFilterHandlers(filters []Filter, mainHandler common.RequestHandler) (rootHandler common.RequestHandler) {
	if filters == nil {
		return mainHandler
	}

	currentHandler := mainHandler

	for i := len(filters) - 1; i >= 0; i-- {
		filter := filters[i]

		handler := ctx.BuildFilterHandler(filter)

		if handler == nil {
			continue
		}

		handler.SetNext(currentHandler)
		currentHandler = handler
	}

	return currentHandler
}

func (ctx *context) BuildFilterHandler(filter Filter) common.RequestChainedHandler {
	switch filter.Type {
	case RecoveryFilter:
		log.Debugf("Adding recovery filter. Name: %s", filter.Name)
		return filters.NewRecoveryFilter(filter.Name)
	case LogFilter:
		log.Debugf("Adding Log filter. Name: %s", filter.Name)
		handler := filters.CreateLogFilter(filter.Name, filter.Template)
		if handler == nil {
			return nil
		}
		return handler
	case SessionFilter:
		log.Debugf("Adding session filter. Name: %s", filter.Name)
		cacheAdapter := ctx.sessionCacheAdapters[filter.CacheAdapterIdentifier]
		if cacheAdapter == nil {
			panic(fmt.Errorf("Session cache adapter with identifier '%v' not found.\n", filter.CacheAdapterIdentifier))
		}
		return filters.CreateSessionFilter(
			filter.Name,
			filter.CookieName,
			cacheAdapter,
			filter.CookieTTLHours,
			filter.CookieRenewBeforeHours,
			filter.CookiePath,
			filter.CookieDomain,
		)
	case CsrfFilter:
		log.Debugf("Adding csrf filter. Name: %s", filter.Name)
		return filters.NewCsrfFilter(
			filter.Name,
			filter.HeaderName,
			filter.SafeMethods,
			ctx.csrfKey,
		)
	case AuthorizationFilter:
		log.Debugf("Adding authorization filter. Name: %s", filter.Name)
		return auth.NewAuthorizationFilter(
			ctx.requireRegistry(),
			ctx.tokens,
			filter.Name,
			filter.AccessTokenCookie,
		)
	case RouteGateFilter:
		log.Debugf("Adding route gate filter. Name: %s; access: %s", filter.Name, filter.Access)
		return auth.NewRouteGateFilter(
			filter.Name,
			auth.Access(filter.Access),
			filter.SignInUrl,
			filter.UserHomeUrl,
			filter.AdminHomeUrl,
		)
	case UserDataSenderFilter:
		log.Debugf("Adding user data sending filter. Name: %s", filter.Name)
		serializer := ctx.buildUserDataSerializer(&filter)
		return auth.NewUserDataSenderFilter(
			filter.Name,
			serializer,
			filter.UserDataHeader,
		)
	default:
		panic(fmt.Errorf("Undefined filter type: %v.\n", filter.Type))
	}
}

// The upstream header is signed with the identity secret unless the
// serializer has its own.
func (ctx *context) buildUserDataSerializer(filter *Filter) auth.UserDataSerializer {
	switch filter.UserDataTypeSerializer.Type {
	case JwtUserDataSerializer:
		secret := filter.UserDataTypeSerializer.Secret
		if secret == "" {
			secret = ctx.jwtSecret
		}
		if secret == "" {
			panic(fmt.Errorf("User data serializer secret is not configured for filter: %v.\n", filter.Name))
		}
		ttl := defaultUserDataTTL
		if filter.UserDataTypeSerializer.TTLMinutes > 0 {
			ttl = time.Minute * time.Duration(filter.UserDataTypeSerializer.TTLMinutes)
		}
		return serializers.NewJwtUserDataSerializer(
			secret,
			ttl,
		)
	default:
		panic(fmt.Errorf("Undefined user data serializer type: %v.\n", filter.UserDataTypeSerializer.Type))
	}
}

func (ctx *context) requireRegistry() *authz.Registry {
	if ctx.registry == nil {
		panic(fmt.Errorf("Authorization is not configured. SetupAuthorization required before authorization routers and filters.\n"))
	}
	return ctx.registry
}

func (ctx *context) Handler() http.Handler {
	return ctx.router
}

func (ctx *context) BuildServer(port int) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%v", port),
		Handler: ctx.router,
	}
}

type httpHandlerAdapter struct {
	handler http.Handler
}

func (adapter *httpHandlerAdapter) Handle(log *log.Entry, writer http.ResponseWriter, request *http.Request) {
	adapter.handler.ServeHTTP(writer, request)
}
