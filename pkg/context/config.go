package context

import "time"

type RouterType string

const (
	ReverseProxy RouterType = "ReverseProxy"
	AuthEvents   RouterType = "AuthEvents"
	AuthState    RouterType = "AuthState"
	Metrics      RouterType = "Metrics"
)

type FilterType string

const (
	RecoveryFilter       FilterType = "RecoveryFilter"
	LogFilter            FilterType = "LogFilter"
	SessionFilter        FilterType = "SessionFilter"
	CsrfFilter           FilterType = "CsrfFilter"
	AuthorizationFilter  FilterType = "AuthorizationFilter"
	RouteGateFilter      FilterType = "RouteGateFilter"
	UserDataSenderFilter FilterType = "UserDataSenderFilter"
)

type CacheAdapterType string

const (
	GoCache CacheAdapterType = "GoCache"
	Redis   CacheAdapterType = "Redis"
)

type CacheAdapter struct {
	Identifier             string
	Type                   CacheAdapterType
	ExpirationTimeHours    int    `mapstructure:"evict-time-hours"`
	EvictScheduleTimeHours int    `mapstructure:"evict-schedule-time-hours"`
	Address                string `yaml:",omitempty"`
	Password               string `yaml:"-"`
	DB                     int    `yaml:",omitempty"`
	EnableTLS              bool   `mapstructure:"enable-tls" yaml:"enable-tls,omitempty"`
}

type PrivilegeStoreType string

const (
	Postgres  PrivilegeStoreType = "Postgres"
	PostgREST PrivilegeStoreType = "PostgREST"
)

type PrivilegeStore struct {
	Type        PrivilegeStoreType
	Url         string
	DatabaseUrl string `mapstructure:"database-url" yaml:"-"`
	ApiKey      string `mapstructure:"api-key" yaml:"-"`
	Table       string
}

type Identity struct {
	Url       string
	ApiKey    string `mapstructure:"api-key" yaml:"-"`
	JwtSecret string `mapstructure:"jwt-secret" yaml:"-"`
}

type Authorization struct {
	CacheTTL               time.Duration `mapstructure:"cache-ttl" yaml:"cache-ttl"`
	LookupTimeout          time.Duration `mapstructure:"lookup-timeout" yaml:"lookup-timeout"`
	SessionTimeout         time.Duration `mapstructure:"session-timeout" yaml:"session-timeout"`
	StorageKeyPrefix       string        `mapstructure:"storage-key-prefix" yaml:"storage-key-prefix"`
	CacheAdapterIdentifier string        `mapstructure:"cache-adapter-identifier" yaml:"cache-adapter-identifier"`
	RegistryExpiration     time.Duration `mapstructure:"registry-expiration" yaml:"registry-expiration"`
}

type UserDataSerializerType string

const (
	JwtUserDataSerializer UserDataSerializerType = "JwtUserDataSerializer"
)

type UserDataSerializer struct {
	Type       UserDataSerializerType
	Secret     string `yaml:"-"`
	TTLMinutes int    `mapstructure:"ttl-minutes" yaml:"ttl-minutes"`
}

type Filter struct {
	Type                   FilterType
	Name                   string
	Template               string
	CacheAdapterIdentifier string             `mapstructure:"cache-adapter-identifier"`
	CookieDomain           string             `mapstructure:"cookie-domain"`
	CookiePath             string             `mapstructure:"cookie-path"`
	CookieName             string             `mapstructure:"cookie-name"`
	CookieTTLHours         int                `mapstructure:"cookie-ttl-hours"`
	CookieRenewBeforeHours int                `mapstructure:"cookie-renew-before-hours"`
	UserDataTypeSerializer UserDataSerializer `mapstructure:"user-data-serializer"`
	UserDataHeader         string             `mapstructure:"user-data-header"`
	HeaderName             string             `mapstructure:"header-name"`
	SafeMethods            []string           `mapstructure:"safe-methods"`
	AccessTokenCookie      string             `mapstructure:"access-token-cookie"`
	Access                 string
	SignInUrl              string `mapstructure:"sign-in-url"`
	UserHomeUrl            string `mapstructure:"user-home-url"`
	AdminHomeUrl           string `mapstructure:"admin-home-url"`
}

type Router struct {
	TargetUrl string `mapstructure:"target-url"`
	Type      RouterType
	Pattern   string
	Filters   []Filter
}

type LogLevel string

const (
	Debug LogLevel = "debug"
	Trace LogLevel = "trace"
	Info  LogLevel = "info"
)

type ProxyConfiguration struct {
	LogLevel       LogLevel `mapstructure:"log-level"`
	CsrfKey        string   `mapstructure:"csrf-key" yaml:"-"`
	Identity       Identity
	PrivilegeStore PrivilegeStore `mapstructure:"privilege-store"`
	Authorization  Authorization
	Routers        []Router
	CacheAdapters  []CacheAdapter `mapstructure:"cache-adapters"`
}
