package common

import "time"

// Browser session

const SessionContextKey string = "SessionContextKey"

type BrowserSession struct {
	Id      SessionId
	Cookie  SessionCookie
	Expires time.Time
}

type SessionId string
type SessionCookie string

// Identity

type User struct {
	Id    string `json:"id"`
	Email string `json:"email"`
}

// AuthSession is an authenticated principal reported by the identity provider.
type AuthSession struct {
	User            User
	AccessToken     string
	AuthenticatedAt time.Time
}

type AuthEventKind string

const (
	SignedIn       AuthEventKind = "SIGNED_IN"
	SignedOut      AuthEventKind = "SIGNED_OUT"
	TokenRefreshed AuthEventKind = "TOKEN_REFRESHED"
	UserUpdated    AuthEventKind = "USER_UPDATED"
	InitialSession AuthEventKind = "INITIAL_SESSION"
)

// Authorization state

const AuthStateContextKey string = "AuthStateContextKey"

type AuthState struct {
	User    *User  `json:"user"`
	IsAdmin bool   `json:"isAdmin"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

func (state AuthState) Authenticated() bool {
	return state.User != nil
}

// Admin cache

type AdminCacheEntry struct {
	IsAdmin   bool  `json:"isAdmin"`
	Timestamp int64 `json:"timestamp"`
}

func NewAdminCacheEntry(isAdmin bool, now time.Time) AdminCacheEntry {
	return AdminCacheEntry{
		IsAdmin:   isAdmin,
		Timestamp: now.UnixMilli(),
	}
}

// FreshAt reports whether the entry is younger than ttl at the given moment.
func (entry AdminCacheEntry) FreshAt(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-entry.Timestamp < ttl.Milliseconds()
}

// Privilege store

type AdminUser struct {
	UserId    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
