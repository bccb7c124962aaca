package authz

import (
	"context"

	"github.com/Alcereo/consign-gateway/pkg/common"
)

// AdminCachePort is the in-memory tier. Entries live as long as the authorizer.
type AdminCachePort interface {
	FindAdminEntry(userId string) (common.AdminCacheEntry, bool)
	PutAdminEntry(userId string, entry common.AdminCacheEntry)
	RemoveAdminEntry(userId string)
	FlushAdminEntries()
}

// ScopedStorePort is a key-value store scoped to one browser session.
// Any call may fail when the backing storage is unavailable.
type ScopedStorePort interface {
	GetItem(key string) (string, bool, error)
	SetItem(key string, value string) error
	RemoveItem(key string) error
	Keys() ([]string, error)
}

type PrivilegeStorePort interface {
	LookupAdmin(ctx context.Context, userId string) (*common.AdminUser, error)
}

type SessionProviderPort interface {
	GetCurrentUser(ctx context.Context) (*common.User, error)
	GetCurrentSession(ctx context.Context) (*common.AuthSession, error)
}

type AuthEventListener func(ctx context.Context, kind common.AuthEventKind, session *common.AuthSession)

type AuthEventSourcePort interface {
	Subscribe(scope string, listener AuthEventListener) (unsubscribe func())
}
