package auth

import (
	"fmt"
	"net/http"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/Alcereo/consign-gateway/pkg/filters"
	log "github.com/sirupsen/logrus"
)

type Access string

const (
	PublicAccess Access = "public"
	GuestAccess  Access = "guest"
	UserAccess   Access = "user"
	AdminAccess  Access = "admin"
)

// routeGateFilter sends each visitor to the part of the application that
// matches the resolved authorization state.
type routeGateFilter struct {
	next         *common.RequestHandler
	Name         string
	access       Access
	signInUrl    string
	userHomeUrl  string
	adminHomeUrl string
}

func NewRouteGateFilter(name string, access Access, signInUrl string, userHomeUrl string, adminHomeUrl string) *routeGateFilter {
	switch access {
	case PublicAccess, GuestAccess, UserAccess, AdminAccess:
	default:
		panic(fmt.Errorf("Undefined route access: %v.\n", access))
	}
	return &routeGateFilter{
		Name:         name,
		access:       access,
		signInUrl:    signInUrl,
		userHomeUrl:  userHomeUrl,
		adminHomeUrl: adminHomeUrl,
	}
}

func (filter *routeGateFilter) SetNext(handler common.RequestHandler) {
	filter.next = &handler
}

func (filter *routeGateFilter) Handle(log *log.Entry, writer http.ResponseWriter, request *http.Request) {
	log = log.WithField("filterName", filter.Name)

	state := filters.ResolveAuthState(request)
	if state == nil {
		log.Errorf("Route gate error. Reason: authorization state not found. Authorization filter required to be performed before route gate")
		writer.WriteHeader(500)
		return
	}

	if target := filter.redirectTarget(state); target != "" && target != request.URL.Path {
		log.Debugf("Access %v denied for user: %v; admin: %v. Redirecting to %v", filter.access, state.User, state.IsAdmin, target)
		http.Redirect(writer, request, target, http.StatusFound)
		return
	}

	if filter.next != nil {
		(*filter.next).Handle(log, writer, request)
	} else {
		log.Debugf("Route gate filter: %v doesn't have next handler", filter.Name)
	}
}

func (filter *routeGateFilter) redirectTarget(state *common.AuthState) string {
	switch filter.access {
	case GuestAccess:
		if state.Authenticated() {
			return filter.home(state)
		}
	case UserAccess:
		if !state.Authenticated() {
			return filter.signInUrl
		}
		if state.IsAdmin && filter.adminHomeUrl != "" {
			return filter.adminHomeUrl
		}
	case AdminAccess:
		if !state.Authenticated() {
			return filter.signInUrl
		}
		if !state.IsAdmin {
			return filter.userHomeUrl
		}
	}
	return ""
}

func (filter *routeGateFilter) home(state *common.AuthState) string {
	if state.IsAdmin && filter.adminHomeUrl != "" {
		return filter.adminHomeUrl
	}
	return filter.userHomeUrl
}
