package filters

import (
	"context"
	"net/http"
	"time"

	"github.com/Alcereo/consign-gateway/pkg/common"
	log "github.com/sirupsen/logrus"
)

type SessionCachePort interface {
	PutSession(session *common.BrowserSession) error
	GetSession(cookie common.SessionCookie) (*common.BrowserSession, bool)
	RemoveSession(session *common.BrowserSession)
	CreateNewIdentifier() common.SessionId
	CreateNewCookie() common.SessionCookie
}

// SessionFilterHandler binds every request to a browser session cookie.
// The session id survives cookie renewal and scopes the admin cache of the tab.
type SessionFilterHandler struct {
	Name                   string
	next                   *common.RequestHandler
	SessionCookieName      string
	SessionCache           SessionCachePort
	CookieTTLHours         int
	RenewCookieBeforeHours int
	CookiePath             string
	CookieDomain           string
}

func CreateSessionFilter(
	name string,
	cookieName string,
	provider SessionCachePort,
	cookieTTLHours int,
	renewCookieBeforeHours int,
	cookiePath string,
	cookieDomain string,
) *SessionFilterHandler {
	return &SessionFilterHandler{
		Name:                   name,
		SessionCookieName:      cookieName,
		SessionCache:           provider,
		next:                   nil,
		CookieTTLHours:         cookieTTLHours,
		RenewCookieBeforeHours: renewCookieBeforeHours,
		CookieDomain:           cookieDomain,
		CookiePath:             cookiePath,
	}
}

func (filter *SessionFilterHandler) SetNext(nextHandler common.RequestHandler) {
	filter.next = &nextHandler
}

func (filter *SessionFilterHandler) Handle(log *log.Entry, writer http.ResponseWriter, request *http.Request) {
	log = log.WithField("filterName", filter.Name)

	session := filter.getOrCreateSession(log, writer, request)
	log = log.WithField("sessionId", session.Id)
	newContext := context.WithValue(request.Context(), common.SessionContextKey, session)
	newRequest := request.WithContext(newContext)

	if filter.next != nil {
		(*filter.next).Handle(log, writer, newRequest)
	} else {
		log.Debugf("Session filter: %v doesn't have next handler", filter.Name)
	}
}

func (filter *SessionFilterHandler) getOrCreateSession(log *log.Entry, writer http.ResponseWriter, request *http.Request) *common.BrowserSession {
	cookie, err := request.Cookie(filter.SessionCookieName)
	if err != nil || cookie == nil {
		log.Tracef("Cookie was not found in the request. Creating new session")
		return filter.createNewSession(log, writer, nil)
	}

	log.Tracef("Found session cookie in the request: %v", cookie.Value)
	session, found := filter.SessionCache.GetSession(common.SessionCookie(cookie.Value))
	if !found {
		log.Debugf("Session was not found in the cache. Creating new session.")
		return filter.createNewSession(log, writer, nil)
	}

	renewAfter := time.Now().Add(time.Hour * time.Duration(filter.RenewCookieBeforeHours))
	if !session.Expires.Before(renewAfter) {
		log.Tracef("Session is valid")
		return session
	}

	log.Tracef("Session is about to expire. Renewing cookie.")
	newSession := filter.createNewSession(log, writer, session)
	filter.SessionCache.RemoveSession(session)
	return newSession
}

func (filter *SessionFilterHandler) createNewSession(log *log.Entry, writer http.ResponseWriter, oldSession *common.BrowserSession) *common.BrowserSession {
	var id common.SessionId
	if oldSession == nil {
		id = filter.SessionCache.CreateNewIdentifier()
	} else {
		id = oldSession.Id
	}

	expires := time.Now().Add(time.Hour * time.Duration(filter.CookieTTLHours))
	session := &common.BrowserSession{
		Cookie:  filter.SessionCache.CreateNewCookie(),
		Id:      id,
		Expires: expires,
	}

	if err := filter.SessionCache.PutSession(session); err != nil {
		log.Warnf("Storing browser session error. Session will not survive this request. Reason: %v", err)
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     filter.SessionCookieName,
		Value:    string(session.Cookie),
		Expires:  expires,
		Path:     filter.CookiePath,
		Domain:   filter.CookieDomain,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return session
}

func ResolveSession(request *http.Request) (*common.BrowserSession, bool) {
	session, ok := request.Context().Value(common.SessionContextKey).(*common.BrowserSession)
	return session, ok && session != nil
}
