package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/Alcereo/consign-gateway/pkg/filters"
	"github.com/sirupsen/logrus"
)

type SessionParserPort interface {
	ParseSession(accessToken string) (*common.AuthSession, error)
}

type AuthEventPublisherPort interface {
	Publish(ctx context.Context, scope string, kind common.AuthEventKind, session *common.AuthSession) int
}

type AuthEventRequest struct {
	Event       common.AuthEventKind `json:"event"`
	AccessToken string               `json:"access_token"`
}

// authEventsHandler receives auth state changes reported by the browser and
// publishes them to the authorizer of the caller's browser session.
type authEventsHandler struct {
	registry  AuthorizerRegistryPort
	publisher AuthEventPublisherPort
	sessions  SessionParserPort
}

func NewAuthEventsHandler(registry AuthorizerRegistryPort, publisher AuthEventPublisherPort, sessions SessionParserPort) *authEventsHandler {
	return &authEventsHandler{
		registry:  registry,
		publisher: publisher,
		sessions:  sessions,
	}
}

func (handler *authEventsHandler) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	const stage = "Handling auth event error. Reason: %v"

	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	browserSession, found := filters.ResolveSession(request)
	if !found {
		log.Errorf(stage, "session not found in the request context")
		writer.WriteHeader(500)
		return
	}

	var event AuthEventRequest
	if err := json.NewDecoder(request.Body).Decode(&event); err != nil || event.Event == "" {
		log.Debugf(stage, "malformed event body")
		writer.WriteHeader(400)
		return
	}
	log = log.WithField("event", event.Event)

	var session *common.AuthSession
	if event.AccessToken != "" {
		parsed, err := handler.sessions.ParseSession(event.AccessToken)
		if err != nil {
			log.Debugf(stage, err)
		} else {
			session = parsed
		}
	}
	if event.Event == common.SignedIn && session == nil {
		log.Debugf(stage, "sign in event without a valid access token")
		writer.WriteHeader(401)
		return
	}

	authorizer := handler.registry.ForSession(browserSession.Id)
	listeners := handler.publisher.Publish(request.Context(), string(browserSession.Id), event.Event, session)
	log.Debugf("Auth event delivered to %d listeners", listeners)

	writeJson(log, writer, authorizer.State())
}

type authStateHandler struct{}

func NewAuthStateHandler() *authStateHandler {
	return &authStateHandler{}
}

func (*authStateHandler) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	state := filters.ResolveAuthState(request)
	if state == nil {
		log.Errorf("Auth state handler error. Reason: authorization filter required to be performed before state handler")
		writer.WriteHeader(500)
		return
	}
	writeJson(log, writer, state)
}

func writeJson(log *logrus.Entry, writer http.ResponseWriter, body interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(200)
	if err := json.NewEncoder(writer).Encode(body); err != nil {
		log.Warnf("Writing response body error. Reason: %v", err)
	}
}
