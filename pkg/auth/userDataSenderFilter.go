package auth

import (
	"net/http"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/Alcereo/consign-gateway/pkg/filters"
	log "github.com/sirupsen/logrus"
)

type UserDataSerializer interface {
	Serialize(state *common.AuthState) (string, error)
}

type userDataSenderFilter struct {
	next               *common.RequestHandler
	Name               string
	userDataSerializer UserDataSerializer
	userDataHeader     string
}

func NewUserDataSenderFilter(
	name string,
	userDataSerializer UserDataSerializer,
	userDataHeader string,
) *userDataSenderFilter {
	return &userDataSenderFilter{
		Name:               name,
		userDataSerializer: userDataSerializer,
		userDataHeader:     userDataHeader,
	}
}

func (filter *userDataSenderFilter) SetNext(handler common.RequestHandler) {
	filter.next = &handler
}

func (filter *userDataSenderFilter) Handle(log *log.Entry, writer http.ResponseWriter, request *http.Request) {
	log = log.WithField("filterName", filter.Name)
	enchantedRequest := filter.updateRequest(log, request)
	if filter.next != nil {
		(*filter.next).Handle(log, writer, enchantedRequest)
	} else {
		log.Debugf("User data sender filter: %v doesn't have next handler", filter.Name)
	}
}

func (filter *userDataSenderFilter) updateRequest(log *log.Entry, request *http.Request) *http.Request {
	// Never trust an identity header coming from the client.
	request.Header.Del(filter.userDataHeader)

	state := filters.ResolveAuthState(request)
	if state == nil || !state.Authenticated() {
		log.Tracef("No authenticated user in the request context. Skip user data sending.")
		return request
	}

	token, err := filter.userDataSerializer.Serialize(state)
	if err != nil {
		log.Errorf("User data serializing error. Skip user data sending. %+v", err)
		return request
	}

	request.Header.Set(filter.userDataHeader, token)
	return request
}
