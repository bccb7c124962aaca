package common

import (
	"net/http"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

type RequestHandler interface {
	Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request)
}

type RequestChainedHandler interface {
	Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request)
	SetNext(handler RequestHandler)
}

// HttpHandler starts a request-scoped log entry and hands the request to the chain.
func HttpHandler(handler RequestHandler) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		log := logrus.WithFields(logrus.Fields{
			"requestId": uuid.NewV4().String(),
			"path":      request.URL.Path,
		})
		handler.Handle(log, writer, request)
	}
}
