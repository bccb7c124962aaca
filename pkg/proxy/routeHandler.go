package proxy

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/sirupsen/logrus"
)

type logEntryKey struct{}

// ReverseProxyHandler forwards requests to the consign backend.
type ReverseProxyHandler struct {
	TargetAddress url.URL
	proxy         *httputil.ReverseProxy
}

func NewReverseProxyHandler(targetAddress url.URL) *ReverseProxyHandler {
	proxy := httputil.NewSingleHostReverseProxy(&targetAddress)
	proxy.ErrorHandler = func(writer http.ResponseWriter, request *http.Request, err error) {
		log, found := request.Context().Value(logEntryKey{}).(*logrus.Entry)
		if !found {
			log = logrus.NewEntry(logrus.StandardLogger())
		}
		log.Warnf("Proxying request to %v error. Reason: %v", targetAddress.Host, err)
		writer.WriteHeader(http.StatusBadGateway)
	}
	return &ReverseProxyHandler{
		TargetAddress: targetAddress,
		proxy:         proxy,
	}
}

func (router *ReverseProxyHandler) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	log.Tracef("Proxying request to %v", router.TargetAddress.String())
	request = request.WithContext(context.WithValue(request.Context(), logEntryKey{}, log))
	router.proxy.ServeHTTP(writer, request)
}
