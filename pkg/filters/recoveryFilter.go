package filters

import (
	"html/template"
	"net/http"
	"runtime/debug"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/sirupsen/logrus"
)

var applicationErrorPage = template.Must(template.New("application-error").Parse(`<!DOCTYPE html>
<html>
<head><title>Application error</title></head>
<body>
<h1>Application error</h1>
<p>Something went wrong while loading this page.</p>
<a href="{{.RetryUrl}}">Try again</a>
</body>
</html>
`))

// RecoveryFilter turns a panic anywhere down the chain into the generic
// application error page.
type RecoveryFilter struct {
	next *common.RequestHandler
	Name string
}

func NewRecoveryFilter(name string) *RecoveryFilter {
	return &RecoveryFilter{Name: name}
}

func (filter *RecoveryFilter) SetNext(nextHandler common.RequestHandler) {
	filter.next = &nextHandler
}

func (filter *RecoveryFilter) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("filterName", filter.Name).Errorf("Unexpected application error: %v\n%s", r, debug.Stack())
			writer.Header().Set("Content-Type", "text/html; charset=utf-8")
			writer.WriteHeader(500)
			_ = applicationErrorPage.Execute(writer, struct{ RetryUrl string }{request.URL.RequestURI()})
		}
	}()

	if filter.next != nil {
		(*filter.next).Handle(log, writer, request)
	} else {
		log.Debugf("Recovery filter: %v doesn't have next handler", filter.Name)
	}
}
