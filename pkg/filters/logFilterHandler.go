package filters

import (
	"bytes"
	"net/http"
	templ "text/template"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/sirupsen/logrus"
)

type LogFilterHandler struct {
	next     *common.RequestHandler
	template *templ.Template
	Name     string
}

func (filter *LogFilterHandler) SetNext(nextHandler common.RequestHandler) {
	filter.next = &nextHandler
}

func (filter *LogFilterHandler) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	data := struct {
		Request   *http.Request
		Filter    *LogFilterHandler
		AuthState *common.AuthState
	}{
		request,
		filter,
		ResolveAuthState(request),
	}
	var tpl bytes.Buffer
	if err := filter.template.Execute(&tpl, data); err != nil {
		log.Warnf("Log filter error: %v. Template error: %v", filter.Name, err)
	} else {
		log.Info(tpl.String())
	}

	if filter.next != nil {
		(*filter.next).Handle(log, writer, request)
	} else {
		log.Debugf("Log filter error: %v. Next handler is empty", filter.Name)
	}
}

// Factory

func CreateLogFilter(name string, template string) *LogFilterHandler {
	parse, err := templ.New(name).Parse(template)
	if err != nil {
		logrus.Warnf("Log filter template error: %v. Skip filter", err)
		return nil
	}
	return &LogFilterHandler{
		Name:     name,
		template: parse,
	}
}

func ResolveAuthState(request *http.Request) *common.AuthState {
	state, _ := request.Context().Value(common.AuthStateContextKey).(*common.AuthState)
	return state
}
