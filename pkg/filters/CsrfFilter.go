package filters

import (
	"fmt"
	"net/http"

	"github.com/Alcereo/consign-gateway/pkg/common"
	"github.com/Alcereo/consign-gateway/pkg/crypt"
	"github.com/sirupsen/logrus"
	"gopkg.in/go-playground/validator.v9"
)

type methodsSet struct {
	methodsMap map[string]bool
}

func newMethodsSet(methods []string) *methodsSet {
	methodsMap := make(map[string]bool)
	for _, method := range methods {
		methodsMap[method] = true
	}
	return &methodsSet{methodsMap: methodsMap}
}

func (set *methodsSet) Contains(method string) bool {
	return set.methodsMap[method]
}

// CsrfFilter hands out a token bound to the browser session on safe methods
// and requires it back on unsafe ones, such as auth event posts.
type CsrfFilter struct {
	next           *common.RequestHandler
	Name           string           `validate:"required"`
	HeaderName     string           `validate:"required"`
	SafeMethodsSet *methodsSet      `validate:"required"`
	Encryptor      *crypt.Encryptor `validate:"required"`
}

var validate = validator.New()

func NewCsrfFilter(name string, headerName string, safeMethods []string, encryptorPrivateKey string) *CsrfFilter {
	if len(safeMethods) == 0 {
		safeMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	}
	filter := &CsrfFilter{
		Name:           name,
		HeaderName:     headerName,
		SafeMethodsSet: newMethodsSet(safeMethods),
		Encryptor:      crypt.NewEncryptor(encryptorPrivateKey),
	}
	if err := validate.Struct(filter); err != nil {
		panic(err.Error())
	}
	return filter
}

func (filter *CsrfFilter) SetNext(nextHandler common.RequestHandler) {
	filter.next = &nextHandler
}

func (filter *CsrfFilter) Handle(log *logrus.Entry, writer http.ResponseWriter, request *http.Request) {
	const stage = "Csrf filter error. Reason: %v"
	log = log.WithField("filterName", filter.Name)

	session, found := ResolveSession(request)
	if !found {
		log.Errorf(stage, "session not found. Session filter required to be performed before CSRF filter")
		writer.WriteHeader(500)
		return
	}

	if filter.SafeMethodsSet.Contains(request.Method) {
		token, err := filter.Encryptor.EncryptFact(string(session.Id))
		if err != nil {
			log.Errorf(stage, err)
			writer.WriteHeader(500)
			return
		}
		writer.Header().Set(filter.HeaderName, token)
	} else if err := filter.checkCsrfHeader(request.Header.Get(filter.HeaderName), session); err != nil {
		log.Debugf(stage, err)
		writer.WriteHeader(403)
		_, _ = fmt.Fprint(writer, err.Error())
		return
	}

	if filter.next != nil {
		(*filter.next).Handle(log, writer, request)
	} else {
		log.Debugf("Csrf filter: %v doesn't have next handler", filter.Name)
	}
}

func (filter *CsrfFilter) checkCsrfHeader(csrfHeader string, session *common.BrowserSession) error {
	if csrfHeader == "" {
		return fmt.Errorf("CSRF header %v is empty", filter.HeaderName)
	}
	value, err := filter.Encryptor.DecryptFact(csrfHeader)
	if err != nil {
		return fmt.Errorf("decrypt CSRF header error. Reason: %v", err)
	}
	if value != string(session.Id) {
		return fmt.Errorf("invalid CSRF token")
	}
	return nil
}
