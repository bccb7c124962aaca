package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
)

// ServiceStub answers with the first mock registered for the request url
// whose method, query and headers match.
type ServiceStub struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func (stub *ServiceStub) Hits(url string) int {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return stub.hits[url]
}

func (stub *ServiceStub) hit(url string) {
	stub.mu.Lock()
	stub.hits[url]++
	stub.mu.Unlock()
}

func CreateServiceStub(mocks []RequestMock) *ServiceStub {
	stub := &ServiceStub{hits: make(map[string]int)}
	mux := http.NewServeMux()

	byUrl := make(map[string][]RequestMock)
	var urls []string
	for _, mReg := range mocks {
		if _, found := byUrl[mReg.Request.Url]; !found {
			urls = append(urls, mReg.Request.Url)
		}
		byUrl[mReg.Request.Url] = append(byUrl[mReg.Request.Url], mReg)
	}

	for _, pattern := range urls {
		candidates := byUrl[pattern]
		mux.HandleFunc(pattern, func(writer http.ResponseWriter, request *http.Request) {
			stub.hit(request.URL.Path)

			var mismatch error
			for _, candidate := range candidates {
				if mismatch = candidate.Request.match(request); mismatch == nil {
					candidate.Response.write(writer)
					return
				}
			}
			writer.WriteHeader(400)
			_, _ = fmt.Fprint(writer, "Request not matched: "+mismatch.Error())
		})
	}

	stub.Server = httptest.NewServer(mux)
	return stub
}

type RequestMock struct {
	Request  Request
	Response Response
}

type Header struct {
	Name   string
	Regexp string
}

type Request struct {
	Method  string
	Url     string
	Query   map[string]string
	Headers []Header
}

func (expected Request) match(request *http.Request) error {
	if request.Method != expected.Method {
		return fmt.Errorf("request method '%v' expected. Actual: '%v'", expected.Method, request.Method)
	}

	query := request.URL.Query()
	for key, value := range expected.Query {
		if query.Get(key) != value {
			return fmt.Errorf("query param %v=%v not match with expected: %v", key, query.Get(key), value)
		}
	}

	for _, check := range expected.Headers {
		header := request.Header.Get(check.Name)
		matched, err := regexp.MatchString(check.Regexp, header)
		if err != nil {
			return fmt.Errorf("parsing header regexp error: %v. Detail: %v", check.Regexp, err)
		}
		if !matched {
			return fmt.Errorf("header not matched regexp. Header: %v. Regexp: %v", header, check.Regexp)
		}
	}
	return nil
}

type StringedBody interface {
	getString() ([]byte, error)
}

type Response struct {
	Status  int
	Headers map[string]string
	Body    StringedBody
}

func (response Response) write(writer http.ResponseWriter) {
	bodyBytes, err := response.Body.getString()
	if err != nil {
		writer.WriteHeader(500)
		_, _ = fmt.Fprint(writer, "Writing body error: "+err.Error())
		return
	}
	for header, value := range response.Headers {
		writer.Header().Add(header, value)
	}
	writer.WriteHeader(response.Status)
	_, _ = writer.Write(bodyBytes)
}

type JsonMap map[string]interface{}

func (s JsonMap) getString() ([]byte, error) {
	return json.Marshal(s)
}
