package integration_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	. "github.com/onsi/ginkgo"
	"golang.org/x/net/publicsuffix"
)

func unmarshalToMap(message []byte) map[string]interface{} {
	messageMap := make(map[string]interface{})
	if err := json.Unmarshal(message, &messageMap); err != nil {
		Fail(err.Error() + ": " + string(message))
	}
	return messageMap
}

func get(path string) (*http.Response, []byte) {
	return getByClient(buildClient(), path)
}

func getByClient(client *http.Client, path string) (*http.Response, []byte) {
	resp, err := client.Get(server.URL + path)
	if err != nil {
		Fail(err.Error())
	}
	message, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		Fail(err.Error())
	}
	return resp, message
}

type requestMutator func(r *http.Request) *http.Request

func postJsonByClient(client *http.Client, path string, body interface{}, mutator requestMutator) (*http.Response, []byte) {
	bytesValue, err := json.Marshal(body)
	if err != nil {
		Fail(err.Error())
	}
	request, err := http.NewRequest(
		"POST",
		server.URL+path,
		bytes.NewReader(bytesValue),
	)
	if err != nil {
		Fail(err.Error())
	}
	request.Header.Set("Content-Type", "application/json")
	if mutator != nil {
		request = mutator(request)
	}
	resp, err := client.Do(request)
	if err != nil {
		Fail(err.Error())
	}
	message, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		Fail(err.Error())
	}
	return resp, message
}

func withCsrf(token string) requestMutator {
	return func(req *http.Request) *http.Request {
		req.Header.Set(csrfHeader, token)
		return req
	}
}

func buildClient() *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		log.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

// signedInClient carries the identity provider access token the way the
// browser does, in a cookie next to the gateway session.
func signedInClient(accessToken string) *http.Client {
	return withAccessToken(buildClient(), accessToken)
}

func withAccessToken(client *http.Client, accessToken string) *http.Client {
	gatewayUrl, err := url.Parse(server.URL)
	if err != nil {
		Fail(err.Error())
	}
	client.Jar.SetCookies(gatewayUrl, []*http.Cookie{{Name: tokenCookie, Value: accessToken, Path: "/"}})
	return client
}
