package integration_test

import (
	"net/http"

	. "github.com/Alcereo/consign-gateway/integration/utils"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Auth events", func() {

	var client *http.Client
	var csrfToken string

	BeforeEach(func() {
		client = buildClient()
		resp, message := getByClient(client, "/auth/state")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("user", BeNil()))

		csrfToken = resp.Header.Get(csrfHeader)
		Expect(csrfToken).NotTo(BeEmpty(), "CSRF token not found in header: %v", csrfHeader)
	})

	It("sign in resolves admin status for the session", func() {
		resp, message := postJsonByClient(client, "/auth/events", JsonMap{
			"event":        "SIGNED_IN",
			"access_token": adminToken,
		}, withCsrf(csrfToken))
		Expect(resp.StatusCode).To(Equal(200))

		state := unmarshalToMap(message)
		Expect(state).To(HaveKeyWithValue("user", HaveKeyWithValue("id", "admin-1")))
		Expect(state).To(HaveKeyWithValue("isAdmin", true))

		resp, message = getByClient(withAccessToken(client, adminToken), "/admin/panel")
		Expect(resp.Request.URL.Path).To(Equal("/admin/panel"))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("page", "admin-panel"))
	})

	It("access token of another user replaces the session identity", func() {
		resp, _ := postJsonByClient(client, "/auth/events", JsonMap{
			"event":        "SIGNED_IN",
			"access_token": adminToken,
		}, withCsrf(csrfToken))
		Expect(resp.StatusCode).To(Equal(200))

		resp, _ = getByClient(withAccessToken(client, sellerToken), "/admin/panel")
		Expect(resp.Request.URL.Path).To(Equal("/dashboard"))
	})

	It("session without access token loses admin access", func() {
		resp, _ := postJsonByClient(client, "/auth/events", JsonMap{
			"event":        "SIGNED_IN",
			"access_token": adminToken,
		}, withCsrf(csrfToken))
		Expect(resp.StatusCode).To(Equal(200))

		resp, _ = getByClient(client, "/admin/panel")
		Expect(resp.Request.URL.Path).To(Equal("/signin"))
	})

	It("sign out clears the session state", func() {
		resp, _ := postJsonByClient(client, "/auth/events", JsonMap{
			"event":        "SIGNED_IN",
			"access_token": sellerToken,
		}, withCsrf(csrfToken))
		Expect(resp.StatusCode).To(Equal(200))

		resp, message := postJsonByClient(client, "/auth/events", JsonMap{"event": "SIGNED_OUT"}, withCsrf(csrfToken))
		Expect(resp.StatusCode).To(Equal(200))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("user", BeNil()))

		resp, message = getByClient(client, "/auth/state")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("user", BeNil()))
	})

	It("token refresh keeps the resolved admin status", func() {
		resp, _ := postJsonByClient(client, "/auth/events", JsonMap{
			"event":        "SIGNED_IN",
			"access_token": adminToken,
		}, withCsrf(csrfToken))
		Expect(resp.StatusCode).To(Equal(200))
		before := privilegeStub.Hits(adminsPath)

		resp, message := postJsonByClient(client, "/auth/events", JsonMap{
			"event":        "TOKEN_REFRESHED",
			"access_token": adminToken,
		}, withCsrf(csrfToken))
		Expect(resp.StatusCode).To(Equal(200))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("isAdmin", true))
		Expect(privilegeStub.Hits(adminsPath)).To(Equal(before))
	})

	It("sign in requires a valid access token", func() {
		resp, _ := postJsonByClient(client, "/auth/events", JsonMap{
			"event":        "SIGNED_IN",
			"access_token": "not-a-token",
		}, withCsrf(csrfToken))
		Expect(resp.StatusCode).To(Equal(401))
	})

	It("CsrfFilter denies events without CSRF token", func() {
		resp, message := postJsonByClient(client, "/auth/events", JsonMap{
			"event":        "SIGNED_IN",
			"access_token": adminToken,
		}, nil)
		Expect(resp.StatusCode).To(Equal(403))
		Expect(string(message)).To(Equal("CSRF header " + csrfHeader + " is empty"))
	})

	It("CsrfFilter denies a token issued for another session", func() {
		resp, _ := postJsonByClient(buildClient(), "/auth/events", JsonMap{"event": "SIGNED_OUT"}, withCsrf(csrfToken))
		Expect(resp.StatusCode).To(Equal(403))
	})
})
