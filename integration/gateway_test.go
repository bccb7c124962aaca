package integration_test

import (
	"github.com/Alcereo/consign-gateway/pkg/authz"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("In consign gateway", func() {

	It("RouteGateFilter sends anonymous visitors to sign in", func() {
		resp, message := get("/admin/panel")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(resp.Request.URL.Path).To(Equal("/signin"))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("page", "signin"))
	})

	It("serves the admin panel to admins with the user data header", func() {
		resp, message := getByClient(signedInClient(adminToken), "/admin/panel")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(resp.Request.URL.Path).To(Equal("/admin/panel"))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("page", "admin-panel"))
	})

	It("sends sellers from admin routes to their dashboard", func() {
		resp, message := getByClient(signedInClient(sellerToken), "/admin/panel")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(resp.Request.URL.Path).To(Equal("/dashboard"))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("page", "dashboard"))
	})

	It("sends admins from user routes to the admin panel", func() {
		resp, message := getByClient(signedInClient(adminToken), "/sales")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(resp.Request.URL.Path).To(Equal("/admin/panel"))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("page", "admin-panel"))
	})

	It("keeps signed in visitors away from the sign in page", func() {
		resp, message := getByClient(signedInClient(sellerToken), "/signin")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(resp.Request.URL.Path).To(Equal("/dashboard"))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("page", "dashboard"))
	})

	It("lets sellers reach user routes", func() {
		resp, message := getByClient(signedInClient(sellerToken), "/sales")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(unmarshalToMap(message)).To(HaveKeyWithValue("page", "sales"))
	})

	It("asks the privilege store once per session while the cache is fresh", func() {
		client := signedInClient(adminToken)
		before := privilegeStub.Hits(adminsPath)

		for i := 0; i < 3; i++ {
			resp, _ := getByClient(client, "/auth/state")
			Expect(resp.StatusCode).To(Equal(200))
		}

		Expect(privilegeStub.Hits(adminsPath) - before).To(Equal(1))
	})

	It("reports an identity failure in the auth state", func() {
		resp, message := getByClient(signedInClient(failingToken), "/auth/state")
		Expect(resp.StatusCode).To(Equal(200))

		state := unmarshalToMap(message)
		Expect(state).To(HaveKeyWithValue("user", BeNil()))
		Expect(state).To(HaveKeyWithValue("isAdmin", false))
		Expect(state).To(HaveKeyWithValue("loading", false))
		Expect(state).To(HaveKeyWithValue("error", authz.InitializationErrorMessage))
	})

	It("exposes authorization metrics", func() {
		_, _ = getByClient(signedInClient(adminToken), "/auth/state")

		resp, message := get("/metrics")
		Expect(resp.StatusCode).To(Equal(200))
		Expect(string(message)).To(ContainSubstring("consign_admin_resolutions_total"))
		Expect(string(message)).To(ContainSubstring("consign_active_authorizers"))
	})
})
