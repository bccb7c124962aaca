package authz_test

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Alcereo/consign-gateway/pkg/authz"
	"github.com/Alcereo/consign-gateway/pkg/cache"
	"github.com/Alcereo/consign-gateway/pkg/common"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

var _ = Describe("Resolver", func() {
	var (
		ctx = context.Background()
		f   *fixture
	)

	persistedEntry := func(userId string) (common.AdminCacheEntry, bool) {
		raw, found, err := f.persisted.GetItem(authz.DefaultStorageKeyPrefix + userId)
		Expect(err).NotTo(HaveOccurred())
		if !found {
			return common.AdminCacheEntry{}, false
		}
		var entry common.AdminCacheEntry
		Expect(json.Unmarshal([]byte(raw), &entry)).To(Succeed())
		return entry, true
	}

	writePersisted := func(userId string, entry common.AdminCacheEntry) {
		bytes, _ := json.Marshal(entry)
		Expect(f.persisted.SetItem(authz.DefaultStorageKeyPrefix+userId, string(bytes))).To(Succeed())
	}

	BeforeEach(func() {
		f = newFixture(cache.NewGoCacheAdapter(1, 1).ForScope("tab-1"), newStubPrivilegeStore("u1"))
	})

	It("resolves an admin on a fresh install and fills both tiers", func() {
		Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
		Expect(f.store.Lookups()).To(Equal(1))

		memoryEntry, found := f.memory.FindAdminEntry("u1")
		Expect(found).To(BeTrue())
		Expect(memoryEntry).To(Equal(common.AdminCacheEntry{IsAdmin: true, Timestamp: f.clock.Now().UnixMilli()}))

		stored, found := persistedEntry("u1")
		Expect(found).To(BeTrue())
		Expect(stored).To(Equal(memoryEntry))

		raw, _, _ := f.persisted.GetItem(authz.DefaultStorageKeyPrefix + "u1")
		Expect(raw).To(Equal(fmt.Sprintf(`{"isAdmin":true,"timestamp":%d}`, f.clock.Now().UnixMilli())))
	})

	It("treats a no-row answer as a cached non-admin decision", func() {
		Expect(f.resolver.Resolve(ctx, "u2", false)).To(BeFalse())

		stored, found := persistedEntry("u2")
		Expect(found).To(BeTrue())
		Expect(stored.IsAdmin).To(BeFalse())

		fallback, found := f.resolver.Fallback()
		Expect(found).To(BeTrue())
		Expect(fallback).To(BeFalse())
	})

	It("answers from a fresh memory entry without a lookup", func() {
		f.memory.PutAdminEntry("u9", common.NewAdminCacheEntry(true, f.clock.Now()))
		f.clock.Advance(4 * time.Minute)

		Expect(f.resolver.Resolve(ctx, "u9", false)).To(BeTrue())
		Expect(f.store.Lookups()).To(Equal(0))

		fallback, found := f.resolver.Fallback()
		Expect(found).To(BeTrue())
		Expect(fallback).To(BeTrue())
	})

	It("copies a fresh persisted entry into memory when the memory entry expired", func() {
		f.memory.PutAdminEntry("u9", common.NewAdminCacheEntry(false, f.clock.Now().Add(-10*time.Minute)))
		writePersisted("u9", common.NewAdminCacheEntry(true, f.clock.Now().Add(-time.Minute)))

		Expect(f.resolver.Resolve(ctx, "u9", false)).To(BeTrue())
		Expect(f.store.Lookups()).To(Equal(0))

		memoryEntry, _ := f.memory.FindAdminEntry("u9")
		Expect(memoryEntry.IsAdmin).To(BeTrue())
		Expect(memoryEntry.FreshAt(f.clock.Now(), authz.DefaultCacheTTL)).To(BeTrue())
	})

	It("looks up exactly once when both tiers are stale", func() {
		f.memory.PutAdminEntry("u1", common.NewAdminCacheEntry(false, f.clock.Now()))
		writePersisted("u1", common.NewAdminCacheEntry(false, f.clock.Now()))
		f.clock.Advance(authz.DefaultCacheTTL)

		Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
		Expect(f.store.Lookups()).To(Equal(1))
	})

	It("skips undecodable persisted entries", func() {
		Expect(f.persisted.SetItem(authz.DefaultStorageKeyPrefix+"u1", "{not json")).To(Succeed())

		Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
		Expect(f.store.Lookups()).To(Equal(1))
	})

	It("always looks up when forced", func() {
		Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
		Expect(f.resolver.Resolve(ctx, "u1", true)).To(BeTrue())
		Expect(f.resolver.Resolve(ctx, "u1", true)).To(BeTrue())
		Expect(f.store.Lookups()).To(Equal(3))
	})

	It("keeps a cached admin decision within the TTL after the store changes", func() {
		Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
		f.store.SetAdmin("u1", false)
		f.clock.Advance(authz.DefaultCacheTTL - time.Millisecond)

		Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
		Expect(f.store.Lookups()).To(Equal(1))

		f.clock.Advance(time.Millisecond)
		Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeFalse())
		Expect(f.store.Lookups()).To(Equal(2))
	})

	Context("when the authoritative lookup fails", func() {
		It("returns false on the first call when the lookup hangs", func() {
			release := f.store.Hang()
			defer close(release)

			started := time.Now()
			Expect(f.resolver.Resolve(ctx, "u3", false)).To(BeFalse())
			Expect(time.Since(started)).To(BeNumerically("<", time.Second))

			_, found := persistedEntry("u3")
			Expect(found).To(BeFalse())
		})

		It("returns the last known decision on timeout", func() {
			Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
			release := f.store.Hang()
			defer close(release)

			Expect(f.resolver.Resolve(ctx, "u3", true)).To(BeTrue())
		})

		It("returns the last known decision on errors other than no-row", func() {
			Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
			f.store.Fail(errors.New("network unreachable"))

			Expect(f.resolver.Resolve(ctx, "u1", true)).To(BeTrue())
			Expect(f.resolver.Resolve(ctx, "u4", false)).To(BeTrue())
		})

		It("returns false without any fallback", func() {
			f.store.Fail(errors.New("network unreachable"))

			Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeFalse())
			_, found := f.resolver.Fallback()
			Expect(found).To(BeFalse())
		})
	})

	Context("when the persisted tier is unavailable", func() {
		BeforeEach(func() {
			f = newFixture(brokenStore{}, newStubPrivilegeStore("u1"))
		})

		It("still resolves and fills the memory tier", func() {
			Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
			Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
			Expect(f.store.Lookups()).To(Equal(1))
		})

		It("invalidates and clears without failing", func() {
			Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
			f.resolver.Invalidate("u1")
			f.resolver.ClearAll()

			_, found := f.memory.FindAdminEntry("u1")
			Expect(found).To(BeFalse())
		})
	})

	It("invalidates a single user in both tiers", func() {
		f.store.SetAdmin("u5", true)
		Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
		Expect(f.resolver.Resolve(ctx, "u5", false)).To(BeTrue())

		f.resolver.Invalidate("u1")

		_, found := f.memory.FindAdminEntry("u1")
		Expect(found).To(BeFalse())
		_, found = persistedEntry("u1")
		Expect(found).To(BeFalse())
		_, found = persistedEntry("u5")
		Expect(found).To(BeTrue())
	})

	It("clears every user and the fallback", func() {
		Expect(f.persisted.SetItem("unrelated", "keep")).To(Succeed())
		Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
		Expect(f.resolver.Resolve(ctx, "u2", false)).To(BeFalse())

		f.resolver.ClearAll()

		_, found := persistedEntry("u1")
		Expect(found).To(BeFalse())
		_, found = persistedEntry("u2")
		Expect(found).To(BeFalse())
		_, found = f.resolver.Fallback()
		Expect(found).To(BeFalse())
		_, found, _ = f.persisted.GetItem("unrelated")
		Expect(found).To(BeTrue())

		Expect(f.resolver.Resolve(ctx, "u1", false)).To(BeTrue())
		Expect(f.store.Lookups()).To(Equal(3))
	})

	It("rejects invalid settings", func() {
		settings := authz.DefaultResolverSettings()
		settings.CacheTTL = 0
		Expect(func() {
			authz.NewResolver(f.memory, f.persisted, f.store, settings, testLog())
		}).To(Panic())
	})
})
