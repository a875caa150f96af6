package auth

import (
	"context"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = ginkgo.Describe("MemoryTokenStore", func() {
	var (
		store *MemoryTokenStore
		now   time.Time
		ctx   context.Context
	)

	ginkgo.BeforeEach(func() {
		now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		store = NewMemoryTokenStore()
		store.now = func() time.Time { return now }
		ctx = context.Background()
	})

	ginkgo.It("should report revoked ids until the ttl passes", func() {
		gomega.Expect(store.Revoke(ctx, "jti-1", time.Minute)).To(gomega.Succeed())

		revoked, err := store.IsRevoked(ctx, "jti-1")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(revoked).To(gomega.BeTrue())

		now = now.Add(2 * time.Minute)
		revoked, err = store.IsRevoked(ctx, "jti-1")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(revoked).To(gomega.BeFalse())
	})

	ginkgo.It("should ignore already expired tokens", func() {
		gomega.Expect(store.Revoke(ctx, "jti-1", 0)).To(gomega.Succeed())

		revoked, _ := store.IsRevoked(ctx, "jti-1")
		gomega.Expect(revoked).To(gomega.BeFalse())
	})
})

var _ = ginkgo.Describe("RedisTokenStore", func() {
	ginkgo.Context("when redis is unreachable", func() {
		var store *RedisTokenStore

		ginkgo.BeforeEach(func() {
			client := redis.NewClient(&redis.Options{
				Addr:        "127.0.0.1:1",
				DialTimeout: 100 * time.Millisecond,
				MaxRetries:  -1,
			})
			ginkgo.DeferCleanup(client.Close)
			store = NewRedisTokenStore(client, discardLogger())
		})

		ginkgo.It("should fail open on lookups", func() {
			revoked, err := store.IsRevoked(context.Background(), "jti-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(revoked).To(gomega.BeFalse())
		})

		ginkgo.It("should return the error on revoke", func() {
			err := store.Revoke(context.Background(), "jti-1", time.Minute)
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(gomega.HavePrefix("revoke token"))
		})

		ginkgo.It("should surface the error on ping", func() {
			gomega.Expect(store.Ping(context.Background())).ToNot(gomega.Succeed())
		})
	})
})
