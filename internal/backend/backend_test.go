package backend_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/dev-router/internal/backend"
)

var _ = Describe("Backend", func() {
	var b *backend.Backend

	BeforeEach(func() {
		b = backend.New(backend.NewTarget("localhost", 5001))
	})

	Describe("New", func() {
		It("should keep the target", func() {
			Expect(b.Target()).To(Equal(backend.Target{Host: "localhost", Port: 5001}))
		})

		It("should initialize as unhealthy", func() {
			Expect(b.IsHealthy()).To(BeFalse())
		})

		It("should have zero active connections", func() {
			Expect(b.ActiveConnections()).To(Equal(0))
		})
	})

	Describe("Health Management", func() {
		It("should report a change only when the status flips", func() {
			Expect(b.SetHealthy(true)).To(BeTrue())
			Expect(b.SetHealthy(true)).To(BeFalse())
			Expect(b.IsHealthy()).To(BeTrue())

			Expect(b.SetHealthy(false)).To(BeTrue())
			Expect(b.IsHealthy()).To(BeFalse())
		})

		It("should be thread-safe", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func(healthy bool) {
					defer wg.Done()
					b.SetHealthy(healthy)
					_ = b.IsHealthy()
				}(i%2 == 0)
			}
			wg.Wait()
		})
	})

	Describe("Connection Tracking", func() {
		It("should count increments concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					b.IncrementConn()
				}()
			}
			wg.Wait()
			Expect(b.ActiveConnections()).To(Equal(100))
		})

		It("should not go below zero", func() {
			b.IncrementConn()
			b.DecrementConn()
			b.DecrementConn()
			Expect(b.ActiveConnections()).To(Equal(0))
		})
	})

	Describe("Pool", func() {
		It("should build one backend per target in order", func() {
			pool := backend.Pool([]backend.Target{
				backend.NewTarget("localhost", 5000),
				backend.NewTarget("localhost", 5001),
			})
			Expect(pool).To(HaveLen(2))
			Expect(pool[0].Target().Port).To(Equal(5000))
			Expect(pool[1].Target().Port).To(Equal(5001))
		})
	})
})
