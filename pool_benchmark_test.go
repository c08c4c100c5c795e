package furr

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func BenchmarkPool_Acquire_Creation(b *testing.B) {
	for name, factory := range poolFactories {
		b.Run(name, func(b *testing.B) {
			var created atomic.Int32
			ctx := context.Background()

			for b.Loop() {
				pool, err := factory(mockConstructor(&created), 1)
				if err != nil {
					b.Fatal(err)
				}
				res, err := pool.Acquire(ctx)
				if err != nil {
					b.Fatal(err)
				}
				res.Destroy()
				pool.Close()
			}
		})
	}
}

func BenchmarkPool_Acquire_FastPath(b *testing.B) {
	for name, factory := range poolFactories {
		b.Run(name, func(b *testing.B) {
			var created atomic.Int32
			ctx := context.Background()

			pool, err := factory(mockConstructor(&created), 1)
			if err != nil {
				b.Fatal(err)
			}
			defer pool.Close()

			for b.Loop() {
				res, err := pool.Acquire(ctx)
				if err != nil {
					b.Fatal(err)
				}
				res.Release()
			}
		})
	}
}

func BenchmarkPool_Acquire_Parallel(b *testing.B) {
	for name, factory := range poolFactories {
		b.Run(name, func(b *testing.B) {
			var created atomic.Int32
			pool, err := factory(mockConstructor(&created), 8)
			if err != nil {
				b.Fatal(err)
			}
			defer pool.Close()

			b.RunParallel(func(pb *testing.PB) {
				ctx := context.Background()
				for pb.Next() {
					res, err := pool.Acquire(ctx)
					if err != nil {
						b.Fatal(err)
					}
					res.Release()
				}
			})
		})
	}
}

func BenchmarkClient_SetGet(b *testing.B) {
	srv := startServer(b)

	for name, factory := range poolFactories {
		b.Run(name, func(b *testing.B) {
			client, err := NewClient(StaticServers(srv.Addr().String()), ClientConfig{
				Logger:  zap.NewNop(),
				NewPool: factory,
			})
			if err != nil {
				b.Fatal(err)
			}
			defer client.Close()

			b.RunParallel(func(pb *testing.PB) {
				ctx := context.Background()
				i := 0
				for pb.Next() {
					key := "bench:" + strconv.Itoa(i%100)
					i++
					if err := client.Set(ctx, key, "value"); err != nil {
						b.Fatal(err)
					}
					if _, err := client.Get(ctx, key); err != nil {
						b.Fatal(err)
					}
				}
			})
		})
	}
}
