package embedder

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkComputeHash(b *testing.B) {
	texts := []string{
		"short",
		"medium length message text for hashing",
		"this is a longer text that represents a typical conversation turn that might be embedded for semantic search over an agent's history",
	}

	for _, text := range texts {
		b.Run(fmt.Sprintf("len=%d", len(text)), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ComputeHash(text)
			}
		})
	}
}

func BenchmarkCache(b *testing.B) {
	cache := NewCache(10000)
	vec := make([]float32, 768)

	b.Run("set", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			cache.Set(fmt.Sprintf("hash-%d", i%1000), vec)
		}
	})

	for i := 0; i < 1000; i++ {
		cache.Set(fmt.Sprintf("hash-%d", i), vec)
	}

	b.Run("get-hit", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = cache.Get(fmt.Sprintf("hash-%d", i%1000))
		}
	})

	b.Run("get-miss", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = cache.Get(fmt.Sprintf("nonexistent-%d", i))
		}
	})
}

func BenchmarkLocalProvider(b *testing.B) {
	provider := NewLocalProvider(nil)
	defer provider.Close()
	ctx := context.Background()

	for _, size := range []int{1, 10, 50} {
		b.Run(fmt.Sprintf("batch-%d", size), func(b *testing.B) {
			texts := make([]string, size)
			for i := range texts {
				texts[i] = fmt.Sprintf("message %d with some body text", i)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := provider.EmbedBatch(ctx, texts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}

	b.Run("batch-10-cached", func(b *testing.B) {
		cached := NewLocalProvider(NewCache(1000))
		defer cached.Close()
		texts := make([]string, 10)
		for i := range texts {
			texts[i] = fmt.Sprintf("cached message %d", i)
		}
		// Prime cache
		_, _ = cached.EmbedBatch(ctx, texts)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := cached.EmbedBatch(ctx, texts); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkNormalizeVector(b *testing.B) {
	sizes := []int{128, 384, 768, 1536}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("dim=%d", size), func(b *testing.B) {
			vec := make([]float32, size)
			for i := range vec {
				vec[i] = float32(i) / float32(size)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = NormalizeVector(vec)
			}
		})
	}
}
