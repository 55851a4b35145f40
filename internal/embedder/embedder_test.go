package embedder

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestComputeHash(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "empty string",
			text: "",
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "simple text",
			text: "hello world",
			want: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeHash(tt.text); got != tt.want {
				t.Errorf("ComputeHash() = %v, want %v", got, tt.want)
			}
		})
	}

	if ComputeHash("test") != ComputeHash("test") {
		t.Error("same text must produce the same hash")
	}
	if ComputeHash("a") == ComputeHash("b") {
		t.Error("different texts must produce different hashes")
	}
}

func TestValidateBatch(t *testing.T) {
	tooLarge := make([]string, MaxBatchSize+1)
	for i := range tooLarge {
		tooLarge[i] = "text"
	}

	tests := []struct {
		name    string
		texts   []string
		wantErr error
	}{
		{"valid single", []string{"hello"}, nil},
		{"valid batch", []string{"one", "two", "three"}, nil},
		{"nil batch", nil, ErrInvalidInput},
		{"zero length", []string{}, ErrInvalidInput},
		{"empty text in batch", []string{"ok", "", "ok"}, ErrInvalidInput},
		{"over limit", tooLarge, ErrBatchTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatch(tt.texts)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateBatch() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateBatch() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCache(t *testing.T) {
	cache := NewCache(10)

	vec := []float32{0.1, 0.2, 0.3}
	cache.Set("key1", vec)

	got, ok := cache.Get("key1")
	if !ok {
		t.Fatal("expected cache hit for key1")
	}
	if len(got) != 3 || got[0] != 0.1 {
		t.Errorf("cached vector = %v, want %v", got, vec)
	}

	if _, ok := cache.Get("missing"); ok {
		t.Error("expected cache miss for unknown key")
	}

	if size := cache.Size(); size != 1 {
		t.Errorf("Size() = %d, want 1", size)
	}

	cache.Clear()
	if size := cache.Size(); size != 0 {
		t.Errorf("Size() after Clear = %d, want 0", size)
	}
}

func TestCacheReturnsCopy(t *testing.T) {
	cache := NewCache(10)
	cache.Set("key", []float32{1, 2, 3})

	first, _ := cache.Get("key")
	first[0] = 99

	second, _ := cache.Get("key")
	if second[0] != 1 {
		t.Errorf("mutating a returned vector leaked into the cache: got %v", second[0])
	}
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(2)
	cache.Set("a", []float32{1})
	cache.Set("b", []float32{2})
	cache.Set("c", []float32{3})

	// LRU with capacity 2: the oldest entry is gone.
	if _, ok := cache.Get("a"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Error("expected newest entry to survive")
	}
}

func TestEmbedThroughCache(t *testing.T) {
	cache := NewCache(100)
	cache.Set(ComputeHash("cached"), []float32{9, 9})

	var fetched []string
	fetch := func(texts []string) ([][]float32, error) {
		fetched = append(fetched, texts...)
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = []float32{float32(len(text)), 0}
		}
		return out, nil
	}

	results, err := embedThroughCache(cache, []string{"alpha", "cached", "be"}, fetch)
	if err != nil {
		t.Fatalf("embedThroughCache() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	// Only the two misses reach the fetch function, in their original order.
	if strings.Join(fetched, ",") != "alpha,be" {
		t.Errorf("fetched = %v, want [alpha be]", fetched)
	}

	if results[1][0] != 9 {
		t.Errorf("results[1] = %v, want the cached vector", results[1])
	}
	if results[0][0] != 5 || results[2][0] != 2 {
		t.Errorf("fetched vectors landed out of position: %v", results)
	}

	// Second call: everything is cached now, no fetch at all.
	fetched = nil
	if _, err := embedThroughCache(cache, []string{"alpha", "cached", "be"}, fetch); err != nil {
		t.Fatalf("second embedThroughCache() error = %v", err)
	}
	if len(fetched) != 0 {
		t.Errorf("expected no fetches on a fully cached batch, got %v", fetched)
	}
}

func TestEmbedThroughCacheNilCache(t *testing.T) {
	calls := 0
	fetch := func(texts []string) ([][]float32, error) {
		calls++
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1}
		}
		return out, nil
	}

	for i := 0; i < 2; i++ {
		if _, err := embedThroughCache(nil, []string{"a", "b"}, fetch); err != nil {
			t.Fatalf("embedThroughCache() error = %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("nil cache should fetch every time, got %d calls", calls)
	}
}

func TestEmbedThroughCacheLengthMismatch(t *testing.T) {
	fetch := func(texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil // one vector for two texts
	}

	_, err := embedThroughCache(nil, []string{"a", "b"}, fetch)
	if !errors.Is(err, ErrProviderFailed) {
		t.Errorf("expected ErrProviderFailed on count mismatch, got %v", err)
	}
}

func TestEmbedThroughCacheFetchError(t *testing.T) {
	cache := NewCache(10)
	boom := fmt.Errorf("%w: connection refused", ErrProviderFailed)
	fetch := func(texts []string) ([][]float32, error) {
		return nil, boom
	}

	_, err := embedThroughCache(cache, []string{"a"}, fetch)
	if !errors.Is(err, ErrProviderFailed) {
		t.Errorf("fetch error should propagate, got %v", err)
	}
	if cache.Size() != 0 {
		t.Errorf("failed fetch must not populate the cache, size = %d", cache.Size())
	}
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
	}{
		{"simple", []float32{3, 4}},
		{"negative components", []float32{-1, 2, -3}},
		{"already unit", []float32{1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NormalizeVector(tt.in)
			var norm float64
			for _, v := range out {
				norm += float64(v) * float64(v)
			}
			if norm < 0.999 || norm > 1.001 {
				t.Errorf("normalized magnitude^2 = %f, want 1.0", norm)
			}
		})
	}

	// Zero vector stays zero rather than dividing by zero.
	zero := NormalizeVector([]float32{0, 0, 0})
	for _, v := range zero {
		if v != 0 {
			t.Errorf("zero vector changed under normalization: %v", zero)
		}
	}
}
