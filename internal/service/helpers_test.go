package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adams521/everything-gift/internal/model"
	"github.com/Adams521/everything-gift/internal/repository"
)

// stubEngine is a deterministic AIEngine
type stubEngine struct {
	enabled bool
	fn      func(prompt string, opts GenerateOptions) (string, error)

	mu      sync.Mutex
	prompts []string
	opts    []GenerateOptions
}

func newStubEngine(fn func(prompt string, opts GenerateOptions) (string, error)) *stubEngine {
	return &stubEngine{enabled: true, fn: fn}
}

func (s *stubEngine) IsEnabled() bool { return s.enabled }

func (s *stubEngine) Generate(_ context.Context, prompt string, opts GenerateOptions) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.opts = append(s.opts, opts)
	s.mu.Unlock()
	return s.fn(prompt, opts)
}

func (s *stubEngine) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// raisingEngine fails every call
func raisingEngine() *stubEngine {
	return newStubEngine(func(string, GenerateOptions) (string, error) {
		return "", errors.New("connection refused")
	})
}

// isAnalysis tells the two call sites apart by sampling temperature
func isAnalysis(opts GenerateOptions) bool {
	return opts.Temperature < 0.5
}

// failingCatalog fails or panics for the first n FindProducts calls, then delegates
type failingCatalog struct {
	Catalog
	mu       sync.Mutex
	failures int
	panics   bool
}

func (f *failingCatalog) FindProducts(ctx context.Context, q *model.ProductQuery) ([]model.Product, error) {
	f.mu.Lock()
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()

	if fail {
		if f.panics {
			panic("catalog exploded")
		}
		return nil, errors.New("connection reset by peer")
	}
	return f.Catalog.FindProducts(ctx, q)
}

func seedRepository(t *testing.T) *repository.MemoryRepository {
	t.Helper()
	seed, err := repository.DefaultSeed()
	require.NoError(t, err)
	return repository.NewMemoryRepository(seed)
}

func ids(products []model.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func strPtr(s string) *string       { return &s }
func float64Ptr(v float64) *float64 { return &v }
