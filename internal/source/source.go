// Package source queries marketplace affiliate APIs for raw product candidates.
// Results are not persisted; ingestion into the catalog happens elsewhere.
package source

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrUnknownPlatform is returned by Registry.Get for an unregistered platform name
var ErrUnknownPlatform = errors.New("unknown platform")

// RawProduct is a marketplace search hit before catalog ingestion
type RawProduct struct {
	Name              string   `json:"name"`
	Price             float64  `json:"price"`
	OriginalPrice     *float64 `json:"original_price,omitempty"`
	ImageURL          string   `json:"image_url,omitempty"`
	ImageURLs         []string `json:"image_urls,omitempty"`
	Platform          string   `json:"platform"`
	PlatformURL       string   `json:"platform_url"`
	PlatformProductID string   `json:"platform_product_id,omitempty"`
	Description       string   `json:"description,omitempty"`
	SalesCount        int64    `json:"sales_count,omitempty"`
	ShopName          string   `json:"shop_name,omitempty"`
	DataSource        string   `json:"data_source"` // api or placeholder
}

// Data sources of a RawProduct
const (
	DataSourceAPI         = "api"
	DataSourcePlaceholder = "placeholder"
)

// ProductSource is one marketplace integration
type ProductSource interface {
	// Platform returns the platform name, e.g. "taobao"
	Platform() string

	// Search returns products matching keyword. Implementations fall back to
	// placeholder products instead of failing when the API is unavailable.
	Search(ctx context.Context, keyword string) ([]RawProduct, error)
}

// Option configures an HTTP-backed source
type Option func(*httpSource)

// WithEndpoint overrides the API endpoint
func WithEndpoint(url string) Option {
	return func(s *httpSource) { s.endpoint = url }
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(s *httpSource) { s.client = c }
}

// WithClock overrides the timestamp source used for signing
func WithClock(now func() time.Time) Option {
	return func(s *httpSource) { s.now = now }
}

// httpSource holds what Taobao and JD clients share
type httpSource struct {
	appKey    string
	appSecret string
	endpoint  string
	client    *http.Client
	now       func() time.Time
}

func newHTTPSource(appKey, appSecret, endpoint string, timeout time.Duration, opts []Option) httpSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := httpSource{
		appKey:    appKey,
		appSecret: appSecret,
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s *httpSource) configured() bool {
	return s.appKey != "" && s.appSecret != ""
}

func (s *httpSource) timestamp() string {
	return fmt.Sprintf("%d", s.now().UnixMilli())
}

// Sign computes the affiliate API signature:
// upper(md5(secret + k1 + v1 + k2 + v2 ... + secret)) over keys in ascending order, excluding "sign".
func Sign(secret string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(secret)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

var placeholderImages = []string{
	"https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=300&h=300&fit=crop",
	"https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=300&h=300&fit=crop",
	"https://images.unsplash.com/photo-1441986300917-64674bd600d8?w=300&h=300&fit=crop",
}

// PlaceholderCount is the number of products a source returns when its API is unavailable
const PlaceholderCount = 10

// placeholderTemplate renders one placeholder product for index i (1-based) and a derived item id
type placeholderTemplate struct {
	platform    string
	name        func(keyword string, i int) string
	url         func(itemID uint32) string
	description func(keyword string) string
}

// placeholders returns PlaceholderCount products derived only from platform and keyword,
// so repeated searches give identical results.
func placeholders(t placeholderTemplate, keyword string) []RawProduct {
	out := make([]RawProduct, 0, PlaceholderCount)
	for i := 1; i <= PlaceholderCount; i++ {
		h := fnv.New32a()
		fmt.Fprintf(h, "%s|%s|%d", t.platform, keyword, i)
		sum := h.Sum32()

		// 50.00 to 2000.00
		cents := 5000 + int64(sum%195001)
		out = append(out, RawProduct{
			Name:        t.name(keyword, i),
			Price:       float64(cents) / 100,
			ImageURL:    placeholderImages[(i-1)%len(placeholderImages)],
			Platform:    t.platform,
			PlatformURL: t.url(sum),
			Description: t.description(keyword),
			DataSource:  DataSourcePlaceholder,
		})
	}
	return out
}

// Registry resolves sources by platform name
type Registry struct {
	mu      sync.RWMutex
	sources map[string]ProductSource
}

// NewRegistry creates a registry holding sources
func NewRegistry(sources ...ProductSource) *Registry {
	r := &Registry{sources: make(map[string]ProductSource, len(sources))}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register adds or replaces the source for its platform
func (r *Registry) Register(s ProductSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[strings.ToLower(s.Platform())] = s
}

// Get returns the source for platform
func (r *Registry) Get(platform string) (ProductSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[strings.ToLower(strings.TrimSpace(platform))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	return s, nil
}

// Platforms lists registered platform names in order
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Search runs keyword against the named platform
func (r *Registry) Search(ctx context.Context, platform, keyword string) ([]RawProduct, error) {
	s, err := r.Get(platform)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, keyword)
}
