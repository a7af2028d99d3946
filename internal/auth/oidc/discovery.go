package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ProviderMetadata is the subset of the OIDC discovery document the portal
// consumes
type ProviderMetadata struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// DiscoveryClient fetches and caches the provider metadata document from a
// fixed well-known URL. Caching is a latency optimization only; the document
// can be refetched on any call and callers must treat Metadata as fallible
// on every invocation.
type DiscoveryClient struct {
	discoveryURL string
	httpClient   *http.Client
	ttl          time.Duration

	mu        sync.RWMutex
	cached    *ProviderMetadata
	expiresAt time.Time
}

// NewDiscoveryClient creates a discovery client for the given well-known URL
func NewDiscoveryClient(discoveryURL string, httpClient *http.Client, ttl time.Duration) *DiscoveryClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &DiscoveryClient{
		discoveryURL: discoveryURL,
		httpClient:   httpClient,
		ttl:          ttl,
	}
}

// Metadata returns the provider metadata, fetching it if the cache is cold
// or expired
func (c *DiscoveryClient) Metadata(ctx context.Context) (*ProviderMetadata, error) {
	c.mu.RLock()
	cached, expiresAt := c.cached, c.expiresAt
	c.mu.RUnlock()

	if cached != nil && time.Now().Before(expiresAt) {
		return cached, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine might
	// have refreshed)
	if c.cached != nil && time.Now().Before(c.expiresAt) {
		return c.cached, nil
	}

	doc, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.cached = doc
	c.expiresAt = time.Now().Add(c.ttl)
	return doc, nil
}

// Invalidate drops the cached document so the next call refetches it
func (c *DiscoveryClient) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
	c.expiresAt = time.Time{}
}

func (c *DiscoveryClient) fetch(ctx context.Context) (*ProviderMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrDiscovery, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrDiscovery, resp.StatusCode)
	}

	var doc ProviderMetadata
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding document: %v", ErrDiscovery, err)
	}

	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" || doc.UserinfoEndpoint == "" {
		return nil, fmt.Errorf("%w: incomplete document from %s", ErrDiscovery, c.discoveryURL)
	}

	return &doc, nil
}
