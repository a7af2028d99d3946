package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func discoveryServer(t *testing.T, hits *atomic.Int64, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const validDiscoveryDoc = `{
	"authorization_endpoint": "https://provider.example/auth",
	"token_endpoint": "https://provider.example/token",
	"userinfo_endpoint": "https://provider.example/userinfo"
}`

func TestDiscovery_Valid(t *testing.T) {
	srv := discoveryServer(t, nil, http.StatusOK, validDiscoveryDoc)

	client := NewDiscoveryClient(srv.URL, srv.Client(), time.Hour)
	md, err := client.Metadata(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if md.AuthorizationEndpoint != "https://provider.example/auth" {
		t.Errorf("unexpected authorization endpoint: %s", md.AuthorizationEndpoint)
	}
	if md.TokenEndpoint != "https://provider.example/token" {
		t.Errorf("unexpected token endpoint: %s", md.TokenEndpoint)
	}
	if md.UserinfoEndpoint != "https://provider.example/userinfo" {
		t.Errorf("unexpected userinfo endpoint: %s", md.UserinfoEndpoint)
	}
}

func TestDiscovery_MissingField(t *testing.T) {
	srv := discoveryServer(t, nil, http.StatusOK, `{
		"authorization_endpoint": "https://provider.example/auth",
		"token_endpoint": "https://provider.example/token"
	}`)

	client := NewDiscoveryClient(srv.URL, srv.Client(), time.Hour)
	_, err := client.Metadata(context.Background())
	if !errors.Is(err, ErrDiscovery) {
		t.Errorf("expected ErrDiscovery, got %v", err)
	}
}

func TestDiscovery_ServerError(t *testing.T) {
	srv := discoveryServer(t, nil, http.StatusInternalServerError, "")

	client := NewDiscoveryClient(srv.URL, srv.Client(), time.Hour)
	_, err := client.Metadata(context.Background())
	if !errors.Is(err, ErrDiscovery) {
		t.Errorf("expected ErrDiscovery, got %v", err)
	}
}

func TestDiscovery_MalformedJSON(t *testing.T) {
	srv := discoveryServer(t, nil, http.StatusOK, "not json")

	client := NewDiscoveryClient(srv.URL, srv.Client(), time.Hour)
	_, err := client.Metadata(context.Background())
	if !errors.Is(err, ErrDiscovery) {
		t.Errorf("expected ErrDiscovery, got %v", err)
	}
}

func TestDiscovery_CacheAndInvalidate(t *testing.T) {
	var hits atomic.Int64
	srv := discoveryServer(t, &hits, http.StatusOK, validDiscoveryDoc)

	client := NewDiscoveryClient(srv.URL, srv.Client(), time.Hour)

	for i := 0; i < 3; i++ {
		if _, err := client.Metadata(context.Background()); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 fetch while cached, got %d", got)
	}

	client.Invalidate()
	if _, err := client.Metadata(context.Background()); err != nil {
		t.Fatalf("fetch after invalidate: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected refetch after invalidate, got %d fetches", got)
	}
}

func TestDiscovery_FailureIsNotCached(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, validDiscoveryDoc)
	}))
	defer srv.Close()

	client := NewDiscoveryClient(srv.URL, srv.Client(), time.Hour)

	if _, err := client.Metadata(context.Background()); !errors.Is(err, ErrDiscovery) {
		t.Fatalf("expected ErrDiscovery on first fetch, got %v", err)
	}
	if _, err := client.Metadata(context.Background()); err != nil {
		t.Fatalf("expected recovery on second fetch, got %v", err)
	}
}
