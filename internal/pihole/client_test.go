package pihole

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequestTimeout(t *testing.T) {
	tests := []struct {
		interval time.Duration
		want     time.Duration
	}{
		{60 * time.Second, 30 * time.Second},
		{10 * time.Second, 5 * time.Second},
		{120 * time.Second, 30 * time.Second},
		{2 * time.Second, time.Second},
	}
	for _, tt := range tests {
		if got := RequestTimeout(tt.interval); got != tt.want {
			t.Errorf("RequestTimeout(%v) = %v, want %v", tt.interval, got, tt.want)
		}
	}
}

// newAuthServer serves /api/auth plus any extra handlers, tracking the
// SID it hands out.
func newAuthServer(t *testing.T, extra map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"session": map[string]any{"valid": false, "sid": ""},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"session": map[string]any{"valid": true, "sid": "test-sid"},
		})
	})
	for pattern, handler := range extra {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAuthedClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := NewClient(Instance{Alias: "test", Address: srv.URL, Password: "secret"}, 5*time.Second)
	if _, err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return c
}

func TestAuthenticateStoresSessionAndClearsPassword(t *testing.T) {
	srv := newAuthServer(t, nil)
	c := NewClient(Instance{Alias: "test", Address: srv.URL, Password: "secret"}, 5*time.Second)

	if c.Authenticated() {
		t.Fatal("client reports authenticated before login")
	}

	sid, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if sid != "test-sid" {
		t.Errorf("sid = %q, want %q", sid, "test-sid")
	}
	if !c.Authenticated() {
		t.Error("client does not report authenticated after login")
	}
	if c.HasCredential() {
		t.Error("plaintext password retained after successful authentication")
	}
}

func TestAuthenticateInvalidSession(t *testing.T) {
	srv := newAuthServer(t, nil)
	c := NewClient(Instance{Alias: "test", Address: srv.URL, Password: "wrong"}, 5*time.Second)

	_, err := c.Authenticate(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
	if c.Authenticated() {
		t.Error("client reports authenticated after failed login")
	}
}

func TestAuthenticateConnectionRefused(t *testing.T) {
	c := NewClient(Instance{Alias: "test", Address: "http://127.0.0.1:1", Password: "secret"}, time.Second)
	_, err := c.Authenticate(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
}

func TestFetchShortCircuitsWithoutSession(t *testing.T) {
	var calls atomic.Int64
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/stats/summary": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(`{}`))
		},
	})
	c := NewClient(Instance{Alias: "test", Address: srv.URL}, 5*time.Second)

	if got := c.Summary(context.Background()); got != nil {
		t.Errorf("Summary without session = %+v, want nil", got)
	}
	if calls.Load() != 0 {
		t.Errorf("unauthenticated fetch issued %d network calls, want 0", calls.Load())
	}
}

func TestSummarySendsSessionHeader(t *testing.T) {
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/stats/summary": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-FTL-SID"); got != "test-sid" {
				t.Errorf("X-FTL-SID = %q, want %q", got, "test-sid")
			}
			json.NewEncoder(w).Encode(map[string]any{
				"queries": map[string]any{
					"total": 100, "blocked": 25, "percent_blocked": 25.0,
					"types":  map[string]uint64{"A": 60, "AAAA": 40},
					"status": map[string]uint64{"FORWARDED": 75},
					"replies": map[string]uint64{
						"IP": 80, "NXDOMAIN": 20,
					},
				},
				"clients": map[string]any{"active": 3, "total": 5},
				"gravity": map[string]any{"domains_being_blocked": 123456},
			})
		},
	})
	c := newAuthedClient(t, srv)

	s := c.Summary(context.Background())
	if s == nil {
		t.Fatal("Summary = nil, want parsed summary")
	}
	if s.Queries.Total != 100 || s.Queries.Blocked != 25 {
		t.Errorf("queries = %+v, want total=100 blocked=25", s.Queries)
	}
	if s.Queries.Types["A"] != 60 {
		t.Errorf("types[A] = %d, want 60", s.Queries.Types["A"])
	}
	if s.Gravity.DomainsBeingBlocked != 123456 {
		t.Errorf("gravity = %d, want 123456", s.Gravity.DomainsBeingBlocked)
	}
}

func TestTopDomainsQueryParameters(t *testing.T) {
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/stats/top_domains": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("count"); got != "7" {
				t.Errorf("count = %q, want %q", got, "7")
			}
			if got := r.URL.Query().Get("blocked"); got != "true" {
				t.Errorf("blocked = %q, want %q", got, "true")
			}
			json.NewEncoder(w).Encode(map[string]any{
				"domains": []map[string]any{{"domain": "ads.example.com", "count": 42}},
			})
		},
	})
	c := newAuthedClient(t, srv)

	d := c.TopDomains(context.Background(), 7, true)
	if d == nil {
		t.Fatal("TopDomains = nil, want parsed result")
	}
	if len(d.Domains) != 1 || d.Domains[0].Domain != "ads.example.com" {
		t.Errorf("domains = %+v", d.Domains)
	}
}

func TestFetchServerErrorReturnsNil(t *testing.T) {
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/stats/upstreams": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	c := newAuthedClient(t, srv)

	if got := c.Upstreams(context.Background()); got != nil {
		t.Errorf("Upstreams on 500 = %+v, want nil", got)
	}
}

func TestFetchClientErrorWithStructuredBody(t *testing.T) {
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/dns/blocking": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"key":     "unauthorized",
					"message": "Unauthorized",
					"hint":    "re-authenticate",
				},
			})
		},
	})
	c := newAuthedClient(t, srv)

	if got := c.Blocking(context.Background()); got != nil {
		t.Errorf("Blocking on 401 = %+v, want nil", got)
	}
}

func TestBlockingDecodesNullTimer(t *testing.T) {
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/dns/blocking": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"blocking":"enabled","timer":null}`))
		},
	})
	c := newAuthedClient(t, srv)

	b := c.Blocking(context.Background())
	if b == nil {
		t.Fatal("Blocking = nil, want parsed result")
	}
	if b.Blocking != "enabled" {
		t.Errorf("blocking = %q, want %q", b.Blocking, "enabled")
	}
	if b.Timer != nil {
		t.Errorf("timer = %v, want nil", *b.Timer)
	}
}

func TestHostname(t *testing.T) {
	c := NewClient(Instance{Alias: "test", Address: "http://pi.hole:8080"}, time.Second)
	if got := c.Hostname(); got != "pi.hole" {
		t.Errorf("Hostname = %q, want %q", got, "pi.hole")
	}
}
