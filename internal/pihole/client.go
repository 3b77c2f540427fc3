package pihole

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const maxRequestTimeout = 30 * time.Second

// RequestTimeout derives the per-request HTTP timeout from the polling
// interval: half the interval, capped at 30 seconds, so a hung request
// cannot run past the next scheduled tick.
func RequestTimeout(interval time.Duration) time.Duration {
	timeout := interval / 2
	if timeout > maxRequestTimeout {
		return maxRequestTimeout
	}
	return timeout
}

// AuthError reports a failed authentication attempt against an instance.
type AuthError struct {
	Alias string
	Err   error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authenticating %s: %v", e.Alias, e.Err)
	}
	return fmt.Sprintf("authenticating %s: session not valid", e.Alias)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Client talks to one Pi-hole instance over the FTL v6 HTTP API. Fetch
// methods never return an error: failures are logged with the instance
// alias and converted to a nil result so a cycle can proceed with
// partial data.
type Client struct {
	alias    string
	address  string
	password string
	sid      string
	http     *http.Client
}

// NewClient builds a client for one instance. The password is held only
// until Authenticate succeeds.
func NewClient(inst Instance, timeout time.Duration) *Client {
	return &Client{
		alias:    inst.Alias,
		address:  inst.Address,
		password: inst.Password,
		http:     &http.Client{Timeout: timeout},
	}
}

// Alias returns the configured display name for the instance.
func (c *Client) Alias() string { return c.alias }

// Address returns the instance base URL.
func (c *Client) Address() string { return c.address }

// Hostname returns the host part of the instance address, for tagging.
func (c *Client) Hostname() string {
	u, err := url.Parse(c.address)
	if err != nil {
		return c.address
	}
	return u.Hostname()
}

// HasCredential reports whether a password is available to
// authenticate with. Instances without one are polled unauthenticated,
// which the v6 API answers only for endpoints with auth disabled.
func (c *Client) HasCredential() bool { return c.password != "" }

// Authenticated reports whether a session has been established.
func (c *Client) Authenticated() bool { return c.sid != "" }

// Authenticate logs in with the instance password and returns the
// session ID. On success the session is retained for subsequent calls
// and the plaintext password is dropped from memory.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(authRequest{Password: c.password})
	if err != nil {
		return "", &AuthError{Alias: c.alias, Err: err}
	}

	endpoint := c.address + "/api/auth"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &AuthError{Alias: c.alias, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &AuthError{Alias: c.alias, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{Alias: c.alias, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Alias: c.alias, Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(raw))}
	}

	var parsed authResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &AuthError{Alias: c.alias, Err: err}
	}
	if !parsed.Session.Valid {
		return "", &AuthError{Alias: c.alias}
	}

	c.sid = parsed.Session.SID
	c.password = ""
	return c.sid, nil
}

// Summary fetches the activity overview.
func (c *Client) Summary(ctx context.Context) *Summary {
	var s Summary
	if !c.get(ctx, "/stats/summary", &s) {
		return nil
	}
	return &s
}

// TopClients fetches the top client list, limited to count entries.
func (c *Client) TopClients(ctx context.Context, count int) *TopClients {
	var t TopClients
	if !c.get(ctx, "/stats/top_clients?count="+strconv.Itoa(count), &t) {
		return nil
	}
	return &t
}

// TopDomains fetches the top permitted or blocked domain list.
func (c *Client) TopDomains(ctx context.Context, count int, blocked bool) *TopDomains {
	var t TopDomains
	endpoint := fmt.Sprintf("/stats/top_domains?count=%d&blocked=%t", count, blocked)
	if !c.get(ctx, endpoint, &t) {
		return nil
	}
	return &t
}

// Upstreams fetches upstream destination metrics.
func (c *Client) Upstreams(ctx context.Context) *Upstreams {
	var u Upstreams
	if !c.get(ctx, "/stats/upstreams", &u) {
		return nil
	}
	return &u
}

// History fetches the time-bucketed activity graph data.
func (c *Client) History(ctx context.Context) *History {
	var h History
	if !c.get(ctx, "/history", &h) {
		return nil
	}
	return &h
}

// Blocking fetches the current blocking status.
func (c *Client) Blocking(ctx context.Context) *BlockingStatus {
	var b BlockingStatus
	if !c.get(ctx, "/dns/blocking", &b) {
		return nil
	}
	return &b
}

// get issues one authenticated GET and decodes the JSON body into out.
// Without a session it short-circuits to false with no network call.
// Transport errors and error statuses are logged and reported as false.
func (c *Client) get(ctx context.Context, endpoint string, out any) bool {
	if c.sid == "" {
		return false
	}

	target := c.address + "/api" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		log.Printf("[%s] error building request for %s: %v", c.alias, target, err)
		return false
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-FTL-SID", c.sid)

	resp, err := c.http.Do(req)
	if err != nil {
		var ue *url.Error
		switch {
		case errors.As(err, &ue) && ue.Timeout():
			log.Printf("[%s] timeout connecting to %s: %v", c.alias, c.address, err)
		default:
			log.Printf("[%s] error connecting to %s: %v", c.alias, c.address, err)
		}
		return false
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[%s] error reading response from %s: %v", c.alias, target, err)
		return false
	}

	if resp.StatusCode >= http.StatusBadRequest {
		log.Printf("[%s] [HTTP %d] error executing request to %s", c.alias, resp.StatusCode, target)
		if resp.StatusCode < http.StatusInternalServerError {
			c.logAPIError(raw)
		}
		return false
	}

	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("[%s] error decoding response from %s: %v", c.alias, target, err)
		return false
	}
	return true
}

// logAPIError surfaces the structured error payload FTL attaches to 4xx
// responses, when present.
func (c *Client) logAPIError(raw []byte) {
	var parsed apiError
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Error.Key == "" {
		return
	}
	hint := "none"
	if parsed.Error.Hint != "" {
		hint = "(hint: " + parsed.Error.Hint + ")"
	}
	log.Printf("[%s] [%s] %s %s", c.alias, parsed.Error.Key, parsed.Error.Message, hint)
}
