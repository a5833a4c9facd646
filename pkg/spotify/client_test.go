package spotify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotpool/pkg/config"
	"spotpool/pkg/credentials"
	"spotpool/pkg/errors"
	"spotpool/pkg/logger"
	"spotpool/pkg/pool"
	"spotpool/pkg/tokencache"
)

// mockResponse is one canned transport result
type mockResponse struct {
	status  int
	body    string
	headers map[string]string
	err     error
}

// mockRoundTripper replays canned responses in order and records every request
type mockRoundTripper struct {
	mu        sync.Mutex
	responses []mockResponse
	requests  []*http.Request
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("unexpected request %d to %s", len(m.requests), req.URL)
	}
	next := m.responses[0]
	m.responses = m.responses[1:]

	if next.err != nil {
		return nil, next.err
	}
	header := make(http.Header)
	for k, v := range next.headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode: next.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(next.body)),
	}, nil
}

func (m *mockRoundTripper) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockRoundTripper) request(i int) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

// staticIssuer hands out deterministic tokens without touching the network
type staticIssuer struct{}

func (staticIssuer) Issue(_ context.Context, cred credentials.Credential) (string, error) {
	return "tok-" + cred.ID, nil
}

// countingIssuer numbers tokens so reissues are observable
type countingIssuer struct {
	mu sync.Mutex
	n  int
}

func (ci *countingIssuer) Issue(_ context.Context, _ credentials.Credential) (string, error) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.n++
	return fmt.Sprintf("tok-%d", ci.n), nil
}

func poolCredentials(n int) []credentials.Credential {
	creds := make([]credentials.Credential, 0, n)
	for i := 0; i < n; i++ {
		creds = append(creds, credentials.Credential{
			ID:     fmt.Sprintf("%02dabcdef0123456789abcdef01234567", i),
			Secret: "secret",
		})
	}
	return creds
}

// newTestClient wires a client to the mock transport with pacing disabled and
// sleeps recorded instead of taken.
func newTestClient(t *testing.T, p *pool.Pool, rt *mockRoundTripper) (*Client, *[]time.Duration) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Pacing.MinInterval = 0
	cfg.Pacing.SlowdownAfter = 0

	c := NewClient(p, cfg, logger.NewTestLogger())
	c.httpClient = &http.Client{Transport: rt}

	slept := &[]time.Duration{}
	c.sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return c, slept
}

func newTestPool(creds []credentials.Credential, issuer pool.Issuer, cache tokencache.Store) *pool.Pool {
	return pool.New(creds, issuer, cache, pool.Options{Logger: logger.NewTestLogger()})
}

func TestGetSuccess(t *testing.T) {
	rt := &mockRoundTripper{responses: []mockResponse{
		{status: 200, body: `{"id":"abc","name":"Test Playlist"}`},
	}}
	p := newTestPool(poolCredentials(1), staticIssuer{}, nil)
	c, slept := newTestClient(t, p, rt)

	handle, err := c.Acquire(context.Background())
	require.NoError(t, err)

	body, err := handle.Get(context.Background(),
		APIBaseURL+"/playlists/abc", url.Values{"market": {"US"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","name":"Test Playlist"}`, string(body))

	require.Equal(t, 1, rt.requestCount())
	req := rt.request(0)
	assert.Equal(t, "Bearer tok-"+handle.CredentialID(), req.Header.Get("Authorization"))
	assert.Equal(t, userAgent, req.Header.Get("User-Agent"))
	assert.Equal(t, "US", req.URL.Query().Get("market"))
	assert.Empty(t, *slept)

	report := p.Status()
	assert.Equal(t, int64(1), report.Entries[0].Requests)
}

func TestGetRateLimitRotatesToLiveCredential(t *testing.T) {
	creds := poolCredentials(2)
	cache := tokencache.NewMemoryStore()
	// The second credential already holds a live token, so rotation can
	// move traffic over without waiting out the limit.
	require.NoError(t, cache.Save(map[string]tokencache.Entry{
		creds[1].ID: {Token: "cached-bravo", Expiry: time.Now().Add(time.Hour)},
	}))

	rt := &mockRoundTripper{responses: []mockResponse{
		{status: 429, headers: map[string]string{"Retry-After": "30"}},
		{status: 200, body: `{"ok":true}`},
	}}
	p := newTestPool(creds, staticIssuer{}, cache)
	c, slept := newTestClient(t, p, rt)

	handle, err := c.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, creds[0].ID, handle.CredentialID())

	_, err = handle.Get(context.Background(), APIBaseURL+"/playlists/abc", nil)
	require.NoError(t, err)

	require.Equal(t, 2, rt.requestCount())
	assert.Equal(t, "Bearer cached-bravo", rt.request(1).Header.Get("Authorization"))
	// Rotation succeeded, so the Retry-After value is ignored
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, *slept)

	report := p.Status()
	assert.Equal(t, 1, report.RateLimited)
	assert.Equal(t, creds[1].ID, report.Current)
}

func TestGetRateLimitWaitsWhenPoolExhausted(t *testing.T) {
	rt := &mockRoundTripper{responses: []mockResponse{
		{status: 429, headers: map[string]string{"Retry-After": "2"}},
		{status: 200, body: `{"ok":true}`},
	}}
	p := newTestPool(poolCredentials(1), staticIssuer{}, nil)
	c, slept := newTestClient(t, p, rt)

	handle, err := c.Acquire(context.Background())
	require.NoError(t, err)

	_, err = handle.Get(context.Background(), APIBaseURL+"/playlists/abc", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, rt.requestCount())
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
}

func TestGetRateLimitWaitIsCapped(t *testing.T) {
	rt := &mockRoundTripper{responses: []mockResponse{
		{status: 429, headers: map[string]string{"Retry-After": "600"}},
		{status: 200, body: `{"ok":true}`},
	}}
	p := newTestPool(poolCredentials(1), staticIssuer{}, nil)
	c, slept := newTestClient(t, p, rt)

	handle, err := c.Acquire(context.Background())
	require.NoError(t, err)

	_, err = handle.Get(context.Background(), APIBaseURL+"/playlists/abc", nil)
	require.NoError(t, err)

	// A ten-minute Retry-After is never honored in full
	assert.Equal(t, []time.Duration{5 * time.Second}, *slept)
}

func TestGetUnauthorizedForcesReissue(t *testing.T) {
	rt := &mockRoundTripper{responses: []mockResponse{
		{status: 401},
		{status: 200, body: `{"ok":true}`},
	}}
	issuer := &countingIssuer{}
	p := newTestPool(poolCredentials(1), issuer, nil)
	c, _ := newTestClient(t, p, rt)

	handle, err := c.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-1", mustAuthHeaderAfter(t, handle))

	_, err = handle.Get(context.Background(), APIBaseURL+"/me", nil)
	require.NoError(t, err)

	require.Equal(t, 2, rt.requestCount())
	assert.Equal(t, "Bearer tok-1", rt.request(0).Header.Get("Authorization"))
	assert.Equal(t, "Bearer tok-2", rt.request(1).Header.Get("Authorization"))
}

// mustAuthHeaderAfter returns the Authorization header the handle would send
// right now, without issuing a request.
func mustAuthHeaderAfter(t *testing.T, h *Handle) string {
	t.Helper()
	token, ok := h.client.pool.Token(h.credentialID)
	require.True(t, ok)
	return "Bearer " + token
}

func TestGetNotFoundIsTerminal(t *testing.T) {
	rt := &mockRoundTripper{responses: []mockResponse{
		{status: 404},
	}}
	p := newTestPool(poolCredentials(2), staticIssuer{}, nil)
	c, _ := newTestClient(t, p, rt)

	handle, err := c.Acquire(context.Background())
	require.NoError(t, err)

	_, err = handle.Get(context.Background(), APIBaseURL+"/playlists/gone", nil)
	require.Error(t, err)

	var apiErr *errors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrorTypeNotFound, apiErr.Type)
	assert.Equal(t, 404, apiErr.Code)
	assert.Equal(t, 1, rt.requestCount(), "a missing resource is not retried")
}

func TestGetServerErrorRotatesAndRetries(t *testing.T) {
	rt := &mockRoundTripper{responses: []mockResponse{
		{status: 503},
		{status: 200, body: `{"ok":true}`},
	}}
	p := newTestPool(poolCredentials(1), staticIssuer{}, nil)
	c, slept := newTestClient(t, p, rt)

	handle, err := c.Acquire(context.Background())
	require.NoError(t, err)

	_, err = handle.Get(context.Background(), APIBaseURL+"/me", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, rt.requestCount())
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *slept)
}

func TestGetTransportErrorRetries(t *testing.T) {
	rt := &mockRoundTripper{responses: []mockResponse{
		{err: fmt.Errorf("connection reset by peer")},
		{status: 200, body: `{"ok":true}`},
	}}
	p := newTestPool(poolCredentials(1), staticIssuer{}, nil)
	c, _ := newTestClient(t, p, rt)

	handle, err := c.Acquire(context.Background())
	require.NoError(t, err)

	_, err = handle.Get(context.Background(), APIBaseURL+"/me", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rt.requestCount())
}

func TestGetMaxRetriesExceeded(t *testing.T) {
	responses := make([]mockResponse, 0, 6)
	for i := 0; i < 6; i++ {
		responses = append(responses, mockResponse{status: 500})
	}
	rt := &mockRoundTripper{responses: responses}
	p := newTestPool(poolCredentials(1), staticIssuer{}, nil)
	c, _ := newTestClient(t, p, rt)

	handle, err := c.Acquire(context.Background())
	require.NoError(t, err)

	_, err = handle.Get(context.Background(), APIBaseURL+"/me", nil)
	require.Error(t, err)

	var apiErr *errors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrorTypeMaxRetries, apiErr.Type)
	assert.Contains(t, apiErr.Message, "server returned 500")
	assert.Equal(t, 6, rt.requestCount())
}

func TestGetContextCancellation(t *testing.T) {
	rt := &mockRoundTripper{}
	p := newTestPool(poolCredentials(1), staticIssuer{}, nil)
	c, _ := newTestClient(t, p, rt)

	handle, err := c.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = handle.Get(ctx, APIBaseURL+"/me", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, rt.requestCount())
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"missing", "", 0},
		{"seconds", "30", 30 * time.Second},
		{"zero", "0", 0},
		{"negative", "-5", 0},
		{"http date unsupported", "Wed, 21 Oct 2026 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := make(http.Header)
			if tt.header != "" {
				header.Set("Retry-After", tt.header)
			}
			resp := &http.Response{Header: header}
			assert.Equal(t, tt.want, parseRetryAfter(resp))
		})
	}
}
