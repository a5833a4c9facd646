package spotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"spotpool/pkg/config"
	"spotpool/pkg/errors"
	"spotpool/pkg/logger"
	"spotpool/pkg/pool"
	"spotpool/pkg/ratelimit"
)

const userAgent = "spotpool/2.0"

// Client executes authenticated API requests through the credential pool,
// rotating credentials on rate-limit, auth, and server failures.
type Client struct {
	pool       *pool.Pool
	httpClient *http.Client
	log        logger.Logger

	maxRetries       int
	rotateDelay      time.Duration
	serverErrorDelay time.Duration
	maxRateLimitWait time.Duration

	pacing config.PacingConfig

	// sleep is injectable so tests can assert on delays without waiting
	sleep func(time.Duration)
}

// NewClient creates a request executor over the given pool
func NewClient(p *pool.Pool, cfg *config.Config, log logger.Logger) *Client {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		pool:             p,
		httpClient:       newHTTPClient(cfg.HTTP.ConnectTimeout, cfg.HTTP.RequestTimeout),
		log:              log,
		maxRetries:       cfg.Retry.MaxRetries,
		rotateDelay:      cfg.Retry.RotateDelay,
		serverErrorDelay: cfg.Retry.ServerErrorDelay,
		maxRateLimitWait: cfg.Retry.MaxRateLimitWait,
		pacing:           cfg.Pacing,
		sleep:            time.Sleep,
	}
}

// Pool returns the underlying credential pool
func (c *Client) Pool() *pool.Pool {
	return c.pool
}

// Acquire returns a handle bound to a working credential. The handle
// re-reads pool state on every request, so it stays safe to use after the
// pool rotates away from its credential; the next request simply surfaces a
// 401/429 and recovers through the normal rotation path.
func (c *Client) Acquire(ctx context.Context) (*Handle, error) {
	id, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Handle{
		client:       c,
		credentialID: id,
		pacer: ratelimit.NewPacer(c.pacing.MinInterval,
			c.pacing.SlowdownAfter, c.pacing.SlowdownDelay),
	}, nil
}

// Handle is a lightweight accessor bound to one credential at the moment of
// acquisition. It owns no credential state itself.
type Handle struct {
	client       *Client
	credentialID string
	pacer        ratelimit.Limiter
}

// CredentialID returns the id of the credential the handle was bound to
func (h *Handle) CredentialID() string {
	return h.credentialID
}

// Get issues an authenticated GET and returns the raw JSON body. Recovery
// is an explicit bounded loop: rate limits and server errors rotate the
// pool and retry, expired tokens force a reissue, 404 is terminal. After
// maxRetries failed retries the last failure is surfaced as max_retries.
func (h *Handle) Get(ctx context.Context, rawURL string, params url.Values) (json.RawMessage, error) {
	h.pacer.Wait()

	c := h.client
	id := h.credentialID
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		token, ok := c.pool.Token(id)
		if !ok {
			// Stale handle or cleared token: go back through the pool
			newID, err := c.pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			id = newID
			if token, ok = c.pool.Token(id); !ok {
				lastErr = errors.New(errors.ErrorTypeAuth, 0, "no token after acquire")
				continue
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, errors.New(errors.ErrorTypeUnknown, 0, "failed to create request: %v", err)
		}
		if len(params) > 0 {
			q := req.URL.Query()
			for k, vs := range params {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			req.URL.RawQuery = q.Encode()
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		c.pool.RecordRequest(id)
		if err != nil {
			lastErr = errors.New(errors.ErrorTypeNetwork, 0, "request failed: %v", err)
			c.log.WarnWithFields("transport failure, rotating", map[string]interface{}{
				"url":     rawURL,
				"attempt": attempt + 1,
				"error":   err.Error(),
			})
			c.pool.Rotate()
			if id, err = c.pool.Acquire(ctx); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				lastErr = errors.New(errors.ErrorTypeNetwork, resp.StatusCode,
					"failed to read response: %v", err)
				continue
			}
			c.pool.Touch(id)
			return json.RawMessage(body), nil

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp)
			resp.Body.Close()
			c.pool.MarkRateLimited(id)
			lastErr = errors.New(errors.ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded")

			if c.pool.Rotate() {
				// Another credential can take over almost immediately
				c.sleep(c.rotateDelay)
				if id, err = c.pool.Acquire(ctx); err != nil {
					return nil, err
				}
			} else {
				// Whole pool is limited; honor the server's suggested
				// delay, capped, and retry the same credential
				wait := retryAfter
				if wait <= 0 || wait > c.maxRateLimitWait {
					wait = c.maxRateLimitWait
				}
				c.log.InfoWithFields("all clients rate limited, waiting", map[string]interface{}{
					"wait": wait,
				})
				c.sleep(wait)
			}
			continue

		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			// Token expired mid-flight; force a reissue
			c.pool.ClearToken(id)
			lastErr = errors.New(errors.ErrorTypeAuth, resp.StatusCode, "token rejected")
			if id, err = c.pool.Acquire(ctx); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, errors.New(errors.ErrorTypeNotFound, resp.StatusCode,
				"resource not found: %s", rawURL)

		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = errors.New(errors.ErrorTypeServerError, resp.StatusCode,
				"server returned %d", resp.StatusCode)
			c.log.WarnWithFields("server error, rotating", map[string]interface{}{
				"status":  resp.StatusCode,
				"attempt": attempt + 1,
			})
			c.pool.Rotate()
			c.sleep(c.serverErrorDelay)
			if id, err = c.pool.Acquire(ctx); err != nil {
				return nil, err
			}
			continue

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = errors.New(errors.ErrorTypeUnknown, resp.StatusCode,
				"unexpected status %d: %s", resp.StatusCode, string(body))
			c.pool.Rotate()
			if id, err = c.pool.Acquire(ctx); err != nil {
				return nil, err
			}
			continue
		}
	}

	return nil, errors.New(errors.ErrorTypeMaxRetries, 0,
		"max retries (%d) exceeded for %s: %v", c.maxRetries, rawURL, lastErr)
}

// parseRetryAfter reads the Retry-After header as a delay in seconds
func parseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
