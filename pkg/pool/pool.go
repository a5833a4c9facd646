package pool

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"spotpool/pkg/credentials"
	"spotpool/pkg/errors"
	"spotpool/pkg/logger"
	"spotpool/pkg/tokencache"
)

// Status is the lifecycle state of one credential in the pool
type Status string

const (
	// StatusActive means the credential is usable (it may still need a
	// fresh token)
	StatusActive Status = "active"
	// StatusRateLimited means the credential recently hit the rate limit;
	// rotation revives it after a cooldown
	StatusRateLimited Status = "rate_limited"
	// StatusInvalid means the authorization server rejected the id/secret
	// pair. Terminal for the process lifetime.
	StatusInvalid Status = "invalid"
)

// Issuer exchanges a credential pair for a bearer token. Failures must be
// typed (errors.Error) so the pool can tell invalid credentials apart from
// rate limits and transient faults.
type Issuer interface {
	Issue(ctx context.Context, cred credentials.Credential) (string, error)
}

// state is the mutable per-credential bookkeeping, guarded by the pool lock
type state struct {
	status   Status
	token    string
	expiry   time.Time
	requests int64
	lastUsed time.Time
}

// Options tunes pool behavior. Zero values fall back to the defaults the
// Spotify deployment uses.
type Options struct {
	// TokenTTL is how long an issued token is considered live
	TokenTTL time.Duration
	// TokenBuffer is the margin before expiry at which a token is
	// proactively reissued
	TokenBuffer time.Duration
	// Cooldown is how long a rate-limited credential must sit idle before
	// rotation revives it
	Cooldown time.Duration
	// Clock overrides time.Now, for tests
	Clock func() time.Time
	Logger logger.Logger
}

// Pool multiplexes many client-credential pairs behind a single rotation
// cursor. All state transitions are serialized behind one mutex: at most one
// select/refresh operation is in flight across the whole pool at a time.
type Pool struct {
	mu     sync.Mutex
	creds  []credentials.Credential
	states map[string]*state
	cursor int

	issuer Issuer
	cache  tokencache.Store

	ttl      time.Duration
	buffer   time.Duration
	cooldown time.Duration
	now      func() time.Time
	log      logger.Logger
}

// New creates a pool over the given credentials, warming per-credential
// tokens from the cache store. Insertion order is rotation order and is
// fixed for the pool's lifetime.
func New(creds []credentials.Credential, issuer Issuer, cache tokencache.Store, opts Options) *Pool {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.TokenBuffer <= 0 {
		opts.TokenBuffer = 5 * time.Minute
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 60 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if cache == nil {
		cache = tokencache.NewMemoryStore()
	}

	p := &Pool{
		creds:    append([]credentials.Credential(nil), creds...),
		states:   make(map[string]*state, len(creds)),
		issuer:   issuer,
		cache:    cache,
		ttl:      opts.TokenTTL,
		buffer:   opts.TokenBuffer,
		cooldown: opts.Cooldown,
		now:      opts.Clock,
		log:      opts.Logger,
	}
	for _, c := range p.creds {
		p.states[c.ID] = &state{status: StatusActive}
	}

	p.warmFromCache()

	p.log.InfoWithFields("credential pool ready", map[string]interface{}{
		"clients": len(p.creds),
	})
	return p
}

// warmFromCache restores unexpired tokens saved by a previous run
func (p *Pool) warmFromCache() {
	entries, err := p.cache.Load()
	if err != nil {
		// Cache problems never affect request-path correctness
		p.log.WarnWithFields("token cache unavailable, starting cold", map[string]interface{}{
			"error": err.Error(),
		})
	}

	loaded := 0
	for id, entry := range entries {
		s, ok := p.states[id]
		if !ok {
			continue
		}
		s.token = entry.Token
		s.expiry = entry.Expiry
		loaded++
	}
	if loaded > 0 {
		p.log.InfoWithFields("restored cached tokens", map[string]interface{}{
			"count": loaded,
		})
	}
}

// Size returns the number of credentials in the ring
func (p *Pool) Size() int {
	return len(p.creds)
}

// Acquire selects a credential with a live token, issuing a fresh token when
// needed, and returns its id. Callers bind a request handle to the id; the
// handle re-reads pool state on every request, so it is safe for the pool to
// rotate away from it afterwards.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.creds) == 0 {
		return "", errors.New(errors.ErrorTypePoolExhausted, 0, "no clients loaded")
	}

	maxAttempts := len(p.creds) + 2
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if p.cursor >= len(p.creds) {
			p.cursor = 0
		}
		cred := p.creds[p.cursor]
		s := p.states[cred.ID]

		if s.status == StatusInvalid {
			p.advanceLocked()
			continue
		}

		now := p.now()
		needsToken := s.token == "" ||
			!now.Before(s.expiry.Add(-p.buffer)) ||
			s.status == StatusRateLimited

		if !needsToken {
			s.lastUsed = now
			return cred.ID, nil
		}

		p.log.DebugWithFields("requesting token", map[string]interface{}{
			"client": cred.ShortID(),
		})
		token, err := p.issuer.Issue(ctx, cred)
		if err != nil {
			p.classifyIssueFailure(cred, s, err)
			p.advanceLocked()
			continue
		}

		now = p.now()
		s.token = token
		s.expiry = now.Add(p.ttl)
		s.status = StatusActive
		s.lastUsed = now
		p.persistLocked()

		p.log.InfoWithFields("issued token", map[string]interface{}{
			"client": cred.ShortID(),
		})
		return cred.ID, nil
	}

	return "", errors.New(errors.ErrorTypePoolExhausted, 0,
		"no working client after %d attempts", maxAttempts)
}

// classifyIssueFailure maps a token-issue failure onto credential status.
// Invalid credentials are excluded from rotation permanently; everything
// else is treated like a rate limit and recovers after the cooldown.
func (p *Pool) classifyIssueFailure(cred credentials.Credential, s *state, err error) {
	var apiErr *errors.Error
	if stderrors.As(err, &apiErr) && apiErr.Type == errors.ErrorTypeInvalidClient {
		s.status = StatusInvalid
		p.log.ErrorWithFields("client has invalid credentials", map[string]interface{}{
			"client": cred.ShortID(),
		})
		return
	}
	if s.status != StatusInvalid {
		s.status = StatusRateLimited
	}
	p.log.WarnWithFields("token request failed", map[string]interface{}{
		"client": cred.ShortID(),
		"error":  err.Error(),
	})
}

// advanceLocked steps the cursor one slot around the ring. Unlike
// rotateLocked it does not require the next credential to hold a live
// token; the acquire loop issues one itself.
func (p *Pool) advanceLocked() {
	p.cursor = (p.cursor + 1) % len(p.creds)
}

// Rotate advances the cursor to the next usable credential. It returns false
// when the pool temporarily has nothing to offer; callers should surface the
// status report rather than treat that as fatal.
func (p *Pool) Rotate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rotateLocked()
}

// rotateLocked must be called with the pool lock held
func (p *Pool) rotateLocked() bool {
	if len(p.creds) == 0 {
		return false
	}

	now := p.now()

	// Pass 1: a credential that is active with an unexpired token can take
	// traffic immediately.
	for i := 1; i <= len(p.creds); i++ {
		idx := (p.cursor + i) % len(p.creds)
		s := p.states[p.creds[idx].ID]
		if s.status == StatusActive && s.token != "" && s.expiry.After(now.Add(p.buffer)) {
			p.cursor = idx
			p.log.InfoWithFields("switched client", map[string]interface{}{
				"client": p.creds[idx].ShortID(),
			})
			return true
		}
	}

	// Pass 2: revive the first rate-limited credential that has cooled
	// down. Clearing its token forces a fresh issue on next use.
	for i := 1; i <= len(p.creds); i++ {
		idx := (p.cursor + i) % len(p.creds)
		s := p.states[p.creds[idx].ID]
		if s.status != StatusRateLimited {
			continue
		}
		if s.lastUsed.IsZero() || now.Sub(s.lastUsed) >= p.cooldown {
			s.status = StatusActive
			s.token = ""
			s.expiry = time.Time{}
			p.cursor = idx
			p.log.InfoWithFields("retrying client after cooldown", map[string]interface{}{
				"client": p.creds[idx].ShortID(),
			})
			return true
		}
	}

	return false
}

// SwitchTo moves the cursor to a specific credential. The override is
// honored only when that credential is currently active.
func (p *Pool) SwitchTo(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, c := range p.creds {
		if c.ID != id {
			continue
		}
		if p.states[id].status != StatusActive {
			return false
		}
		p.cursor = i
		p.log.InfoWithFields("manually switched client", map[string]interface{}{
			"client": c.ShortID(),
		})
		return true
	}
	return false
}

// Token returns the credential's bearer token when one is stored and
// unexpired
func (p *Pool) Token(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.states[id]
	if !ok || s.token == "" || !p.now().Before(s.expiry) {
		return "", false
	}
	return s.token, true
}

// MarkRateLimited records that the credential hit the rate limit
func (p *Pool) MarkRateLimited(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.states[id]; ok && s.status != StatusInvalid {
		s.status = StatusRateLimited
	}
}

// MarkInvalid permanently excludes the credential from rotation. There is no
// recovery path short of a restart; bad keys are not worth retrying.
func (p *Pool) MarkInvalid(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.states[id]; ok {
		s.status = StatusInvalid
	}
}

// ClearToken drops the credential's token, forcing a reissue on next acquire
func (p *Pool) ClearToken(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.states[id]; ok {
		s.token = ""
		s.expiry = time.Time{}
	}
}

// RecordRequest increments the credential's request counter
func (p *Pool) RecordRequest(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.states[id]; ok {
		s.requests++
	}
}

// Touch updates the credential's last-used timestamp
func (p *Pool) Touch(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.states[id]; ok {
		s.lastUsed = p.now()
	}
}

// Current returns the id of the credential at the rotation cursor
func (p *Pool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.creds) == 0 || p.cursor >= len(p.creds) {
		return ""
	}
	return p.creds[p.cursor].ID
}

// persistLocked saves live tokens to the cache store. Best-effort: failures
// are logged and never surfaced.
func (p *Pool) persistLocked() {
	entries := make(map[string]tokencache.Entry, len(p.states))
	now := p.now()
	for id, s := range p.states {
		if s.token != "" && s.expiry.After(now) {
			entries[id] = tokencache.Entry{Token: s.token, Expiry: s.expiry}
		}
	}
	if err := p.cache.Save(entries); err != nil {
		p.log.WarnWithFields("failed to save token cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
