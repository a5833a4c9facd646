package pool

import (
	"fmt"
	"strings"
	"time"
)

// CredentialStatus is one credential's line in the status report
type CredentialStatus struct {
	ID       string
	ShortID  string
	Status   Status
	Requests int64
	LastUsed time.Time
	// TokenLive reports whether a stored token is unexpired right now
	TokenLive bool
}

// Report is a point-in-time snapshot of the pool, for the human operator
type Report struct {
	Entries     []CredentialStatus
	Active      int
	RateLimited int
	Invalid     int
	Current     string
}

// Status snapshots every credential's state in ring order
func (p *Pool) Status() Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	report := Report{
		Entries: make([]CredentialStatus, 0, len(p.creds)),
	}
	for _, c := range p.creds {
		s := p.states[c.ID]
		report.Entries = append(report.Entries, CredentialStatus{
			ID:        c.ID,
			ShortID:   c.ShortID(),
			Status:    s.status,
			Requests:  s.requests,
			LastUsed:  s.lastUsed,
			TokenLive: s.token != "" && s.expiry.After(now),
		})
		switch s.status {
		case StatusActive:
			report.Active++
		case StatusRateLimited:
			report.RateLimited++
		case StatusInvalid:
			report.Invalid++
		}
	}
	if len(p.creds) > 0 && p.cursor < len(p.creds) {
		report.Current = p.creds[p.cursor].ID
	}
	return report
}

// String formats the report as one line per credential plus a summary
func (r Report) String() string {
	if len(r.Entries) == 0 {
		return "no clients loaded"
	}

	var b strings.Builder
	for _, e := range r.Entries {
		marker := " "
		if e.ID == r.Current {
			marker = "*"
		}
		detail := string(e.Status)
		if e.Status == StatusActive && e.TokenLive {
			detail = "active (token live)"
		}
		fmt.Fprintf(&b, "%s %-8s  %-20s  %d requests\n", marker, e.ShortID, detail, e.Requests)
	}
	fmt.Fprintf(&b, "active: %d  rate-limited: %d  invalid: %d", r.Active, r.RateLimited, r.Invalid)
	return b.String()
}
