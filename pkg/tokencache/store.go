package tokencache

import "time"

// Entry is a cached bearer token for one credential
type Entry struct {
	Token  string
	Expiry time.Time
}

// Live reports whether the entry is usable at the given instant
func (e Entry) Live(now time.Time) bool {
	return e.Token != "" && now.Before(e.Expiry)
}

// Store persists (credential id -> token, expiry) pairs across process
// restarts. Persistence is a best-effort warm-start optimization, never a
// source of truth: implementations must treat read failures as an empty
// cache and callers must treat write failures as non-fatal.
type Store interface {
	// Load returns all stored entries that are still unexpired. A missing
	// or unreadable backing store yields an empty map.
	Load() (map[string]Entry, error)

	// Save replaces the stored document with the given entries. Expired
	// entries are dropped before writing.
	Save(entries map[string]Entry) error
}
