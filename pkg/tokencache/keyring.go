package tokencache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "spotpool"
	keyringKey     = "token_cache"
)

// KeyringStore persists the token cache as a single JSON blob in the system
// keychain. Useful on developer machines where a world-readable cache file
// is undesirable.
type KeyringStore struct {
	now func() time.Time
}

// NewKeyringStore creates a keychain-backed token cache. It fails when no
// keyring backend is available so callers can fall back to a file store.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{now: time.Now}, nil
}

// Load reads the cache blob from the keychain, dropping expired entries
func (s *KeyringStore) Load() (map[string]Entry, error) {
	entries := make(map[string]Entry)

	data, err := keyring.Get(keyringService, keyringKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return entries, nil
		}
		return entries, fmt.Errorf("failed to read token cache from keyring: %w", err)
	}

	var doc map[string]fileEntry
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return entries, fmt.Errorf("failed to parse token cache from keyring: %w", err)
	}

	now := s.now()
	for id, fe := range doc {
		if id == "" || fe.Token == "" {
			continue
		}
		expiry := time.Unix(fe.Expiry, 0)
		if !expiry.After(now) {
			continue
		}
		entries[id] = Entry{Token: fe.Token, Expiry: expiry}
	}
	return entries, nil
}

// Save replaces the cache blob in the keychain with the unexpired entries
func (s *KeyringStore) Save(entries map[string]Entry) error {
	now := s.now()
	doc := make(map[string]fileEntry, len(entries))
	for id, e := range entries {
		if !e.Live(now) {
			continue
		}
		doc[id] = fileEntry{Token: e.Token, Expiry: e.Expiry.Unix()}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode token cache: %w", err)
	}
	if err := keyring.Set(keyringService, keyringKey, string(data)); err != nil {
		return fmt.Errorf("failed to write token cache to keyring: %w", err)
	}
	return nil
}
