package tokencache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// fileEntry is the on-disk shape of a cached token. Expiry is unix seconds,
// matching the document format other tooling in the deployment reads.
type fileEntry struct {
	Token  string `json:"token"`
	Expiry int64  `json:"token_expiry"`
}

// FileStore persists the token cache as a single JSON document, replaced
// atomically on every save.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore creates a file-backed token cache at the given path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Load reads the cache document. Entries with missing fields or an expiry
// at or before now are dropped. A missing file is an empty cache.
func (s *FileStore) Load() (map[string]Entry, error) {
	entries := make(map[string]Entry)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return entries, fmt.Errorf("failed to read token cache %s: %w", s.path, err)
	}

	var doc map[string]fileEntry
	if err := json.Unmarshal(data, &doc); err != nil {
		return entries, fmt.Errorf("failed to parse token cache %s: %w", s.path, err)
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

// Save writes the unexpired entries to a temporary file and atomically
// renames it over the cache path.
func (s *FileStore) Save(entries map[string]Entry) error {
	now := s.now()
	doc := make(map[string]fileEntry, len(entries))
	for id, e := range entries {
		if !e.Live(now) {
			continue
		}
		doc[id] = fileEntry{Token: e.Token, Expiry: e.Expiry.Unix()}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token cache: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace token cache: %w", err)
	}
	return nil
}
