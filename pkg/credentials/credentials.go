package credentials

import (
	"encoding/json"
	"fmt"
	"os"
)

// Credential is an id/secret pair used to obtain a bearer token from the
// authorization server. Immutable once loaded; identity is the ID.
type Credential struct {
	ID     string `json:"client_id"`
	Secret string `json:"client_secret"`
}

// ShortID returns a log-safe prefix of the client id
func (c Credential) ShortID() string {
	if len(c.ID) <= 8 {
		return c.ID
	}
	return c.ID[:8]
}

// document is the shape of the credential source file
type document struct {
	Clients []Credential `json:"clients"`
}

// Load reads credential pairs from a JSON document of the shape
// {"clients": [{"client_id": ..., "client_secret": ...}, ...]}.
//
// Callers are expected to treat a failure as an empty pool rather than a
// crash; the system stays up (and reports itself unusable) without
// credentials.
func Load(path string) ([]Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clients file %s: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, path string) ([]Credential, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse clients file %s: %w", path, err)
	}

	creds := make([]Credential, 0, len(doc.Clients))
	for _, c := range doc.Clients {
		if c.ID == "" || c.Secret == "" {
			continue
		}
		creds = append(creds, c)
	}
	return creds, nil
}
