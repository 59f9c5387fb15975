package mock

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cfkv/workers-kv-go/internal/cfapi"
)

// Seed describes the initial contents of a Store. It is usually read from
// a TOML file:
//
//	[[namespaces]]
//	title = "users"
//
//	  [[namespaces.entries]]
//	  key = "/users/1"
//	  value = "1337"
//	  metadata = { ip = "1.2.3.4" }
type Seed struct {
	Namespaces []SeedNamespace `toml:"namespaces"`
}

// SeedNamespace is a namespace and its entries. ID is generated when empty.
type SeedNamespace struct {
	ID      string      `toml:"id"`
	Title   string      `toml:"title"`
	Entries []SeedEntry `toml:"entries"`
}

// SeedEntry is a single key. Value is the stored text, typically JSON.
type SeedEntry struct {
	Key           string         `toml:"key"`
	Value         string         `toml:"value"`
	Base64        bool           `toml:"base64"`
	Metadata      map[string]any `toml:"metadata"`
	ExpirationTTL int64          `toml:"expiration_ttl"`
}

// LoadSeed reads a TOML seed file.
func LoadSeed(path string) (*Seed, error) {
	var seed Seed
	if _, err := toml.DecodeFile(path, &seed); err != nil {
		return nil, fmt.Errorf("mock kv: decode seed %s: %w", path, err)
	}
	return &seed, nil
}

// ParseSeed decodes a TOML seed document.
func ParseSeed(doc string) (*Seed, error) {
	var seed Seed
	if _, err := toml.Decode(doc, &seed); err != nil {
		return nil, fmt.Errorf("mock kv: decode seed: %w", err)
	}
	return &seed, nil
}

// Apply creates the seed's namespaces and writes their entries. It returns
// the namespaces in seed order with their assigned ids.
func (s *Store) Apply(seed *Seed) ([]NamespaceInfo, error) {
	if seed == nil {
		return nil, nil
	}
	out := make([]NamespaceInfo, 0, len(seed.Namespaces))
	for _, sn := range seed.Namespaces {
		if strings.TrimSpace(sn.Title) == "" {
			return nil, fmt.Errorf("mock kv: seed namespace missing title")
		}
		ns, err := s.createNamespace(sn.ID, sn.Title)
		if err != nil {
			return nil, fmt.Errorf("mock kv: seed namespace %q: %w", sn.Title, err)
		}

		entries := make([]WriteEntry, 0, len(sn.Entries))
		for _, e := range sn.Entries {
			if strings.TrimSpace(e.Key) == "" {
				return nil, fmt.Errorf("mock kv: seed entry in %q missing key", sn.Title)
			}
			we := WriteEntry{
				Key:           e.Key,
				Value:         e.Value,
				Base64:        e.Base64,
				ExpirationTTL: e.ExpirationTTL,
			}
			if len(e.Metadata) > 0 {
				raw, err := cfapi.JSON.Marshal(e.Metadata)
				if err != nil {
					return nil, fmt.Errorf("mock kv: seed metadata for %q: %w", e.Key, err)
				}
				we.Metadata = raw
			}
			entries = append(entries, we)
		}
		if _, err := s.writeEntries(ns.ID, entries); err != nil {
			return nil, fmt.Errorf("mock kv: seed entries for %q: %w", sn.Title, err)
		}
		out = append(out, ns)
	}
	return out, nil
}
