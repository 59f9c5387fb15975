package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cfkv/workers-kv-go/internal/cfapi"
	"github.com/cfkv/workers-kv-go/internal/httpx"
)

// Metadata reads the metadata attached to keys of the client's namespace.
type Metadata struct {
	client *Client
}

// Get returns the metadata stored with key, or nil when the key does not
// exist. A key written without metadata yields JSON null.
func (m *Metadata) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if key == "" {
		return nil, fmt.Errorf("kv: key is required")
	}
	path, err := m.client.nsPath("/metadata/" + httpx.EscapeComponent(key))
	if err != nil {
		return nil, err
	}
	env, err := m.client.envelope(ctx, apiCall{path: path})
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(env.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return env.Result, nil
}

// GetMetadata decodes the metadata stored with key into T. It returns nil
// when the key does not exist or carries no metadata.
func GetMetadata[T any](ctx context.Context, client *Client, key string) (*T, error) {
	if client == nil {
		return nil, fmt.Errorf("kv: client is nil")
	}
	raw, err := client.Metadata().Get(ctx, key)
	if err != nil || raw == nil || string(raw) == "null" {
		return nil, err
	}
	var out T
	if err := cfapi.JSON.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("kv: decode metadata: %w", err)
	}
	return &out, nil
}
