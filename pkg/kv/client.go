package kv

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cfkv/workers-kv-go/internal/cfapi"
	"github.com/cfkv/workers-kv-go/internal/httpx"
)

// DefaultBaseURL is the API root requests are sent to unless WithBaseURL
// overrides it.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// Client provides access to the Workers KV REST API for one account. A
// Client is safe for concurrent use; it holds no mutable state.
type Client struct {
	accountID   string
	token       string
	namespaceID string
	http        *httpx.Client
}

type config struct {
	baseURL     string
	httpClient  *http.Client
	headers     http.Header
	namespaceID string
}

// Option configures a Client.
type Option func(*config)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the *http.Client used for every request.
func WithHTTPClient(h *http.Client) Option {
	return func(c *config) {
		c.httpClient = h
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(h http.Header) Option {
	return func(c *config) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithNamespace binds the Client to a namespace at construction.
func WithNamespace(namespaceID string) Option {
	return func(c *config) {
		c.namespaceID = namespaceID
	}
}

// New constructs a Client for accountID authenticating with token.
func New(accountID, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("kv: account id is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("kv: API token is required")
	}

	cfg := config{baseURL: DefaultBaseURL, headers: make(http.Header)}
	for _, opt := range opts {
		opt(&cfg)
	}

	cl, err := httpx.NewClient(cfg.baseURL,
		httpx.WithHTTPClient(cfg.httpClient),
		httpx.WithHeaders(cfg.headers),
		httpx.WithBearerToken(token),
	)
	if err != nil {
		return nil, fmt.Errorf("kv: init HTTP client: %w", err)
	}
	return &Client{
		accountID:   accountID,
		token:       token,
		namespaceID: cfg.namespaceID,
		http:        cl,
	}, nil
}

// AccountID returns the account the client acts on.
func (c *Client) AccountID() string { return c.accountID }

// NamespaceID returns the bound namespace, or "" when unbound.
func (c *Client) NamespaceID() string { return c.namespaceID }

// From returns a new Client sharing c's credentials and transport, bound to
// namespaceID. c itself is not modified.
func (c *Client) From(namespaceID string) *Client {
	return &Client{
		accountID:   c.accountID,
		token:       c.token,
		namespaceID: namespaceID,
		http:        c.http,
	}
}

// Namespaces returns the namespace manager for the client's account.
func (c *Client) Namespaces() *Namespaces {
	return &Namespaces{client: c}
}

// Metadata returns the metadata accessor for the client's namespace.
func (c *Client) Metadata() *Metadata {
	return &Metadata{client: c}
}

// Put stores value encoded as JSON text under key.
func Put[T any](ctx context.Context, client *Client, key string, value T, opts *PutOptions) (*WriteResult, error) {
	if client == nil {
		return nil, fmt.Errorf("kv: client is nil")
	}
	payload, err := cfapi.JSON.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("kv: encode value: %w", err)
	}
	return client.putText(ctx, key, string(payload), opts)
}

// Get retrieves the value stored under key and decodes it into T. A key
// that does not exist yields a nil Item and a nil error.
func Get[T any](ctx context.Context, client *Client, key string) (*Item[T], error) {
	if client == nil {
		return nil, fmt.Errorf("kv: client is nil")
	}
	raw, err := client.GetJSON(ctx, key)
	if err != nil || raw == nil {
		return nil, err
	}
	var value T
	if err := cfapi.JSON.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("kv: decode value: %w", err)
	}
	return &Item[T]{Key: key, Value: value}, nil
}

// PutJSON stores a pre-encoded JSON document under key.
func (c *Client) PutJSON(ctx context.Context, key string, raw json.RawMessage, opts *PutOptions) (*WriteResult, error) {
	if !cfapi.JSON.Valid(raw) {
		return nil, fmt.Errorf("kv: value for %q is not valid JSON", key)
	}
	return c.putText(ctx, key, string(raw), opts)
}

// GetJSON fetches the JSON text stored for key, or nil when the key does
// not exist.
func (c *Client) GetJSON(ctx context.Context, key string) (json.RawMessage, error) {
	data, err := c.getRaw(ctx, key)
	if err != nil || data == nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// PutBytes stores opaque bytes under key. The payload travels base64
// encoded and is stored decoded.
func (c *Client) PutBytes(ctx context.Context, key string, data []byte, opts *PutOptions) (*WriteResult, error) {
	var o PutOptions
	if opts != nil {
		o = *opts
	}
	o.Base64 = true
	return c.putText(ctx, key, base64.StdEncoding.EncodeToString(data), &o)
}

// GetBytes fetches the raw bytes stored for key, or nil when the key does
// not exist.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return c.getRaw(ctx, key)
}

// PutMany writes entries in a single bulk request.
func (c *Client) PutMany(ctx context.Context, entries []BulkEntry) (*WriteResult, error) {
	path, err := c.nsPath("/bulk")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Key == "" {
			return nil, fmt.Errorf("kv: key is required")
		}
	}
	var out WriteResult
	if err := c.result(ctx, apiCall{method: http.MethodPut, path: path, body: entries}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes key. Deleting a key that does not exist succeeds.
func (c *Client) Delete(ctx context.Context, key string) (*WriteResult, error) {
	if key == "" {
		return nil, fmt.Errorf("kv: key is required")
	}
	return c.DeleteMany(ctx, []string{key})
}

// DeleteMany removes keys in a single bulk request.
func (c *Client) DeleteMany(ctx context.Context, keys []string) (*WriteResult, error) {
	path, err := c.nsPath("/bulk/delete")
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	var out WriteResult
	if err := c.result(ctx, apiCall{method: http.MethodPost, path: path, body: keys}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List fetches one page of keys. Info.Cursor continues the listing and is
// empty on the last page.
func (c *Client) List(ctx context.Context, opts *ListOptions) (*KeyList, error) {
	path, err := c.nsPath("/keys")
	if err != nil {
		return nil, err
	}
	var o ListOptions
	if opts != nil {
		o = *opts
	}
	query := httpx.Query{}.
		Add("cursor", optional(o.Cursor)).
		Add("limit", optional(o.Limit)).
		Add("prefix", optional(o.Prefix))

	env, err := c.envelope(ctx, apiCall{path: path, query: query})
	if err != nil {
		return nil, err
	}
	out := &KeyList{Info: resultInfo(env)}
	if err := env.DecodeResult(&out.Result); err != nil {
		return nil, fmt.Errorf("kv: decode key list: %w", err)
	}
	if out.Result == nil {
		out.Result = []KeyEntry{}
	}
	return out, nil
}

// ListAll follows cursors until every key matching prefix has been listed.
func (c *Client) ListAll(ctx context.Context, prefix string) ([]KeyEntry, error) {
	var (
		all    []KeyEntry
		cursor string
	)
	for {
		page, err := c.List(ctx, &ListOptions{Cursor: cursor, Prefix: prefix})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Result...)
		if page.Info.Cursor == "" || page.Info.Cursor == cursor {
			return all, nil
		}
		cursor = page.Info.Cursor
	}
}

func (c *Client) putText(ctx context.Context, key, value string, opts *PutOptions) (*WriteResult, error) {
	if key == "" {
		return nil, fmt.Errorf("kv: key is required")
	}
	entry := BulkEntry{Key: key, Value: value}
	if opts != nil {
		entry.Metadata = opts.Metadata
		entry.Expiration = opts.Expiration
		entry.ExpirationTTL = opts.ExpirationTTL
		entry.Base64 = opts.Base64
	}
	return c.PutMany(ctx, []BulkEntry{entry})
}

func (c *Client) getRaw(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("kv: key is required")
	}
	path, err := c.nsPath("/values/" + httpx.EscapeComponent(key))
	if err != nil {
		return nil, err
	}
	data, err := c.text(ctx, path)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// nsPath prefixes suffix with the bound namespace.
func (c *Client) nsPath(suffix string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("kv: client is nil")
	}
	if c.namespaceID == "" {
		return "", ErrNoNamespace
	}
	return "/" + httpx.EscapeComponent(c.namespaceID) + suffix, nil
}
