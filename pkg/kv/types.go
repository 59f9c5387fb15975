package kv

import (
	"encoding/json"

	"github.com/cfkv/workers-kv-go/internal/cfapi"
)

// Item represents a stored key/value pair.
type Item[T any] struct {
	Key   string
	Value T
}

// Namespace is a named container of key/value entries.
type Namespace struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	SupportsURLEncoding bool   `json:"supports_url_encoding,omitempty"`
}

// KeyEntry is one element of a key listing. Expiration is a Unix
// timestamp in seconds, zero when the key does not expire.
type KeyEntry struct {
	Name       string          `json:"name"`
	Expiration int64           `json:"expiration,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// ResultInfo carries pagination metadata returned alongside listings.
type ResultInfo = cfapi.ResultInfo

// KeyList is a single page of keys.
type KeyList struct {
	Result []KeyEntry `json:"result"`
	Info   ResultInfo `json:"result_info"`
}

// NamespaceList is a single page of namespaces. Next holds the following
// page number, or 0 when this is the last page.
type NamespaceList struct {
	Result []Namespace `json:"result"`
	Info   ResultInfo  `json:"result_info"`
	Next   int         `json:"next,omitempty"`
}

// PutOptions controls write semantics for Put operations. Expiration is
// an absolute Unix timestamp in seconds; ExpirationTTL is relative to the
// time of the write. Zero values are not sent.
type PutOptions struct {
	Metadata      any
	Expiration    int64
	ExpirationTTL int64
	Base64        bool
}

// ListOptions selects a page of keys. Zero values are not sent.
type ListOptions struct {
	Cursor string
	Limit  int
	Prefix string
}

// Direction orders namespace listings.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// NamespaceOrder selects the field namespace listings are sorted by.
type NamespaceOrder string

const (
	OrderByID    NamespaceOrder = "id"
	OrderByTitle NamespaceOrder = "title"
)

// NamespaceListOptions selects a page of namespaces. Zero values are not sent.
type NamespaceListOptions struct {
	Direction Direction
	Order     NamespaceOrder
	Page      int
	PerPage   int
}

// WriteResult is the acknowledgment returned by bulk writes and deletes.
type WriteResult struct {
	SuccessfulKeyCount int      `json:"successful_key_count"`
	UnsuccessfulKeys   []string `json:"unsuccessful_keys,omitempty"`
}

// BulkEntry is one element of a bulk write. Value is the stored text.
type BulkEntry struct {
	Key           string `json:"key"`
	Value         string `json:"value"`
	Metadata      any    `json:"metadata,omitempty"`
	Expiration    int64  `json:"expiration,omitempty"`
	ExpirationTTL int64  `json:"expiration_ttl,omitempty"`
	Base64        bool   `json:"base64,omitempty"`
}
