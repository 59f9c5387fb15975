package mock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	// MinExpirationTTL is the shortest lifetime, in seconds, a key may be
	// written with.
	MinExpirationTTL = 60
	// MaxListLimit caps the number of keys returned per listing page; it is
	// also the default page size.
	MaxListLimit = 1000
	// DefaultPerPage and MaxPerPage bound namespace listing pages.
	DefaultPerPage = 20
	MinPerPage     = 5
	MaxPerPage     = 100
)

var (
	ErrNamespaceNotFound  = errors.New("namespace not found")
	ErrNamespaceExists    = errors.New("a namespace with this account ID and title already exists")
	ErrKeyNotFound        = errors.New("key not found")
	ErrInvalidExpiration  = errors.New("invalid expiration")
	ErrInvalidCursor      = errors.New("invalid cursor")
	ErrInvalidBase64Value = errors.New("value is not valid base64")
)

type entry struct {
	value      []byte
	metadata   json.RawMessage
	expiration int64
}

func (e *entry) expired(now time.Time) bool {
	return e.expiration != 0 && now.Unix() >= e.expiration
}

type namespace struct {
	id    string
	title string

	mu      sync.RWMutex
	entries map[string]*entry
}

// NamespaceInfo describes a stored namespace.
type NamespaceInfo struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	SupportsURLEncoding bool   `json:"supports_url_encoding"`
}

// KeyInfo describes a stored key as it appears in listings.
type KeyInfo struct {
	Name       string          `json:"name"`
	Expiration int64           `json:"expiration,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// WriteEntry is one element of a bulk write.
type WriteEntry struct {
	Key           string          `json:"key"`
	Value         string          `json:"value"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	Expiration    int64           `json:"expiration,omitempty"`
	ExpirationTTL int64           `json:"expiration_ttl,omitempty"`
	Base64        bool            `json:"base64,omitempty"`
}

// Store holds the namespaces and entries of a single account in memory.
type Store struct {
	// titleMu serialises changes that must keep titles unique.
	titleMu    sync.Mutex
	namespaces *xsync.MapOf[string, *namespace]
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for expiration bookkeeping.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		namespaces: xsync.NewMapOf[string, *namespace](),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateNamespace adds a namespace titled title.
func (s *Store) CreateNamespace(ctx context.Context, title string) (NamespaceInfo, error) {
	if err := ctx.Err(); err != nil {
		return NamespaceInfo{}, err
	}
	return s.createNamespace("", title)
}

func (s *Store) createNamespace(id, title string) (NamespaceInfo, error) {
	if strings.TrimSpace(title) == "" {
		return NamespaceInfo{}, fmt.Errorf("mock kv: namespace title is required")
	}

	s.titleMu.Lock()
	defer s.titleMu.Unlock()

	if s.titleTaken(title, "") {
		return NamespaceInfo{}, ErrNamespaceExists
	}
	if id == "" {
		id = newNamespaceID()
	}
	if _, loaded := s.namespaces.LoadOrStore(id, &namespace{
		id:      id,
		title:   title,
		entries: make(map[string]*entry),
	}); loaded {
		return NamespaceInfo{}, fmt.Errorf("mock kv: namespace id %q already in use", id)
	}
	return NamespaceInfo{ID: id, Title: title, SupportsURLEncoding: true}, nil
}

// titleTaken must be called with titleMu held.
func (s *Store) titleTaken(title, exceptID string) bool {
	taken := false
	s.namespaces.Range(func(id string, ns *namespace) bool {
		if id != exceptID && ns.title == title {
			taken = true
			return false
		}
		return true
	})
	return taken
}

// Namespace returns the namespace with id.
func (s *Store) Namespace(ctx context.Context, id string) (NamespaceInfo, error) {
	if err := ctx.Err(); err != nil {
		return NamespaceInfo{}, err
	}
	ns, ok := s.namespaces.Load(id)
	if !ok {
		return NamespaceInfo{}, ErrNamespaceNotFound
	}
	return ns.info(), nil
}

// RenameNamespace changes the title of the namespace with id.
func (s *Store) RenameNamespace(ctx context.Context, id, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("mock kv: namespace title is required")
	}

	s.titleMu.Lock()
	defer s.titleMu.Unlock()

	ns, ok := s.namespaces.Load(id)
	if !ok {
		return ErrNamespaceNotFound
	}
	if s.titleTaken(title, id) {
		return ErrNamespaceExists
	}
	ns.mu.Lock()
	ns.title = title
	ns.mu.Unlock()
	return nil
}

// DeleteNamespace removes the namespace with id and all of its entries.
func (s *Store) DeleteNamespace(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.titleMu.Lock()
	defer s.titleMu.Unlock()

	if _, ok := s.namespaces.LoadAndDelete(id); !ok {
		return ErrNamespaceNotFound
	}
	return nil
}

// Namespaces returns every namespace sorted by order ("id" or "title") in
// the given direction ("asc" or "desc").
func (s *Store) Namespaces(ctx context.Context, order, direction string) ([]NamespaceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]NamespaceInfo, 0, s.namespaces.Size())
	s.namespaces.Range(func(_ string, ns *namespace) bool {
		out = append(out, ns.info())
		return true
	})

	less := func(i, j int) bool { return out[i].ID < out[j].ID }
	if order == "title" {
		less = func(i, j int) bool {
			if out[i].Title == out[j].Title {
				return out[i].ID < out[j].ID
			}
			return out[i].Title < out[j].Title
		}
	}
	if direction == "desc" {
		sort.SliceStable(out, func(i, j int) bool { return less(j, i) })
	} else {
		sort.SliceStable(out, less)
	}
	return out, nil
}

// Write applies entries to the namespace with id. The batch is validated as
// a whole before anything is stored.
func (s *Store) Write(ctx context.Context, id string, entries []WriteEntry) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.writeEntries(id, entries)
}

func (s *Store) writeEntries(id string, entries []WriteEntry) (int, error) {
	ns, ok := s.namespaces.Load(id)
	if !ok {
		return 0, ErrNamespaceNotFound
	}

	now := s.now()
	prepared := make(map[string]*entry, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Key == "" {
			return 0, fmt.Errorf("mock kv: key is required")
		}
		ent, err := prepareEntry(e, now)
		if err != nil {
			return 0, fmt.Errorf("%w: key %q", err, e.Key)
		}
		if _, dup := prepared[e.Key]; !dup {
			order = append(order, e.Key)
		}
		prepared[e.Key] = ent
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	for _, key := range order {
		ns.entries[key] = prepared[key]
	}
	return len(entries), nil
}

func prepareEntry(e WriteEntry, now time.Time) (*entry, error) {
	value := []byte(e.Value)
	if e.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(e.Value)
		if err != nil {
			return nil, ErrInvalidBase64Value
		}
		value = decoded
	}

	var expiration int64
	switch {
	case e.ExpirationTTL != 0:
		if e.ExpirationTTL < MinExpirationTTL {
			return nil, fmt.Errorf("%w: expiration_ttl of %d must be at least %d", ErrInvalidExpiration, e.ExpirationTTL, MinExpirationTTL)
		}
		expiration = now.Unix() + e.ExpirationTTL
	case e.Expiration != 0:
		if e.Expiration < now.Unix()+MinExpirationTTL {
			return nil, fmt.Errorf("%w: expiration of %d must be at least %d seconds in the future", ErrInvalidExpiration, e.Expiration, MinExpirationTTL)
		}
		expiration = e.Expiration
	}

	var metadata json.RawMessage
	if len(e.Metadata) > 0 && string(e.Metadata) != "null" {
		metadata = append(json.RawMessage(nil), e.Metadata...)
	}
	return &entry{
		value:      value,
		metadata:   metadata,
		expiration: expiration,
	}, nil
}

// Read returns the value stored under key.
func (s *Store) Read(ctx context.Context, id, key string) ([]byte, error) {
	ent, err := s.lookup(ctx, id, key)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), ent.value...), nil
}

// ReadMetadata returns the metadata stored with key, nil when there is none.
func (s *Store) ReadMetadata(ctx context.Context, id, key string) (json.RawMessage, error) {
	ent, err := s.lookup(ctx, id, key)
	if err != nil {
		return nil, err
	}
	return append(json.RawMessage(nil), ent.metadata...), nil
}

func (s *Store) lookup(ctx context.Context, id, key string) (*entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ns, ok := s.namespaces.Load(id)
	if !ok {
		return nil, ErrNamespaceNotFound
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	ent, ok := ns.entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	if ent.expired(s.now()) {
		delete(ns.entries, key)
		return nil, ErrKeyNotFound
	}
	return ent, nil
}

// Delete removes keys from the namespace with id. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, id string, keys []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ns, ok := s.namespaces.Load(id)
	if !ok {
		return 0, ErrNamespaceNotFound
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	for _, key := range keys {
		delete(ns.entries, key)
	}
	return len(keys), nil
}

// Keys lists up to limit keys of the namespace with id that start with
// prefix, in lexicographic order, resuming after cursor. The returned
// cursor is empty when no keys remain.
func (s *Store) Keys(ctx context.Context, id, prefix, cursor string, limit int) ([]KeyInfo, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	ns, ok := s.namespaces.Load(id)
	if !ok {
		return nil, "", ErrNamespaceNotFound
	}
	after, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	now := s.now()
	names := make([]string, 0, len(ns.entries))
	for name, ent := range ns.entries {
		if ent.expired(now) {
			delete(ns.entries, name)
			continue
		}
		if strings.HasPrefix(name, prefix) && (after == "" || name > after) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	next := ""
	if len(names) > limit {
		names = names[:limit]
		next = encodeCursor(names[len(names)-1])
	}

	out := make([]KeyInfo, 0, len(names))
	for _, name := range names {
		ent := ns.entries[name]
		out = append(out, KeyInfo{
			Name:       name,
			Expiration: ent.expiration,
			Metadata:   append(json.RawMessage(nil), ent.metadata...),
		})
	}
	return out, next, nil
}

func (ns *namespace) info() NamespaceInfo {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return NamespaceInfo{ID: ns.id, Title: ns.title, SupportsURLEncoding: true}
}

func newNamespaceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func encodeCursor(last string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(last))
}

func decodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(data) == 0 {
		return "", ErrInvalidCursor
	}
	return string(data), nil
}
