package mock_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfkv/workers-kv-go/pkg/kv/mock"
)

func TestStoreNamespaceLifecycle(t *testing.T) {
	ctx := context.Background()
	s := mock.NewStore()

	ns, err := s.CreateNamespace(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, ns.ID, 32)
	assert.Equal(t, "users", ns.Title)

	_, err = s.CreateNamespace(ctx, "users")
	assert.True(t, errors.Is(err, mock.ErrNamespaceExists), "got %v", err)

	got, err := s.Namespace(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, ns, got)

	other, err := s.CreateNamespace(ctx, "texts")
	require.NoError(t, err)
	assert.ErrorIs(t, s.RenameNamespace(ctx, other.ID, "users"), mock.ErrNamespaceExists)
	require.NoError(t, s.RenameNamespace(ctx, other.ID, "articles"))

	require.NoError(t, s.DeleteNamespace(ctx, ns.ID))
	assert.ErrorIs(t, s.DeleteNamespace(ctx, ns.ID), mock.ErrNamespaceNotFound)
	_, err = s.Namespace(ctx, ns.ID)
	assert.ErrorIs(t, err, mock.ErrNamespaceNotFound)

	// The title is free again once its namespace is gone.
	_, err = s.CreateNamespace(ctx, "users")
	assert.NoError(t, err)
}

func TestStoreNamespacesOrdering(t *testing.T) {
	ctx := context.Background()
	s := mock.NewStore()
	for _, title := range []string{"b", "c", "a"} {
		_, err := s.CreateNamespace(ctx, title)
		require.NoError(t, err)
	}

	asc, err := s.Namespaces(ctx, "title", "asc")
	require.NoError(t, err)
	desc, err := s.Namespaces(ctx, "title", "desc")
	require.NoError(t, err)

	titles := func(list []mock.NamespaceInfo) []string {
		out := make([]string, 0, len(list))
		for _, ns := range list {
			out = append(out, ns.Title)
		}
		return out
	}
	assert.Equal(t, []string{"a", "b", "c"}, titles(asc))
	assert.Equal(t, []string{"c", "b", "a"}, titles(desc))

	byID, err := s.Namespaces(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, byID, 3)
	assert.True(t, byID[0].ID < byID[1].ID && byID[1].ID < byID[2].ID)
}

func TestStoreWriteReadDelete(t *testing.T) {
	ctx := context.Background()
	s := mock.NewStore()
	ns, err := s.CreateNamespace(ctx, "db")
	require.NoError(t, err)

	n, err := s.Write(ctx, ns.ID, []mock.WriteEntry{
		{Key: "/users/1", Value: "1337", Metadata: json.RawMessage(`{"ip":"1.2.3.4"}`)},
		{Key: "/blob", Value: "aGVsbG8=", Base64: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	value, err := s.Read(ctx, ns.ID, "/users/1")
	require.NoError(t, err)
	assert.Equal(t, "1337", string(value))

	blob, err := s.Read(ctx, ns.ID, "/blob")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(blob))

	meta, err := s.ReadMetadata(ctx, ns.ID, "/users/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ip":"1.2.3.4"}`, string(meta))

	meta, err = s.ReadMetadata(ctx, ns.ID, "/blob")
	require.NoError(t, err)
	assert.Nil(t, meta)

	_, err = s.Delete(ctx, ns.ID, []string{"/users/1", "/does-not-exist"})
	require.NoError(t, err)
	_, err = s.Read(ctx, ns.ID, "/users/1")
	assert.ErrorIs(t, err, mock.ErrKeyNotFound)

	_, err = s.Read(ctx, "missing", "/users/1")
	assert.ErrorIs(t, err, mock.ErrNamespaceNotFound)
}

func TestStoreWriteRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	s := mock.NewStore()
	ns, err := s.CreateNamespace(ctx, "db")
	require.NoError(t, err)

	_, err = s.Write(ctx, ns.ID, []mock.WriteEntry{
		{Key: "ok", Value: "1"},
		{Key: "short", Value: "2", ExpirationTTL: 10},
	})
	assert.ErrorIs(t, err, mock.ErrInvalidExpiration)

	_, err = s.Read(ctx, ns.ID, "ok")
	assert.ErrorIs(t, err, mock.ErrKeyNotFound)

	_, err = s.Write(ctx, ns.ID, []mock.WriteEntry{{Key: "bad", Value: "!!", Base64: true}})
	assert.ErrorIs(t, err, mock.ErrInvalidBase64Value)
}

func TestStoreExpiration(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0).UTC()
	s := mock.NewStore(mock.WithClock(func() time.Time { return now }))
	ns, err := s.CreateNamespace(ctx, "db")
	require.NoError(t, err)

	_, err = s.Write(ctx, ns.ID, []mock.WriteEntry{
		{Key: "ttl", Value: `"a"`, ExpirationTTL: 60},
		{Key: "abs", Value: `"b"`, Expiration: now.Unix() + 120},
		{Key: "forever", Value: `"c"`},
	})
	require.NoError(t, err)

	keys, _, err := s.Keys(ctx, ns.ID, "", "", 0)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, "abs", keys[0].Name)
	assert.Equal(t, now.Unix()+120, keys[0].Expiration)

	_, err = s.Write(ctx, ns.ID, []mock.WriteEntry{{Key: "past", Value: "1", Expiration: now.Unix() + 30}})
	assert.ErrorIs(t, err, mock.ErrInvalidExpiration)

	now = now.Add(61 * time.Second)
	_, err = s.Read(ctx, ns.ID, "ttl")
	assert.ErrorIs(t, err, mock.ErrKeyNotFound)

	now = now.Add(time.Minute)
	keys, _, err = s.Keys(ctx, ns.ID, "", "", 0)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "forever", keys[0].Name)
}

func TestStoreKeysPagination(t *testing.T) {
	ctx := context.Background()
	s := mock.NewStore()
	ns, err := s.CreateNamespace(ctx, "db")
	require.NoError(t, err)

	entries := make([]mock.WriteEntry, 0, 25)
	for i := 0; i < 15; i++ {
		entries = append(entries, mock.WriteEntry{Key: fmt.Sprintf("/texts/%02d", i), Value: `"Hello World!"`})
	}
	for i := 0; i < 10; i++ {
		entries = append(entries, mock.WriteEntry{Key: fmt.Sprintf("/users/%02d", i), Value: `{}`})
	}
	_, err = s.Write(ctx, ns.ID, entries)
	require.NoError(t, err)

	page, cursor, err := s.Keys(ctx, ns.ID, "/texts/", "", 10)
	require.NoError(t, err)
	assert.Len(t, page, 10)
	assert.NotEmpty(t, cursor)
	assert.Equal(t, "/texts/00", page[0].Name)

	page, next, err := s.Keys(ctx, ns.ID, "/texts/", cursor, 10)
	require.NoError(t, err)
	assert.Len(t, page, 5)
	assert.Empty(t, next)
	assert.Equal(t, "/texts/10", page[0].Name)

	exact, next, err := s.Keys(ctx, ns.ID, "/users/", "", 10)
	require.NoError(t, err)
	assert.Len(t, exact, 10)
	assert.Empty(t, next, "a page that ends exactly at the last key carries no cursor")

	_, _, err = s.Keys(ctx, ns.ID, "", "***", 10)
	assert.ErrorIs(t, err, mock.ErrInvalidCursor)
}

func TestStoreApplySeed(t *testing.T) {
	seed, err := mock.ParseSeed(`
[[namespaces]]
id = "0f2ac74b498b48028cb68387c421e279"
title = "users"

  [[namespaces.entries]]
  key = "/users/1"
  value = "1337"
  metadata = { ip = "1.2.3.4" }

[[namespaces]]
title = "texts"
`)
	require.NoError(t, err)

	s := mock.NewStore()
	created, err := s.Apply(seed)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "0f2ac74b498b48028cb68387c421e279", created[0].ID)
	assert.NotEmpty(t, created[1].ID)

	ctx := context.Background()
	value, err := s.Read(ctx, created[0].ID, "/users/1")
	require.NoError(t, err)
	assert.Equal(t, "1337", string(value))

	meta, err := s.ReadMetadata(ctx, created[0].ID, "/users/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ip":"1.2.3.4"}`, string(meta))

	_, err = s.Apply(&mock.Seed{Namespaces: []mock.SeedNamespace{{Title: "users"}}})
	assert.ErrorIs(t, err, mock.ErrNamespaceExists)
}

func TestStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mock.NewStore().CreateNamespace(ctx, "db")
	assert.ErrorIs(t, err, context.Canceled)
}
