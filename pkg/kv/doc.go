// Package kv is a client for the Workers KV storage REST API.
//
// A Client carries an account id, an API token and optionally the id of
// the namespace its key operations act on. From derives a handle bound to
// another namespace without touching the receiver:
//
//	client, _ := kv.New(accountID, token)
//	db := client.From(namespaceID)
//	_, _ = kv.Put(ctx, db, "/users/1", 1337, nil)
//	item, _ := kv.Get[int](ctx, db, "/users/1")
//
// Values are stored as JSON text. Reads of missing keys return nil rather
// than an error; every other failure is returned as is, with the service's
// known error codes mapped to *Error values that match ErrKeyNotFound,
// ErrNamespaceNotFound and ErrNamespaceAlreadyExists under errors.Is.
//
// Every call is a single request. The client does not retry, cache or
// throttle; cancellation and timeouts come from the context and the
// *http.Client supplied with WithHTTPClient.
package kv
