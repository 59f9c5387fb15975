// Package mock provides an in-memory emulator of the Workers KV REST API.
//
// Store holds namespaces and entries, including expirations and metadata.
// Server exposes a Store over HTTP with the service's envelope format and
// error codes, so a kv.Client can be pointed at it either through an
// httptest.Server or in-process via Transport.
package mock
