// Package cfapi holds the wire format shared by the Workers KV client and
// its in-memory emulator: the response envelope, its error entries and the
// JSON codec used on both sides.
package cfapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

// JSON is the codec used for request and response bodies. HTML escaping is
// disabled so stored values survive a round trip byte for byte.
var JSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Known error codes returned by the storage API.
const (
	CodeAuthentication         = 10000
	CodeKeyNotFound            = 10009
	CodeNamespaceNotFound      = 10013
	CodeNamespaceAlreadyExists = 10014
	CodeInvalidExpiration      = 10033
)

// Envelope is the JSON object wrapping every non-value response.
type Envelope struct {
	Success    bool            `json:"success"`
	Result     json.RawMessage `json:"result"`
	ResultInfo *ResultInfo     `json:"result_info,omitempty"`
	Errors     []ErrorEntry    `json:"errors"`
	Messages   []ErrorEntry    `json:"messages"`
}

// ResultInfo carries pagination metadata. Namespace listings are paged by
// number; key listings are paged by cursor.
type ResultInfo struct {
	Page       int    `json:"page,omitempty"`
	PerPage    int    `json:"per_page,omitempty"`
	Count      int    `json:"count"`
	TotalCount int    `json:"total_count,omitempty"`
	TotalPages int    `json:"total_pages,omitempty"`
	Cursor     string `json:"cursor,omitempty"`
}

// ErrorEntry is one element of the envelope's errors array.
type ErrorEntry struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ErrNotEnvelope reports a body that is not a JSON object carrying a
// success flag.
var ErrNotEnvelope = errors.New("cfapi: body is not a response envelope")

// Decode parses a response body into an Envelope.
func Decode(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return nil, ErrNotEnvelope
	}
	if !gjson.GetBytes(trimmed, "success").Exists() {
		return nil, ErrNotEnvelope
	}

	var env Envelope
	if err := JSON.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("cfapi: decode envelope: %w", err)
	}
	return &env, nil
}

// FirstError returns the first entry of the errors array without decoding
// the rest of the body.
func FirstError(body []byte) (ErrorEntry, bool) {
	first := gjson.GetBytes(body, "errors.0")
	if !first.Exists() {
		return ErrorEntry{}, false
	}
	return ErrorEntry{
		Code:    int(first.Get("code").Int()),
		Message: first.Get("message").String(),
	}, true
}

// DecodeResult decodes the envelope's result into out. A missing or null
// result leaves out untouched.
func (e *Envelope) DecodeResult(out any) error {
	if e == nil || len(e.Result) == 0 || bytes.Equal(e.Result, []byte("null")) {
		return nil
	}
	return JSON.Unmarshal(e.Result, out)
}

// Success builds a successful envelope around result.
func Success(result any, info *ResultInfo) ([]byte, error) {
	raw, err := JSON.Marshal(result)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		raw = []byte("null")
	}
	return JSON.Marshal(Envelope{
		Success:    true,
		Result:     raw,
		ResultInfo: info,
		Errors:     []ErrorEntry{},
		Messages:   []ErrorEntry{},
	})
}

// Failure builds a failed envelope carrying a single error entry.
func Failure(code int, message string) ([]byte, error) {
	return JSON.Marshal(Envelope{
		Success:  false,
		Result:   json.RawMessage("null"),
		Errors:   []ErrorEntry{{Code: code, Message: message}},
		Messages: []ErrorEntry{},
	})
}
