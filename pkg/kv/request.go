package kv

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/cfkv/workers-kv-go/internal/cfapi"
	"github.com/cfkv/workers-kv-go/internal/httpx"
)

type responseMode int

const (
	// modeResult returns only the envelope's result.
	modeResult responseMode = iota
	// modeEnvelope returns the whole envelope, for result_info.
	modeEnvelope
	// modeText returns a successful body verbatim.
	modeText
)

type apiCall struct {
	method string
	path   string
	query  httpx.Query
	body   any
	mode   responseMode
}

type apiResponse struct {
	envelope *cfapi.Envelope
	text     []byte
}

// namespacesPath is the resource every call is relative to.
func (c *Client) namespacesPath() string {
	return "/accounts/" + httpx.EscapeComponent(c.accountID) + "/storage/kv/namespaces"
}

// api sends a single request and interprets the response according to
// call.mode. Service failures are mapped onto the package's error types.
func (c *Client) api(ctx context.Context, call apiCall) (*apiResponse, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("kv: client is nil")
	}
	method := call.method
	if method == "" {
		method = http.MethodGet
	}

	req := &httpx.Request{
		Method: method,
		Path:   c.namespacesPath() + call.path,
		Query:  call.query,
		Header: http.Header{"Content-Type": []string{"application/json"}},
	}
	if call.body != nil {
		body, contentType, err := httpx.WithJSONBody(call.body)
		if err != nil {
			return nil, fmt.Errorf("kv: encode request body: %w", err)
		}
		req.Body = body
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		DebugLogger.Printf("%s %s: %v", method, call.path, err)
		return nil, err
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kv: read response: %w", err)
	}
	DebugLogger.Printf("%s %s -> %d (%d bytes)", method, call.path, resp.StatusCode, len(data))

	if call.mode == modeText && resp.StatusCode == http.StatusOK {
		return &apiResponse{text: data}, nil
	}

	env, err := cfapi.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("kv: %s %s: %w", method, call.path, httpx.NewHTTPError(resp, data))
	}
	if !env.Success {
		if entry, ok := cfapi.FirstError(data); ok {
			return nil, errorFromEntry(entry)
		}
		return nil, &UnknownResponseError{Body: bytes.TrimSpace(data)}
	}
	return &apiResponse{envelope: env}, nil
}

// result performs call and decodes the envelope's result into out, which
// may be nil when the caller does not need it.
func (c *Client) result(ctx context.Context, call apiCall, out any) error {
	call.mode = modeResult
	resp, err := c.api(ctx, call)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := resp.envelope.DecodeResult(out); err != nil {
		return fmt.Errorf("kv: decode result: %w", err)
	}
	return nil
}

// envelope performs call and returns the full envelope.
func (c *Client) envelope(ctx context.Context, call apiCall) (*cfapi.Envelope, error) {
	call.mode = modeEnvelope
	resp, err := c.api(ctx, call)
	if err != nil {
		return nil, err
	}
	return resp.envelope, nil
}

// text performs a GET and returns the body verbatim on success.
func (c *Client) text(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.api(ctx, apiCall{method: http.MethodGet, path: path, mode: modeText})
	if err != nil {
		return nil, err
	}
	return resp.text, nil
}

func resultInfo(env *cfapi.Envelope) ResultInfo {
	if env == nil || env.ResultInfo == nil {
		return ResultInfo{}
	}
	return *env.ResultInfo
}

// optional turns zero values into nil so the query encoder leaves them out.
func optional[T comparable](v T) any {
	var zero T
	if v == zero {
		return nil
	}
	return v
}
