package httpx

import (
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// HTTPError represents a response the remote service returned outside of
// its JSON envelope (proxy pages, gateway failures, truncated bodies).
type HTTPError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	JSON       any
}

// NewHTTPError captures resp and its already-drained body.
func NewHTTPError(resp *http.Response, body []byte) *HTTPError {
	httpErr := &HTTPError{Body: body}
	if resp == nil {
		return httpErr
	}
	httpErr.StatusCode = resp.StatusCode
	httpErr.Header = resp.Header.Clone()
	if isJSON(resp.Header.Get("Content-Type")) {
		httpErr.JSON = decodeJSONBody(body)
	}
	return httpErr
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Retryable reports whether the error should be considered transient.
// The client never retries; callers may use this to decide for themselves.
func (e *HTTPError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		(e.StatusCode >= 500 && e.StatusCode <= 599)
}

// decodeJSONBody parses the body bytes into a generic JSON payload.
func decodeJSONBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var payload any
	if err := codec.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload
}
