package mock

import (
	"net/http"
	"net/http/httptest"
)

// Transport returns an http.RoundTripper that serves every request with h
// in-process, without opening a socket.
func Transport(h http.Handler) http.RoundTripper {
	return handlerTransport{handler: h}
}

// HTTPClient returns an *http.Client backed by Transport(h).
func HTTPClient(h http.Handler) *http.Client {
	return &http.Client{Transport: Transport(h)}
}

type handlerTransport struct {
	handler http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
