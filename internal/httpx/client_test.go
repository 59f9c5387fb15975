package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDoBuildsURLAndHeaders(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cl, err := NewClient(srv.URL+"/client/v4/", WithBearerToken("secret"), WithHeaders(http.Header{
		"Content-Type": []string{"application/json"},
	}))
	require.NoError(t, err)

	body, _, err := WithJSONBody([]string{"<key>"})
	require.NoError(t, err)

	resp, err := cl.Do(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/values/" + EscapeComponent("/users/1"),
		Query:  Query{}.Add("limit", 5),
		Body:   body,
	})
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "/client/v4/values/%2Fusers%2F1", gotPath)
	assert.Equal(t, "limit=5", gotQuery)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, `["<key>"]`, gotBody)
}

func TestClientDoReturnsErrorStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false}`)
	}))
	defer srv.Close()

	cl, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := cl.Do(context.Background(), &Request{Method: http.MethodGet, Path: "missing"})
	require.NoError(t, err)
	data, err := ReadAllAndClose(resp.Body)
	require.NoError(t, err)

	httpErr := NewHTTPError(resp, data)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, map[string]any{"success": false}, httpErr.JSON)
	assert.False(t, httpErr.Retryable())
	assert.Contains(t, httpErr.Error(), "status=404")
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)

	_, err = NewClient("://bad")
	assert.Error(t, err)

	_, err = NewClient("localhost")
	assert.Error(t, err)
}

func TestClientDoRequiresMethod(t *testing.T) {
	cl, err := NewClient("http://example.invalid")
	require.NoError(t, err)

	_, err = cl.Do(context.Background(), &Request{Path: "/"})
	assert.Error(t, err)

	_, err = cl.Do(context.Background(), nil)
	assert.Error(t, err)
}

func TestHTTPErrorRetryable(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusBadGateway:          true,
		http.StatusRequestTimeout:      true,
		http.StatusBadRequest:          false,
		http.StatusUnauthorized:        false,
		http.StatusInternalServerError: true,
	} {
		assert.Equal(t, want, (&HTTPError{StatusCode: status}).Retryable(), "status %d", status)
	}
}
