package mock

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cfkv/workers-kv-go/internal/cfapi"
)

// InfoLogger receives one line per served request. Call SetOutput on it to
// enable request logging.
var InfoLogger = log.New(io.Discard, "[workers-kv-mock] ", log.LstdFlags)

// Server emulates the Workers KV REST API for a single account. It can be
// mounted under any prefix; everything before "/accounts/" is ignored.
type Server struct {
	store     *Store
	accountID string
	token     string
}

// NewServer serves store for accountID, accepting only requests that carry
// token as a bearer credential.
func NewServer(store *Store, accountID, token string) *Server {
	if store == nil {
		store = NewStore()
	}
	return &Server{store: store, accountID: accountID, token: token}
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

type route struct {
	namespace string
	rest      []string
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	InfoLogger.Printf("%s %s", r.Method, r.URL.RequestURI())

	if !s.authorized(r) {
		writeFailure(w, http.StatusUnauthorized, cfapi.CodeAuthentication, "Authentication error")
		return
	}

	rt, ok := s.parseRoute(r.URL)
	if !ok {
		writeFailure(w, http.StatusNotFound, codeNoRoute, "No route for that URI")
		return
	}

	switch {
	case rt.namespace == "" && len(rt.rest) == 0:
		switch r.Method {
		case http.MethodGet:
			s.listNamespaces(w, r)
		case http.MethodPost:
			s.createNamespace(w, r)
		default:
			methodNotAllowed(w)
		}
	case len(rt.rest) == 0:
		switch r.Method {
		case http.MethodGet:
			s.getNamespace(w, r, rt.namespace)
		case http.MethodPut:
			s.renameNamespace(w, r, rt.namespace)
		case http.MethodDelete:
			s.deleteNamespace(w, r, rt.namespace)
		default:
			methodNotAllowed(w)
		}
	case len(rt.rest) == 1 && rt.rest[0] == "bulk":
		switch r.Method {
		case http.MethodPut:
			s.bulkWrite(w, r, rt.namespace)
		case http.MethodDelete:
			s.bulkDelete(w, r, rt.namespace)
		default:
			methodNotAllowed(w)
		}
	case len(rt.rest) == 2 && rt.rest[0] == "bulk" && rt.rest[1] == "delete":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.bulkDelete(w, r, rt.namespace)
	case len(rt.rest) == 1 && rt.rest[0] == "keys":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.listKeys(w, r, rt.namespace)
	case len(rt.rest) == 2 && rt.rest[0] == "values":
		switch r.Method {
		case http.MethodGet:
			s.readValue(w, r, rt.namespace, rt.rest[1])
		case http.MethodPut:
			s.writeValue(w, r, rt.namespace, rt.rest[1])
		case http.MethodDelete:
			s.deleteValue(w, r, rt.namespace, rt.rest[1])
		default:
			methodNotAllowed(w)
		}
	case len(rt.rest) == 2 && rt.rest[0] == "metadata":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.readMetadata(w, r, rt.namespace, rt.rest[1])
	default:
		writeFailure(w, http.StatusNotFound, codeNoRoute, "No route for that URI")
	}
}

func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(header, prefix)), []byte(s.token)) == 1
}

// parseRoute splits accounts/{account}/storage/kv/namespaces[/{ns}[/...]]
// segment by segment on the escaped path, so keys containing '/' survive.
func (s *Server) parseRoute(u *url.URL) (route, bool) {
	path := u.EscapedPath()
	idx := strings.Index(path, "/accounts/")
	if idx < 0 {
		return route{}, false
	}
	raw := strings.Split(strings.TrimSuffix(path[idx+len("/accounts/"):], "/"), "/")
	segments := make([]string, 0, len(raw))
	for _, seg := range raw {
		unescaped, err := url.PathUnescape(seg)
		if err != nil {
			return route{}, false
		}
		segments = append(segments, unescaped)
	}
	if len(segments) < 4 || segments[0] != s.accountID ||
		segments[1] != "storage" || segments[2] != "kv" || segments[3] != "namespaces" {
		return route{}, false
	}
	rt := route{}
	if len(segments) > 4 {
		rt.namespace = segments[4]
		rt.rest = segments[5:]
	}
	return rt, true
}

func (s *Server) listNamespaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	perPage := atoiDefault(q.Get("per_page"), DefaultPerPage)
	if perPage < MinPerPage {
		perPage = MinPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	all, err := s.store.Namespaces(r.Context(), q.Get("order"), q.Get("direction"))
	if err != nil {
		writeError(w, err)
		return
	}
	totalPages := (len(all) + perPage - 1) / perPage
	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	result := all[start:end]
	writeSuccess(w, http.StatusOK, result, &cfapi.ResultInfo{
		Page:       page,
		PerPage:    perPage,
		Count:      len(result),
		TotalCount: len(all),
		TotalPages: totalPages,
	})
}

func (s *Server) createNamespace(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	ns, err := s.store.CreateNamespace(r.Context(), body.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, ns, nil)
}

func (s *Server) getNamespace(w http.ResponseWriter, r *http.Request, id string) {
	ns, err := s.store.Namespace(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, ns, nil)
}

func (s *Server) renameNamespace(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Title string `json:"title"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.store.RenameNamespace(r.Context(), id, body.Title); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, nil)
}

func (s *Server) deleteNamespace(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.store.DeleteNamespace(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, nil)
}

type bulkResult struct {
	SuccessfulKeyCount int      `json:"successful_key_count"`
	UnsuccessfulKeys   []string `json:"unsuccessful_keys"`
}

func (s *Server) bulkWrite(w http.ResponseWriter, r *http.Request, id string) {
	var entries []WriteEntry
	if !decodeBody(w, r, &entries) {
		return
	}
	n, err := s.store.Write(r.Context(), id, entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, bulkResult{SuccessfulKeyCount: n, UnsuccessfulKeys: []string{}}, nil)
}

func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request, id string) {
	var keys []string
	if !decodeBody(w, r, &keys) {
		return
	}
	n, err := s.store.Delete(r.Context(), id, keys)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, bulkResult{SuccessfulKeyCount: n, UnsuccessfulKeys: []string{}}, nil)
}

func (s *Server) listKeys(w http.ResponseWriter, r *http.Request, id string) {
	q := r.URL.Query()
	keys, cursor, err := s.store.Keys(r.Context(), id, q.Get("prefix"), q.Get("cursor"), atoiDefault(q.Get("limit"), 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, keys, &cfapi.ResultInfo{
		Count:  len(keys),
		Cursor: cursor,
	})
}

func (s *Server) readValue(w http.ResponseWriter, r *http.Request, id, key string) {
	value, err := s.store.Read(r.Context(), id, key)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(value)
}

// writeValue stores the raw request body under key. Expiration settings
// come from the query string.
func (s *Server) writeValue(w http.ResponseWriter, r *http.Request, id, key string) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, codeMalformedRequest, "could not read request body")
		return
	}
	q := r.URL.Query()
	entry := WriteEntry{
		Key:           key,
		Value:         string(data),
		Expiration:    int64(atoiDefault(q.Get("expiration"), 0)),
		ExpirationTTL: int64(atoiDefault(q.Get("expiration_ttl"), 0)),
	}
	if _, err := s.store.Write(r.Context(), id, []WriteEntry{entry}); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, nil)
}

func (s *Server) deleteValue(w http.ResponseWriter, r *http.Request, id, key string) {
	if _, err := s.store.Delete(r.Context(), id, []string{key}); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, nil)
}

func (s *Server) readMetadata(w http.ResponseWriter, r *http.Request, id, key string) {
	metadata, err := s.store.ReadMetadata(r.Context(), id, key)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(metadata) == 0 {
		writeSuccess(w, http.StatusOK, nil, nil)
		return
	}
	writeSuccess(w, http.StatusOK, metadata, nil)
}

const (
	codeNoRoute          = 7000
	codeMethodNotAllowed = 7001
	codeMalformedRequest = 10026
	codeInternal         = 10001
)

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := cfapi.JSON.NewDecoder(r.Body).Decode(out); err != nil {
		writeFailure(w, http.StatusBadRequest, codeMalformedRequest, "could not parse request body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNamespaceNotFound):
		writeFailure(w, http.StatusNotFound, cfapi.CodeNamespaceNotFound, "namespace not found")
	case errors.Is(err, ErrKeyNotFound):
		writeFailure(w, http.StatusNotFound, cfapi.CodeKeyNotFound, "key not found")
	case errors.Is(err, ErrNamespaceExists):
		writeFailure(w, http.StatusBadRequest, cfapi.CodeNamespaceAlreadyExists, err.Error())
	case errors.Is(err, ErrInvalidExpiration):
		writeFailure(w, http.StatusBadRequest, cfapi.CodeInvalidExpiration, err.Error())
	case errors.Is(err, ErrInvalidCursor), errors.Is(err, ErrInvalidBase64Value):
		writeFailure(w, http.StatusBadRequest, codeMalformedRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeFailure(w, http.StatusServiceUnavailable, codeInternal, err.Error())
	default:
		writeFailure(w, http.StatusBadRequest, codeMalformedRequest, err.Error())
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeFailure(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "Method not allowed for this endpoint")
}

func writeSuccess(w http.ResponseWriter, status int, result any, info *cfapi.ResultInfo) {
	body, err := cfapi.Success(result, info)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}
	writeBody(w, status, body)
}

func writeFailure(w http.ResponseWriter, status, code int, message string) {
	body, err := cfapi.Failure(code, message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeBody(w, status, body)
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func atoiDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
