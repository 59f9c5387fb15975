package kv

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cfkv/workers-kv-go/internal/httpx"
)

// Namespaces manages the namespaces of an account.
type Namespaces struct {
	client *Client
}

type namespaceBody struct {
	Title string `json:"title"`
}

// Create makes a namespace titled title. A title already used by another
// namespace of the account fails with ErrNamespaceAlreadyExists.
func (n *Namespaces) Create(ctx context.Context, title string) (*Namespace, error) {
	var ns Namespace
	err := n.client.result(ctx, apiCall{
		method: http.MethodPost,
		body:   namespaceBody{Title: title},
	}, &ns)
	if err != nil {
		return nil, err
	}
	return &ns, nil
}

// Get fetches the namespace with id, failing with ErrNamespaceNotFound when
// there is none.
func (n *Namespaces) Get(ctx context.Context, id string) (*Namespace, error) {
	path, err := namespacePath(id)
	if err != nil {
		return nil, err
	}
	var ns Namespace
	if err := n.client.result(ctx, apiCall{path: path}, &ns); err != nil {
		return nil, err
	}
	return &ns, nil
}

// Rename changes the title of the namespace with id.
func (n *Namespaces) Rename(ctx context.Context, id, title string) error {
	path, err := namespacePath(id)
	if err != nil {
		return err
	}
	return n.client.result(ctx, apiCall{
		method: http.MethodPut,
		path:   path,
		body:   namespaceBody{Title: title},
	}, nil)
}

// Remove deletes the namespace with id and everything stored in it.
func (n *Namespaces) Remove(ctx context.Context, id string) error {
	path, err := namespacePath(id)
	if err != nil {
		return err
	}
	return n.client.result(ctx, apiCall{method: http.MethodDelete, path: path}, nil)
}

// List fetches one page of namespaces.
func (n *Namespaces) List(ctx context.Context, opts *NamespaceListOptions) (*NamespaceList, error) {
	var o NamespaceListOptions
	if opts != nil {
		o = *opts
	}
	query := httpx.Query{}.
		Add("direction", optional(o.Direction)).
		Add("order", optional(o.Order)).
		Add("page", optional(o.Page)).
		Add("per_page", optional(o.PerPage))

	env, err := n.client.envelope(ctx, apiCall{query: query})
	if err != nil {
		return nil, err
	}
	out := &NamespaceList{Info: resultInfo(env)}
	if err := env.DecodeResult(&out.Result); err != nil {
		return nil, fmt.Errorf("kv: decode namespace list: %w", err)
	}
	if out.Result == nil {
		out.Result = []Namespace{}
	}
	if out.Info.Page < out.Info.TotalPages {
		out.Next = out.Info.Page + 1
	}
	return out, nil
}

func namespacePath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("kv: namespace id is required")
	}
	return "/" + httpx.EscapeComponent(id), nil
}
