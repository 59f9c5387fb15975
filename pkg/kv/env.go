package kv

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cfkv/workers-kv-go/pkg/kv/mock"
)

const (
	envMode        = "KV_RUNTIME_MODE"
	envAccountID   = "CF_ACCOUNT_ID"
	envToken       = "CF_API_TOKEN"
	envNamespaceID = "CF_KV_NAMESPACE_ID"
	envAPIURL      = "CF_API_URL"
	envMockSeed    = "KV_MOCK_SEED"

	modeAuto = "auto"
	modeHTTP = "http"
	modeMock = "mock"

	mockAccountID     = "mock-account"
	mockToken         = "mock-token"
	mockNamespaceName = "default"
)

// NewFromEnv initialises a Client from environment variables and returns
// the resolved mode ("http" or "mock").
//
// In http mode CF_ACCOUNT_ID and CF_API_TOKEN are required; CF_API_URL
// overrides the API root and CF_KV_NAMESPACE_ID binds the client. In mock
// mode the client talks in-process to an emulator, optionally seeded from
// the TOML file named by KV_MOCK_SEED; without CF_KV_NAMESPACE_ID it is
// bound to the first seeded namespace, or to a fresh one titled "default".
// The auto mode (the default) picks http when credentials are present.
func NewFromEnv() (client *Client, mode string, err error) {
	mode = strings.ToLower(strings.TrimSpace(os.Getenv(envMode)))
	accountID := strings.TrimSpace(os.Getenv(envAccountID))
	token := strings.TrimSpace(os.Getenv(envToken))

	switch mode {
	case "", modeAuto:
		if accountID != "" && token != "" {
			return newHTTPClient(accountID, token)
		}
		return newMockClient(accountID, token)
	case modeHTTP:
		if accountID == "" || token == "" {
			return nil, "", fmt.Errorf("kv: HTTP mode requires %s and %s", envAccountID, envToken)
		}
		return newHTTPClient(accountID, token)
	case modeMock:
		return newMockClient(accountID, token)
	default:
		return nil, "", fmt.Errorf("kv: unsupported %s value %q", envMode, mode)
	}
}

func newHTTPClient(accountID, token string) (*Client, string, error) {
	opts := []Option{WithNamespace(strings.TrimSpace(os.Getenv(envNamespaceID)))}
	if apiURL := strings.TrimSpace(os.Getenv(envAPIURL)); apiURL != "" {
		opts = append(opts, WithBaseURL(apiURL))
	}
	client, err := New(accountID, token, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("kv: init HTTP client: %w", err)
	}
	return client, modeHTTP, nil
}

func newMockClient(accountID, token string) (*Client, string, error) {
	if accountID == "" {
		accountID = mockAccountID
	}
	if token == "" {
		token = mockToken
	}

	store := mock.NewStore()
	var seeded []mock.NamespaceInfo
	if path := strings.TrimSpace(os.Getenv(envMockSeed)); path != "" {
		seed, err := mock.LoadSeed(path)
		if err != nil {
			return nil, "", fmt.Errorf("kv: load mock seed: %w", err)
		}
		seeded, err = store.Apply(seed)
		if err != nil {
			return nil, "", fmt.Errorf("kv: apply mock seed: %w", err)
		}
	}

	namespaceID := strings.TrimSpace(os.Getenv(envNamespaceID))
	if namespaceID == "" && len(seeded) > 0 {
		namespaceID = seeded[0].ID
	}
	if namespaceID == "" {
		ns, err := store.CreateNamespace(context.Background(), mockNamespaceName)
		if err != nil {
			return nil, "", fmt.Errorf("kv: create mock namespace: %w", err)
		}
		namespaceID = ns.ID
	}

	server := mock.NewServer(store, accountID, token)
	client, err := New(accountID, token,
		WithBaseURL(DefaultBaseURL),
		WithHTTPClient(mock.HTTPClient(server)),
		WithNamespace(namespaceID),
	)
	if err != nil {
		return nil, "", fmt.Errorf("kv: init mock client: %w", err)
	}
	return client, modeMock, nil
}
