package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfkv/workers-kv-go/internal/cfapi"
	"github.com/cfkv/workers-kv-go/pkg/kv"
	"github.com/cfkv/workers-kv-go/pkg/kv/mock"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CF_ACCOUNT_ID", "CF_API_TOKEN", "CF_KV_NAMESPACE_ID", "CF_API_URL"} {
		t.Setenv(key, "")
	}
}

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// run executes the command tree with args and returns its standard output.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
account = "acct"
token = "tok"
namespace = "ns1"
api_url = "http://localhost:8787/client/v4"
`)
	prof, err := loadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, profile{
		Account:   "acct",
		Token:     "tok",
		Namespace: "ns1",
		APIURL:    "http://localhost:8787/client/v4",
	}, prof)

	_, err = loadProfile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = loadProfile(writeProfile(t, "account = "))
	assert.Error(t, err)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", " "))
}

func TestCommandsAgainstEmulator(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(mock.NewServer(mock.NewStore(), "acct", "tok"))
	defer srv.Close()

	config := writeProfile(t, `
account = "acct"
token = "tok"
api_url = "`+srv.URL+`/client/v4"
`)

	out, err := run(t, "", "--config", config, "namespace", "create", "users")
	require.NoError(t, err)
	var ns kv.Namespace
	require.NoError(t, cfapi.JSON.Unmarshal([]byte(out), &ns))
	assert.Equal(t, "users", ns.Title)
	require.NotEmpty(t, ns.ID)

	_, err = run(t, "", "--config", config, "namespace", "create", "users")
	assert.ErrorIs(t, err, kv.ErrNamespaceAlreadyExists)

	_, err = run(t, "", "--config", config, "put", "/users/1", "ada")
	assert.Error(t, err, "put without a namespace")

	_, err = run(t, "", "--config", config, "-n", ns.ID, "put", "/users/1", "ada", "--metadata", `{"ip":"1.2.3.4"}`)
	require.NoError(t, err)

	out, err = run(t, "", "--config", config, "-n", ns.ID, "get", "/users/1")
	require.NoError(t, err)
	assert.Equal(t, `"ada"`, out)

	_, err = run(t, "", "--config", config, "-n", ns.ID, "put", "/users/2", `{"name":"grace"}`, "--json")
	require.NoError(t, err)
	out, err = run(t, "", "--config", config, "-n", ns.ID, "get", "/users/2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"grace"}`, out)

	_, err = run(t, "plain bytes", "--config", config, "-n", ns.ID, "put", "/blobs/1", "--stdin")
	require.NoError(t, err)
	out, err = run(t, "", "--config", config, "-n", ns.ID, "get", "/blobs/1")
	require.NoError(t, err)
	assert.Equal(t, "plain bytes", out)

	out, err = run(t, "", "--config", config, "-n", ns.ID, "meta", "/users/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ip":"1.2.3.4"}`, out)

	out, err = run(t, "", "--config", config, "-n", ns.ID, "ls", "--prefix", "/users/")
	require.NoError(t, err)
	var list kv.KeyList
	require.NoError(t, cfapi.JSON.Unmarshal([]byte(out), &list))
	require.Len(t, list.Result, 2)
	assert.Equal(t, "/users/1", list.Result[0].Name)

	_, err = run(t, "", "--config", config, "-n", ns.ID, "del", "/users/1", "/users/2")
	require.NoError(t, err)
	_, err = run(t, "", "--config", config, "-n", ns.ID, "get", "/users/1")
	assert.Error(t, err)

	out, err = run(t, "", "--config", config, "-n", ns.ID, "ls", "--all")
	require.NoError(t, err)
	var keys []kv.KeyEntry
	require.NoError(t, cfapi.JSON.Unmarshal([]byte(out), &keys))
	assert.Len(t, keys, 1)

	out, err = run(t, "", "--config", config, "namespace", "ls", "--all")
	require.NoError(t, err)
	var all []kv.Namespace
	require.NoError(t, cfapi.JSON.Unmarshal([]byte(out), &all))
	assert.Len(t, all, 1)

	_, err = run(t, "", "--config", config, "namespace", "rename", ns.ID, "people")
	require.NoError(t, err)
	out, err = run(t, "", "--config", config, "namespace", "get", ns.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"people"`)

	_, err = run(t, "", "--config", config, "namespace", "rm", ns.ID)
	require.NoError(t, err)
	_, err = run(t, "", "--config", config, "namespace", "get", ns.ID)
	assert.ErrorIs(t, err, kv.ErrNamespaceNotFound)
}

func TestFlagsOverrideProfile(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(mock.NewServer(mock.NewStore(), "acct", "right"))
	defer srv.Close()

	config := writeProfile(t, `
account = "acct"
token = "wrong"
api_url = "`+srv.URL+`/client/v4"
`)

	_, err := run(t, "", "--config", config, "namespace", "ls")
	var apiErr *kv.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, cfapi.CodeAuthentication, apiErr.Code)

	_, err = run(t, "", "--config", config, "--token", "right", "namespace", "ls")
	assert.NoError(t, err)
}
