package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cfkv/workers-kv-go/internal/cfapi"
	"github.com/cfkv/workers-kv-go/pkg/kv"
)

// options holds the persistent flags shared by every command.
type options struct {
	account    string
	token      string
	namespace  string
	apiURL     string
	configPath string
	timeout    time.Duration
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "cfkv",
		Short:         "Workers KV command line client",
		Long:          "Manage Workers KV namespaces and keys through the REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.account, "account", "", "account id (env CF_ACCOUNT_ID)")
	flags.StringVar(&opts.token, "token", "", "API token (env CF_API_TOKEN)")
	flags.StringVarP(&opts.namespace, "namespace", "n", "", "namespace id (env CF_KV_NAMESPACE_ID)")
	flags.StringVar(&opts.apiURL, "api-url", "", "API root (env CF_API_URL)")
	flags.StringVar(&opts.configPath, "config", "", "TOML profile (default $HOME/.config/cfkv/config.toml)")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-command timeout")
	flags.BoolVar(&opts.debug, "debug", false, "log requests to stderr")

	cmd.AddCommand(namespaceCmd(opts))
	cmd.AddCommand(putCmd(opts))
	cmd.AddCommand(getCmd(opts))
	cmd.AddCommand(delCmd(opts))
	cmd.AddCommand(lsCmd(opts))
	cmd.AddCommand(metaCmd(opts))

	return cmd
}

// client resolves credentials from flags, then the environment, then the
// profile, and builds a Client.
func (o *options) client(cmd *cobra.Command) (*kv.Client, error) {
	prof, err := loadProfile(o.configPath)
	if err != nil {
		return nil, err
	}
	account := firstNonEmpty(o.account, os.Getenv("CF_ACCOUNT_ID"), prof.Account)
	token := firstNonEmpty(o.token, os.Getenv("CF_API_TOKEN"), prof.Token)
	namespace := firstNonEmpty(o.namespace, os.Getenv("CF_KV_NAMESPACE_ID"), prof.Namespace)
	apiURL := firstNonEmpty(o.apiURL, os.Getenv("CF_API_URL"), prof.APIURL, kv.DefaultBaseURL)

	if o.debug {
		kv.DebugLogger.SetOutput(cmd.ErrOrStderr())
	}
	return kv.New(account, token, kv.WithBaseURL(apiURL), kv.WithNamespace(namespace))
}

// namespaced is like client but fails when no namespace is configured.
func (o *options) namespaced(cmd *cobra.Command) (*kv.Client, error) {
	client, err := o.client(cmd)
	if err != nil {
		return nil, err
	}
	if client.NamespaceID() == "" {
		return nil, fmt.Errorf("a namespace is required: pass --namespace or set CF_KV_NAMESPACE_ID")
	}
	return client, nil
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

func printJSON(w io.Writer, v any) error {
	data, err := cfapi.JSON.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
