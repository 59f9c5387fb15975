package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cfkv/workers-kv-go/pkg/kv"
)

func putCmd(opts *options) *cobra.Command {
	var (
		ttl        int64
		expiration int64
		metadata   string
		asJSON     bool
		fromStdin  bool
	)
	cmd := &cobra.Command{
		Use:   "put <key> [value]",
		Short: "Store a value",
		Long: "Store a value under key. The value is stored as a JSON string unless " +
			"--json is given. With --stdin the raw bytes of standard input are stored.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromStdin == (len(args) == 2) {
				return fmt.Errorf("provide either a value argument or --stdin")
			}
			client, err := opts.namespaced(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			putOpts := &kv.PutOptions{Expiration: expiration, ExpirationTTL: ttl}
			if metadata != "" {
				if !json.Valid([]byte(metadata)) {
					return fmt.Errorf("invalid metadata JSON")
				}
				putOpts.Metadata = json.RawMessage(metadata)
			}

			var res *kv.WriteResult
			switch {
			case fromStdin:
				var data []byte
				if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return err
				}
				res, err = client.PutBytes(ctx, args[0], data, putOpts)
			case asJSON:
				res, err = client.PutJSON(ctx, args[0], json.RawMessage(args[1]), putOpts)
			default:
				res, err = kv.Put(ctx, client, args[0], args[1], putOpts)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().Int64Var(&ttl, "ttl", 0, "expire after this many seconds (minimum 60)")
	cmd.Flags().Int64Var(&expiration, "expiration", 0, "expire at this Unix time")
	cmd.Flags().StringVar(&metadata, "metadata", "", "JSON metadata to attach")
	cmd.Flags().BoolVar(&asJSON, "json", false, "store the value argument as a JSON document")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "store raw bytes read from standard input")

	return cmd
}

func getCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.namespaced(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			data, err := client.GetBytes(ctx, args[0])
			if err != nil {
				return err
			}
			if data == nil {
				return fmt.Errorf("key '%s' not found", args[0])
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func delCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "del <key>...",
		Aliases: []string{"rm"},
		Short:   "Delete keys",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.namespaced(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			res, err := client.DeleteMany(ctx, args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func lsCmd(opts *options) *cobra.Command {
	var (
		prefix string
		cursor string
		limit  int
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.namespaced(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			if all {
				keys, err := client.ListAll(ctx, prefix)
				if err != nil {
					return err
				}
				if keys == nil {
					keys = []kv.KeyEntry{}
				}
				return printJSON(cmd.OutOrStdout(), keys)
			}
			list, err := client.List(ctx, &kv.ListOptions{Prefix: prefix, Cursor: cursor, Limit: limit})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}

	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "only keys starting with prefix")
	cmd.Flags().StringVar(&cursor, "cursor", "", "continue a previous listing")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum keys to return")
	cmd.Flags().BoolVar(&all, "all", false, "follow cursors until every key is listed")

	return cmd
}

func metaCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "meta <key>",
		Short: "Print the metadata attached to a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.namespaced(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			raw, err := client.Metadata().Get(ctx, args[0])
			if err != nil {
				return err
			}
			if raw == nil {
				return fmt.Errorf("key '%s' not found", args[0])
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}
