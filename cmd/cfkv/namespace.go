package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cfkv/workers-kv-go/pkg/kv"
)

func namespaceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "namespace",
		Aliases: []string{"ns"},
		Short:   "Namespace operations",
	}

	cmd.AddCommand(nsCreateCmd(opts))
	cmd.AddCommand(nsGetCmd(opts))
	cmd.AddCommand(nsRenameCmd(opts))
	cmd.AddCommand(nsRemoveCmd(opts))
	cmd.AddCommand(nsListCmd(opts))

	return cmd
}

func nsCreateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			ns, err := client.Namespaces().Create(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ns)
		},
	}
}

func nsGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			ns, err := client.Namespaces().Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ns)
		},
	}
}

func nsRenameCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change the title of a namespace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			if err := client.Namespaces().Rename(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Namespace '%s' renamed to '%s'\n", args[0], args[1])
			return nil
		},
	}
}

func nsRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a namespace and everything stored in it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			if err := client.Namespaces().Remove(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Namespace '%s' removed\n", args[0])
			return nil
		},
	}
}

func nsListCmd(opts *options) *cobra.Command {
	var (
		page    int
		perPage int
		order   string
		desc    bool
		all     bool
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List namespaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			listOpts := &kv.NamespaceListOptions{
				Order:   kv.NamespaceOrder(order),
				Page:    page,
				PerPage: perPage,
			}
			if desc {
				listOpts.Direction = kv.Descending
			}

			if !all {
				list, err := client.Namespaces().List(ctx, listOpts)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), list)
			}

			out := []kv.Namespace{}
			for {
				list, err := client.Namespaces().List(ctx, listOpts)
				if err != nil {
					return err
				}
				out = append(out, list.Result...)
				if list.Next == 0 {
					break
				}
				listOpts.Page = list.Next
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "namespaces per page")
	cmd.Flags().StringVar(&order, "order", "", "sort field (id|title)")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&all, "all", false, "follow every page")

	return cmd
}
