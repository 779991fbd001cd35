package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/navygator"
	"pkt.systems/navygator/schema"
)

func newTabsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tabs",
		Short: "Manage tabs of the active workspace",
	}
	cmd.AddCommand(newTabsListCmd(cfgPath))
	cmd.AddCommand(newTabsNewCmd(cfgPath))
	cmd.AddCommand(newTabsCloseCmd(cfgPath))
	cmd.AddCommand(newTabsSelectCmd(cfgPath))
	return cmd
}

func newTabsListCmd(cfgPath *string) *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tabs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ns schema.Namespace
			if namespace != "" {
				parsed, err := schema.ParseNamespace(namespace)
				if err != nil {
					return fmt.Errorf("%w: %q", err, namespace)
				}
				ns = parsed
			}
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				snap := b.Controller().Snapshot()
				if ns != "" && ns != snap.Namespace {
					// The dormant namespace is read as stored, without repair.
					selected, _ := b.Tabs().SelectedTabID(ctx, ns)
					snap = schema.SessionSnapshot{
						Namespace: ns,
						Tabs:      b.Tabs().LoadTabs(ctx, ns),
						Selected:  selected,
					}
				}
				printTabs(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&namespace, "namespace", "", "list the stored tabs of guest or authenticated")
	return cmd
}

func newTabsNewCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Open a new tab on the home page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				tab, err := b.Controller().Create(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tab created: %d\n", tab.ID)
				return nil
			})
		},
	}
}

func newTabsCloseCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Close a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTabID(args[0])
			if err != nil {
				return err
			}
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				if err := b.Controller().Close(ctx, id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tab closed: %d\n", id)
				return nil
			})
		},
	}
}

func newTabsSelectCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "select <id>",
		Short: "Select a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTabID(args[0])
			if err != nil {
				return err
			}
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				return b.Controller().Select(ctx, id)
			})
		},
	}
}

func newGoCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "go <address or search>",
		Short: "Load an address or search in the selected tab",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.Join(args, " ")
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				url, err := b.Controller().RequestNavigate(ctx, target)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
}

func newHomeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Load the home page in the selected tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				url, err := b.Controller().GoHome(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
}
