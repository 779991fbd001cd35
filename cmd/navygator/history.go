package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/navygator"
	"pkt.systems/navygator/schema"
)

func newHistoryCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse the signed-in account's history",
	}
	cmd.AddCommand(newHistoryListCmd(cfgPath))
	cmd.AddCommand(newHistoryDeleteCmd(cfgPath))
	return cmd
}

func signedInEmail(ctx context.Context, b *navygator.Browser) (string, error) {
	email, ok := b.Identity().CurrentAccountEmail(ctx)
	if !ok {
		return "", schema.ErrNotSignedIn
	}
	return email, nil
}

func newHistoryListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List visited pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				email, err := signedInEmail(ctx, b)
				if err != nil {
					return err
				}
				records, err := b.History().List(ctx, email)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					_, _ = fmt.Fprintln(out, "no history")
					return nil
				}
				for _, record := range records {
					_, _ = fmt.Fprintf(out, "%s\t%s\n", record.CreatedAt.Local().Format(time.DateTime), record.URL)
				}
				return nil
			})
		},
	}
}

func newHistoryDeleteCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url>",
		Short: "Delete a page from history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				email, err := signedInEmail(ctx, b)
				if err != nil {
					return err
				}
				if err := b.History().Delete(ctx, email, args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "history deleted: %s\n", args[0])
				return nil
			})
		},
	}
}
