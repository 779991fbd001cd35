package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/navygator"
	"pkt.systems/navygator/internal/appconfig"
	"pkt.systems/navygator/schema"
)

// withBrowser opens the browser for one command and closes it afterwards.
func withBrowser(cmd *cobra.Command, cfgPath string, fn func(ctx context.Context, b *navygator.Browser) error, opts ...navygator.Option) (err error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	b, err := navygator.Open(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := b.Close(context.WithoutCancel(ctx)); err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, b)
}

func parseTabID(value string) (schema.TabID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return schema.NoTab, fmt.Errorf("invalid tab id %q", value)
	}
	return schema.TabID(id), nil
}

func printTabs(w io.Writer, snap schema.SessionSnapshot) {
	for _, tab := range snap.Tabs {
		marker := " "
		if tab.ID == snap.Selected {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%s %d\t%s\t%s\n", marker, tab.ID, schema.TabLabel(tab.URL), tab.URL)
	}
}
