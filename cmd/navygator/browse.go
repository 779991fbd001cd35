package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/navygator"
	"pkt.systems/navygator/core"
	"pkt.systems/navygator/schema"
)

const browseHelp = `commands:
  tabs                 list tabs
  new                  open a tab on the home page
  close <id>           close a tab
  select <id>          select a tab
  go <text>            load an address or search
  home                 load the home page
  title                print the selected page title
  login <email> [code] sign in (password prompted)
  logout               sign out
  quit                 leave`

func newBrowseCmd(cfgPath *string) *cobra.Command {
	var noSurface bool
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactive session rendered in headless Chrome",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []navygator.Option
			if !noSurface {
				opts = append(opts, navygator.WithSurface())
			}
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				return runBrowse(ctx, cmd, b)
			}, opts...)
		},
	}
	cmd.Flags().BoolVar(&noSurface, "no-chrome", false, "track tabs without starting Chrome")
	return cmd
}

func runBrowse(ctx context.Context, cmd *cobra.Command, b *navygator.Browser) error {
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	_, _ = fmt.Fprintln(out, browseHelp)
	printTabs(out, b.Controller().Snapshot())
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		ctrl := b.Controller()
		if ctrl == nil {
			return schema.ErrSessionClosed
		}
		_, _ = fmt.Fprintf(out, "%s> ", ctrl.Session().Namespace)
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if errors.Is(err, io.EOF) {
				return nil
			}
			continue
		}
		quit, cmdErr := browseCommand(ctx, cmd, in, b, ctrl, fields)
		if cmdErr != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n", cmdErr)
		}
		if quit || errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func browseCommand(ctx context.Context, cmd *cobra.Command, in io.Reader, b *navygator.Browser, ctrl *core.Controller, fields []string) (bool, error) {
	out := cmd.OutOrStdout()
	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		_, _ = fmt.Fprintln(out, browseHelp)
	case "tabs", "ls":
		printTabs(out, ctrl.Snapshot())
	case "new":
		tab, err := ctrl.Create(ctx)
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(out, "tab created: %d\n", tab.ID)
	case "close", "select":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: %s <id>", fields[0])
		}
		id, err := parseTabID(fields[1])
		if err != nil {
			return false, err
		}
		if fields[0] == "close" {
			return false, ctrl.Close(ctx, id)
		}
		return false, ctrl.Select(ctx, id)
	case "go":
		url, err := ctrl.RequestNavigate(ctx, strings.Join(fields[1:], " "))
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintln(out, url)
	case "home":
		url, err := ctrl.GoHome(ctx)
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintln(out, url)
	case "title":
		surface := b.Surface()
		if surface == nil {
			return false, errors.New("chrome is not running")
		}
		title, err := surface.Title(ctx, ctrl.Snapshot().Selected)
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintln(out, title)
	case "login":
		if len(fields) < 2 {
			return false, errors.New("usage: login <email> [code]")
		}
		passphrase, err := keymgmt.PromptPassphrase(in, "Password: ", cmd.ErrOrStderr())
		if err != nil {
			return false, err
		}
		password := string(passphrase)
		code := ""
		if len(fields) > 2 {
			code = fields[2]
		}
		next, err := b.Session().SignIn(ctx, fields[1], password, code)
		if err != nil {
			return false, err
		}
		printTabs(out, next.Snapshot())
	case "logout":
		next, err := b.Session().SignOut(ctx)
		if err != nil {
			return false, err
		}
		printTabs(out, next.Snapshot())
	default:
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return false, nil
}
