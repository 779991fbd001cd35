package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/pquerna/otp/totp"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/navygator"
	"pkt.systems/navygator/internal/appconfig"
	"pkt.systems/navygator/internal/auth"
	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

const (
	defaultPasswordLength = 20
	totpIssuer            = "navygator"
)

func newAccountsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage local accounts",
	}
	cmd.AddCommand(newAccountsListCmd(cfgPath))
	cmd.AddCommand(newAccountsAddCmd(cfgPath))
	cmd.AddCommand(newAccountsDeleteCmd(cfgPath))
	return cmd
}

func openAccountStore(cmd *cobra.Command, cfgPath string) (*auth.Store, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return auth.NewStoreWithLogger(cfg.Auth.AccountFile, pslog.Ctx(cmd.Context()))
}

func newAccountsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAccountStore(cmd, *cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, account := range store.LoadAccounts() {
				totpState := "totp:off"
				if account.TOTPSecret != "" {
					totpState = "totp:on"
				}
				_, _ = fmt.Fprintf(out, "%s\t%s\n", account.Email, totpState)
			}
			return nil
		},
	}
}

func newAccountsAddCmd(cfgPath *string) *cobra.Command {
	var passwordFromStdin bool
	var autoPassword bool
	var withTOTP bool
	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := schema.NormalizeEmail(args[0])
			if err != nil {
				return fmt.Errorf("invalid email %q", args[0])
			}
			password, generated, err := resolvePassword(cmd, passwordFromStdin, autoPassword, true)
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			var secret, url string
			if withTOTP {
				if secret, url, err = generateTOTP(email); err != nil {
					return err
				}
			}
			store, err := openAccountStore(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if err := store.AddAccount(auth.Account{
				Email:        email,
				PasswordHash: string(hash),
				TOTPSecret:   secret,
			}); err != nil {
				return err
			}
			printEnrollment(cmd.OutOrStdout(), email, password, generated, secret, url)
			return nil
		},
	}
	cmd.Flags().BoolVar(&passwordFromStdin, "password-from-stdin", false, "read password from stdin")
	cmd.Flags().BoolVar(&autoPassword, "auto-password", false, "generate a random password")
	cmd.Flags().BoolVar(&withTOTP, "totp", false, "require a TOTP code at sign-in")
	return cmd
}

func newAccountsDeleteCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <email>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAccountStore(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if err := store.DeleteAccount(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted account: %s\n", args[0])
			return nil
		},
	}
}

func newLoginCmd(cfgPath *string) *cobra.Command {
	var passwordFromStdin bool
	var code string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and switch to the account's tabs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _, err := resolvePassword(cmd, passwordFromStdin, false, false)
			if err != nil {
				return err
			}
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				ctrl, err := b.Session().SignIn(ctx, args[0], password, code)
				if err != nil {
					return err
				}
				session := ctrl.Session()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "signed in: %s (%d tabs)\n", session.AccountEmail, len(ctrl.Snapshot().Tabs))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&passwordFromStdin, "password-from-stdin", false, "read password from stdin")
	cmd.Flags().StringVar(&code, "code", "", "TOTP code")
	return cmd
}

func newLogoutCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and switch to guest tabs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				if _, err := b.Session().SignOut(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, *cfgPath, func(ctx context.Context, b *navygator.Browser) error {
				session := b.Controller().Session()
				if session.Authenticated() {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", session.AccountEmail, session.Namespace)
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", session.Namespace)
				return nil
			})
		},
	}
}

func resolvePassword(cmd *cobra.Command, fromStdin, auto, confirm bool) (string, bool, error) {
	if fromStdin && auto {
		return "", false, errors.New("choose one of --password-from-stdin or --auto-password")
	}
	if fromStdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", false, err
		}
		pass := strings.TrimSpace(string(data))
		if pass == "" {
			return "", false, errors.New("password from stdin is empty")
		}
		return pass, false, nil
	}
	if auto {
		pass, err := generatePassword(defaultPasswordLength)
		if err != nil {
			return "", false, err
		}
		return pass, true, nil
	}
	passphrase, err := keymgmt.PromptPassphrase(cmd.InOrStdin(), "Password: ", cmd.ErrOrStderr())
	if err != nil {
		return "", false, err
	}
	if confirm {
		again, err := keymgmt.PromptPassphrase(cmd.InOrStdin(), "Confirm password: ", cmd.ErrOrStderr())
		if err != nil {
			return "", false, err
		}
		if string(passphrase) != string(again) {
			return "", false, errors.New("passwords do not match")
		}
	}
	pass := string(passphrase)
	if pass == "" {
		return "", false, errors.New("password is empty")
	}
	return pass, false, nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		length = defaultPasswordLength
	}
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	for i, b := range bytes {
		bytes[i] = charset[int(b)%len(charset)]
	}
	return string(bytes), nil
}

func generateTOTP(email string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func printEnrollment(w io.Writer, email, password string, showPassword bool, secret, url string) {
	_, _ = fmt.Fprintf(w, "email: %s\n", email)
	if showPassword && password != "" {
		_, _ = fmt.Fprintf(w, "password: %s\n", password)
	}
	if secret != "" {
		_, _ = fmt.Fprintf(w, "totp_secret: %s\n", secret)
	}
	if url != "" {
		_, _ = fmt.Fprintf(w, "otpauth_url: %s\n", url)
		_, _ = fmt.Fprintln(w, "totp_qr:")
		qrterminal.GenerateHalfBlock(url, qrterminal.L, w)
	}
}
