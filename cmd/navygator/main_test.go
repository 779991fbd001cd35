package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := strings.Join([]string{
		"config_version: 1",
		"state_dir: " + filepath.Join(dir, "state"),
		"storage:",
		"  backend: sqlite",
		"  sqlite_path: " + filepath.Join(dir, "state", "kv.db"),
		"history:",
		"  db_path: " + filepath.Join(dir, "state", "history.db"),
		"auth:",
		"  account_file: " + filepath.Join(dir, "accounts.json"),
	}, "\n") + "\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, stdin, args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestTabsCommands(t *testing.T) {
	cfg := writeTestConfig(t)
	out := mustRun(t, "", "-c", cfg, "tabs", "list")
	if !strings.Contains(out, "* ") || !strings.Contains(out, "https://www.google.com") {
		t.Fatalf("expected default selected tab, got %q", out)
	}
	out = mustRun(t, "", "-c", cfg, "tabs", "new")
	if !strings.HasPrefix(out, "tab created: ") {
		t.Fatalf("unexpected output %q", out)
	}
	id := strings.TrimSpace(strings.TrimPrefix(out, "tab created: "))

	out = mustRun(t, "", "-c", cfg, "go", "openai")
	if strings.TrimSpace(out) != "https://www.google.com/search?q=openai" {
		t.Fatalf("unexpected navigate output %q", out)
	}
	out = mustRun(t, "", "-c", cfg, "tabs", "list")
	if !strings.Contains(out, "* "+id+"\t") || !strings.Contains(out, "search?q=openai") {
		t.Fatalf("expected new tab selected with search url, got %q", out)
	}
	mustRun(t, "", "-c", cfg, "tabs", "close", id)
	out = mustRun(t, "", "-c", cfg, "tabs", "list")
	if strings.Contains(out, id) {
		t.Fatalf("expected tab %s closed, got %q", id, out)
	}
	if _, err := runCLI(t, "", "-c", cfg, "tabs", "select", "nope"); err == nil {
		t.Fatalf("expected invalid id error")
	}
	if _, err := runCLI(t, "", "-c", cfg, "tabs", "list", "--namespace", "admin"); err == nil {
		t.Fatalf("expected invalid namespace error")
	}
}

func TestAccountsLoginHistoryFlow(t *testing.T) {
	cfg := writeTestConfig(t)
	mustRun(t, "secret-pw\n", "-c", cfg, "accounts", "add", "Alice@Example.com", "--password-from-stdin")
	if out := mustRun(t, "", "-c", cfg, "accounts", "list"); !strings.Contains(out, "alice@example.com\ttotp:off") {
		t.Fatalf("unexpected accounts list %q", out)
	}
	if _, err := runCLI(t, "wrong\n", "-c", cfg, "login", "alice@example.com", "--password-from-stdin"); err == nil {
		t.Fatalf("expected bad password to fail")
	}
	if _, err := runCLI(t, "", "-c", cfg, "history", "list"); err == nil {
		t.Fatalf("expected history to require sign-in")
	}

	out := mustRun(t, "secret-pw\n", "-c", cfg, "login", "alice@example.com", "--password-from-stdin")
	if !strings.Contains(out, "signed in: alice@example.com") {
		t.Fatalf("unexpected login output %q", out)
	}
	if out := mustRun(t, "", "-c", cfg, "whoami"); !strings.Contains(out, "alice@example.com (authenticated)") {
		t.Fatalf("unexpected whoami %q", out)
	}
	mustRun(t, "", "-c", cfg, "go", "https://example.com")
	if out := mustRun(t, "", "-c", cfg, "tabs", "list", "--namespace", "guest"); strings.Contains(out, "https://example.com") || !strings.Contains(out, "https://www.google.com") {
		t.Fatalf("expected dormant guest tabs untouched, got %q", out)
	}
	if out := mustRun(t, "", "-c", cfg, "history", "list"); !strings.Contains(out, "https://example.com") {
		t.Fatalf("expected history entry, got %q", out)
	}
	mustRun(t, "", "-c", cfg, "history", "delete", "https://example.com")
	if out := mustRun(t, "", "-c", cfg, "history", "list"); !strings.Contains(out, "no history") {
		t.Fatalf("expected empty history, got %q", out)
	}

	mustRun(t, "", "-c", cfg, "logout")
	if out := mustRun(t, "", "-c", cfg, "whoami"); strings.TrimSpace(out) != "guest" {
		t.Fatalf("expected guest after logout, got %q", out)
	}
	mustRun(t, "", "-c", cfg, "accounts", "delete", "alice@example.com")
	if out := mustRun(t, "", "-c", cfg, "accounts", "list"); strings.Contains(out, "alice") {
		t.Fatalf("expected account removed, got %q", out)
	}
}

func TestAccountsAddWithTOTPPrintsEnrollment(t *testing.T) {
	cfg := writeTestConfig(t)
	out := mustRun(t, "", "-c", cfg, "accounts", "add", "bob@example.com", "--auto-password", "--totp")
	for _, want := range []string{"email: bob@example.com", "password: ", "totp_secret: ", "otpauth_url: otpauth://totp/"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in enrollment output %q", want, out)
		}
	}
	if _, err := runCLI(t, "", "-c", cfg, "accounts", "add", "not-an-email", "--auto-password"); err == nil {
		t.Fatalf("expected invalid email error")
	}
}

func TestBrowseWithoutChrome(t *testing.T) {
	cfg := writeTestConfig(t)
	script := "new\ngo example.org\nbogus\ntitle\ntabs\nquit\n"
	out := mustRun(t, script, "-c", cfg, "browse", "--no-chrome")
	for _, want := range []string{"tab created: ", "https://www.google.com/search?q=example.org", "unknown command \"bogus\"", "chrome is not running"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in browse output %q", want, out)
		}
	}
}

func TestConfigInitAndVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if out := mustRun(t, "", "config", "init", path); !strings.Contains(out, path) {
		t.Fatalf("unexpected config init output %q", out)
	}
	if _, err := runCLI(t, "", "config", "init", path); err == nil {
		t.Fatalf("expected existing config error")
	}
	mustRun(t, "", "config", "init", "--force", path)
	if out := mustRun(t, "", "version"); !strings.Contains(out, "navygator") {
		t.Fatalf("unexpected version output %q", out)
	}
}
